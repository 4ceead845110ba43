// Package adapter maps commerce API resources onto in-memory records.
//
// An Adapter serves one resource type within a Session. It resolves records
// through its identity map before going to the network, drives paginated
// listings, persists records and ingests sideloaded related records into the
// adapters of their own resource types.
//
// Adapters are not safe for concurrent use.
package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Sternrassler/commerce-client/pkg/client"
	"github.com/Sternrassler/commerce-client/pkg/identity"
	"github.com/Sternrassler/commerce-client/pkg/pagination"
	"github.com/Sternrassler/commerce-client/pkg/record"
	"github.com/rs/zerolog"
)

// Adapter is the record adapter of one resource type.
type Adapter struct {
	resource Resource
	session  *Session
	identity *identity.Map
	logger   zerolog.Logger

	pagination    pagination.State
	hasPagination bool
}

// New creates the adapter of res bound to session s.
func New(s *Session, res Resource) *Adapter {
	return &Adapter{
		resource: res,
		session:  s,
		identity: identity.New(res.CollectionKey),
		logger:   s.logger.With().Str("resource", res.CollectionKey).Logger(),
	}
}

// Resource returns the naming conventions of the adapter's resource type.
func (a *Adapter) Resource() Resource {
	return a.resource
}

// Identity returns the adapter's identity map.
func (a *Adapter) Identity() *identity.Map {
	return a.identity
}

// Build creates a transient record of this resource type.
func (a *Adapter) Build(attrs map[string]any) *record.Record {
	return record.New(a.resource.CollectionKey, attrs)
}

// Find returns the record with the given id, from the identity map when cached.
func (a *Adapter) Find(ctx context.Context, id string) (*record.Record, error) {
	if id == "" {
		return nil, &NotFoundError{Resource: a.resource.CollectionKey}
	}
	if rec, err := a.identity.Find(id); err == nil {
		return rec, nil
	}
	return a.Fetch(ctx, id)
}

// Fetch requests the record with the given id, bypassing the identity map.
// The response is merged into the cached instance, if any.
func (a *Adapter) Fetch(ctx context.Context, id string) (*record.Record, error) {
	if id == "" {
		return nil, &NotFoundError{Resource: a.resource.CollectionKey}
	}

	resp, err := a.session.doer.Do(ctx, client.Request{
		Method: http.MethodGet,
		Path:   a.memberPath(id),
	})
	if err != nil {
		if client.StatusOf(err) == http.StatusNotFound {
			return nil, &NotFoundError{Resource: a.resource.CollectionKey, ID: id, Err: err}
		}
		return nil, fmt.Errorf("fetch %s %q: %w", a.resource.RootKey, id, err)
	}

	body, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}
	attrs, ok := a.memberAttributes(body)
	if !ok {
		return nil, fmt.Errorf("fetch %s %q: response has no %q object", a.resource.RootKey, id, a.resource.RootKey)
	}

	rec, err := a.instantiate(attrs)
	if err != nil {
		return nil, err
	}
	if _, wrapped := body[a.resource.RootKey]; wrapped {
		a.sideload(body)
	}
	return rec, nil
}

// FindMany resolves several ids, requesting only when some are not cached.
// The order of the result does not follow ids.
func (a *Adapter) FindMany(ctx context.Context, ids []string) ([]*record.Record, error) {
	var cached []*record.Record
	missing := false
	for _, id := range ids {
		if rec, err := a.identity.Find(id); err == nil {
			cached = append(cached, rec)
		} else {
			missing = true
		}
	}
	if !missing {
		return cached, nil
	}

	page, err := a.Where(ctx, Query{IDs: ids})
	if err != nil {
		return nil, err
	}

	seen := make(map[*record.Record]bool, len(page.Records))
	out := make([]*record.Record, 0, len(page.Records)+len(cached))
	for _, rec := range page.Records {
		seen[rec] = true
		out = append(out, rec)
	}
	for _, rec := range cached {
		if !seen[rec] {
			out = append(out, rec)
		}
	}
	return out, nil
}

// instantiate turns API attributes into the registered record for their id.
// A cached instance is updated in place.
func (a *Adapter) instantiate(attrs map[string]any) (*record.Record, error) {
	rec, err := record.Load(a.resource.CollectionKey, attrs)
	if err != nil {
		return nil, err
	}
	if existing, err := a.identity.Find(rec.ID()); err == nil {
		existing.Merge(attrs)
		return existing, nil
	}
	a.identity.Register(rec)
	return rec, nil
}

func (a *Adapter) memberPath(id string) string {
	return a.resource.Path + "/" + url.PathEscape(id)
}

// memberAttributes extracts a single-record object wrapped in the root key,
// falling back to a bare object.
func (a *Adapter) memberAttributes(body map[string]any) (map[string]any, bool) {
	if raw, ok := body[a.resource.RootKey]; ok {
		attrs, ok := raw.(map[string]any)
		return attrs, ok
	}
	if _, ok := body[record.IDField]; ok {
		return body, true
	}
	return nil, false
}

// decodeBody decodes a JSON object body. An empty body yields an empty map.
func decodeBody(resp *client.Response) (map[string]any, error) {
	body := map[string]any{}
	if resp == nil {
		return body, nil
	}
	if err := resp.Decode(&body); err != nil {
		return nil, err
	}
	return body, nil
}
