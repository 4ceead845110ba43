package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Sternrassler/commerce-client/pkg/client"
	"github.com/Sternrassler/commerce-client/pkg/record"
	"github.com/google/uuid"
)

// Status is the outcome of a write that reached the API.
type Status int

const (
	// StatusOK means the server accepted the write.
	StatusOK Status = iota
	// StatusValidationFailed means the server answered 422; the messages are on the record.
	StatusValidationFailed
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusValidationFailed:
		return "validation_failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the outcome of Save, Create, Update and Delete.
type Result struct {
	Status Status
	Record *record.Record
	Errors record.Errors
}

// OK reports whether the write was accepted.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

type writeOptions struct {
	idempotencyKey string
}

// WriteOption configures a write request.
type WriteOption func(*writeOptions)

// WithIdempotencyKey sends key as the Idempotency-Key header.
func WithIdempotencyKey(key string) WriteOption {
	return func(o *writeOptions) {
		o.idempotencyKey = key
	}
}

// WithGeneratedIdempotencyKey sends a random UUID as the Idempotency-Key header.
func WithGeneratedIdempotencyKey() WriteOption {
	return func(o *writeOptions) {
		o.idempotencyKey = uuid.NewString()
	}
}

func applyWriteOptions(opts []WriteOption) writeOptions {
	var o writeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Save creates rec when it is transient and updates it otherwise.
func (a *Adapter) Save(ctx context.Context, rec *record.Record, opts ...WriteOption) (Result, error) {
	if rec.Persisted() {
		return a.Update(ctx, rec, opts...)
	}
	return a.Create(ctx, rec, opts...)
}

// Create posts a transient record to the collection.
func (a *Adapter) Create(ctx context.Context, rec *record.Record, opts ...WriteOption) (Result, error) {
	if rec.Persisted() {
		return Result{}, fmt.Errorf("create %s: record %q is already persisted", a.resource.RootKey, rec.ID())
	}
	o := applyWriteOptions(opts)

	resp, err := a.session.doer.Do(ctx, client.Request{
		Method:         http.MethodPost,
		Path:           a.resource.Path,
		Body:           a.payload(rec),
		IdempotencyKey: o.idempotencyKey,
	})
	return a.HandleResponse(rec, resp, err)
}

// Update puts the attributes of a persisted record.
func (a *Adapter) Update(ctx context.Context, rec *record.Record, opts ...WriteOption) (Result, error) {
	if !rec.Persisted() {
		return Result{}, fmt.Errorf("update %s: record is not persisted", a.resource.RootKey)
	}
	o := applyWriteOptions(opts)

	resp, err := a.session.doer.Do(ctx, client.Request{
		Method:         http.MethodPut,
		Path:           a.memberPath(rec.ID()),
		Body:           a.payload(rec),
		IdempotencyKey: o.idempotencyKey,
	})
	return a.HandleResponse(rec, resp, err)
}

// Delete removes rec remotely when persisted, then drops it from the identity
// map. A 422 answer still unregisters the record.
func (a *Adapter) Delete(ctx context.Context, rec *record.Record, opts ...WriteOption) (Result, error) {
	if !rec.Persisted() {
		a.identity.Unregister(rec)
		return Result{Status: StatusOK, Record: rec, Errors: rec.Errors()}, nil
	}
	o := applyWriteOptions(opts)

	resp, err := a.session.doer.Do(ctx, client.Request{
		Method:         http.MethodDelete,
		Path:           a.memberPath(rec.ID()),
		IdempotencyKey: o.idempotencyKey,
	})
	res, err := a.HandleResponse(rec, resp, err)
	if err != nil {
		return res, err
	}
	a.identity.Unregister(rec)
	return res, nil
}

// HandleResponse applies the response of a write to rec. A 2xx answer merges
// the returned attributes, clears the errors and registers the record. A 422
// answer merges the returned messages into the record's errors. Any other
// failure is returned as an error.
func (a *Adapter) HandleResponse(rec *record.Record, resp *client.Response, err error) (Result, error) {
	if err != nil {
		var apiErr *client.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnprocessableEntity {
			return a.handleValidation(rec, apiErr.Response)
		}
		if client.StatusOf(err) == http.StatusNotFound && rec.Persisted() {
			return Result{}, &NotFoundError{Resource: a.resource.CollectionKey, ID: rec.ID(), Err: err}
		}
		return Result{}, fmt.Errorf("write %s: %w", a.resource.RootKey, err)
	}

	body, err := decodeBody(resp)
	if err != nil {
		return Result{}, fmt.Errorf("write %s: %w", a.resource.RootKey, err)
	}
	if attrs, ok := a.memberAttributes(body); ok {
		rec.Merge(attrs)
	}
	if _, wrapped := body[a.resource.RootKey]; wrapped {
		a.sideload(body)
	}

	rec.Errors().Clear()
	a.identity.Register(rec)

	return Result{Status: StatusOK, Record: rec, Errors: rec.Errors()}, nil
}

func (a *Adapter) handleValidation(rec *record.Record, resp *client.Response) (Result, error) {
	body, err := decodeBody(resp)
	if err != nil {
		return Result{}, fmt.Errorf("write %s: %w", a.resource.RootKey, err)
	}
	rec.Errors().Merge(validationMessages(body["errors"]))

	a.logger.Debug().
		Str("id", rec.ID()).
		Strs("errors", rec.Errors().Full()).
		Msg("Validation failed")

	return Result{Status: StatusValidationFailed, Record: rec, Errors: rec.Errors()}, nil
}

// validationMessages reads {"field": ["message", ...]}; single string messages
// are accepted too.
func validationMessages(raw any) map[string][]string {
	out := map[string][]string{}
	fields, ok := raw.(map[string]any)
	if !ok {
		return out
	}
	for field, v := range fields {
		switch msgs := v.(type) {
		case []any:
			for _, m := range msgs {
				if s, ok := m.(string); ok {
					out[field] = append(out[field], s)
				}
			}
		case string:
			out[field] = append(out[field], msgs)
		}
	}
	return out
}

// payload wraps the attributes (without id) in the root key.
func (a *Adapter) payload(rec *record.Record) map[string]any {
	return map[string]any{a.resource.RootKey: rec.Attributes()}
}
