package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Sternrassler/commerce-client/pkg/client"
	"github.com/Sternrassler/commerce-client/pkg/pagination"
	"github.com/Sternrassler/commerce-client/pkg/record"
)

// Page is the result of one listing request.
type Page struct {
	Records []*record.Record
	// Pagination is valid only when HasPagination is true.
	Pagination    pagination.State
	HasPagination bool
}

// Where lists the records matching q with a single request.
func (a *Adapter) Where(ctx context.Context, q Query) (*Page, error) {
	return a.list(ctx, q.Values())
}

// WhereEach walks every page of the listing matching q, 100 records at a time,
// calling fn for each record in page order. It returns all records seen.
// An error from fn or from any page aborts the walk.
func (a *Adapter) WhereEach(ctx context.Context, q Query, fn func(*record.Record) error) ([]*record.Record, error) {
	var all []*record.Record

	fetcher := pagination.PageFetcherFunc(func(ctx context.Context, page, limit int) (pagination.PageResult, error) {
		pq := q
		pq.Page = page
		pq.Limit = limit

		p, err := a.Where(ctx, pq)
		if err != nil {
			return pagination.PageResult{}, err
		}
		for _, rec := range p.Records {
			if fn != nil {
				if err := fn(rec); err != nil {
					return pagination.PageResult{}, err
				}
			}
			all = append(all, rec)
		}
		return pagination.PageResult{
			Count:    len(p.Records),
			State:    p.Pagination,
			HasState: p.HasPagination,
		}, nil
	})

	cfg := pagination.DefaultConfig()
	cfg.Logger = &a.logger
	if _, err := pagination.NewWalker(fetcher, cfg).Walk(ctx); err != nil {
		return nil, err
	}
	return all, nil
}

// First returns the first record matching q.
func (a *Adapter) First(ctx context.Context, q Query) (*record.Record, error) {
	q.Limit = 1
	p, err := a.Where(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(p.Records) == 0 {
		return nil, &NotFoundError{Resource: a.resource.CollectionKey}
	}
	return p.Records[0], nil
}

// Count returns total_records of the listing matching q without loading records.
// It is 0 when the response carries no pagination header.
func (a *Adapter) Count(ctx context.Context, q Query) (int, error) {
	v := q.Values()
	v.Set("limit", "0")
	v.Del("page")

	p, err := a.list(ctx, v)
	if err != nil {
		return 0, err
	}
	if !p.HasPagination {
		return 0, nil
	}
	return p.Pagination.TotalRecords, nil
}

// Size returns the last known total_records, counting when no listing was made yet.
func (a *Adapter) Size(ctx context.Context) (int, error) {
	if a.hasPagination {
		return a.pagination.TotalRecords, nil
	}
	return a.Count(ctx, Query{})
}

// LastPagination returns the pagination snapshot of the most recent listing.
func (a *Adapter) LastPagination() (pagination.State, bool) {
	return a.pagination, a.hasPagination
}

func (a *Adapter) list(ctx context.Context, params url.Values) (*Page, error) {
	resp, err := a.session.doer.Do(ctx, client.Request{
		Method: http.MethodGet,
		Path:   a.resource.Path,
		Query:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", a.resource.CollectionKey, err)
	}

	body, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}

	page := &Page{}
	items, _ := body[a.resource.CollectionKey].([]any)
	for i, item := range items {
		attrs, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("list %s: element %d is not an object", a.resource.CollectionKey, i)
		}
		rec, err := a.instantiate(attrs)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", a.resource.CollectionKey, err)
		}
		page.Records = append(page.Records, rec)
	}
	a.sideload(body)

	state, ok, err := pagination.ParseHeader(resp.Header, a.session.config.PaginationHeader)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Ignoring malformed pagination header")
	}
	if ok {
		a.pagination, a.hasPagination = state, true
		page.Pagination, page.HasPagination = state, true
	}

	a.logger.Debug().
		Int("records", len(page.Records)).
		Str("params", params.Encode()).
		Str("pages", paginationSummary(page)).
		Msg("Listing received")

	return page, nil
}

func paginationSummary(p *Page) string {
	if !p.HasPagination {
		return "none"
	}
	return strconv.Itoa(p.Pagination.Page) + "/" + strconv.Itoa(p.Pagination.TotalPages)
}
