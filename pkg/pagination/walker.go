package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds walker configuration.
type Config struct {
	// Limit is the page size requested for every page.
	Limit int
	// MaxPages stops traversal after this many pages (0 = no cap).
	MaxPages int
	// Logger receives traversal progress (default: global logger).
	Logger *zerolog.Logger
}

// DefaultConfig returns the configuration used for full collection traversal.
func DefaultConfig() Config {
	return Config{
		Limit: DefaultLimit,
	}
}

// PageResult describes one fetched page.
type PageResult struct {
	// Count is the number of records on the page.
	Count int
	// State is the pagination metadata of the response.
	State State
	// HasState is false when the response carried no pagination header.
	HasState bool
}

// PageFetcher fetches a single page of a listing.
type PageFetcher interface {
	FetchPage(ctx context.Context, page, limit int) (PageResult, error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc func(ctx context.Context, page, limit int) (PageResult, error)

// FetchPage calls f.
func (f PageFetcherFunc) FetchPage(ctx context.Context, page, limit int) (PageResult, error) {
	return f(ctx, page, limit)
}

// Walker requests the pages of a listing one after another.
type Walker struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger
}

// NewWalker creates a walker over fetcher.
func NewWalker(fetcher PageFetcher, config Config) *Walker {
	if config.Limit <= 0 {
		config.Limit = DefaultLimit
	}
	logger := log.Logger
	if config.Logger != nil {
		logger = *config.Logger
	}

	return &Walker{
		fetcher: fetcher,
		config:  config,
		logger:  logger,
	}
}

// Walk fetches page 1 and every following page until the page number exceeds
// the reported total_pages. It returns the last pagination state seen.
func (w *Walker) Walk(ctx context.Context) (State, error) {
	start := time.Now()

	first, err := w.fetcher.FetchPage(ctx, DefaultPage, w.config.Limit)
	if err != nil {
		return State{}, fmt.Errorf("fetch page %d: %w", DefaultPage, err)
	}

	if !first.HasState || first.State.TotalPages <= 1 {
		w.logger.Debug().
			Int("records", first.Count).
			Dur("duration", time.Since(start)).
			Msg("Traversal complete (single page)")
		return first.State, nil
	}

	w.logger.Debug().
		Int("total_pages", first.State.TotalPages).
		Int("total_records", first.State.TotalRecords).
		Msg("Starting page traversal")

	last := first.State
	fetched, records := 1, first.Count
	for page := DefaultPage + 1; page <= last.TotalPages; page++ {
		if w.config.MaxPages > 0 && fetched >= w.config.MaxPages {
			w.logger.Warn().
				Int("max_pages", w.config.MaxPages).
				Int("total_pages", last.TotalPages).
				Msg("Page cap reached - stopping traversal")
			break
		}

		if err := ctx.Err(); err != nil {
			return last, fmt.Errorf("fetch page %d: %w", page, err)
		}

		res, err := w.fetcher.FetchPage(ctx, page, w.config.Limit)
		if err != nil {
			return last, fmt.Errorf("fetch page %d: %w", page, err)
		}
		fetched++
		records += res.Count

		if res.HasState {
			// total_pages may shrink or grow while draining a live collection
			last = res.State
			last.Page = page
		} else {
			last.Page = page
		}
	}

	w.logger.Info().
		Int("pages", fetched).
		Int("records", records).
		Dur("duration", time.Since(start)).
		Msg("Traversal complete")

	return last, nil
}
