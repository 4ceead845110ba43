package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	resetSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "commerce_rate_limit_reset_timestamp_seconds",
		Help: "Epoch seconds of the last reported rate limit reset",
	})

	stateErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commerce_rate_limit_state_errors_total",
		Help: "Rate limit state store errors by operation",
	}, []string{"operation"})
)

// Tracker records the reset time reported by the API and computes how long a
// rate-limited request has to wait.
type Tracker struct {
	store  Store
	header string
	logger zerolog.Logger
	now    func() time.Time
}

// NewTracker creates a tracker. A nil store uses a MemoryStore.
func NewTracker(store Store, logger zerolog.Logger) *Tracker {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Tracker{
		store:  store,
		header: DefaultResetHeader,
		logger: logger,
		now:    time.Now,
	}
}

// SetHeader overrides the reset header name.
func (t *Tracker) SetHeader(name string) {
	if name != "" {
		t.header = name
	}
}

// SetClock replaces the time source (for testing).
func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}

// GetState returns the stored state; ok is false until a reset header was seen.
func (t *Tracker) GetState(ctx context.Context) (State, bool, error) {
	state, ok, err := t.store.Load(ctx)
	if err != nil {
		stateErrorsTotal.WithLabelValues("load").Inc()
		return State{}, false, fmt.Errorf("load rate limit state: %w", err)
	}
	return state, ok, nil
}

// UpdateFromHeaders stores the reset time carried by a response, if any.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	raw := strings.TrimSpace(headers.Get(t.header))
	if raw == "" {
		// Header not present on every response
		return nil
	}

	epoch, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", t.header, err)
	}

	state := State{
		ResetAt:    time.Unix(epoch, 0),
		LastUpdate: t.now(),
	}
	if err := t.store.Save(ctx, state); err != nil {
		stateErrorsTotal.WithLabelValues("save").Inc()
		return fmt.Errorf("save rate limit state: %w", err)
	}

	resetSeconds.Set(float64(epoch))
	t.logger.Debug().
		Time("reset_at", state.ResetAt).
		Msg("Rate limit reset updated")

	return nil
}

// WaitDuration returns how long to wait before retrying a rate-limited request:
// the time until the last reported reset, or fallback when no reset is known.
func (t *Tracker) WaitDuration(ctx context.Context, fallback time.Duration) (time.Duration, error) {
	state, ok, err := t.GetState(ctx)
	if err != nil {
		return fallback, err
	}
	if !ok {
		return fallback, nil
	}
	return state.TimeUntilReset(t.now()), nil
}
