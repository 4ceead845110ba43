package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestTracker(now time.Time) *Tracker {
	tr := NewTracker(NewMemoryStore(), zerolog.Nop())
	tr.SetClock(func() time.Time { return now })
	return tr
}

func TestUpdateFromHeaders(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name        string
		header      string
		wantState   bool
		wantResetAt time.Time
		shouldError bool
	}{
		{
			name:        "reset in 5 seconds",
			header:      strconv.FormatInt(now.Add(5*time.Second).Unix(), 10),
			wantState:   true,
			wantResetAt: now.Add(5 * time.Second),
		},
		{
			name:      "header absent",
			header:    "",
			wantState: false,
		},
		{
			name:        "malformed header",
			header:      "soon",
			shouldError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestTracker(now)
			headers := http.Header{}
			if tt.header != "" {
				headers.Set(DefaultResetHeader, tt.header)
			}

			err := tr.UpdateFromHeaders(context.Background(), headers)
			if tt.shouldError {
				if err == nil {
					t.Error("Expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			state, ok, err := tr.GetState(context.Background())
			if err != nil {
				t.Fatalf("GetState() error: %v", err)
			}
			if ok != tt.wantState {
				t.Fatalf("GetState() ok = %v, want %v", ok, tt.wantState)
			}
			if ok && !state.ResetAt.Equal(tt.wantResetAt) {
				t.Errorf("ResetAt = %v, want %v", state.ResetAt, tt.wantResetAt)
			}
		})
	}
}

func TestWaitDuration(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	ctx := context.Background()

	t.Run("no state uses fallback", func(t *testing.T) {
		tr := newTestTracker(now)
		d, err := tr.WaitDuration(ctx, DefaultWait)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if d != DefaultWait {
			t.Errorf("WaitDuration() = %v, want %v", d, DefaultWait)
		}
	})

	t.Run("reset in future", func(t *testing.T) {
		tr := newTestTracker(now)
		h := http.Header{}
		h.Set(DefaultResetHeader, strconv.FormatInt(now.Unix()+5, 10))
		if err := tr.UpdateFromHeaders(ctx, h); err != nil {
			t.Fatalf("UpdateFromHeaders() error: %v", err)
		}

		d, err := tr.WaitDuration(ctx, DefaultWait)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if d != 5*time.Second {
			t.Errorf("WaitDuration() = %v, want 5s", d)
		}
	})

	t.Run("reset in past clamps to zero", func(t *testing.T) {
		tr := newTestTracker(now)
		h := http.Header{}
		h.Set(DefaultResetHeader, strconv.FormatInt(now.Unix()-60, 10))
		if err := tr.UpdateFromHeaders(ctx, h); err != nil {
			t.Fatalf("UpdateFromHeaders() error: %v", err)
		}

		d, _ := tr.WaitDuration(ctx, DefaultWait)
		if d != 0 {
			t.Errorf("WaitDuration() = %v, want 0", d)
		}
	})
}

func TestSetHeader(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tr := newTestTracker(now)
	tr.SetHeader("Retry-Reset")

	h := http.Header{}
	h.Set("Retry-Reset", strconv.FormatInt(now.Unix()+2, 10))
	if err := tr.UpdateFromHeaders(context.Background(), h); err != nil {
		t.Fatalf("UpdateFromHeaders() error: %v", err)
	}

	if _, ok, _ := tr.GetState(context.Background()); !ok {
		t.Error("custom header not recorded")
	}
}
