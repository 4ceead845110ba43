package client

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// retryAfterRateLimit applies the 429 protocol: wait until the reported reset
// (or the default wait) and send the request once more. A second 429, or a 429
// while waiting is disabled, is returned as a rate-limit *Error.
func (e *Executor) retryAfterRateLimit(ctx context.Context, req Request, body []byte, limited *Response) (*Response, error) {
	if !e.config.WaitOnRateLimit {
		errorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
		e.logger.Warn().
			Str("path", req.Path).
			Msg("Rate limited and waiting is disabled")
		return limited, newStatusError(limited, nil)
	}

	wait, err := e.rateLimiter.WaitDuration(ctx, e.config.DefaultRateLimitWait)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Rate limit state unavailable, using default wait")
		wait = e.config.DefaultRateLimitWait
	}

	rateLimitWaitsTotal.Inc()
	rateLimitWaitSeconds.Observe(wait.Seconds())
	e.logger.Warn().
		Str("method", req.Method).
		Str("path", req.Path).
		Dur("wait", wait).
		Msg("Rate limited - waiting before retry")

	if err := e.sleep(ctx, wait); err != nil {
		e.logger.Warn().
			Str("path", req.Path).
			Msg("Context cancelled during rate limit wait")
		return nil, fmt.Errorf("%w: %v", ErrContextCancelled, err)
	}

	resp, err := e.send(ctx, req, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		rateLimitExhaustedTotal.Inc()
		errorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
		e.logger.Error().
			Str("method", req.Method).
			Str("path", req.Path).
			Msg("Still rate limited after retry")
		return resp, newStatusError(resp, ErrRetryExhausted)
	}

	e.logger.Info().
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Msg("Request succeeded after rate limit wait")

	return resp, nil
}

// sleepContext blocks for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
