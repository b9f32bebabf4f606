package providers

import (
	"context"
	"log/slog"
	"time"

	"livescores-service/internal/domain"
	"livescores-service/internal/logging"
	"livescores-service/internal/timeutil"
)

const (
	defaultRetryAttempts = 3
	defaultBackoff       = 200 * time.Millisecond
)

type backoffFunc func(attempt int) time.Duration

// retryingProvider wraps a ScoreProvider with retry/backoff behavior.
type retryingProvider struct {
	inner       ScoreProvider
	logger      *slog.Logger
	maxAttempts int
	backoffFn   backoffFunc
}

// NewRetryingProvider wraps the given provider with retries. If
// maxAttempts/backoff are <= 0, defaults are used.
func NewRetryingProvider(inner ScoreProvider, logger *slog.Logger, maxAttempts int, backoff time.Duration) ScoreProvider {
	if maxAttempts <= 0 {
		maxAttempts = defaultRetryAttempts
	}
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	return &retryingProvider{
		inner:       inner,
		logger:      logger,
		maxAttempts: maxAttempts,
		backoffFn: func(attempt int) time.Duration {
			return time.Duration(attempt) * backoff
		},
	}
}

func (r *retryingProvider) FetchLive(ctx context.Context, teamIDs []string) ([]domain.Game, error) {
	return r.retry(ctx, "live", func() ([]domain.Game, error) {
		return r.inner.FetchLive(ctx, teamIDs)
	})
}

func (r *retryingProvider) FetchSchedule(ctx context.Context, window timeutil.Window) ([]domain.Game, error) {
	return r.retry(ctx, "schedule", func() ([]domain.Game, error) {
		return r.inner.FetchSchedule(ctx, window)
	})
}

func (r *retryingProvider) retry(ctx context.Context, op string, fetch func() ([]domain.Game, error)) ([]domain.Game, error) {
	var lastErr error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		games, err := fetch()
		if err == nil {
			return games, nil
		}
		lastErr = err

		if attempt == r.maxAttempts {
			break
		}

		r.logWarn(ctx, "provider fetch retry", "op", op, "attempt", attempt, "max_attempts", r.maxAttempts, "err", err)

		// backoff with context awareness
		delay := r.backoffFn(attempt)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	r.logWarn(ctx, "provider fetch failed", "op", op, "attempts", r.maxAttempts, "err", lastErr)
	return nil, lastErr
}

func (r *retryingProvider) logWarn(ctx context.Context, msg string, args ...any) {
	logger := logging.FromContext(ctx, r.logger)
	if logger != nil {
		logger.Warn(msg, args...)
	}
}
