package providers

import (
	"context"
	"log/slog"
	"time"

	"livescores-service/internal/domain"
	"livescores-service/internal/timeutil"
)

// rateLimitedProvider wraps a ScoreProvider and enforces a minimum interval
// between upstream calls.
type rateLimitedProvider struct {
	next     ScoreProvider
	interval time.Duration
	ticker   *time.Ticker
	logger   *slog.Logger
}

// NewRateLimitedProvider returns a ScoreProvider that limits calls to the
// given interval. Calls block until the interval elapses to avoid exceeding
// upstream quotas.
func NewRateLimitedProvider(next ScoreProvider, interval time.Duration, logger *slog.Logger) ScoreProvider {
	if interval <= 0 {
		interval = time.Minute
	}
	return &rateLimitedProvider{
		next:     next,
		interval: interval,
		ticker:   time.NewTicker(interval),
		logger:   logger,
	}
}

func (p *rateLimitedProvider) FetchLive(ctx context.Context, teamIDs []string) ([]domain.Game, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	return p.next.FetchLive(ctx, teamIDs)
}

func (p *rateLimitedProvider) FetchSchedule(ctx context.Context, window timeutil.Window) ([]domain.Game, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	return p.next.FetchSchedule(ctx, window)
}

func (p *rateLimitedProvider) wait(ctx context.Context) error {
	if p == nil || p.next == nil {
		if p != nil && p.logger != nil {
			p.logger.Warn("provider unavailable", slog.String("provider", "rate-limited"))
		}
		return ErrProviderUnavailable
	}
	select {
	case <-ctx.Done():
		if p.logger != nil {
			p.logger.Warn("rate-limited fetch canceled", slog.String("provider", "rate-limited"))
		}
		return ctx.Err()
	case <-p.ticker.C:
		return nil
	}
}
