package providers

import (
	"context"
	"time"

	"livescores-service/internal/domain"
	"livescores-service/internal/metrics"
	"livescores-service/internal/timeutil"
)

// instrumentedProvider records call counts, latency and rate-limit hits for
// every upstream fetch.
type instrumentedProvider struct {
	inner    ScoreProvider
	name     string
	recorder *metrics.Recorder
	now      func() time.Time
}

// NewInstrumentedProvider wraps a ScoreProvider with metrics recording under
// the given provider name.
func NewInstrumentedProvider(inner ScoreProvider, name string, recorder *metrics.Recorder) ScoreProvider {
	return &instrumentedProvider{
		inner:    inner,
		name:     name,
		recorder: recorder,
		now:      time.Now,
	}
}

func (p *instrumentedProvider) FetchLive(ctx context.Context, teamIDs []string) ([]domain.Game, error) {
	start := p.now()
	games, err := p.inner.FetchLive(ctx, teamIDs)
	p.record(start, err)
	return games, err
}

func (p *instrumentedProvider) FetchSchedule(ctx context.Context, window timeutil.Window) ([]domain.Game, error) {
	start := p.now()
	games, err := p.inner.FetchSchedule(ctx, window)
	p.record(start, err)
	return games, err
}

func (p *instrumentedProvider) record(start time.Time, err error) {
	p.recorder.RecordProviderAttempt(p.name, p.now().Sub(start), err)
	if rlErr, ok := AsRateLimitError(err); ok {
		p.recorder.RecordRateLimit(p.name, rlErr.RetryAfter)
	}
}
