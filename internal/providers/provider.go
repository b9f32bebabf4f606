package providers

import (
	"context"

	"livescores-service/internal/domain"
	"livescores-service/internal/timeutil"
)

// LiveFetcher is the preferred interface for live score data. Implementations
// should return the latest snapshot for each requested team's current game;
// an empty teamIDs slice means "all live games".
type LiveFetcher interface {
	FetchLive(ctx context.Context, teamIDs []string) ([]domain.Game, error)
}

// ScheduleFetcher returns upcoming games inside the window. Results carry
// status "scheduled" and zero scores.
type ScheduleFetcher interface {
	FetchSchedule(ctx context.Context, window timeutil.Window) ([]domain.Game, error)
}

// RecentGamesFetcher is the legacy fallback used when an adapter does not
// implement FetchLive.
type RecentGamesFetcher interface {
	FetchRecentGames(ctx context.Context, teamIDs []string, limit int) ([]domain.Game, error)
}

// ScoreProvider combines the capabilities the scores agent consumes.
type ScoreProvider interface {
	LiveFetcher
	ScheduleFetcher
}

// liveFunc adapts a closure to LiveFetcher.
type liveFunc func(ctx context.Context, teamIDs []string) ([]domain.Game, error)

func (f liveFunc) FetchLive(ctx context.Context, teamIDs []string) ([]domain.Game, error) {
	return f(ctx, teamIDs)
}

// ResolveLive resolves the live-fetch capability of an adapter once, at
// construction time. Adapters implementing LiveFetcher are used directly;
// adapters only implementing the legacy RecentGamesFetcher are wrapped so
// call sites never branch on method presence.
func ResolveLive(adapter any, legacyLimit int) (LiveFetcher, error) {
	if legacyLimit <= 0 {
		legacyLimit = defaultLegacyLimit
	}
	switch p := adapter.(type) {
	case LiveFetcher:
		return p, nil
	case RecentGamesFetcher:
		return liveFunc(func(ctx context.Context, teamIDs []string) ([]domain.Game, error) {
			return p.FetchRecentGames(ctx, teamIDs, legacyLimit)
		}), nil
	default:
		return nil, ErrProviderUnavailable
	}
}

const defaultLegacyLimit = 25

type composite struct {
	LiveFetcher
	ScheduleFetcher
}

// Compose builds a ScoreProvider from a raw adapter, resolving the live
// capability (preferred or legacy) exactly once. Adapters that can serve
// neither live nor schedule data are rejected here instead of failing at
// fetch time.
func Compose(adapter any, legacyLimit int) (ScoreProvider, error) {
	live, err := ResolveLive(adapter, legacyLimit)
	if err != nil {
		return nil, err
	}
	sched, ok := adapter.(ScheduleFetcher)
	if !ok {
		return nil, ErrProviderUnavailable
	}
	return composite{LiveFetcher: live, ScheduleFetcher: sched}, nil
}
