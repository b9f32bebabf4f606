// Package fixture serves a deterministic set of games for local development
// and bootstrapping, with scores that advance on every fetch so change
// detection has something to chew on.
package fixture

import (
	"context"
	"sync"
	"time"

	"livescores-service/internal/domain"
	"livescores-service/internal/timeutil"
)

// Provider returns a static pair of games whose live scores tick upward on
// each FetchLive call.
type Provider struct {
	mu    sync.Mutex
	ticks int
	now   func() time.Time
}

// New creates a fixture provider with a time source.
func New() *Provider {
	return &Provider{now: time.Now}
}

// FetchLive returns the fixture games, filtered to teamIDs when provided.
func (p *Provider) FetchLive(ctx context.Context, teamIDs []string) ([]domain.Game, error) {
	_ = ctx

	p.mu.Lock()
	p.ticks++
	ticks := p.ticks
	p.mu.Unlock()

	fetchedAt := p.now().UTC()
	start := fetchedAt.Truncate(time.Hour)

	games := []domain.Game{
		{
			ID:            domain.GameID("lal", "bos", start),
			Sport:         "basketball",
			HomeTeamID:    "bos",
			AwayTeamID:    "lal",
			HomePts:       50 + 2*ticks,
			AwayPts:       48 + 2*ticks,
			Status:        domain.StatusLive,
			Period:        2,
			TimeRemaining: "5:30",
			StartTime:     start,
			CachedAt:      fetchedAt,
		},
		{
			ID:            domain.GameID("mia", "gsw", start),
			Sport:         "basketball",
			HomeTeamID:    "gsw",
			AwayTeamID:    "mia",
			HomePts:       61 + 3*ticks,
			AwayPts:       55 + ticks,
			Status:        domain.StatusLive,
			Period:        3,
			TimeRemaining: "8:12",
			StartTime:     start,
			CachedAt:      fetchedAt,
		},
	}

	if len(teamIDs) == 0 {
		return games, nil
	}

	wanted := make(map[string]struct{}, len(teamIDs))
	for _, id := range teamIDs {
		wanted[id] = struct{}{}
	}

	filtered := make([]domain.Game, 0, len(games))
	for _, g := range games {
		if _, ok := wanted[g.HomeTeamID]; ok {
			filtered = append(filtered, g)
			continue
		}
		if _, ok := wanted[g.AwayTeamID]; ok {
			filtered = append(filtered, g)
		}
	}
	return filtered, nil
}

// FetchSchedule returns scheduled fixture games inside the window.
func (p *Provider) FetchSchedule(ctx context.Context, window timeutil.Window) ([]domain.Game, error) {
	_ = ctx

	fetchedAt := p.now().UTC()
	start := window.Start.Add(20 * time.Hour)

	games := []domain.Game{
		{
			ID:         domain.GameID("nyk", "chi", start),
			Sport:      "basketball",
			HomeTeamID: "chi",
			AwayTeamID: "nyk",
			Status:     domain.StatusScheduled,
			StartTime:  start,
			CachedAt:   fetchedAt,
		},
	}

	result := make([]domain.Game, 0, len(games))
	for _, g := range games {
		if window.Contains(g.StartTime) {
			result = append(result, g)
		}
	}
	return result, nil
}
