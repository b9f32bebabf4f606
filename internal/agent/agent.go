// Package agent orchestrates one polling invocation: fetch, cache, persist,
// diff and broadcast for a batch of games.
package agent

import (
	"context"
	"log/slog"
	"time"

	"livescores-service/internal/cache"
	"livescores-service/internal/diff"
	"livescores-service/internal/domain"
	"livescores-service/internal/logging"
	"livescores-service/internal/metrics"
	"livescores-service/internal/providers"
	"livescores-service/internal/store"
	"livescores-service/internal/timeutil"
)

// Broadcaster delivers change notifications to interested connections. Both
// calls are fire-and-forget from the agent's perspective.
type Broadcaster interface {
	// BroadcastScoreUpdate announces a score change once per game.
	BroadcastScoreUpdate(ctx context.Context, game domain.Game)
	// BroadcastStatusChange announces a status transition for one involved
	// team; the agent invokes it once per side.
	BroadcastStatusChange(ctx context.Context, teamID string, game domain.Game, oldStatus string)
}

// Options selects what one RunOnce invocation fetches.
type Options struct {
	TeamIDs   []string
	Sport     string
	Mode      domain.Mode
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}

// Result summarizes one invocation.
type Result struct {
	Items     int `json:"items"`
	Persisted int `json:"persisted"`
	Errors    int `json:"errors"`
}

// Agent runs the fetch → cache → persist → diff → broadcast pipeline.
type Agent struct {
	provider    providers.ScoreProvider
	cache       cache.Cache
	store       store.Storage
	caster      Broadcaster
	logger      *slog.Logger
	metrics     *metrics.Recorder
	liveTTL     time.Duration
	featuredTTL time.Duration
	now         func() time.Time
}

// Config wires an Agent.
type Config struct {
	Provider    providers.ScoreProvider
	Cache       cache.Cache
	Store       store.Storage
	Broadcaster Broadcaster
	Logger      *slog.Logger
	Metrics     *metrics.Recorder
	LiveTTL     time.Duration
	FeaturedTTL time.Duration
}

const (
	defaultLiveTTL     = 60 * time.Second
	defaultFeaturedTTL = 300 * time.Second
)

// New constructs an Agent with sane TTL defaults.
func New(cfg Config) *Agent {
	if cfg.LiveTTL <= 0 {
		cfg.LiveTTL = defaultLiveTTL
	}
	if cfg.FeaturedTTL <= 0 {
		cfg.FeaturedTTL = defaultFeaturedTTL
	}
	return &Agent{
		provider:    cfg.Provider,
		cache:       cfg.Cache,
		store:       cfg.Store,
		caster:      cfg.Broadcaster,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		liveTTL:     cfg.LiveTTL,
		featuredTTL: cfg.FeaturedTTL,
		now:         time.Now,
	}
}

// RunOnce executes one polling invocation. Per-game failures are counted and
// skipped; an adapter-level failure yields an empty result with a non-zero
// error count. RunOnce never returns an error to its scheduler.
func (a *Agent) RunOnce(ctx context.Context, opts Options) Result {
	start := a.now()
	result := a.runOnce(ctx, opts)
	if a.metrics != nil {
		a.metrics.RecordAgentCycle(string(opts.Mode), a.now().Sub(start), result.Errors)
	}
	return result
}

func (a *Agent) runOnce(ctx context.Context, opts Options) Result {
	if !opts.Mode.Valid() {
		opts.Mode = domain.ModeLive
	}

	teamIDs := domain.FilterTeamIDs(opts.TeamIDs)
	// Malformed team filters short-circuit before any upstream call: a live
	// request that named teams but produced no valid ids has nothing to ask
	// for.
	if opts.Mode == domain.ModeLive && len(opts.TeamIDs) > 0 && len(teamIDs) == 0 {
		logging.Warn(a.logger, "skipping fetch, no valid team ids",
			logging.FieldMode, string(opts.Mode),
			logging.FieldCount, len(opts.TeamIDs),
		)
		return Result{}
	}

	key := cache.Key(teamIDs, opts.Sport, opts.Mode)

	if games, ok := a.cacheRead(ctx, key, opts.Mode); ok {
		return Result{Items: len(games)}
	}

	games, err := a.fetch(ctx, opts, teamIDs)
	if err != nil {
		logging.Error(a.logger, "adapter fetch failed", err,
			logging.FieldMode, string(opts.Mode),
			logging.FieldSport, opts.Sport,
		)
		return Result{Errors: 1}
	}

	if opts.Limit > 0 && len(games) > opts.Limit {
		games = games[:opts.Limit]
	}

	result := Result{Items: len(games)}
	for _, game := range games {
		if a.processGame(ctx, game) {
			result.Persisted++
		} else {
			result.Errors++
		}
	}

	a.cacheWrite(ctx, key, games, opts.Mode)

	logging.Info(a.logger, "agent cycle complete",
		logging.FieldMode, string(opts.Mode),
		logging.FieldCount, result.Items,
		"persisted", result.Persisted,
		"errors", result.Errors,
	)
	return result
}

// processGame reads the prior snapshot, diffs, persists, then broadcasts.
// Returns false when the game had to be skipped.
func (a *Agent) processGame(ctx context.Context, game domain.Game) bool {
	prior, err := a.store.GetGame(ctx, game.ID)
	if err != nil {
		logging.Error(a.logger, "prior snapshot read failed", err, logging.FieldGameID, game.ID)
		return false
	}

	changes := diff.Detect(prior, game)

	game.CachedAt = a.now().UTC()
	// Write-through regardless of diff outcome so the store always reflects
	// the latest fetched truth.
	if err := a.store.UpsertGame(ctx, game); err != nil {
		logging.Error(a.logger, "snapshot upsert failed", err, logging.FieldGameID, game.ID)
		return false
	}

	if a.caster == nil {
		return true
	}

	if changes.ScoreChanged {
		a.caster.BroadcastScoreUpdate(ctx, game)
	}
	if changes.StatusChanged {
		// Status transitions are announced per involved side so each team's
		// subscribers hear about their own team.
		for _, teamID := range game.TeamIDs() {
			a.caster.BroadcastStatusChange(ctx, teamID, game, changes.OldStatus)
		}
	}
	return true
}

func (a *Agent) fetch(ctx context.Context, opts Options, teamIDs []string) ([]domain.Game, error) {
	if a.provider == nil {
		return nil, providers.ErrProviderUnavailable
	}

	switch opts.Mode {
	case domain.ModeSchedule:
		return a.provider.FetchSchedule(ctx, a.window(opts))
	case domain.ModeFeatured:
		// Featured polls the curated global live set; no team filter.
		return a.provider.FetchLive(ctx, nil)
	default:
		return a.provider.FetchLive(ctx, teamIDs)
	}
}

func (a *Agent) window(opts Options) timeutil.Window {
	if !opts.StartDate.IsZero() && !opts.EndDate.IsZero() {
		return timeutil.Window{Start: opts.StartDate, End: opts.EndDate}
	}
	return timeutil.DefaultWindow(a.now(), 7)
}

// cacheRead attempts a cache hit for live/featured modes. Backend errors are
// misses, never fetch failures.
func (a *Agent) cacheRead(ctx context.Context, key string, mode domain.Mode) ([]domain.Game, bool) {
	if a.cache == nil || mode == domain.ModeSchedule {
		return nil, false
	}

	games, ok, err := a.cache.GetGames(ctx, key)
	if err != nil {
		logging.Warn(a.logger, "cache read failed, treating as miss", logging.FieldCacheKey, key, "error", err)
		return nil, false
	}
	if ok {
		logging.Debug(a.logger, "cache hit", logging.FieldCacheKey, key, logging.FieldCount, len(games))
	}
	return games, ok
}

func (a *Agent) cacheWrite(ctx context.Context, key string, games []domain.Game, mode domain.Mode) {
	ttl := a.ttlFor(mode)
	if a.cache == nil || ttl <= 0 {
		return
	}
	if err := a.cache.SetGames(ctx, key, games, ttl); err != nil {
		logging.Warn(a.logger, "cache write failed", logging.FieldCacheKey, key, "error", err)
	}
}

// ttlFor maps mode to its cache TTL. Schedule results are never cached:
// windows are caller-specific with low reuse.
func (a *Agent) ttlFor(mode domain.Mode) time.Duration {
	switch mode {
	case domain.ModeLive:
		return a.liveTTL
	case domain.ModeFeatured:
		return a.featuredTTL
	default:
		return 0
	}
}
