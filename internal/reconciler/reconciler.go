// Package reconciler keeps the queue's actual repeatable triggers and the
// cache's key space aligned with the desired state derived from the current
// roster.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"livescores-service/internal/cache"
	"livescores-service/internal/logging"
	"livescores-service/internal/scheduler"
	"livescores-service/internal/store"
)

// Canceler stops the in-process loop for a removed trigger. Satisfied by
// *scheduler.Scheduler.
type Canceler interface {
	Cancel(key string)
}

// Registrar starts one newly desired trigger in both the durable queue and
// the in-process scheduler. Satisfied by the server's trigger wiring.
type Registrar func(ctx context.Context, trigger scheduler.Desired) error

// Result summarizes one maintenance run.
type Result struct {
	CleanedJobs        int64 `json:"cleanedJobs"`
	AddedRepeatables   int   `json:"addedRepeatables"`
	RemovedRepeatables int   `json:"removedRepeatables"`
	DeletedCacheKeys   int   `json:"deletedCacheKeys"`
}

// Reconciler performs the idempotent maintenance actions: history trim,
// repeatable-trigger diff (registering missing entries, removing extras),
// and orphaned-cache purge.
type Reconciler struct {
	queue     scheduler.Queue
	canceler  Canceler
	register  Registrar
	store     store.Storage
	cache     cache.Cache
	logger    *slog.Logger
	cadences  scheduler.Cadences
	retention time.Duration
	now       func() time.Time
}

// Config wires a Reconciler.
type Config struct {
	Queue     scheduler.Queue
	Canceler  Canceler
	Register  Registrar
	Store     store.Storage
	Cache     cache.Cache
	Logger    *slog.Logger
	Cadences  scheduler.Cadences
	Retention time.Duration
}

const defaultRetention = 24 * time.Hour

// New constructs a Reconciler.
func New(cfg Config) *Reconciler {
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}
	return &Reconciler{
		queue:     cfg.Queue,
		canceler:  cfg.Canceler,
		register:  cfg.Register,
		store:     cfg.Store,
		cache:     cfg.Cache,
		logger:    cfg.Logger,
		cadences:  cfg.Cadences,
		retention: cfg.Retention,
		now:       time.Now,
	}
}

// Run executes one maintenance pass. A queue or store failure aborts the
// pass with an error; every action is idempotent, so the next scheduled run
// simply picks up where this one stopped.
func (r *Reconciler) Run(ctx context.Context) (Result, error) {
	var result Result

	cleaned, err := r.trimHistory(ctx)
	if err != nil {
		return result, fmt.Errorf("trim job history: %w", err)
	}
	result.CleanedJobs = cleaned

	added, removed, orphanedTeams, orphanedSports, err := r.reconcileTriggers(ctx)
	if err != nil {
		return result, fmt.Errorf("reconcile triggers: %w", err)
	}
	result.AddedRepeatables = added
	result.RemovedRepeatables = removed

	result.DeletedCacheKeys = r.purgeOrphanedCache(ctx, orphanedTeams, orphanedSports)

	logging.Info(r.logger, "reconciliation complete",
		"cleaned_jobs", result.CleanedJobs,
		"added_repeatables", result.AddedRepeatables,
		"removed_repeatables", result.RemovedRepeatables,
		"deleted_cache_keys", result.DeletedCacheKeys,
	)
	return result, nil
}

func (r *Reconciler) trimHistory(ctx context.Context) (int64, error) {
	cutoff := r.now().Add(-r.retention)
	return r.queue.CleanHistory(ctx, []string{scheduler.StateCompleted, scheduler.StateFailed}, cutoff)
}

// reconcileTriggers diffs the queue's registered triggers against the
// desired set recomputed from the roster, removing the extras and
// registering the missing entries. It returns the team ids and sports whose
// triggers went away so their cache keys can be purged too.
func (r *Reconciler) reconcileTriggers(ctx context.Context) (added, removed int, orphanedTeams, orphanedSports []string, err error) {
	teams, err := r.store.GetTeamsByLeague(ctx, "")
	if err != nil {
		return 0, 0, nil, nil, err
	}

	desiredList := scheduler.DesiredTriggers(teams, r.cadences)
	desired := make(map[string]struct{}, len(desiredList)+1)
	desired[scheduler.MaintenanceKey] = struct{}{}
	for _, d := range desiredList {
		desired[d.Key] = struct{}{}
	}

	actualList, err := r.queue.ListRepeatables(ctx)
	if err != nil {
		return 0, 0, nil, nil, err
	}
	actual := make(map[string]struct{}, len(actualList))
	for _, rec := range actualList {
		actual[rec.Key] = struct{}{}
	}

	for _, rec := range actualList {
		if _, ok := desired[rec.Key]; ok {
			continue
		}
		if err := r.queue.RemoveRepeatable(ctx, rec.Key); err != nil {
			return added, removed, orphanedTeams, orphanedSports, err
		}
		if r.canceler != nil {
			r.canceler.Cancel(rec.Key)
		}
		removed++

		if teamID, ok := scheduler.TeamFromKey(rec.Key); ok {
			orphanedTeams = append(orphanedTeams, teamID)
		}
		if sport, ok := scheduler.SportFromKey(rec.Key); ok {
			orphanedSports = append(orphanedSports, sport)
		}
		logging.Info(r.logger, "removed orphaned trigger", logging.FieldTrigger, rec.Key)
	}

	// Teams added to the roster since boot get their triggers here rather
	// than waiting for a restart.
	if r.register != nil {
		for _, d := range desiredList {
			if _, ok := actual[d.Key]; ok {
				continue
			}
			if err := r.register(ctx, d); err != nil {
				return added, removed, orphanedTeams, orphanedSports, err
			}
			added++
			logging.Info(r.logger, "registered missing trigger", logging.FieldTrigger, d.Key)
		}
	}

	return added, removed, orphanedTeams, orphanedSports, nil
}

// purgeOrphanedCache deletes cache keys scoped to teams or sports that just
// lost their triggers. Cache errors are logged, not fatal: the entries will
// expire via TTL anyway.
func (r *Reconciler) purgeOrphanedCache(ctx context.Context, teams, sports []string) int {
	if r.cache == nil {
		return 0
	}

	deleted := 0
	for _, teamID := range teams {
		n, err := r.cache.DeletePattern(ctx, cache.TeamPattern(teamID))
		if err != nil {
			logging.Warn(r.logger, "cache purge failed", logging.FieldTeamID, teamID, "error", err)
			continue
		}
		deleted += n
	}
	for _, sport := range sports {
		n, err := r.cache.DeletePattern(ctx, cache.SportPattern(sport))
		if err != nil {
			logging.Warn(r.logger, "cache purge failed", logging.FieldSport, sport, "error", err)
			continue
		}
		deleted += n
	}
	return deleted
}
