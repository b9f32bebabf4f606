package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"livescores-service/internal/cache"
	"livescores-service/internal/domain"
	"livescores-service/internal/teststubs"
)

var gameStart = time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)

func liveGame(homePts, awayPts int, status string) domain.Game {
	return domain.Game{
		ID:         domain.GameID("lakers", "celtics", gameStart),
		Sport:      "basketball",
		HomeTeamID: "celtics",
		AwayTeamID: "lakers",
		HomePts:    homePts,
		AwayPts:    awayPts,
		Status:     status,
		StartTime:  gameStart,
	}
}

type fixture struct {
	agent    *Agent
	provider *teststubs.StubProvider
	storage  *teststubs.StubStorage
	cache    *teststubs.StubCache
	caster   *teststubs.StubBroadcaster
}

func newFixture() *fixture {
	f := &fixture{
		provider: &teststubs.StubProvider{},
		storage:  teststubs.NewStubStorage(),
		cache:    teststubs.NewStubCache(),
		caster:   &teststubs.StubBroadcaster{},
	}
	f.agent = New(Config{
		Provider:    f.provider,
		Cache:       f.cache,
		Store:       f.storage,
		Broadcaster: f.caster,
		LiveTTL:     60 * time.Second,
		FeaturedTTL: 300 * time.Second,
	})
	return f
}

func TestRunOnceFirstSeenAnnouncesStatusOnly(t *testing.T) {
	f := newFixture()
	f.provider.LiveGames = []domain.Game{liveGame(2, 0, domain.StatusLive)}

	result := f.agent.RunOnce(context.Background(), Options{Mode: domain.ModeLive, TeamIDs: []string{"celtics"}})

	if result.Items != 1 || result.Persisted != 1 || result.Errors != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if got := len(f.caster.Scores()); got != 0 {
		t.Errorf("first-seen game broadcast %d score updates, want 0", got)
	}
	statuses := f.caster.Statuses()
	if len(statuses) != 2 {
		t.Fatalf("got %d status broadcasts, want one per side", len(statuses))
	}
	for _, call := range statuses {
		if call.OldStatus != domain.StatusUnknown {
			t.Errorf("status broadcast old status = %q, want %q", call.OldStatus, domain.StatusUnknown)
		}
	}
	if statuses[0].TeamID == statuses[1].TeamID {
		t.Errorf("both status broadcasts targeted %q, want distinct sides", statuses[0].TeamID)
	}
}

func TestRunOnceScoreAndStatusChange(t *testing.T) {
	f := newFixture()
	prior := liveGame(10, 7, domain.StatusLive)
	f.storage.Games[prior.ID] = prior
	f.provider.LiveGames = []domain.Game{liveGame(14, 10, domain.StatusFinal)}

	result := f.agent.RunOnce(context.Background(), Options{Mode: domain.ModeLive, TeamIDs: []string{"celtics", "lakers"}})

	if result.Persisted != 1 {
		t.Fatalf("persisted = %d, want 1", result.Persisted)
	}
	if got := len(f.caster.Scores()); got != 1 {
		t.Errorf("score broadcasts = %d, want exactly 1 per changed game", got)
	}
	statuses := f.caster.Statuses()
	if len(statuses) != 2 {
		t.Fatalf("status broadcasts = %d, want one per involved side", len(statuses))
	}
	for _, call := range statuses {
		if call.OldStatus != domain.StatusLive || call.Game.Status != domain.StatusFinal {
			t.Errorf("status transition %q -> %q, want live -> final", call.OldStatus, call.Game.Status)
		}
	}

	stored := f.storage.Games[prior.ID]
	if stored.HomePts != 14 || stored.AwayPts != 10 || stored.Status != domain.StatusFinal {
		t.Errorf("stored snapshot not updated: %+v", stored)
	}
	if stored.CachedAt.IsZero() {
		t.Errorf("stored snapshot missing fetch timestamp")
	}
}

func TestRunOnceNoChangeStillPersists(t *testing.T) {
	f := newFixture()
	prior := liveGame(14, 10, domain.StatusFinal)
	f.storage.Games[prior.ID] = prior
	f.provider.LiveGames = []domain.Game{liveGame(14, 10, domain.StatusFinal)}

	result := f.agent.RunOnce(context.Background(), Options{Mode: domain.ModeLive, TeamIDs: []string{"celtics"}})

	if result.Persisted != 1 {
		t.Fatalf("persisted = %d, want write-through even without changes", result.Persisted)
	}
	if len(f.caster.Scores()) != 0 || len(f.caster.Statuses()) != 0 {
		t.Errorf("unchanged game produced broadcasts: %d score, %d status",
			len(f.caster.Scores()), len(f.caster.Statuses()))
	}
	if len(f.storage.Upserts) != 1 {
		t.Errorf("upserts = %d, want 1", len(f.storage.Upserts))
	}
}

func TestRunOnceSkipsFetchWhenNoValidTeamIDs(t *testing.T) {
	f := newFixture()

	result := f.agent.RunOnce(context.Background(), Options{
		Mode:    domain.ModeLive,
		TeamIDs: []string{"", "bad id", "semi;colon"},
	})

	if result != (Result{}) {
		t.Fatalf("result = %+v, want empty", result)
	}
	if f.provider.LiveCalls != 0 {
		t.Errorf("adapter called %d times despite no valid team ids", f.provider.LiveCalls)
	}
}

func TestRunOnceCacheHitShortCircuits(t *testing.T) {
	f := newFixture()
	key := cache.Key([]string{"celtics"}, "basketball", domain.ModeLive)
	f.cache.Entries[key] = []domain.Game{liveGame(10, 7, domain.StatusLive)}

	result := f.agent.RunOnce(context.Background(), Options{
		Mode:    domain.ModeLive,
		Sport:   "basketball",
		TeamIDs: []string{"celtics"},
	})

	if result.Items != 1 || result.Persisted != 0 {
		t.Fatalf("result = %+v, want cache hit with no persistence", result)
	}
	if f.provider.LiveCalls != 0 {
		t.Errorf("adapter called on a cache hit")
	}
	if len(f.storage.Upserts) != 0 {
		t.Errorf("cache hit wrote %d snapshots", len(f.storage.Upserts))
	}
}

func TestRunOnceCacheErrorTreatedAsMiss(t *testing.T) {
	f := newFixture()
	f.cache.GetErr = errors.New("backend down")
	f.provider.LiveGames = []domain.Game{liveGame(2, 0, domain.StatusLive)}

	result := f.agent.RunOnce(context.Background(), Options{Mode: domain.ModeLive, TeamIDs: []string{"celtics"}})

	if result.Errors != 0 || result.Persisted != 1 {
		t.Fatalf("result = %+v, want a normal fetch despite the cache error", result)
	}
	if f.provider.LiveCalls != 1 {
		t.Errorf("adapter calls = %d, want 1", f.provider.LiveCalls)
	}
}

func TestRunOnceAdapterFailure(t *testing.T) {
	f := newFixture()
	f.provider.LiveErr = errors.New("upstream 500")

	result := f.agent.RunOnce(context.Background(), Options{Mode: domain.ModeLive, TeamIDs: []string{"celtics"}})

	if result.Items != 0 || result.Errors != 1 {
		t.Fatalf("result = %+v, want zero items and one error", result)
	}
	if len(f.caster.Scores()) != 0 || len(f.caster.Statuses()) != 0 {
		t.Errorf("failed fetch still broadcast")
	}
}

func TestRunOnceScheduleModeSkipsCache(t *testing.T) {
	f := newFixture()
	f.provider.ScheduleGames = []domain.Game{liveGame(0, 0, domain.StatusScheduled)}

	result := f.agent.RunOnce(context.Background(), Options{Mode: domain.ModeSchedule, Sport: "basketball"})

	if f.provider.ScheduleCalls != 1 {
		t.Fatalf("schedule calls = %d, want 1", f.provider.ScheduleCalls)
	}
	if result.Persisted != 1 {
		t.Errorf("persisted = %d, want 1", result.Persisted)
	}
	if f.cache.GetCalls != 0 || f.cache.SetCalls != 0 {
		t.Errorf("schedule mode touched the cache: %d reads, %d writes", f.cache.GetCalls, f.cache.SetCalls)
	}
}

func TestRunOnceFeaturedModeFetchesGlobally(t *testing.T) {
	f := newFixture()
	f.provider.LiveGames = []domain.Game{liveGame(5, 3, domain.StatusLive)}

	f.agent.RunOnce(context.Background(), Options{Mode: domain.ModeFeatured, Sport: "basketball"})

	if f.provider.LiveCalls != 1 {
		t.Fatalf("live calls = %d, want 1", f.provider.LiveCalls)
	}
	if len(f.provider.LastTeamIDs) != 0 {
		t.Errorf("featured fetch passed team filter %v, want none", f.provider.LastTeamIDs)
	}
	key := cache.Key(nil, "basketball", domain.ModeFeatured)
	if ttl := f.cache.TTLs[key]; ttl != 300*time.Second {
		t.Errorf("featured cache ttl = %v, want 300s", ttl)
	}
}

func TestRunOnceLiveModeUsesLiveTTL(t *testing.T) {
	f := newFixture()
	f.provider.LiveGames = []domain.Game{liveGame(5, 3, domain.StatusLive)}

	f.agent.RunOnce(context.Background(), Options{Mode: domain.ModeLive, Sport: "basketball", TeamIDs: []string{"celtics"}})

	key := cache.Key([]string{"celtics"}, "basketball", domain.ModeLive)
	if ttl := f.cache.TTLs[key]; ttl != 60*time.Second {
		t.Errorf("live cache ttl = %v, want 60s", ttl)
	}
}

func TestRunOnceLimitTruncates(t *testing.T) {
	f := newFixture()
	f.provider.LiveGames = []domain.Game{
		liveGame(1, 0, domain.StatusLive),
		{ID: "a-b-2026-03-01", HomeTeamID: "b", AwayTeamID: "a", Status: domain.StatusLive},
		{ID: "c-d-2026-03-01", HomeTeamID: "d", AwayTeamID: "c", Status: domain.StatusLive},
	}

	result := f.agent.RunOnce(context.Background(), Options{Mode: domain.ModeFeatured, Limit: 2})

	if result.Items != 2 {
		t.Fatalf("items = %d, want limit applied", result.Items)
	}
}

// failOnStorage wraps the stub and fails upserts for one game id only.
type failOnStorage struct {
	*teststubs.StubStorage
	failID string
}

func (s *failOnStorage) UpsertGame(ctx context.Context, game domain.Game) error {
	if game.ID == s.failID {
		return errors.New("constraint violation")
	}
	return s.StubStorage.UpsertGame(ctx, game)
}

func TestRunOncePerGameFailureIsolation(t *testing.T) {
	f := newFixture()
	poisoned := domain.Game{ID: "a-b-2026-03-01", HomeTeamID: "b", AwayTeamID: "a", Status: domain.StatusLive}
	healthy := liveGame(3, 2, domain.StatusLive)
	f.provider.LiveGames = []domain.Game{poisoned, healthy}

	storage := &failOnStorage{StubStorage: f.storage, failID: poisoned.ID}
	f.agent = New(Config{
		Provider:    f.provider,
		Cache:       f.cache,
		Store:       storage,
		Broadcaster: f.caster,
	})

	result := f.agent.RunOnce(context.Background(), Options{Mode: domain.ModeFeatured})

	if result.Items != 2 || result.Persisted != 1 || result.Errors != 1 {
		t.Fatalf("result = %+v, want one failure isolated from the other game", result)
	}
	if _, ok := f.storage.Games[healthy.ID]; !ok {
		t.Errorf("healthy game not persisted after sibling failure")
	}
}

func TestRunOnceInvalidModeDefaultsToLive(t *testing.T) {
	f := newFixture()
	f.provider.LiveGames = []domain.Game{liveGame(1, 0, domain.StatusLive)}

	result := f.agent.RunOnce(context.Background(), Options{Mode: "bogus", TeamIDs: []string{"celtics"}})

	if f.provider.LiveCalls != 1 {
		t.Fatalf("live calls = %d, want fallback to live mode", f.provider.LiveCalls)
	}
	if result.Items != 1 {
		t.Errorf("items = %d, want 1", result.Items)
	}
}
