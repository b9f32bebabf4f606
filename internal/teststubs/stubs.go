// Package teststubs provides shared in-memory fakes for the pipeline's
// interfaces so package tests stay focused on behavior.
package teststubs

import (
	"context"
	"sync"
	"time"

	"livescores-service/internal/cache"
	"livescores-service/internal/domain"
	"livescores-service/internal/timeutil"
)

// StubProvider implements providers.ScoreProvider with canned data and
// injectable errors. Call counts and last arguments are recorded.
type StubProvider struct {
	mu sync.Mutex

	LiveGames     []domain.Game
	ScheduleGames []domain.Game
	LiveErr       error
	ScheduleErr   error

	LiveCalls     int
	ScheduleCalls int
	LastTeamIDs   []string
	LastWindow    timeutil.Window
}

func (p *StubProvider) FetchLive(_ context.Context, teamIDs []string) ([]domain.Game, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.LiveCalls++
	p.LastTeamIDs = append([]string(nil), teamIDs...)
	if p.LiveErr != nil {
		return nil, p.LiveErr
	}
	return append([]domain.Game(nil), p.LiveGames...), nil
}

func (p *StubProvider) FetchSchedule(_ context.Context, window timeutil.Window) ([]domain.Game, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ScheduleCalls++
	p.LastWindow = window
	if p.ScheduleErr != nil {
		return nil, p.ScheduleErr
	}
	return append([]domain.Game(nil), p.ScheduleGames...), nil
}

// StubStorage implements store.Storage backed by maps, with per-method error
// injection.
type StubStorage struct {
	mu sync.Mutex

	Games    map[string]domain.Game
	Teams    map[string]domain.Team
	Profiles map[string]domain.UserProfile

	GetGameErr    error
	UpsertErr     error
	ListTeamsErr  error
	GetProfileErr error

	Upserts []domain.Game
}

func NewStubStorage() *StubStorage {
	return &StubStorage{
		Games:    make(map[string]domain.Game),
		Teams:    make(map[string]domain.Team),
		Profiles: make(map[string]domain.UserProfile),
	}
}

func (s *StubStorage) GetGame(_ context.Context, id string) (*domain.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetGameErr != nil {
		return nil, s.GetGameErr
	}
	game, ok := s.Games[id]
	if !ok {
		return nil, nil
	}
	copied := game
	return &copied, nil
}

func (s *StubStorage) UpsertGame(_ context.Context, game domain.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UpsertErr != nil {
		return s.UpsertErr
	}
	s.Games[game.ID] = game
	s.Upserts = append(s.Upserts, game)
	return nil
}

func (s *StubStorage) GetTeamsByLeague(_ context.Context, league string) ([]domain.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListTeamsErr != nil {
		return nil, s.ListTeamsErr
	}
	var teams []domain.Team
	for _, team := range s.Teams {
		if league == "" || team.League == league {
			teams = append(teams, team)
		}
	}
	return teams, nil
}

func (s *StubStorage) GetTeam(_ context.Context, id string) (*domain.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	team, ok := s.Teams[id]
	if !ok {
		return nil, nil
	}
	copied := team
	return &copied, nil
}

func (s *StubStorage) GetUserProfile(_ context.Context, userID string) (*domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetProfileErr != nil {
		return nil, s.GetProfileErr
	}
	profile, ok := s.Profiles[userID]
	if !ok {
		return nil, nil
	}
	copied := profile
	return &copied, nil
}

// ScoreCall records one BroadcastScoreUpdate invocation.
type ScoreCall struct {
	Game domain.Game
}

// StatusCall records one BroadcastStatusChange invocation.
type StatusCall struct {
	TeamID    string
	Game      domain.Game
	OldStatus string
}

// StubBroadcaster implements agent.Broadcaster and records every call.
type StubBroadcaster struct {
	mu sync.Mutex

	ScoreCalls  []ScoreCall
	StatusCalls []StatusCall
}

func (b *StubBroadcaster) BroadcastScoreUpdate(_ context.Context, game domain.Game) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ScoreCalls = append(b.ScoreCalls, ScoreCall{Game: game})
}

func (b *StubBroadcaster) BroadcastStatusChange(_ context.Context, teamID string, game domain.Game, oldStatus string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.StatusCalls = append(b.StatusCalls, StatusCall{TeamID: teamID, Game: game, OldStatus: oldStatus})
}

// Scores returns a copy of the recorded score calls.
func (b *StubBroadcaster) Scores() []ScoreCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ScoreCall(nil), b.ScoreCalls...)
}

// Statuses returns a copy of the recorded status calls.
func (b *StubBroadcaster) Statuses() []StatusCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]StatusCall(nil), b.StatusCalls...)
}

// StubCache implements cache.Cache with a plain map and injectable errors.
type StubCache struct {
	mu sync.Mutex

	Entries map[string][]domain.Game
	TTLs    map[string]time.Duration

	GetErr error
	SetErr error

	GetCalls int
	SetCalls int
}

func NewStubCache() *StubCache {
	return &StubCache{
		Entries: make(map[string][]domain.Game),
		TTLs:    make(map[string]time.Duration),
	}
}

func (c *StubCache) GetGames(_ context.Context, key string) ([]domain.Game, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.GetCalls++
	if c.GetErr != nil {
		return nil, false, c.GetErr
	}
	games, ok := c.Entries[key]
	return games, ok, nil
}

func (c *StubCache) SetGames(_ context.Context, key string, games []domain.Game, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SetCalls++
	if c.SetErr != nil {
		return c.SetErr
	}
	c.Entries[key] = append([]domain.Game(nil), games...)
	c.TTLs[key] = ttl
	return nil
}

func (c *StubCache) DeletePattern(_ context.Context, pattern string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key := range c.Entries {
		if cache.MatchPattern(pattern, key) {
			delete(c.Entries, key)
			delete(c.TTLs, key)
			removed++
		}
	}
	return removed, nil
}

func (c *StubCache) Close() error { return nil }
