package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"livescores-service/internal/domain"
)

const janitorInterval = 30 * time.Second

type entry struct {
	payload   []byte
	expiresAt time.Time
}

// Memory is an in-process Cache backed by a mutex-guarded map. Values are
// stored as JSON so reads exercise the same serialization round-trip a remote
// backend would, restoring time.Time fields on the way out.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

// NewMemory constructs an empty in-memory cache and starts its expiry
// janitor.
func NewMemory() *Memory {
	m := &Memory{
		entries: make(map[string]entry),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go m.janitor()
	return m
}

// GetGames returns the cached result set for key if present and unexpired.
func (m *Memory) GetGames(ctx context.Context, key string) ([]domain.Game, bool, error) {
	_ = ctx

	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || m.now().After(e.expiresAt) {
		return nil, false, nil
	}

	var games []domain.Game
	if err := json.Unmarshal(e.payload, &games); err != nil {
		// A corrupt entry behaves as a miss; drop it so it cannot poison
		// later reads.
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false, nil
	}
	return games, true, nil
}

// SetGames stores the result set under key for ttl.
func (m *Memory) SetGames(ctx context.Context, key string, games []domain.Game, ttl time.Duration) error {
	_ = ctx

	if ttl <= 0 {
		return nil
	}

	payload, err := json.Marshal(games)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.entries[key] = entry{payload: payload, expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

// DeletePattern removes all keys matching pattern and returns the count.
func (m *Memory) DeletePattern(ctx context.Context, pattern string) (int, error) {
	_ = ctx

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key := range m.entries {
		if MatchPattern(pattern, key) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Close stops the janitor.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}

// Len reports the current number of entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Memory) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Memory) sweep() {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, key)
		}
	}
}
