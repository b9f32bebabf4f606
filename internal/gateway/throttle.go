package gateway

import (
	"sync"
	"time"
)

const (
	defaultThrottleInterval = time.Second
	defaultThrottleIdle     = time.Hour
	throttleSweepInterval   = 5 * time.Minute
)

// Throttler enforces a minimum interval between score-update broadcasts for
// the same game, absorbing adapter jitter that would otherwise produce
// duplicate rapid notifications. Status-change broadcasts never consult it.
type Throttler struct {
	mu        sync.Mutex
	last      map[string]time.Time
	interval  time.Duration
	idleEvict time.Duration
	now       func() time.Time
	done      chan struct{}
	once      sync.Once
}

// NewThrottler constructs a throttler and starts its idle-entry sweeper.
func NewThrottler(interval, idleEvict time.Duration) *Throttler {
	if interval <= 0 {
		interval = defaultThrottleInterval
	}
	if idleEvict <= 0 {
		idleEvict = defaultThrottleIdle
	}
	t := &Throttler{
		last:      make(map[string]time.Time),
		interval:  interval,
		idleEvict: idleEvict,
		now:       time.Now,
		done:      make(chan struct{}),
	}
	go t.sweeper()
	return t
}

// ShouldSendUpdate reports whether a score update for gameID may be sent now,
// recording the send time when it may.
func (t *Throttler) ShouldSendUpdate(gameID string) bool {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if last, ok := t.last[gameID]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.last[gameID] = now
	return true
}

// Len reports the number of tracked games.
func (t *Throttler) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.last)
}

// Stop halts the sweeper.
func (t *Throttler) Stop() {
	t.once.Do(func() { close(t.done) })
}

func (t *Throttler) sweeper() {
	ticker := time.NewTicker(throttleSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			t.sweep()
		}
	}
}

// sweep drops entries idle beyond the retention window to bound memory.
func (t *Throttler) sweep() {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	for gameID, last := range t.last {
		if now.Sub(last) > t.idleEvict {
			delete(t.last, gameID)
		}
	}
}
