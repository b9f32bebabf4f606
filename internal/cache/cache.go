// Package cache provides the TTL store for recently fetched result sets,
// keyed by subject/sport/mode.
package cache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"livescores-service/internal/domain"
)

// Cache is a backend-agnostic TTL store for game result sets. Values are
// serialized on write and deserialized on read so timestamp fields come back
// with proper date semantics regardless of the backend.
type Cache interface {
	// GetGames returns the cached result set for key, reporting a miss when
	// the key is absent or expired.
	GetGames(ctx context.Context, key string) ([]domain.Game, bool, error)
	// SetGames stores the result set under key for ttl. A non-positive ttl
	// stores nothing.
	SetGames(ctx context.Context, key string, games []domain.Game, ttl time.Duration) error
	// DeletePattern removes all keys matching pattern ("*" matches any run of
	// characters within one ":" segment) and returns how many were removed.
	DeletePattern(ctx context.Context, pattern string) (int, error)
	// Close releases any backend resources.
	Close() error
}

// Key builds the canonical cache key for a fetch scope. An empty subject list
// scopes the entry globally. Subjects are sorted so equivalent scopes hash to
// the same key regardless of caller ordering.
func Key(subjects []string, sport string, mode domain.Mode) string {
	subject := "global"
	if len(subjects) > 0 {
		sorted := append([]string(nil), subjects...)
		sort.Strings(sorted)
		subject = strings.Join(sorted, "+")
	}
	if sport == "" {
		sport = "any"
	}
	return fmt.Sprintf("scores:%s:%s:%s", mode, sport, subject)
}

// TeamPattern matches every cache key whose subject segment mentions teamID.
// The wildcard stays inside its segment, so a team id that also names a mode
// or sport leaves those keys alone.
func TeamPattern(teamID string) string {
	return "scores:*:*:*" + teamID + "*"
}

// SportPattern matches every cache key scoped to sport.
func SportPattern(sport string) string {
	return "scores:*:" + sport + ":*"
}

// MatchPattern reports whether key matches pattern. Both are ":"-separated
// segments; "*" matches any (possibly empty) run of characters within a
// single segment and never crosses a segment boundary.
func MatchPattern(pattern, key string) bool {
	pparts := strings.Split(pattern, ":")
	kparts := strings.Split(key, ":")
	if len(pparts) != len(kparts) {
		return false
	}
	for i := range pparts {
		if !matchSegment(pparts[i], kparts[i]) {
			return false
		}
	}
	return true
}

func matchSegment(pattern, segment string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == segment
	}

	if !strings.HasPrefix(segment, parts[0]) {
		return false
	}
	segment = segment[len(parts[0]):]

	last := len(parts) - 1
	for i := 1; i < last; i++ {
		if parts[i] == "" {
			continue
		}
		idx := strings.Index(segment, parts[i])
		if idx < 0 {
			return false
		}
		segment = segment[idx+len(parts[i]):]
	}

	return strings.HasSuffix(segment, parts[last])
}
