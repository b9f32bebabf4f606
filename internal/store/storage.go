// Package store persists the latest-known game state, the team roster and
// user profiles behind the Storage interface the live pipeline consumes.
package store

import (
	"context"

	"livescores-service/internal/domain"
)

// Storage is the persistence contract consumed by the scores agent, the
// gateway and the reconciler. Implementations must tolerate concurrent
// access; last-write-wins is acceptable for game upserts.
type Storage interface {
	// GetGame returns the stored snapshot for id, or nil when never seen.
	GetGame(ctx context.Context, id string) (*domain.Game, error)
	// UpsertGame writes the snapshot, creating or overwriting as needed.
	UpsertGame(ctx context.Context, game domain.Game) error
	// GetTeamsByLeague lists roster teams; an empty league means all.
	GetTeamsByLeague(ctx context.Context, league string) ([]domain.Team, error)
	// GetTeam returns one roster team, or nil when absent.
	GetTeam(ctx context.Context, id string) (*domain.Team, error)
	// GetUserProfile returns the profile for a user, or nil when absent.
	GetUserProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
}
