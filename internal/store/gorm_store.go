package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"livescores-service/internal/domain"
)

// userRecord is the persistence shape for a user profile; favorites live in
// a JSON column.
type userRecord struct {
	ID              string `gorm:"primaryKey"`
	DisplayName     string
	FavoriteTeamIDs datatypes.JSON
}

func (userRecord) TableName() string { return "users" }

// GormStore implements Storage on a gorm-managed sqlite database.
type GormStore struct {
	db *gorm.DB
}

// Open connects to the sqlite database at dsn and migrates the schema.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&domain.Game{}, &domain.Team{}, &userRecord{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return db, nil
}

// New wraps an open gorm handle.
func New(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// DB exposes the underlying handle so collaborators (the durable job queue)
// can share the connection.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

// GetGame returns the stored snapshot for id, or nil when never seen.
func (s *GormStore) GetGame(ctx context.Context, id string) (*domain.Game, error) {
	var game domain.Game
	err := s.db.WithContext(ctx).First(&game, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &game, nil
}

// UpsertGame writes the snapshot with create-or-update semantics. Concurrent
// writers converge on last-write-wins within one polling interval.
func (s *GormStore) UpsertGame(ctx context.Context, game domain.Game) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&game).Error
}

// GetTeamsByLeague lists roster teams; an empty league means all.
func (s *GormStore) GetTeamsByLeague(ctx context.Context, league string) ([]domain.Team, error) {
	q := s.db.WithContext(ctx)
	if league != "" {
		q = q.Where("league = ?", league)
	}
	var teams []domain.Team
	if err := q.Order("id").Find(&teams).Error; err != nil {
		return nil, err
	}
	return teams, nil
}

// GetTeam returns one roster team, or nil when absent.
func (s *GormStore) GetTeam(ctx context.Context, id string) (*domain.Team, error) {
	var team domain.Team
	err := s.db.WithContext(ctx).First(&team, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// GetUserProfile returns the profile for userID, or nil when absent.
func (s *GormStore) GetUserProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	var rec userRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	profile := domain.UserProfile{ID: rec.ID, DisplayName: rec.DisplayName}
	if len(rec.FavoriteTeamIDs) > 0 {
		if err := json.Unmarshal(rec.FavoriteTeamIDs, &profile.FavoriteTeamIDs); err != nil {
			return nil, fmt.Errorf("decode favorite teams for %s: %w", userID, err)
		}
	}
	return &profile, nil
}

// SaveUserProfile writes a user profile, replacing any existing record.
func (s *GormStore) SaveUserProfile(ctx context.Context, profile domain.UserProfile) error {
	favorites, err := json.Marshal(profile.FavoriteTeamIDs)
	if err != nil {
		return err
	}
	rec := userRecord{
		ID:              profile.ID,
		DisplayName:     profile.DisplayName,
		FavoriteTeamIDs: favorites,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&rec).Error
}

// UpsertTeam writes a roster team with create-or-update semantics.
func (s *GormStore) UpsertTeam(ctx context.Context, team domain.Team) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&team).Error
}
