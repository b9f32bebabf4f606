package domain

import (
	"fmt"
	"time"
)

// Well-known game lifecycle states. Status is an open string domain: upstream
// providers may report states outside this list and they are passed through
// verbatim.
const (
	StatusScheduled = "scheduled"
	StatusLive      = "live"
	StatusFinal     = "final"
	StatusPostponed = "postponed"
	StatusUnknown   = "unknown"
)

// Mode identifies the polling context a fetch runs under. It determines the
// adapter method used and the cache TTL applied to the result set.
type Mode string

const (
	ModeLive     Mode = "live"
	ModeSchedule Mode = "schedule"
	ModeFeatured Mode = "featured"
)

// Valid reports whether the mode is one of the three known polling contexts.
func (m Mode) Valid() bool {
	switch m {
	case ModeLive, ModeSchedule, ModeFeatured:
		return true
	}
	return false
}

// Game is the latest known snapshot of one contest. It is not a history:
// every successful ingestion cycle overwrites it, last write wins.
type Game struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	Sport         string    `json:"sport"`
	HomeTeamID    string    `json:"homeTeamId" gorm:"index"`
	AwayTeamID    string    `json:"awayTeamId" gorm:"index"`
	HomePts       int       `json:"homePts"`
	AwayPts       int       `json:"awayPts"`
	Status        string    `json:"status"`
	Period        int       `json:"period"`
	TimeRemaining string    `json:"timeRemaining"`
	StartTime     time.Time `json:"startTime"`
	CachedAt      time.Time `json:"cachedAt"`
}

// GameID builds the stable composite game identity from the competing sides
// and the start date.
func GameID(awayTeamID, homeTeamID string, start time.Time) string {
	return fmt.Sprintf("%s-%s-%s", awayTeamID, homeTeamID, start.UTC().Format("2006-01-02"))
}

// TeamIDs returns both sides involved in the game.
func (g Game) TeamIDs() []string {
	return []string{g.HomeTeamID, g.AwayTeamID}
}

// Team represents one entry in the current roster.
type Team struct {
	ID     string `json:"id" gorm:"primaryKey"`
	Name   string `json:"name"`
	League string `json:"league" gorm:"index"`
	Sport  string `json:"sport" gorm:"index"`
}

// UserProfile carries the per-user state the live pipeline needs: the
// favorite teams loaded for auto-subscription after authentication.
type UserProfile struct {
	ID              string   `json:"id"`
	DisplayName     string   `json:"displayName"`
	FavoriteTeamIDs []string `json:"favoriteTeamIds"`
}
