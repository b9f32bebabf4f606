package sportsfeed

import (
	"fmt"
	"strings"
	"time"

	"livescores-service/internal/domain"
)

func mapGame(g gameResponse, fetchedAt time.Time) domain.Game {
	start, err := time.Parse(time.RFC3339, g.StartTime)
	if err != nil {
		start = fetchedAt.UTC().Truncate(24 * time.Hour)
	}

	home := mapTeamID(g.HomeTeam)
	away := mapTeamID(g.AwayTeam)

	return domain.Game{
		ID:            domain.GameID(away, home, start),
		Sport:         g.Sport,
		HomeTeamID:    home,
		AwayTeamID:    away,
		HomePts:       g.HomeScore,
		AwayPts:       g.AwayScore,
		Status:        mapStatus(g.Status),
		Period:        g.Period,
		TimeRemaining: strings.TrimSpace(g.TimeRemaining),
		StartTime:     start,
		CachedAt:      fetchedAt,
	}
}

func mapTeamID(t teamResponse) string {
	if slug := strings.TrimSpace(t.Slug); slug != "" {
		return slug
	}
	return fmt.Sprintf("team-%d", t.ID)
}

// mapStatus normalizes the common upstream phrasings; anything unrecognized
// passes through lowercased since the status domain is open.
func mapStatus(status string) string {
	switch normalized := strings.ToLower(strings.TrimSpace(status)); normalized {
	case "final", "ended", "complete":
		return domain.StatusFinal
	case "in progress", "live", "halftime", "end of period":
		return domain.StatusLive
	case "postponed":
		return domain.StatusPostponed
	case "scheduled", "upcoming", "":
		return domain.StatusScheduled
	default:
		return normalized
	}
}
