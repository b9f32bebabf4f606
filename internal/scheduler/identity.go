package scheduler

import (
	"fmt"
	"strings"

	"livescores-service/internal/domain"
)

// Trigger key layout: scores:<mode>:team:<id> or scores:<mode>:sport:<name>.
// Keys are deterministic so the desired set can be recomputed from the
// roster and diffed against what the queue actually holds.
const (
	keyPrefix = "scores"

	// MaintenanceKey identifies the reconciler's own repeatable trigger; it
	// is always part of the desired set.
	MaintenanceKey = "maintenance:reconcile"
)

// TeamTriggerKey builds the identity for a per-team polling trigger.
func TeamTriggerKey(mode domain.Mode, teamID string) string {
	return fmt.Sprintf("%s:%s:team:%s", keyPrefix, mode, teamID)
}

// SportTriggerKey builds the identity for a per-sport polling trigger.
func SportTriggerKey(mode domain.Mode, sport string) string {
	return fmt.Sprintf("%s:%s:sport:%s", keyPrefix, mode, sport)
}

// TeamFromKey extracts the team id from a per-team trigger key.
func TeamFromKey(key string) (string, bool) {
	parts := strings.Split(key, ":")
	if len(parts) == 4 && parts[0] == keyPrefix && parts[2] == "team" {
		return parts[3], true
	}
	return "", false
}

// SportFromKey extracts the sport from a per-sport trigger key.
func SportFromKey(key string) (string, bool) {
	parts := strings.Split(key, ":")
	if len(parts) == 4 && parts[0] == keyPrefix && parts[2] == "sport" {
		return parts[3], true
	}
	return "", false
}

// Cadences holds the cron specs per polling mode.
type Cadences struct {
	Live     string
	Schedule string
	Featured string
}

// Desired is one entry of the desired repeatable-trigger set.
type Desired struct {
	Key     string
	Spec    string
	TeamIDs []string
	Sport   string
	Mode    domain.Mode
}

// DesiredTriggers computes the repeatable triggers the current roster calls
// for: one live trigger per team, plus featured and schedule triggers per
// distinct sport. The set is recomputed, never hardcoded, so roster changes
// flow through on the next reconciliation.
func DesiredTriggers(teams []domain.Team, cadences Cadences) []Desired {
	desired := make([]Desired, 0, len(teams)+4)
	sports := make(map[string]struct{})

	for _, team := range teams {
		desired = append(desired, Desired{
			Key:     TeamTriggerKey(domain.ModeLive, team.ID),
			Spec:    cadences.Live,
			TeamIDs: []string{team.ID},
			Sport:   team.Sport,
			Mode:    domain.ModeLive,
		})
		if team.Sport != "" {
			sports[team.Sport] = struct{}{}
		}
	}

	for sport := range sports {
		desired = append(desired,
			Desired{
				Key:   SportTriggerKey(domain.ModeFeatured, sport),
				Spec:  cadences.Featured,
				Sport: sport,
				Mode:  domain.ModeFeatured,
			},
			Desired{
				Key:   SportTriggerKey(domain.ModeSchedule, sport),
				Spec:  cadences.Schedule,
				Sport: sport,
				Mode:  domain.ModeSchedule,
			},
		)
	}

	return desired
}
