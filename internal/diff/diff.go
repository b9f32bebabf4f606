// Package diff compares a freshly fetched game snapshot against the last
// persisted one and reports which broadcast-worthy changes occurred.
package diff

import "livescores-service/internal/domain"

// Result describes the changes between the prior and next snapshot.
type Result struct {
	ScoreChanged  bool
	StatusChanged bool
	OldStatus     string
}

// Detect compares prior (nil when the game has never been seen) against next.
// A first-seen game reports a status change from "unknown" and never a score
// change, so new games announce themselves without a spurious score update.
func Detect(prior *domain.Game, next domain.Game) Result {
	if prior == nil {
		return Result{
			ScoreChanged:  false,
			StatusChanged: true,
			OldStatus:     domain.StatusUnknown,
		}
	}

	return Result{
		ScoreChanged:  prior.HomePts != next.HomePts || prior.AwayPts != next.AwayPts,
		StatusChanged: prior.Status != next.Status,
		OldStatus:     prior.Status,
	}
}
