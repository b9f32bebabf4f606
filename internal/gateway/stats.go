package gateway

import "sync/atomic"

// HealthState classifies the gateway's recent behavior.
type HealthState string

const (
	HealthHealthy   HealthState = "healthy"
	HealthDegraded  HealthState = "degraded"
	HealthUnhealthy HealthState = "unhealthy"
)

// Error-rate and auth-failure-rate thresholds for the derived health state.
const (
	degradedErrorRate    = 0.10
	unhealthyErrorRate   = 0.25
	unhealthyAuthFailure = 0.50
)

// Stats aggregates gateway counters. All methods are safe for concurrent use.
type Stats struct {
	connections    atomic.Int64
	disconnections atomic.Int64
	messages       atomic.Int64
	errors         atomic.Int64
	authFailures   atomic.Int64
}

// StatsSnapshot is a point-in-time copy of the counters plus the derived
// health classification.
type StatsSnapshot struct {
	Connections    int64       `json:"connections"`
	Disconnections int64       `json:"disconnections"`
	Messages       int64       `json:"messages"`
	Errors         int64       `json:"errors"`
	AuthFailures   int64       `json:"authFailures"`
	Health         HealthState `json:"health"`
}

func (s *Stats) recordConnection()    { s.connections.Add(1) }
func (s *Stats) recordDisconnection() { s.disconnections.Add(1) }
func (s *Stats) recordMessage()       { s.messages.Add(1) }
func (s *Stats) recordError()         { s.errors.Add(1) }
func (s *Stats) recordAuthFailure()   { s.authFailures.Add(1) }

// Snapshot copies the counters and derives the health state.
func (s *Stats) Snapshot() StatsSnapshot {
	snap := StatsSnapshot{
		Connections:    s.connections.Load(),
		Disconnections: s.disconnections.Load(),
		Messages:       s.messages.Load(),
		Errors:         s.errors.Load(),
		AuthFailures:   s.authFailures.Load(),
	}
	snap.Health = classify(snap)
	return snap
}

func classify(s StatsSnapshot) HealthState {
	attempts := s.Connections + s.AuthFailures
	if attempts > 0 {
		if rate := float64(s.AuthFailures) / float64(attempts); rate > unhealthyAuthFailure {
			return HealthUnhealthy
		}
	}

	if s.Messages == 0 {
		return HealthHealthy
	}

	rate := float64(s.Errors) / float64(s.Messages)
	switch {
	case rate > unhealthyErrorRate:
		return HealthUnhealthy
	case rate > degradedErrorRate:
		return HealthDegraded
	default:
		return HealthHealthy
	}
}
