package gateway

import "testing"

func TestStatsHealthClassification(t *testing.T) {
	tests := []struct {
		name         string
		connections  int
		messages     int
		errors       int
		authFailures int
		want         HealthState
	}{
		{name: "idle gateway is healthy", want: HealthHealthy},
		{name: "low error rate", connections: 5, messages: 100, errors: 5, want: HealthHealthy},
		{name: "error rate at threshold stays healthy", connections: 5, messages: 100, errors: 10, want: HealthHealthy},
		{name: "error rate above ten percent degrades", connections: 5, messages: 100, errors: 11, want: HealthDegraded},
		{name: "error rate above quarter is unhealthy", connections: 5, messages: 100, errors: 26, want: HealthUnhealthy},
		{name: "auth failures dominate", connections: 2, authFailures: 8, want: HealthUnhealthy},
		{name: "auth failure rate at half stays healthy", connections: 5, authFailures: 5, want: HealthHealthy},
		{name: "no connections but auth failures", authFailures: 3, want: HealthUnhealthy},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := &Stats{}
			for i := 0; i < tc.connections; i++ {
				s.recordConnection()
			}
			for i := 0; i < tc.messages; i++ {
				s.recordMessage()
			}
			for i := 0; i < tc.errors; i++ {
				s.recordError()
			}
			for i := 0; i < tc.authFailures; i++ {
				s.recordAuthFailure()
			}

			if got := s.Snapshot().Health; got != tc.want {
				t.Fatalf("health = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestStatsSnapshotCounters(t *testing.T) {
	s := &Stats{}
	s.recordConnection()
	s.recordConnection()
	s.recordDisconnection()
	s.recordMessage()
	s.recordError()
	s.recordAuthFailure()

	snap := s.Snapshot()
	if snap.Connections != 2 || snap.Disconnections != 1 || snap.Messages != 1 ||
		snap.Errors != 1 || snap.AuthFailures != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}
