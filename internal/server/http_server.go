package server

import (
	"encoding/json"
	"net/http"

	"livescores-service/internal/gateway"
)

// newRouter mounts the gateway endpoint and the health surface.
func newRouter(hub *gateway.Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.HandleFunc("/healthz", healthHandler(hub))
	return mux
}

// healthHandler reports the aggregate gateway counters and the derived
// health classification. Unhealthy answers 503 so load balancers can react.
func healthHandler(hub *gateway.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		snap := hub.Stats()
		status := http.StatusOK
		if snap.Health == gateway.HealthUnhealthy {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(snap)
	}
}
