package httpapi

import (
	"net/http"
	"time"
)

var processStart = time.Now()

type healthResponse struct {
	Status    string           `json:"status"`
	UptimeSec float64          `json:"uptime_seconds"`
	Database  string           `json:"database"`
	Metrics   any              `json:"metrics,omitempty"`
}

// handleHealth reports database connectivity and, best-effort, a metrics
// snapshot. It never requires an API key so load balancers and
// orchestrators can probe it without a credential.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "healthy",
		UptimeSec: time.Since(processStart).Seconds(),
		Database:  "ok",
	}

	status := http.StatusOK
	if err := s.store.Ping(r.Context()); err != nil {
		resp.Status = "unhealthy"
		resp.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}

	if s.metrics != nil {
		resp.Metrics = s.metrics.Snapshot()
	}

	writeJSON(w, status, resp)
}
