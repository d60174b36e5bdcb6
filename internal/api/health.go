package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/selivandex/forex-analyzer/pkg/models"
)

// HealthStatus represents process liveness
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ReadinessStatus represents readiness to serve dashboard data
type ReadinessStatus struct {
	Ready     bool              `json:"ready"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Refresh   RefreshStatus     `json:"refresh"`
}

// RefreshStatus shows pipeline progress
type RefreshStatus struct {
	State    models.RefreshState `json:"state"`
	InFlight bool                `json:"inFlight"`
	Settled  bool                `json:"settled"`
}

// handleHealth is the liveness probe, 200 while the process is alive even if dependencies are down
func (s *Server) handleHealth(c *gin.Context) {
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	}

	if c.Query("verbose") == "true" {
		status.Checks, _ = s.runChecks()
	}

	c.JSON(http.StatusOK, status)
}

// handleReadiness returns 200 once startup completed, storage is healthy and a first cycle settled
func (s *Server) handleReadiness(c *gin.Context) {
	s.readyMu.RLock()
	ready := s.ready
	s.readyMu.RUnlock()

	checks, allHealthy := s.runChecks()
	settled := s.coordinator.Settled()
	state := s.coordinator.Snapshot().State

	status := ReadinessStatus{
		Ready:     ready && allHealthy && settled,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Refresh: RefreshStatus{
			State:    state,
			InFlight: state.InFlight(),
			Settled:  settled,
		},
	}

	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

func (s *Server) runChecks() (map[string]string, bool) {
	checks := make(map[string]string, len(s.checks))
	allHealthy := true

	for name, check := range s.checks {
		if err := check(); err != nil {
			checks[name] = "unhealthy: " + err.Error()
			allHealthy = false
			continue
		}
		checks[name] = "healthy"
	}

	return checks, allHealthy
}
