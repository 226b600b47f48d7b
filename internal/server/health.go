package server

import (
	"net/http"
	"sync/atomic"
	"time"
)

// Health status values reported by the probe endpoints.
const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
	healthStatusUnavailable  = "unavailable"
)

// HealthChecker serves the liveness and readiness probes. Readiness covers
// the pieces the daemon cannot work without: the readiness flag, the
// shutdown state, and the ledger.
type HealthChecker struct {
	ready     atomic.Bool
	app       *AppContext
	startTime time.Time
}

// NewHealthChecker creates a health checker that reports ready until told
// otherwise.
func NewHealthChecker(app *AppContext) *HealthChecker {
	h := &HealthChecker{
		app:       app,
		startTime: time.Now(),
	}
	h.ready.Store(true)
	return h
}

// SetReady flips the readiness flag. Shutdown sets it to false so load
// balancers drain before the listener closes.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports the readiness flag.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

func (h *HealthChecker) shuttingDown() bool {
	return h.app != nil && h.app.IsShutdown()
}

// HealthResponse is the JSON body of the probe endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse adds scheduler and ledger state for operators.
type DetailedHealthResponse struct {
	Status           string `json:"status"`
	Uptime           string `json:"uptime"`
	SchedulerRunning bool   `json:"scheduler_running"`
	ScheduledJobs    int    `json:"scheduled_jobs"`
	TotalExecutions  int64  `json:"total_executions"`
}

// RegisterHealthEndpoints mounts the probe endpoints on the mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}

// LivenessHandler answers /healthz. It only confirms the process serves
// requests; a failing ledger must not get the daemon restarted.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler answers /readyz with one line per dependency check.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]string)
		allOK := true

		if h.ready.Load() {
			checks["ready"] = healthStatusOK
		} else {
			checks["ready"] = healthStatusNotReady
			allOK = false
		}

		if h.shuttingDown() {
			checks["shutdown"] = healthStatusShuttingDown
			allOK = false
		} else {
			checks["shutdown"] = healthStatusOK
		}

		if h.app != nil && h.app.Ledger() != nil {
			if _, err := h.app.Ledger().ExecutionCount(r.Context()); err != nil {
				checks["ledger"] = healthStatusUnavailable
				allOK = false
			} else {
				checks["ledger"] = healthStatusOK
			}
		}

		response := HealthResponse{Status: healthStatusOK, Checks: checks}
		status := http.StatusOK
		if !allOK {
			response.Status = healthStatusNotReady
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, response)
	})
}

// DetailedHealthHandler answers /healthz/detailed with uptime plus the
// scheduler and ledger state.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response := DetailedHealthResponse{
			Status: healthStatusOK,
			Uptime: time.Since(h.startTime).Truncate(time.Second).String(),
		}
		if h.app != nil && h.app.Scheduler() != nil {
			response.SchedulerRunning = h.app.Scheduler().Running()
			response.ScheduledJobs = len(h.app.Scheduler().Jobs())
		}
		if h.app != nil && h.app.Ledger() != nil {
			if count, err := h.app.Ledger().ExecutionCount(r.Context()); err == nil {
				response.TotalExecutions = count
			}
		}

		status := http.StatusOK
		switch {
		case !h.ready.Load():
			response.Status = healthStatusNotReady
			status = http.StatusServiceUnavailable
		case h.shuttingDown():
			response.Status = healthStatusShuttingDown
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, response)
	})
}
