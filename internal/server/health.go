package server

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

// Health status constants for health check responses.
const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
	healthStatusUnavailable  = "unavailable"

	healthCheckTimeout = 3 * time.Second
)

// Pinger is a dependency whose connectivity can be checked.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker provides health check endpoints for Kubernetes probes.
type HealthChecker struct {
	// ready indicates whether the server is ready to receive traffic
	ready atomic.Bool
	// shuttingDown is set once graceful shutdown starts
	shuttingDown atomic.Bool
	// store must be reachable for the server to be ready
	store Pinger
	// backend is reported by the detailed endpoint only
	backend Pinger
	// startTime tracks when the server started
	startTime time.Time
}

// NewHealthChecker creates a new HealthChecker. Either pinger may be nil.
func NewHealthChecker(store, backend Pinger) *HealthChecker {
	h := &HealthChecker{
		store:     store,
		backend:   backend,
		startTime: time.Now(),
	}
	h.ready.Store(true)
	return h
}

// SetReady sets the readiness state of the server.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady returns whether the server is ready to receive traffic.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// SetShuttingDown marks the server as draining.
func (h *HealthChecker) SetShuttingDown() {
	h.shuttingDown.Store(true)
}

// HealthResponse represents the JSON response for health endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse provides comprehensive health information.
type DetailedHealthResponse struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime"`
	Checks map[string]string `json:"checks"`
}

// Liveness handles /healthz. It only reports that the process is serving.
func (h *HealthChecker) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: healthStatusOK})
}

// Readiness handles /readyz.
func (h *HealthChecker) Readiness(c *gin.Context) {
	checks, ok := h.baseChecks()

	if h.store != nil {
		if err := ping(c.Request.Context(), h.store); err != nil {
			checks["store"] = healthStatusUnavailable
			ok = false
		} else {
			checks["store"] = healthStatusOK
		}
	}

	response := HealthResponse{Status: healthStatusOK, Checks: checks}
	status := http.StatusOK
	if !ok {
		response.Status = healthStatusNotReady
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, response)
}

// Detailed handles /healthz/detailed. The AI backend is reported but does
// not affect the status code.
func (h *HealthChecker) Detailed(c *gin.Context) {
	checks, ok := h.baseChecks()
	ctx := c.Request.Context()

	if h.store != nil {
		if err := ping(ctx, h.store); err != nil {
			checks["store"] = err.Error()
			ok = false
		} else {
			checks["store"] = healthStatusOK
		}
	}
	if h.backend != nil {
		if err := ping(ctx, h.backend); err != nil {
			checks["ai_backend"] = err.Error()
		} else {
			checks["ai_backend"] = healthStatusOK
		}
	}

	response := DetailedHealthResponse{
		Status: healthStatusOK,
		Uptime: time.Since(h.startTime).Truncate(time.Second).String(),
		Checks: checks,
	}

	switch {
	case h.shuttingDown.Load():
		response.Status = healthStatusShuttingDown
	case !ok:
		response.Status = healthStatusNotReady
	}
	if response.Status != healthStatusOK {
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (h *HealthChecker) baseChecks() (map[string]string, bool) {
	checks := make(map[string]string)
	ok := true

	if !h.ready.Load() {
		checks["ready"] = healthStatusNotReady
		ok = false
	} else {
		checks["ready"] = healthStatusOK
	}

	if h.shuttingDown.Load() {
		checks["shutdown"] = healthStatusShuttingDown
		ok = false
	} else {
		checks["shutdown"] = healthStatusOK
	}

	return checks, ok
}

func ping(ctx context.Context, p Pinger) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	return p.Ping(ctx)
}

// RegisterHealthEndpoints registers health check endpoints on the router.
func (h *HealthChecker) RegisterHealthEndpoints(r gin.IRoutes) {
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
	r.GET("/healthz/detailed", h.Detailed)
}
