package handler

import (
	"context"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

// Dependency is a backing store the readiness check pings.
type Dependency struct {
	Name string
	Ping func(ctx context.Context) error
}

type HealthHandler struct {
	deps      []Dependency
	logger    *zap.Logger
	startTime time.Time
	version   string
	timeout   time.Duration
}

func NewHealthHandler(logger *zap.Logger, deps ...Dependency) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	version := os.Getenv("APP_VERSION")
	if version == "" {
		version = "unknown"
	}
	return &HealthHandler{
		deps:      deps,
		logger:    logger,
		startTime: time.Now(),
		version:   version,
		timeout:   5 * time.Second,
	}
}

// HealthResponse follows Kubernetes/OpenShift health check conventions
type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
}

type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Health is a simple liveness check - just confirms the Go process is running
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.response("UP", map[string]Check{"process": {Status: "UP"}}))
}

// Ready pings every dependency (readiness check)
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]Check, len(h.deps))
	status := "UP"
	httpStatus := http.StatusOK

	for _, dep := range h.deps {
		check := h.check(r.Context(), dep)
		checks[dep.Name] = check
		if check.Status != "UP" {
			status = "DOWN"
			httpStatus = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, h.logger, httpStatus, h.response(status, checks))
}

// Live is an alias for Health - simple liveness check
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	h.Health(w, r)
}

func (h *HealthHandler) response(status string, checks map[string]Check) HealthResponse {
	return HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version,
		Checks:    checks,
	}
}

func (h *HealthHandler) check(ctx context.Context, dep Dependency) Check {
	if dep.Ping == nil {
		return Check{Status: "DOWN", Message: dep.Name + " is not initialized"}
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if err := dep.Ping(ctx); err != nil {
		h.logger.Warn("readiness check failed", zap.String("dependency", dep.Name), zap.Error(err))
		return Check{Status: "DOWN", Message: "Cannot connect to " + dep.Name}
	}
	return Check{Status: "UP"}
}
