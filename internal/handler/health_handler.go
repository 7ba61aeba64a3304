package handler

import (
	"context"
	"net/http"
	"time"

	"beyond-pages/internal/container"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	container *container.Container
	now       func() time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(container *container.Container) *HealthHandler {
	return &HealthHandler{
		container: container,
		now:       time.Now,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Version      string            `json:"version"`
	Service      string            `json:"service"`
	Dependencies map[string]string `json:"dependencies"`
}

// Check handles GET /health. The database is required; Redis, storage and
// search degrade the status without failing it.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	logger := h.container.GetLogger()
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	deps := map[string]string{}
	status, code := "healthy", http.StatusOK

	if db := h.container.DB; db != nil && db.Pool != nil {
		if err := db.Health(ctx); err != nil {
			logger.WithError(err).Warn("Database health check failed")
			deps["database"] = "down"
			status, code = "unhealthy", http.StatusServiceUnavailable
		} else {
			deps["database"] = "up"
		}
	} else {
		deps["database"] = "not_configured"
	}

	degrade := func(name string, err error) {
		if err != nil {
			logger.WithError(err).WithField("dependency", name).Warn("Health check failed")
			deps[name] = "down"
			if status == "healthy" {
				status = "degraded"
			}
			return
		}
		deps[name] = "up"
	}

	if redis := h.container.GetRedisClient(); redis != nil {
		degrade("redis", redis.Health(ctx))
	} else {
		deps["redis"] = "memory"
	}
	if store := h.container.Storage; store != nil {
		degrade("storage", store.Health(ctx))
	}
	switch {
	case !h.container.Search.Configured():
		deps["search"] = "postgres"
	case h.container.Search.Healthy():
		deps["search"] = "up"
	default:
		deps["search"] = "fallback"
		if status == "healthy" {
			status = "degraded"
		}
	}

	response := HealthResponse{
		Status:       status,
		Timestamp:    h.now().UTC(),
		Version:      "1.0.0",
		Service:      "beyond-pages",
		Dependencies: deps,
	}
	respondJSON(w, code, response)
}
