package handler

import (
	"context"
	"net/http"
	"time"

	"beyond-pages/internal/search"
	"beyond-pages/pkg/errors"
	"beyond-pages/pkg/logger"
)

// TestingHandler exposes maintenance endpoints for local development
type TestingHandler struct {
	search      *search.Service
	environment string
	logger      *logger.Logger
}

// NewTestingHandler creates a new testing handler
func NewTestingHandler(searchService *search.Service, environment string, log *logger.Logger) *TestingHandler {
	return &TestingHandler{
		search:      searchService,
		environment: environment,
		logger:      log,
	}
}

// ReindexResponse reports a search index rebuild
type ReindexResponse struct {
	Indexed     int    `json:"indexed"`
	Environment string `json:"environment"`
	DurationMS  int64  `json:"duration_ms"`
}

// ReindexSearch handles POST /api/testing/reindex-search. Only available in
// the development environment.
func (h *TestingHandler) ReindexSearch(w http.ResponseWriter, r *http.Request) {
	if h.environment != "development" {
		h.logger.Warn("Attempted to access testing endpoint in non-development environment")
		respondError(w, r, errors.NewAuthorizationError("This endpoint is only available in development environment"), h.logger)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	start := time.Now()
	n, err := h.search.Reindex(ctx)
	duration := time.Since(start)
	if err != nil {
		h.logger.WithError(err).Error("Testing: search reindex failed")
		respondError(w, r, err, h.logger)
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"indexed":  n,
		"duration": duration.String(),
	}).Info("Testing: search index rebuilt")

	respondJSON(w, http.StatusOK, ReindexResponse{
		Indexed:     n,
		Environment: h.environment,
		DurationMS:  duration.Milliseconds(),
	})
}
