package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"beyond-pages/internal/domain"
	"beyond-pages/internal/service"
	"beyond-pages/pkg/logger"
)

type HighlightHandler struct {
	highlights *service.HighlightService
	logger     *logger.Logger
}

func NewHighlightHandler(highlights *service.HighlightService, logger *logger.Logger) *HighlightHandler {
	return &HighlightHandler{highlights: highlights, logger: logger}
}

// ListByBook handles GET /api/books/{id}/highlights
func (h *HighlightHandler) ListByBook(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	highlights, err := h.highlights.ListByBook(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, highlights)
}

// Create handles POST /api/books/{id}/highlights
func (h *HighlightHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	var req domain.CreateHighlightRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	highlight, err := h.highlights.Create(r.Context(), user.ID, chi.URLParam(r, "id"), &req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusCreated, highlight)
}

// ListMine handles GET /api/highlights?limit=
func (h *HighlightHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	limit, err := parseIntParam(r, "limit", 0)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	highlights, err := h.highlights.ListByUser(r.Context(), user.ID, limit)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, highlights)
}

// Delete handles DELETE /api/highlights/{id}
func (h *HighlightHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	if err := h.highlights.Delete(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondMessage(w, http.StatusOK, "Highlight deleted")
}

// Detect handles POST /api/highlights/detect
func (h *HighlightHandler) Detect(w http.ResponseWriter, r *http.Request) {
	var req domain.DetectQuotesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	quotes, err := h.highlights.Suggest(req.Text)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"quotes": quotes})
}
