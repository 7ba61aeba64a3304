package handler

import (
	"net/http"

	"beyond-pages/internal/service"
	"beyond-pages/pkg/logger"
)

type BadgeHandler struct {
	badges *service.BadgeService
	logger *logger.Logger
}

func NewBadgeHandler(badges *service.BadgeService, logger *logger.Logger) *BadgeHandler {
	return &BadgeHandler{badges: badges, logger: logger}
}

// List handles GET /api/badges
func (h *BadgeHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	badges, err := h.badges.List(r.Context(), user.ID)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, badges)
}

// Evaluate handles POST /api/badges/evaluate and returns newly awarded badges
func (h *BadgeHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	awarded, err := h.badges.Evaluate(r.Context(), user.ID)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"awarded": awarded})
}
