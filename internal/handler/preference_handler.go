package handler

import (
	"net/http"

	"beyond-pages/internal/domain"
	"beyond-pages/internal/middleware"
	"beyond-pages/internal/service"
	"beyond-pages/pkg/errors"
	"beyond-pages/pkg/logger"
)

// PreferenceHandler serves display preferences for users and guests alike
type PreferenceHandler struct {
	preferences *service.PreferenceService
	logger      *logger.Logger
}

func NewPreferenceHandler(preferences *service.PreferenceService, logger *logger.Logger) *PreferenceHandler {
	return &PreferenceHandler{preferences: preferences, logger: logger}
}

func subject(r *http.Request) (string, error) {
	id, ok := middleware.Subject(r.Context())
	if !ok {
		return "", errors.NewAuthenticationError("Sign in or continue as a guest")
	}
	return id, nil
}

// Get handles GET /api/preferences
func (h *PreferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := subject(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	prefs, err := h.preferences.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}

// Set handles PUT /api/preferences
func (h *PreferenceHandler) Set(w http.ResponseWriter, r *http.Request) {
	id, err := subject(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	var prefs domain.Preferences
	if err := decodeJSON(w, r, &prefs); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	if err := h.preferences.Set(r.Context(), id, &prefs); err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, &prefs)
}
