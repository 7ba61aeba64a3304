package handler

import (
	"net/http"

	"beyond-pages/internal/domain"
	"beyond-pages/pkg/logger"
)

// AuthHandler handles authentication related requests
type AuthHandler struct {
	logger *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(log *logger.Logger) *AuthHandler {
	return &AuthHandler{logger: log}
}

// SessionUserResponse describes the signed-in caller
type SessionUserResponse struct {
	User *domain.User `json:"user"`
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	h.logger.WithField("user_id", user.ID).Debug("Returning session user")
	respondJSON(w, http.StatusOK, SessionUserResponse{User: user})
}
