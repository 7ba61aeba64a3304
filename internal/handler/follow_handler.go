package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"beyond-pages/internal/service"
	"beyond-pages/pkg/logger"
)

type FollowHandler struct {
	follows *service.FollowService
	logger  *logger.Logger
}

func NewFollowHandler(follows *service.FollowService, logger *logger.Logger) *FollowHandler {
	return &FollowHandler{follows: follows, logger: logger}
}

// Follow handles POST /api/follows/{userId}
func (h *FollowHandler) Follow(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	if err := h.follows.Follow(r.Context(), user.ID, chi.URLParam(r, "userId")); err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"following": true})
}

// Unfollow handles DELETE /api/follows/{userId}
func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	if err := h.follows.Unfollow(r.Context(), user.ID, chi.URLParam(r, "userId")); err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"following": false})
}

// Status handles GET /api/follows/{userId}
func (h *FollowHandler) Status(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	following, err := h.follows.IsFollowing(r.Context(), user.ID, chi.URLParam(r, "userId"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"following": following})
}

// Followers handles GET /api/users/{userId}/followers
func (h *FollowHandler) Followers(w http.ResponseWriter, r *http.Request) {
	users, err := h.follows.Followers(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// Following handles GET /api/users/{userId}/following
func (h *FollowHandler) Following(w http.ResponseWriter, r *http.Request) {
	users, err := h.follows.Following(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// Counts handles GET /api/users/{userId}/follow-counts
func (h *FollowHandler) Counts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.follows.Counts(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, counts)
}
