package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"beyond-pages/internal/domain"
	"beyond-pages/internal/service"
	"beyond-pages/pkg/logger"
)

// CommunityHandler serves the public feed and signed-in posting
type CommunityHandler struct {
	community *service.CommunityService
	logger    *logger.Logger
}

func NewCommunityHandler(community *service.CommunityService, logger *logger.Logger) *CommunityHandler {
	return &CommunityHandler{community: community, logger: logger}
}

// ListPosts handles GET /api/community/posts?before=
func (h *CommunityHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	before, err := parseBefore(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	posts, err := h.community.ListPosts(r.Context(), before)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	if before == nil {
		w.Header().Set("Cache-Control", "public, max-age=10")
	}
	respondJSON(w, http.StatusOK, posts)
}

// Feed handles GET /api/community/feed, posts by the people the caller follows
func (h *CommunityHandler) Feed(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	before, err := parseBefore(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	posts, err := h.community.Feed(r.Context(), user.ID, before)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, posts)
}

// CreatePost handles POST /api/community/posts
func (h *CommunityHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	var req domain.CreatePostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	post, err := h.community.CreatePost(r.Context(), user.ID, &req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusCreated, post)
}

// DeletePost handles DELETE /api/community/posts/{id}
func (h *CommunityHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	if err := h.community.DeletePost(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondMessage(w, http.StatusOK, "Post deleted")
}

// ListReplies handles GET /api/community/posts/{id}/replies
func (h *CommunityHandler) ListReplies(w http.ResponseWriter, r *http.Request) {
	replies, err := h.community.ListReplies(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, replies)
}

// CreateReply handles POST /api/community/posts/{id}/replies
func (h *CommunityHandler) CreateReply(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	var req domain.CreateReplyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	reply, err := h.community.CreateReply(r.Context(), user.ID, chi.URLParam(r, "id"), &req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusCreated, reply)
}
