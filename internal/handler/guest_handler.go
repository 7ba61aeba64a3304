package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"beyond-pages/internal/middleware"
	"beyond-pages/internal/service/guest"
	"beyond-pages/pkg/errors"
	"beyond-pages/pkg/logger"
)

// GuestHandler serves guest mode: session lifecycle, action limits and the
// guest's drafted community posts.
type GuestHandler struct {
	guests *guest.Service
	logger *logger.Logger
}

func NewGuestHandler(guests *guest.Service, logger *logger.Logger) *GuestHandler {
	return &GuestHandler{guests: guests, logger: logger}
}

// SessionResponse describes a guest session to the client
type SessionResponse struct {
	Valid     bool           `json:"valid"`
	Session   *guest.Session `json:"session,omitempty"`
	ExpiresAt *time.Time     `json:"expiresAt,omitempty"`
}

func (h *GuestHandler) sessionResponse(session *guest.Session) SessionResponse {
	if session == nil {
		return SessionResponse{Valid: false}
	}
	expires := session.ExpiresAt(h.guests.Config().SessionTTL)
	return SessionResponse{Valid: true, Session: session, ExpiresAt: &expires}
}

// Enter handles POST /api/guest/session. The body carries the screen size
// and timezone offset; user agent and locale come from the headers.
func (h *GuestHandler) Enter(w http.ResponseWriter, r *http.Request) {
	var env guest.Environment
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &env); err != nil {
			respondError(w, r, err, h.logger)
			return
		}
	}
	env = guest.EnvironmentFromRequest(r, env)

	session, err := h.guests.Enter(r.Context(), env)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	w.Header().Set(middleware.GuestHeader, session.GuestID)
	respondJSON(w, http.StatusOK, h.sessionResponse(session))
}

// Validate handles GET /api/guest/session. Missing, unknown and expired
// sessions all answer valid=false.
func (h *GuestHandler) Validate(w http.ResponseWriter, r *http.Request) {
	guestID := r.Header.Get(middleware.GuestHeader)
	if guestID == "" {
		respondJSON(w, http.StatusOK, h.sessionResponse(nil))
		return
	}

	session, ok, err := h.guests.Validate(r.Context(), guestID)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	if !ok {
		session = nil
	}
	respondJSON(w, http.StatusOK, h.sessionResponse(session))
}

// Clear handles DELETE /api/guest/session
func (h *GuestHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.guests.Clear(r.Context(), r.Header.Get(middleware.GuestHeader)); err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondMessage(w, http.StatusOK, "Guest session cleared")
}

// CheckLimit handles POST /api/guest/limits/{action}?max=N. Each call counts
// one action when allowed. A denial is reported in the body, not as an error.
func (h *GuestHandler) CheckLimit(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	if action == "" || len(action) > 32 {
		respondError(w, r, errors.NewFieldError("action", "Invalid action type"), h.logger)
		return
	}

	maxActions, known := h.guests.DefaultLimit(action)
	if raw := r.URL.Query().Get("max"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, r, errors.NewFieldError("max", "max must be a positive integer"), h.logger)
			return
		}
		maxActions, known = n, true
	}
	if !known {
		respondError(w, r, errors.NewFieldError("max", "max is required for this action"), h.logger)
		return
	}

	decision, err := h.guests.CheckLimit(r.Context(), r.Header.Get(middleware.GuestHeader), action, maxActions)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	middleware.SetRateLimitHeaders(w, decision)
	respondJSON(w, http.StatusOK, decision)
}

// ListPosts handles GET /api/guest/posts
func (h *GuestHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.guests.ListPosts(r.Context(), r.Header.Get(middleware.GuestHeader))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, posts)
}

type guestPostRequest struct {
	Content   string  `json:"content"`
	BookTitle *string `json:"bookTitle"`
}

// CreatePost handles POST /api/guest/posts
func (h *GuestHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req guestPostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	post, decision, err := h.guests.CreatePost(r.Context(), r.Header.Get(middleware.GuestHeader), req.Content, req.BookTitle)
	h.limitHeaders(w, decision)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusCreated, post)
}

// CreateReply handles POST /api/guest/posts/{id}/replies
func (h *GuestHandler) CreateReply(w http.ResponseWriter, r *http.Request) {
	var req guestPostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	reply, decision, err := h.guests.CreateReply(r.Context(), r.Header.Get(middleware.GuestHeader), chi.URLParam(r, "id"), req.Content)
	h.limitHeaders(w, decision)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusCreated, reply)
}

// limitHeaders reports a decision once the limiter has actually been consulted
func (h *GuestHandler) limitHeaders(w http.ResponseWriter, d guest.Decision) {
	if d.WindowStart.IsZero() {
		return
	}
	middleware.SetRateLimitHeaders(w, d)
	if !d.Allowed {
		retry := int(time.Until(d.ResetAt).Seconds())
		if retry < 1 {
			retry = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retry))
	}
}
