package handler

import (
	stderrors "errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"beyond-pages/internal/domain"
	"beyond-pages/internal/service"
	"beyond-pages/pkg/errors"
	"beyond-pages/pkg/logger"
)

// avatar bytes plus room for the multipart framing
const maxAvatarRequest = service.MaxAvatarBytes + 64<<10

type ProfileHandler struct {
	profiles *service.ProfileService
	logger   *logger.Logger
}

func NewProfileHandler(profiles *service.ProfileService, logger *logger.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// GetMine handles GET /api/profile
func (h *ProfileHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	profile, err := h.profiles.Get(r.Context(), user.ID)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// Update handles PUT /api/profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	var req domain.UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	profile, err := h.profiles.Update(r.Context(), user.ID, &req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// View handles GET /api/profiles/{username}
func (h *ProfileHandler) View(w http.ResponseWriter, r *http.Request) {
	view, err := h.profiles.View(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// UploadAvatar handles POST /api/profile/avatar, a multipart form with the
// image in the "avatar" field.
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarRequest)
	file, _, err := r.FormFile("avatar")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			respondError(w, r, errors.NewFieldError("avatar", "Avatar must be 2 MB or smaller"), h.logger)
			return
		}
		respondError(w, r, errors.NewFieldError("avatar", "Avatar image is required"), h.logger)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, service.MaxAvatarBytes+1))
	if err != nil {
		respondError(w, r, errors.NewFieldError("avatar", "Failed to read avatar image"), h.logger)
		return
	}

	profile, err := h.profiles.UploadAvatar(r.Context(), user.ID, data)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}
