package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"beyond-pages/internal/domain"
	"beyond-pages/internal/repository"
	"beyond-pages/pkg/errors"
	"beyond-pages/pkg/logger"
	"beyond-pages/pkg/sanitize"
)

// MaxAvatarBytes caps avatar uploads
const MaxAvatarBytes = 2 << 20

var avatarTypes = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
}

// ProfileService manages user profiles
type ProfileService struct {
	profiles repository.ProfileRepository
	badges   repository.BadgeRepository
	storage  ObjectStore
	logger   *logger.Logger
}

// NewProfileService creates a new profile service. storage may be nil, which
// disables avatar uploads.
func NewProfileService(profiles repository.ProfileRepository, badges repository.BadgeRepository, storage ObjectStore, logger *logger.Logger) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		badges:   badges,
		storage:  storage,
		logger:   logger,
	}
}

// Get returns the caller's own profile
func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load profile")
		return nil, errors.NewBackendError("Failed to load profile", err)
	}
	if profile == nil {
		return nil, errors.NewNotFoundError("Profile not found")
	}
	return profile, nil
}

// View returns a public profile with its stats and badges
func (s *ProfileService) View(ctx context.Context, username string) (*domain.ProfileView, error) {
	clean, err := sanitize.UsernameOf(username)
	if err != nil {
		return nil, errors.NewNotFoundError("Profile not found")
	}

	profile, err := s.profiles.GetByUsername(ctx, clean)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load profile")
		return nil, errors.NewBackendError("Failed to load profile", err)
	}
	if profile == nil {
		return nil, errors.NewNotFoundError("Profile not found")
	}

	stats, err := s.profiles.Stats(ctx, profile.ID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load profile stats")
		return nil, errors.NewBackendError("Failed to load profile", err)
	}
	badges, err := s.badges.List(ctx, profile.ID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load profile badges")
		return nil, errors.NewBackendError("Failed to load profile", err)
	}

	return &domain.ProfileView{Profile: *profile, Stats: *stats, Badges: badges}, nil
}

// Update creates or edits the caller's profile
func (s *ProfileService) Update(ctx context.Context, userID string, req *domain.UpdateProfileRequest) (*domain.Profile, error) {
	username, err := sanitize.UsernameOf(req.Username)
	if err != nil {
		return nil, err
	}

	profile := &domain.Profile{ID: userID, Username: username}
	if req.DisplayName != nil {
		if profile.DisplayName, err = optionalText(sanitize.Title, *req.DisplayName, "display_name"); err != nil {
			return nil, err
		}
	}
	if req.Bio != nil {
		if profile.Bio, err = optionalText(sanitize.Bio, *req.Bio, "bio"); err != nil {
			return nil, err
		}
	}

	if err := s.profiles.Upsert(ctx, profile); err != nil {
		if stderrors.Is(err, repository.ErrUsernameTaken) {
			return nil, errors.NewConflictError("Username is already taken")
		}
		s.logger.WithError(err).Error("Failed to save profile")
		return nil, errors.NewBackendError("Failed to save profile", err)
	}
	return profile, nil
}

// UploadAvatar stores a new avatar image and points the profile at it
func (s *ProfileService) UploadAvatar(ctx context.Context, userID string, data []byte) (*domain.Profile, error) {
	if s.storage == nil {
		return nil, errors.NewBackendError("Avatar uploads are not available", nil)
	}
	if len(data) == 0 {
		return nil, errors.NewFieldError("avatar", "Avatar image is required")
	}
	if len(data) > MaxAvatarBytes {
		return nil, errors.NewFieldError("avatar", "Avatar must be 2 MB or smaller")
	}

	contentType := http.DetectContentType(data)
	ext, ok := avatarTypes[strings.SplitN(contentType, ";", 2)[0]]
	if !ok {
		return nil, errors.NewFieldError("avatar", "Avatar must be a PNG, JPEG or WebP image")
	}

	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("avatars/%s/%s.%s", userID, uuid.NewString(), ext)
	obj, err := s.storage.Upload(ctx, key, data, contentType)
	if err != nil {
		s.logger.WithError(err).Error("Failed to upload avatar")
		return nil, errors.NewBackendError("Failed to upload avatar", err)
	}

	if err := s.profiles.SetAvatar(ctx, userID, obj.URL); err != nil {
		s.logger.WithError(err).Error("Failed to save avatar URL")
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logger.WithError(delErr).Warn("Failed to remove orphaned avatar")
		}
		return nil, errors.NewBackendError("Failed to save avatar", err)
	}

	profile.AvatarURL = &obj.URL
	return profile, nil
}
