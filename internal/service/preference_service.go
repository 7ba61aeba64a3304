package service

import (
	"context"
	"strconv"

	"beyond-pages/internal/domain"
	"beyond-pages/pkg/errors"
	"beyond-pages/pkg/kvstore"
	"beyond-pages/pkg/redis"
)

const prefHighContrast = "high-contrast"

// PreferenceService stores display preferences for users and guests. The
// subject is a user id or a guest id.
type PreferenceService struct {
	store kvstore.Store
}

// NewPreferenceService creates a new preference service
func NewPreferenceService(store kvstore.Store) *PreferenceService {
	return &PreferenceService{store: store}
}

func (s *PreferenceService) Get(ctx context.Context, subject string) (*domain.Preferences, error) {
	raw, found, err := s.store.Get(ctx, redis.PreferenceKey(subject, prefHighContrast))
	if err != nil {
		return nil, errors.NewBackendError("Failed to load preferences", err)
	}
	prefs := &domain.Preferences{}
	if found {
		prefs.HighContrast, _ = strconv.ParseBool(raw)
	}
	return prefs, nil
}

func (s *PreferenceService) Set(ctx context.Context, subject string, prefs *domain.Preferences) error {
	err := s.store.Set(ctx, redis.PreferenceKey(subject, prefHighContrast), strconv.FormatBool(prefs.HighContrast), 0)
	if err != nil {
		return errors.NewBackendError("Failed to save preferences", err)
	}
	return nil
}
