package service

import (
	"context"

	"beyond-pages/internal/domain"
	"beyond-pages/internal/repository"
	"beyond-pages/pkg/errors"
	"beyond-pages/pkg/logger"
)

// badgeRules lists every badge with its threshold, in award order
var badgeRules = []struct {
	badge    domain.BadgeType
	eligible func(domain.BadgeStats) bool
}{
	{domain.BadgeFirstBook, func(s domain.BadgeStats) bool { return s.BooksRead >= 1 }},
	{domain.BadgeBookworm, func(s domain.BadgeStats) bool { return s.BooksRead >= 10 }},
	{domain.BadgeCritic, func(s domain.BadgeStats) bool { return s.Reviews >= 5 }},
	{domain.BadgeQuoteCollector, func(s domain.BadgeStats) bool { return s.Highlights >= 10 }},
	{domain.BadgeSocialButterfly, func(s domain.BadgeStats) bool { return s.Following >= 5 }},
	{domain.BadgeCommunityVoice, func(s domain.BadgeStats) bool { return s.Posts >= 10 }},
}

// EligibleBadges returns the badges stats qualify for
func EligibleBadges(stats domain.BadgeStats) []domain.BadgeType {
	badges := []domain.BadgeType{}
	for _, rule := range badgeRules {
		if rule.eligible(stats) {
			badges = append(badges, rule.badge)
		}
	}
	return badges
}

// BadgeService awards achievements
type BadgeService struct {
	badges repository.BadgeRepository
	logger *logger.Logger
}

// NewBadgeService creates a new badge service
func NewBadgeService(badges repository.BadgeRepository, logger *logger.Logger) *BadgeService {
	return &BadgeService{badges: badges, logger: logger}
}

func (s *BadgeService) List(ctx context.Context, userID string) ([]*domain.Badge, error) {
	badges, err := s.badges.List(ctx, userID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list badges")
		return nil, errors.NewBackendError("Failed to load badges", err)
	}
	return badges, nil
}

// Evaluate awards every badge userID qualifies for and returns the new ones
func (s *BadgeService) Evaluate(ctx context.Context, userID string) ([]*domain.Badge, error) {
	stats, err := s.badges.Stats(ctx, userID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load badge stats")
		return nil, errors.NewBackendError("Failed to evaluate badges", err)
	}

	awarded := []*domain.Badge{}
	for _, badgeType := range EligibleBadges(*stats) {
		badge, err := s.badges.Award(ctx, userID, badgeType)
		if err != nil {
			s.logger.WithError(err).WithField("badge", badgeType).Error("Failed to award badge")
			return nil, errors.NewBackendError("Failed to award badge", err)
		}
		if badge != nil {
			awarded = append(awarded, badge)
		}
	}

	if len(awarded) > 0 {
		s.logger.WithFields(map[string]interface{}{
			"user_id": userID,
			"awarded": len(awarded),
		}).Info("Badges awarded")
	}
	return awarded, nil
}
