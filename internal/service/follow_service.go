package service

import (
	"context"

	"beyond-pages/internal/domain"
	"beyond-pages/internal/repository"
	"beyond-pages/pkg/errors"
	"beyond-pages/pkg/logger"
)

// FollowService manages the follower graph
type FollowService struct {
	follows  repository.FollowRepository
	profiles repository.ProfileRepository
	logger   *logger.Logger
}

// NewFollowService creates a new follow service
func NewFollowService(follows repository.FollowRepository, profiles repository.ProfileRepository, logger *logger.Logger) *FollowService {
	return &FollowService{follows: follows, profiles: profiles, logger: logger}
}

// Follow makes followerID follow followingID. Following twice is a no-op.
func (s *FollowService) Follow(ctx context.Context, followerID, followingID string) error {
	if err := requireID(followingID, "user_id"); err != nil {
		return err
	}
	if followerID == followingID {
		return errors.NewFieldError("user_id", "You cannot follow yourself")
	}

	target, err := s.profiles.GetByID(ctx, followingID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load profile to follow")
		return errors.NewBackendError("Failed to follow user", err)
	}
	if target == nil {
		return errors.NewNotFoundError("User not found")
	}

	created, err := s.follows.Follow(ctx, followerID, followingID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to follow user")
		return errors.NewBackendError("Failed to follow user", err)
	}
	if created {
		s.logger.WithFields(map[string]interface{}{
			"follower_id":  followerID,
			"following_id": followingID,
		}).Debug("User followed")
	}
	return nil
}

// Unfollow removes the edge; a missing edge is reported as not found
func (s *FollowService) Unfollow(ctx context.Context, followerID, followingID string) error {
	removed, err := s.follows.Unfollow(ctx, followerID, followingID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to unfollow user")
		return errors.NewBackendError("Failed to unfollow user", err)
	}
	if !removed {
		return errors.NewNotFoundError("You are not following this user")
	}
	return nil
}

func (s *FollowService) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	following, err := s.follows.IsFollowing(ctx, followerID, followingID)
	if err != nil {
		return false, errors.NewBackendError("Failed to load follow status", err)
	}
	return following, nil
}

func (s *FollowService) Followers(ctx context.Context, userID string) ([]*domain.FollowUser, error) {
	users, err := s.follows.Followers(ctx, userID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list followers")
		return nil, errors.NewBackendError("Failed to load followers", err)
	}
	return users, nil
}

func (s *FollowService) Following(ctx context.Context, userID string) ([]*domain.FollowUser, error) {
	users, err := s.follows.Following(ctx, userID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list following")
		return nil, errors.NewBackendError("Failed to load following", err)
	}
	return users, nil
}

func (s *FollowService) Counts(ctx context.Context, userID string) (*domain.FollowCounts, error) {
	counts, err := s.follows.Counts(ctx, userID)
	if err != nil {
		return nil, errors.NewBackendError("Failed to load follow counts", err)
	}
	return counts, nil
}
