package repository

import (
	"context"
	"fmt"

	"beyond-pages/internal/domain"
	"beyond-pages/pkg/database"
)

type followRepository struct {
	db *database.PostgresDB
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *database.PostgresDB) FollowRepository {
	return &followRepository{db: db}
}

// Follow reports whether a new edge was created
func (r *followRepository) Follow(ctx context.Context, followerID, followingID string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `
		INSERT INTO user_follows (follower_id, following_id)
		VALUES ($1, $2)
		ON CONFLICT (follower_id, following_id) DO NOTHING
	`, followerID, followingID)
	if err != nil {
		return false, fmt.Errorf("failed to follow user: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *followRepository) Unfollow(ctx context.Context, followerID, followingID string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM user_follows WHERE follower_id = $1 AND following_id = $2`, followerID, followingID)
	if err != nil {
		return false, fmt.Errorf("failed to unfollow user: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *followRepository) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	var exists bool
	err := r.db.GetReadPool().QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM user_follows WHERE follower_id = $1 AND following_id = $2)
	`, followerID, followingID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}
	return exists, nil
}

func (r *followRepository) Followers(ctx context.Context, userID string) ([]*domain.FollowUser, error) {
	return r.listUsers(ctx, `
		SELECT p.id, p.username, p.display_name, p.avatar_url, f.created_at
		FROM user_follows f
		JOIN profiles p ON p.id = f.follower_id
		WHERE f.following_id = $1
		ORDER BY f.created_at DESC
	`, userID)
}

func (r *followRepository) Following(ctx context.Context, userID string) ([]*domain.FollowUser, error) {
	return r.listUsers(ctx, `
		SELECT p.id, p.username, p.display_name, p.avatar_url, f.created_at
		FROM user_follows f
		JOIN profiles p ON p.id = f.following_id
		WHERE f.follower_id = $1
		ORDER BY f.created_at DESC
	`, userID)
}

func (r *followRepository) listUsers(ctx context.Context, query, userID string) ([]*domain.FollowUser, error) {
	rows, err := r.db.GetReadPool().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list follows: %w", err)
	}
	defer rows.Close()

	users := []*domain.FollowUser{}
	for rows.Next() {
		u := &domain.FollowUser{}
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.AvatarURL, &u.FollowedAt); err != nil {
			return nil, fmt.Errorf("failed to scan follow: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate follows: %w", err)
	}
	return users, nil
}

func (r *followRepository) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.GetReadPool().Query(ctx,
		`SELECT following_id::text FROM user_follows WHERE follower_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list following ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan following id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *followRepository) Counts(ctx context.Context, userID string) (*domain.FollowCounts, error) {
	counts := &domain.FollowCounts{}
	err := r.db.GetReadPool().QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM user_follows WHERE following_id = $1),
			(SELECT COUNT(*) FROM user_follows WHERE follower_id = $1)
	`, userID).Scan(&counts.Followers, &counts.Following)
	if err != nil {
		return nil, fmt.Errorf("failed to count follows: %w", err)
	}
	return counts, nil
}
