package repository

import (
	"context"
	"fmt"

	"beyond-pages/internal/domain"
	"beyond-pages/pkg/database"
)

type badgeRepository struct {
	db *database.PostgresDB
}

// NewBadgeRepository creates a new badge repository
func NewBadgeRepository(db *database.PostgresDB) BadgeRepository {
	return &badgeRepository{db: db}
}

func (r *badgeRepository) List(ctx context.Context, userID string) ([]*domain.Badge, error) {
	rows, err := r.db.GetReadPool().Query(ctx, `
		SELECT id, user_id, badge_type, awarded_at
		FROM badges
		WHERE user_id = $1
		ORDER BY awarded_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	defer rows.Close()

	badges := []*domain.Badge{}
	for rows.Next() {
		b := &domain.Badge{}
		if err := rows.Scan(&b.ID, &b.UserID, &b.BadgeType, &b.AwardedAt); err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		badges = append(badges, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate badges: %w", err)
	}
	return badges, nil
}

func (r *badgeRepository) Award(ctx context.Context, userID string, badgeType domain.BadgeType) (*domain.Badge, error) {
	badge := &domain.Badge{UserID: userID, BadgeType: badgeType}
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO badges (user_id, badge_type)
		VALUES ($1, $2)
		ON CONFLICT (user_id, badge_type) DO NOTHING
		RETURNING id, awarded_at
	`, userID, badgeType).Scan(&badge.ID, &badge.AwardedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to award badge: %w", err)
	}
	return badge, nil
}

func (r *badgeRepository) Stats(ctx context.Context, userID string) (*domain.BadgeStats, error) {
	stats := &domain.BadgeStats{}
	err := r.db.GetReadPool().QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM books WHERE user_id = $1 AND status = 'read'),
			(SELECT COUNT(*) FROM books WHERE user_id = $1 AND review IS NOT NULL AND review <> ''),
			(SELECT COUNT(*) FROM highlights WHERE user_id = $1),
			(SELECT COUNT(*) FROM user_follows WHERE follower_id = $1),
			(SELECT COUNT(*) FROM community_posts WHERE user_id = $1)
	`, userID).Scan(&stats.BooksRead, &stats.Reviews, &stats.Highlights, &stats.Following, &stats.Posts)
	if err != nil {
		return nil, fmt.Errorf("failed to get badge stats: %w", err)
	}
	return stats, nil
}
