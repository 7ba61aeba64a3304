package repository

import (
	"context"
	"fmt"

	"beyond-pages/internal/domain"
	"beyond-pages/pkg/database"
)

// profileRepository handles profile operations with PostgreSQL
type profileRepository struct {
	db *database.PostgresDB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *database.PostgresDB) ProfileRepository {
	return &profileRepository{db: db}
}

const profileColumns = `id, username, display_name, bio, avatar_url, created_at, updated_at`

func (r *profileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	profile := &domain.Profile{}
	err := r.db.GetReadPool().QueryRow(ctx, query, id).Scan(
		&profile.ID,
		&profile.Username,
		&profile.DisplayName,
		&profile.Bio,
		&profile.AvatarURL,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

func (r *profileRepository) GetByUsername(ctx context.Context, username string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE username = $1`

	profile := &domain.Profile{}
	err := r.db.GetReadPool().QueryRow(ctx, query, username).Scan(
		&profile.ID,
		&profile.Username,
		&profile.DisplayName,
		&profile.Bio,
		&profile.AvatarURL,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile by username: %w", err)
	}
	return profile, nil
}

// Upsert writes username, display name and bio. avatar_url is only touched
// by SetAvatar.
func (r *profileRepository) Upsert(ctx context.Context, profile *domain.Profile) error {
	query := `
		INSERT INTO profiles (id, username, display_name, bio)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			display_name = EXCLUDED.display_name,
			bio = EXCLUDED.bio,
			updated_at = NOW()
		RETURNING avatar_url, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		profile.ID,
		profile.Username,
		profile.DisplayName,
		profile.Bio,
	).Scan(&profile.AvatarURL, &profile.CreatedAt, &profile.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

func (r *profileRepository) SetAvatar(ctx context.Context, id, avatarURL string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE profiles SET avatar_url = $2, updated_at = NOW() WHERE id = $1`, id, avatarURL)
	if err != nil {
		return fmt.Errorf("failed to set avatar: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to set avatar: profile %s not found", id)
	}
	return nil
}

func (r *profileRepository) Stats(ctx context.Context, id string) (*domain.ProfileStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM books WHERE user_id = $1 AND status = 'read'),
			(SELECT COUNT(*) FROM books WHERE user_id = $1 AND review IS NOT NULL AND review <> ''),
			(SELECT COUNT(*) FROM highlights WHERE user_id = $1),
			(SELECT COUNT(*) FROM community_posts WHERE user_id = $1),
			(SELECT COUNT(*) FROM user_follows WHERE following_id = $1),
			(SELECT COUNT(*) FROM user_follows WHERE follower_id = $1)
	`

	stats := &domain.ProfileStats{}
	err := r.db.GetReadPool().QueryRow(ctx, query, id).Scan(
		&stats.BooksRead,
		&stats.Reviews,
		&stats.Highlights,
		&stats.Posts,
		&stats.Followers,
		&stats.Following,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile stats: %w", err)
	}
	return stats, nil
}
