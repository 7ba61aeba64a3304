package repository

import (
	"context"
	"fmt"

	"beyond-pages/internal/domain"
	"beyond-pages/pkg/database"
)

type imageRepository struct {
	db *database.PostgresDB
}

// NewImageRepository creates a new generated image repository
func NewImageRepository(db *database.PostgresDB) ImageRepository {
	return &imageRepository{db: db}
}

func (r *imageRepository) Create(ctx context.Context, img *domain.GeneratedImage) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO generated_images (user_id, book_id, prompt, storage_path, public_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, img.UserID, img.BookID, img.Prompt, img.StoragePath, img.PublicURL).Scan(&img.ID, &img.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record generated image: %w", err)
	}
	return nil
}

func (r *imageRepository) ListByBook(ctx context.Context, userID, bookID string) ([]*domain.GeneratedImage, error) {
	rows, err := r.db.GetReadPool().Query(ctx, `
		SELECT id, user_id, book_id, prompt, storage_path, public_url, created_at
		FROM generated_images
		WHERE user_id = $1 AND book_id = $2
		ORDER BY created_at DESC
	`, userID, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to list generated images: %w", err)
	}
	defer rows.Close()

	images := []*domain.GeneratedImage{}
	for rows.Next() {
		img := &domain.GeneratedImage{}
		if err := rows.Scan(&img.ID, &img.UserID, &img.BookID, &img.Prompt, &img.StoragePath, &img.PublicURL, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan generated image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate generated images: %w", err)
	}
	return images, nil
}
