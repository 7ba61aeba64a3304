package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"beyond-pages/internal/domain"
	"beyond-pages/pkg/database"
)

type highlightRepository struct {
	db *database.PostgresDB
}

// NewHighlightRepository creates a new highlight repository
func NewHighlightRepository(db *database.PostgresDB) HighlightRepository {
	return &highlightRepository{db: db}
}

func (r *highlightRepository) Create(ctx context.Context, h *domain.Highlight) error {
	query := `
		INSERT INTO highlights (user_id, book_id, content, page_number, note)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		h.UserID,
		h.BookID,
		h.Content,
		h.PageNumber,
		h.Note,
	).Scan(&h.ID, &h.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create highlight: %w", err)
	}
	return nil
}

func (r *highlightRepository) ListByBook(ctx context.Context, userID, bookID string) ([]*domain.Highlight, error) {
	query := `
		SELECT id, user_id, book_id, content, page_number, note, created_at
		FROM highlights
		WHERE user_id = $1 AND book_id = $2
		ORDER BY created_at DESC
	`

	rows, err := r.db.GetReadPool().Query(ctx, query, userID, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to list highlights: %w", err)
	}
	return collectHighlights(rows)
}

func (r *highlightRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Highlight, error) {
	query := `
		SELECT id, user_id, book_id, content, page_number, note, created_at
		FROM highlights
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.GetReadPool().Query(ctx, query, userID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list highlights: %w", err)
	}
	return collectHighlights(rows)
}

func (r *highlightRepository) Delete(ctx context.Context, userID, id string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM highlights WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete highlight: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func collectHighlights(rows pgx.Rows) ([]*domain.Highlight, error) {
	defer rows.Close()

	highlights := []*domain.Highlight{}
	for rows.Next() {
		h := &domain.Highlight{}
		if err := rows.Scan(&h.ID, &h.UserID, &h.BookID, &h.Content, &h.PageNumber, &h.Note, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan highlight: %w", err)
		}
		highlights = append(highlights, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate highlights: %w", err)
	}
	return highlights, nil
}
