package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"beyond-pages/internal/domain"
	"beyond-pages/pkg/database"
)

// bookRepository handles shelf operations with PostgreSQL
type bookRepository struct {
	db *database.PostgresDB
}

// NewBookRepository creates a new book repository
func NewBookRepository(db *database.PostgresDB) BookRepository {
	return &bookRepository{db: db}
}

const bookColumns = `id, user_id, title, author, isbn, status, rating, review, cover_url,
	description, page_count, current_page, started_at, finished_at, created_at, updated_at`

func scanBook(row pgx.Row) (*domain.Book, error) {
	book := &domain.Book{}
	err := row.Scan(
		&book.ID,
		&book.UserID,
		&book.Title,
		&book.Author,
		&book.ISBN,
		&book.Status,
		&book.Rating,
		&book.Review,
		&book.CoverURL,
		&book.Description,
		&book.PageCount,
		&book.CurrentPage,
		&book.StartedAt,
		&book.FinishedAt,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return book, nil
}

func collectBooks(rows pgx.Rows) ([]*domain.Book, error) {
	defer rows.Close()

	books := []*domain.Book{}
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

func (r *bookRepository) Create(ctx context.Context, book *domain.Book) error {
	query := `
		INSERT INTO books (user_id, title, author, isbn, status, rating, review, cover_url,
			description, page_count, current_page, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		book.UserID,
		book.Title,
		book.Author,
		book.ISBN,
		book.Status,
		book.Rating,
		book.Review,
		book.CoverURL,
		book.Description,
		book.PageCount,
		book.CurrentPage,
		book.StartedAt,
		book.FinishedAt,
	).Scan(&book.ID, &book.CreatedAt, &book.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}
	return nil
}

func (r *bookRepository) Get(ctx context.Context, userID, id string) (*domain.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1 AND user_id = $2`

	book, err := scanBook(r.db.Pool.QueryRow(ctx, query, id, userID))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return book, nil
}

func (r *bookRepository) ListByUser(ctx context.Context, userID string, filter domain.BookFilter) ([]*domain.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books
		WHERE user_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.db.GetReadPool().Query(ctx, query, userID, string(filter.Status), clampLimit(filter.Limit), max(filter.Offset, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	books, err := collectBooks(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan books: %w", err)
	}
	return books, nil
}

// Update writes every editable column of book
func (r *bookRepository) Update(ctx context.Context, book *domain.Book) error {
	query := `
		UPDATE books SET
			title = $3, author = $4, isbn = $5, status = $6, rating = $7, review = $8,
			cover_url = $9, description = $10, page_count = $11, current_page = $12,
			started_at = $13, finished_at = $14, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		book.ID,
		book.UserID,
		book.Title,
		book.Author,
		book.ISBN,
		book.Status,
		book.Rating,
		book.Review,
		book.CoverURL,
		book.Description,
		book.PageCount,
		book.CurrentPage,
		book.StartedAt,
		book.FinishedAt,
	).Scan(&book.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update book: %w", err)
	}
	return nil
}

func (r *bookRepository) Delete(ctx context.Context, userID, id string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM books WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete book: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *bookRepository) UpdateProgress(ctx context.Context, book *domain.Book) error {
	query := `
		UPDATE books SET
			current_page = $3, status = $4, started_at = $5, finished_at = $6, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		book.ID,
		book.UserID,
		book.CurrentPage,
		book.Status,
		book.StartedAt,
		book.FinishedAt,
	).Scan(&book.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	return nil
}

func (r *bookRepository) SetCover(ctx context.Context, userID, id, coverURL string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE books SET cover_url = $3, updated_at = NOW() WHERE id = $1 AND user_id = $2`,
		id, userID, coverURL)
	if err != nil {
		return fmt.Errorf("failed to set cover: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to set cover: book %s not found", id)
	}
	return nil
}

func (r *bookRepository) Search(ctx context.Context, userID, query string, limit int) ([]*domain.Book, error) {
	pattern := "%" + escapeLike(query) + "%"
	sql := `SELECT ` + bookColumns + ` FROM books
		WHERE ($1 = '' OR user_id::text = $1)
		  AND (title ILIKE $2 OR author ILIKE $2 OR isbn ILIKE $2)
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := r.db.GetReadPool().Query(ctx, sql, userID, pattern, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to search books: %w", err)
	}
	books, err := collectBooks(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan books: %w", err)
	}
	return books, nil
}

func (r *bookRepository) Scan(ctx context.Context, afterID string, limit int) ([]*domain.Book, error) {
	sql := `SELECT ` + bookColumns + ` FROM books
		WHERE ($1 = '' OR id::text > $1)
		ORDER BY id::text
		LIMIT $2`

	rows, err := r.db.GetReadPool().Query(ctx, sql, afterID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to scan books after %q: %w", afterID, err)
	}
	books, err := collectBooks(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan books: %w", err)
	}
	return books, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
