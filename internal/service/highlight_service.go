package service

import (
	"context"

	"beyond-pages/internal/domain"
	"beyond-pages/internal/repository"
	"beyond-pages/pkg/errors"
	"beyond-pages/pkg/logger"
	"beyond-pages/pkg/sanitize"
)

// maxDetectInput bounds the text scanned for quote suggestions
const maxDetectInput = 20000

// HighlightService manages saved quotes
type HighlightService struct {
	highlights repository.HighlightRepository
	books      repository.BookRepository
	logger     *logger.Logger
}

// NewHighlightService creates a new highlight service
func NewHighlightService(highlights repository.HighlightRepository, books repository.BookRepository, logger *logger.Logger) *HighlightService {
	return &HighlightService{
		highlights: highlights,
		books:      books,
		logger:     logger,
	}
}

// Create saves a highlight on one of userID's books
func (s *HighlightService) Create(ctx context.Context, userID, bookID string, req *domain.CreateHighlightRequest) (*domain.Highlight, error) {
	if err := s.requireBook(ctx, userID, bookID); err != nil {
		return nil, err
	}

	content, err := sanitize.Apply(sanitize.Highlight, req.Content)
	if err != nil {
		return nil, err
	}
	note, err := optionalText(sanitize.Note, derefString(req.Note), "note")
	if err != nil {
		return nil, err
	}
	if req.PageNumber != nil && *req.PageNumber < 0 {
		return nil, errors.NewFieldError("page_number", "Page number cannot be negative")
	}

	highlight := &domain.Highlight{
		UserID:     userID,
		BookID:     bookID,
		Content:    content,
		PageNumber: req.PageNumber,
		Note:       note,
	}
	if err := s.highlights.Create(ctx, highlight); err != nil {
		s.logger.WithError(err).WithField("book_id", bookID).Error("Failed to create highlight")
		return nil, errors.NewBackendError("Failed to save highlight", err)
	}
	return highlight, nil
}

// ListByBook returns the highlights of one book, newest first
func (s *HighlightService) ListByBook(ctx context.Context, userID, bookID string) ([]*domain.Highlight, error) {
	if err := s.requireBook(ctx, userID, bookID); err != nil {
		return nil, err
	}
	highlights, err := s.highlights.ListByBook(ctx, userID, bookID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list highlights")
		return nil, errors.NewBackendError("Failed to load highlights", err)
	}
	return highlights, nil
}

// ListByUser returns userID's latest highlights across all books
func (s *HighlightService) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Highlight, error) {
	highlights, err := s.highlights.ListByUser(ctx, userID, limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list highlights")
		return nil, errors.NewBackendError("Failed to load highlights", err)
	}
	return highlights, nil
}

func (s *HighlightService) Delete(ctx context.Context, userID, id string) error {
	deleted, err := s.highlights.Delete(ctx, userID, id)
	if err != nil {
		s.logger.WithError(err).WithField("highlight_id", id).Error("Failed to delete highlight")
		return errors.NewBackendError("Failed to delete highlight", err)
	}
	if !deleted {
		return errors.NewNotFoundError("Highlight not found")
	}
	return nil
}

// Suggest returns quotations found in text, cleaned the way a saved
// highlight would be.
func (s *HighlightService) Suggest(text string) ([]string, error) {
	if len(text) > maxDetectInput {
		return nil, errors.NewFieldError("text", "Text is too long to scan")
	}

	seen := make(map[string]bool)
	suggestions := []string{}
	for _, quote := range DetectQuotes(text) {
		clean, err := sanitize.Apply(sanitize.Highlight, quote)
		if err != nil || seen[clean] {
			continue
		}
		seen[clean] = true
		suggestions = append(suggestions, clean)
	}
	return suggestions, nil
}

func (s *HighlightService) requireBook(ctx context.Context, userID, bookID string) error {
	if err := requireID(bookID, "book_id"); err != nil {
		return err
	}
	book, err := s.books.Get(ctx, userID, bookID)
	if err != nil {
		s.logger.WithError(err).WithField("book_id", bookID).Error("Failed to load book")
		return errors.NewBackendError("Failed to load book", err)
	}
	if book == nil {
		return errors.NewNotFoundError("Book not found")
	}
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
