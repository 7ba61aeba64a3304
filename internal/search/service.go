package search

import (
	"context"
	"strings"

	"beyond-pages/internal/domain"
	"beyond-pages/internal/repository"
	"beyond-pages/pkg/errors"
	"beyond-pages/pkg/logger"
)

const (
	defaultLimit  = 20
	maxLimit      = 50
	maxQueryRunes = 200
	reindexBatch  = 100
)

// Service tries Meilisearch first and falls back to Postgres ILIKE
type Service struct {
	meili  *Meili
	books  repository.BookRepository
	logger *logger.Logger
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, books repository.BookRepository, log *logger.Logger) *Service {
	return &Service{meili: meili, books: books, logger: log.Named("search")}
}

// Search finds books matching q.Text
func (s *Service) Search(ctx context.Context, q Query) (*Response, error) {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return nil, errors.NewFieldError("q", "Search query is required")
	}
	if len([]rune(q.Text)) > maxQueryRunes {
		return nil, errors.NewFieldError("q", "Search query is too long")
	}
	if q.Status != "" && !q.Status.Valid() {
		return nil, errors.NewFieldError("status", "Unknown status filter")
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}

	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return &Response{Results: results, Total: total, Query: q.Text, Source: SourceMeili}, nil
		}
		s.logger.WithError(err).Warn("Meilisearch error, falling back to postgres")
	}

	books, err := s.books.Search(ctx, q.UserID, q.Text, q.Limit)
	if err != nil {
		s.logger.WithError(err).Error("Postgres book search failed")
		return nil, errors.NewBackendError("Search is unavailable", err)
	}

	results := make([]BookRecord, 0, len(books))
	for _, b := range books {
		if q.Status != "" && b.Status != q.Status {
			continue
		}
		results = append(results, RecordFromBook(b))
	}
	return &Response{Results: results, Total: len(results), Query: q.Text, Source: SourcePostgres}, nil
}

// IndexBook pushes a book to Meilisearch. A missing or unhealthy index is
// skipped; the book becomes searchable through the fallback.
func (s *Service) IndexBook(ctx context.Context, book *domain.Book) error {
	if s.meili == nil || !s.meili.Healthy() {
		return nil
	}
	return s.meili.IndexBook(RecordFromBook(book))
}

// RemoveBook deletes a book from Meilisearch
func (s *Service) RemoveBook(ctx context.Context, id string) error {
	if s.meili == nil || !s.meili.Healthy() {
		return nil
	}
	return s.meili.DeleteBook(id)
}

// Reindex pushes every book in Postgres to Meilisearch and returns how many
// were sent
func (s *Service) Reindex(ctx context.Context) (int, error) {
	if s.meili == nil {
		return 0, errors.NewBackendError("Search index is not configured", nil)
	}
	if !s.meili.Healthy() {
		return 0, errors.NewBackendError("Search index is unavailable", nil)
	}

	total, after := 0, ""
	for {
		books, err := s.books.Scan(ctx, after, reindexBatch)
		if err != nil {
			return total, errors.NewBackendError("Failed to read books", err)
		}
		if len(books) == 0 {
			break
		}
		records := make([]BookRecord, 0, len(books))
		for _, b := range books {
			records = append(records, RecordFromBook(b))
		}
		if err := s.meili.IndexBooks(records); err != nil {
			return total, errors.NewBackendError("Failed to index books", err)
		}
		total += len(records)
		after = books[len(books)-1].ID
		if len(books) < reindexBatch {
			break
		}
	}

	s.logger.WithField("books", total).Info("Search index rebuilt")
	return total, nil
}

// Configured reports whether a Meilisearch server was configured
func (s *Service) Configured() bool {
	return s.meili != nil
}

// Healthy reports whether queries currently go to Meilisearch
func (s *Service) Healthy() bool {
	return s.meili != nil && s.meili.Healthy()
}

// Close stops the Meilisearch health monitor
func (s *Service) Close() {
	if s.meili != nil {
		s.meili.Close()
	}
}
