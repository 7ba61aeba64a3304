package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"beyond-pages/internal/domain"
	"beyond-pages/internal/repository"
	"beyond-pages/pkg/errors"
	"beyond-pages/pkg/logger"
	"beyond-pages/pkg/sanitize"
)

var isbnPattern = regexp.MustCompile(`^(\d{9}[\dX]|\d{13})$`)

// BookService manages a user's shelf
type BookService struct {
	books   repository.BookRepository
	indexer BookIndexer
	logger  *logger.Logger
	now     func() time.Time
}

// NewBookService creates a new book service. indexer may be nil.
func NewBookService(books repository.BookRepository, indexer BookIndexer, logger *logger.Logger) *BookService {
	return &BookService{
		books:   books,
		indexer: indexer,
		logger:  logger,
		now:     time.Now,
	}
}

// Create adds a book to userID's shelf
func (s *BookService) Create(ctx context.Context, userID string, req *domain.CreateBookRequest) (*domain.Book, error) {
	book := &domain.Book{
		UserID: userID,
		Status: req.Status,
	}
	if book.Status == "" {
		book.Status = domain.BookStatusWantToRead
	}

	fields := bookFields{
		Title:       &req.Title,
		Author:      req.Author,
		ISBN:        req.ISBN,
		Rating:      req.Rating,
		Review:      req.Review,
		CoverURL:    req.CoverURL,
		Description: req.Description,
		PageCount:   req.PageCount,
	}
	if err := fields.apply(book); err != nil {
		return nil, err
	}
	if !book.Status.Valid() {
		return nil, errors.NewFieldError("status", "Status must be want_to_read, reading or read")
	}
	s.stampStatus(book, "")

	if err := s.books.Create(ctx, book); err != nil {
		s.logger.WithError(err).Error("Failed to create book")
		return nil, errors.NewBackendError("Failed to save book", err)
	}

	s.index(book)
	return book, nil
}

// Get returns one of userID's books
func (s *BookService) Get(ctx context.Context, userID, id string) (*domain.Book, error) {
	book, err := s.books.Get(ctx, userID, id)
	if err != nil {
		s.logger.WithError(err).WithField("book_id", id).Error("Failed to load book")
		return nil, errors.NewBackendError("Failed to load book", err)
	}
	if book == nil {
		return nil, errors.NewNotFoundError("Book not found")
	}
	return book, nil
}

// List returns userID's shelf, newest first
func (s *BookService) List(ctx context.Context, userID string, filter domain.BookFilter) ([]*domain.Book, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, errors.NewFieldError("status", "Unknown status filter")
	}
	books, err := s.books.ListByUser(ctx, userID, filter)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list books")
		return nil, errors.NewBackendError("Failed to load books", err)
	}
	return books, nil
}

// Update applies a partial update
func (s *BookService) Update(ctx context.Context, userID, id string, req *domain.UpdateBookRequest) (*domain.Book, error) {
	book, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	previous := book.Status

	fields := bookFields{
		Title:       req.Title,
		Author:      req.Author,
		ISBN:        req.ISBN,
		Rating:      req.Rating,
		Review:      req.Review,
		CoverURL:    req.CoverURL,
		Description: req.Description,
		PageCount:   req.PageCount,
	}
	if err := fields.apply(book); err != nil {
		return nil, err
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, errors.NewFieldError("status", "Status must be want_to_read, reading or read")
		}
		book.Status = *req.Status
	}
	s.stampStatus(book, previous)

	if err := s.books.Update(ctx, book); err != nil {
		s.logger.WithError(err).WithField("book_id", id).Error("Failed to update book")
		return nil, errors.NewBackendError("Failed to save book", err)
	}

	s.index(book)
	return book, nil
}

// Delete removes a book from the shelf
func (s *BookService) Delete(ctx context.Context, userID, id string) error {
	deleted, err := s.books.Delete(ctx, userID, id)
	if err != nil {
		s.logger.WithError(err).WithField("book_id", id).Error("Failed to delete book")
		return errors.NewBackendError("Failed to delete book", err)
	}
	if !deleted {
		return errors.NewNotFoundError("Book not found")
	}

	if s.indexer != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.indexer.RemoveBook(ctx, id); err != nil {
				s.logger.WithError(err).WithField("book_id", id).Warn("Failed to remove book from search index")
			}
		}()
	}
	return nil
}

// UpdateProgress moves the bookmark. Reaching the first page starts the
// book, reaching the last page finishes it.
func (s *BookService) UpdateProgress(ctx context.Context, userID, id string, currentPage int) (*domain.Book, error) {
	if currentPage < 0 {
		return nil, errors.NewFieldError("current_page", "Current page cannot be negative")
	}

	book, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if book.PageCount != nil && currentPage > *book.PageCount {
		return nil, errors.NewFieldError("current_page", "Current page is past the end of the book")
	}

	previous := book.Status
	book.CurrentPage = currentPage
	switch {
	case book.PageCount != nil && *book.PageCount > 0 && currentPage == *book.PageCount:
		book.Status = domain.BookStatusRead
	case currentPage > 0:
		book.Status = domain.BookStatusReading
	}
	s.stampStatus(book, previous)

	if err := s.books.UpdateProgress(ctx, book); err != nil {
		s.logger.WithError(err).WithField("book_id", id).Error("Failed to update progress")
		return nil, errors.NewBackendError("Failed to save progress", err)
	}

	s.index(book)
	return book, nil
}

// stampStatus maintains started_at and finished_at across status changes
func (s *BookService) stampStatus(book *domain.Book, previous domain.BookStatus) {
	if book.Status == previous {
		return
	}
	now := s.now()
	switch book.Status {
	case domain.BookStatusReading:
		if book.StartedAt == nil {
			book.StartedAt = &now
		}
		book.FinishedAt = nil
	case domain.BookStatusRead:
		if book.StartedAt == nil {
			book.StartedAt = &now
		}
		book.FinishedAt = &now
		if book.PageCount != nil {
			book.CurrentPage = *book.PageCount
		}
	case domain.BookStatusWantToRead:
		book.StartedAt = nil
		book.FinishedAt = nil
		book.CurrentPage = 0
	}
}

func (s *BookService) index(book *domain.Book) {
	if s.indexer == nil {
		return
	}
	snapshot := *book
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.indexer.IndexBook(ctx, &snapshot); err != nil {
			s.logger.WithError(err).WithField("book_id", snapshot.ID).Warn("Failed to index book")
		}
	}()
}

// bookFields are the user-editable columns; nil means unchanged
type bookFields struct {
	Title       *string
	Author      *string
	ISBN        *string
	Rating      *int
	Review      *string
	CoverURL    *string
	Description *string
	PageCount   *int
}

func (f bookFields) apply(book *domain.Book) error {
	if f.Title != nil {
		title, err := sanitize.Apply(sanitize.Title, *f.Title)
		if err != nil {
			return errors.NewFieldError("title", fieldMessage(err, "Title is invalid"))
		}
		book.Title = title
	}
	if f.Author != nil {
		author, err := optionalText(sanitize.Title, *f.Author, "author")
		if err != nil {
			return err
		}
		book.Author = author
	}
	if f.ISBN != nil {
		isbn, err := normalizeISBN(*f.ISBN)
		if err != nil {
			return err
		}
		book.ISBN = isbn
	}
	if f.Rating != nil {
		if *f.Rating < 0 || *f.Rating > 5 {
			return errors.NewFieldError("rating", "Rating must be between 0 and 5")
		}
		rating := *f.Rating
		book.Rating = &rating
	}
	if f.Review != nil {
		review, err := optionalText(sanitize.Review, *f.Review, "review")
		if err != nil {
			return err
		}
		book.Review = review
	}
	if f.Description != nil {
		description, err := optionalText(sanitize.BookDescription, *f.Description, "description")
		if err != nil {
			return err
		}
		book.Description = description
	}
	if f.CoverURL != nil {
		cover, err := normalizeURL(*f.CoverURL, "cover_url")
		if err != nil {
			return err
		}
		book.CoverURL = cover
	}
	if f.PageCount != nil {
		if *f.PageCount <= 0 || *f.PageCount > 100000 {
			return errors.NewFieldError("page_count", "Page count must be a positive number")
		}
		pages := *f.PageCount
		book.PageCount = &pages
		if book.CurrentPage > pages {
			book.CurrentPage = pages
		}
	}
	return nil
}

// optionalText sanitizes a nullable field. Blank input clears the field.
func optionalText(policy sanitize.Policy, input, field string) (*string, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	out, err := sanitize.Apply(policy, input)
	if err != nil {
		msg := strings.Replace(fieldMessage(err, "Invalid value"), policy.Rule().Field, field, 1)
		return nil, errors.NewFieldError(field, msg)
	}
	if out == "" {
		return nil, nil
	}
	return &out, nil
}

func normalizeISBN(input string) (*string, error) {
	isbn := strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(input)))
	if isbn == "" {
		return nil, nil
	}
	if !isbnPattern.MatchString(isbn) {
		return nil, errors.NewFieldError("isbn", "ISBN must have 10 or 13 digits")
	}
	return &isbn, nil
}
