package service

import (
	"context"
	"fmt"
	"html"
	"net/http"

	"github.com/google/uuid"

	"beyond-pages/internal/domain"
	"beyond-pages/internal/repository"
	"beyond-pages/pkg/errors"
	"beyond-pages/pkg/logger"
)

// CoverService generates book covers with the image API
type CoverService struct {
	books     repository.BookRepository
	images    repository.ImageRepository
	generator ImageGenerator
	storage   ObjectStore
	logger    *logger.Logger
}

// NewCoverService creates a new cover service. A nil generator or storage
// disables generation.
func NewCoverService(books repository.BookRepository, images repository.ImageRepository, generator ImageGenerator, storage ObjectStore, logger *logger.Logger) *CoverService {
	return &CoverService{
		books:     books,
		images:    images,
		generator: generator,
		storage:   storage,
		logger:    logger,
	}
}

// Enabled reports whether covers can be generated
func (s *CoverService) Enabled() bool {
	return s.generator != nil && s.storage != nil
}

// Generate creates a cover for one of userID's books, stores it and sets it
// as the book's cover. Nothing is retried; each failed step is logged and
// returned.
func (s *CoverService) Generate(ctx context.Context, userID, bookID string) (*domain.GeneratedImage, error) {
	if !s.Enabled() {
		return nil, errors.NewBackendError("Cover generation is not available", nil)
	}

	book, err := s.books.Get(ctx, userID, bookID)
	if err != nil {
		s.logger.WithError(err).WithField("book_id", bookID).Error("Failed to load book")
		return nil, errors.NewBackendError("Failed to load book", err)
	}
	if book == nil {
		return nil, errors.NewNotFoundError("Book not found")
	}

	log := s.logger.WithFields(map[string]interface{}{"user_id": userID, "book_id": bookID})
	prompt := coverPrompt(book)

	data, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		log.WithError(err).Error("Image generation failed")
		return nil, errors.NewBackendError("Failed to generate cover", err)
	}

	contentType := http.DetectContentType(data)
	ext := "png"
	if contentType == "image/jpeg" {
		ext = "jpg"
	} else if contentType == "image/webp" {
		ext = "webp"
	}

	key := fmt.Sprintf("covers/%s/%s.%s", userID, uuid.NewString(), ext)
	obj, err := s.storage.Upload(ctx, key, data, contentType)
	if err != nil {
		log.WithError(err).Error("Cover upload failed")
		return nil, errors.NewBackendError("Failed to store cover", err)
	}

	image := &domain.GeneratedImage{
		UserID:      userID,
		BookID:      bookID,
		Prompt:      prompt,
		StoragePath: obj.Key,
		PublicURL:   obj.URL,
	}
	if err := s.images.Create(ctx, image); err != nil {
		log.WithError(err).Error("Failed to record generated cover")
		return nil, errors.NewBackendError("Failed to save cover", err)
	}

	if err := s.books.SetCover(ctx, userID, bookID, obj.URL); err != nil {
		log.WithError(err).Error("Failed to set book cover")
		return nil, errors.NewBackendError("Failed to save cover", err)
	}

	log.WithField("key", obj.Key).Info("Cover generated")
	return image, nil
}

// History lists the covers generated for a book
func (s *CoverService) History(ctx context.Context, userID, bookID string) ([]*domain.GeneratedImage, error) {
	images, err := s.images.ListByBook(ctx, userID, bookID)
	if err != nil {
		return nil, errors.NewBackendError("Failed to load covers", err)
	}
	return images, nil
}

// coverPrompt describes the book for the image model. Stored text is HTML
// escaped, the prompt is not.
func coverPrompt(book *domain.Book) string {
	prompt := fmt.Sprintf("A striking, minimalist book cover illustration for %q", html.UnescapeString(book.Title))
	if book.Author != nil {
		prompt += " by " + html.UnescapeString(*book.Author)
	}
	return prompt + ". No text, no lettering, portrait orientation."
}
