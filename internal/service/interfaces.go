package service

import (
	"context"

	"beyond-pages/internal/domain"
	"beyond-pages/pkg/storage"
)

// AuthService verifies access tokens issued by Supabase Auth
type AuthService interface {
	// ValidateToken validates a Supabase access token and returns the caller
	ValidateToken(ctx context.Context, token string) (*domain.User, error)
}

// ObjectStore stores public objects such as covers and avatars
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (*storage.Object, error)
	Delete(ctx context.Context, key string) error
}

// ImageGenerator turns a prompt into encoded image bytes
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// BookIndexer keeps the search index in step with the books table
type BookIndexer interface {
	IndexBook(ctx context.Context, book *domain.Book) error
	RemoveBook(ctx context.Context, id string) error
}

// Services aggregates the application services
type Services struct {
	Auth        AuthService
	Profile     *ProfileService
	Book        *BookService
	Highlight   *HighlightService
	Community   *CommunityService
	Follow      *FollowService
	Badge       *BadgeService
	Preferences *PreferenceService
	Cover       *CoverService
}
