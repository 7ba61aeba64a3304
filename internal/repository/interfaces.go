package repository

import (
	"context"

	"beyond-pages/internal/domain"
)

// ProfileRepository defines the interface for profile data operations
type ProfileRepository interface {
	// GetByID retrieves a profile by user ID
	GetByID(ctx context.Context, id string) (*domain.Profile, error)

	// GetByUsername retrieves a profile by its unique username
	GetByUsername(ctx context.Context, username string) (*domain.Profile, error)

	// Upsert creates or updates the caller's profile
	Upsert(ctx context.Context, profile *domain.Profile) error

	// SetAvatar stores a new avatar URL
	SetAvatar(ctx context.Context, id, avatarURL string) error

	// Stats counts the activity shown on a profile
	Stats(ctx context.Context, id string) (*domain.ProfileStats, error)
}

// BookRepository defines the interface for shelf operations. Every query is
// scoped to the owning user.
type BookRepository interface {
	Create(ctx context.Context, book *domain.Book) error
	Get(ctx context.Context, userID, id string) (*domain.Book, error)
	ListByUser(ctx context.Context, userID string, filter domain.BookFilter) ([]*domain.Book, error)
	Update(ctx context.Context, book *domain.Book) error
	Delete(ctx context.Context, userID, id string) (bool, error)
	UpdateProgress(ctx context.Context, book *domain.Book) error
	SetCover(ctx context.Context, userID, id, coverURL string) error

	// Search matches title, author or isbn with ILIKE
	Search(ctx context.Context, userID, query string, limit int) ([]*domain.Book, error)

	// Scan walks every shelf in id order, limit books after afterID
	Scan(ctx context.Context, afterID string, limit int) ([]*domain.Book, error)
}

// HighlightRepository defines the interface for highlight operations
type HighlightRepository interface {
	Create(ctx context.Context, highlight *domain.Highlight) error
	ListByBook(ctx context.Context, userID, bookID string) ([]*domain.Highlight, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Highlight, error)
	Delete(ctx context.Context, userID, id string) (bool, error)
}

// CommunityRepository defines the interface for posts and replies
type CommunityRepository interface {
	CreatePost(ctx context.Context, post *domain.CommunityPost) error
	GetPost(ctx context.Context, id string) (*domain.CommunityPost, error)
	ListPosts(ctx context.Context, page domain.PostPage) ([]*domain.CommunityPost, error)
	ListPostsByAuthors(ctx context.Context, authorIDs []string, page domain.PostPage) ([]*domain.CommunityPost, error)
	DeletePost(ctx context.Context, userID, id string) (bool, error)
	CreateReply(ctx context.Context, reply *domain.PostReply) error
	ListReplies(ctx context.Context, postID string) ([]*domain.PostReply, error)
}

// FollowRepository defines the interface for the social graph
type FollowRepository interface {
	Follow(ctx context.Context, followerID, followingID string) (bool, error)
	Unfollow(ctx context.Context, followerID, followingID string) (bool, error)
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
	Followers(ctx context.Context, userID string) ([]*domain.FollowUser, error)
	Following(ctx context.Context, userID string) ([]*domain.FollowUser, error)
	FollowingIDs(ctx context.Context, userID string) ([]string, error)
	Counts(ctx context.Context, userID string) (*domain.FollowCounts, error)
}

// BadgeRepository defines the interface for achievements
type BadgeRepository interface {
	List(ctx context.Context, userID string) ([]*domain.Badge, error)

	// Award inserts a badge unless the user already has it. The returned
	// badge is nil when nothing was inserted.
	Award(ctx context.Context, userID string, badgeType domain.BadgeType) (*domain.Badge, error)

	Stats(ctx context.Context, userID string) (*domain.BadgeStats, error)
}

// ImageRepository records generated cover images
type ImageRepository interface {
	Create(ctx context.Context, image *domain.GeneratedImage) error
	ListByBook(ctx context.Context, userID, bookID string) ([]*domain.GeneratedImage, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Profile   ProfileRepository
	Book      BookRepository
	Highlight HighlightRepository
	Community CommunityRepository
	Follow    FollowRepository
	Badge     BadgeRepository
	Image     ImageRepository
}
