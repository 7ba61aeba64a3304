package service

import (
	"context"
	"time"

	"beyond-pages/internal/domain"
	"beyond-pages/internal/repository"
	"beyond-pages/pkg/errors"
	"beyond-pages/pkg/logger"
	"beyond-pages/pkg/sanitize"
)

// FeedPageSize is the size of a community feed page
const FeedPageSize = 20

// CommunityService manages community posts and replies
type CommunityService struct {
	community repository.CommunityRepository
	follows   repository.FollowRepository
	books     repository.BookRepository
	cache     *CacheService
	logger    *logger.Logger
}

// NewCommunityService creates a new community service. cache may be nil.
func NewCommunityService(community repository.CommunityRepository, follows repository.FollowRepository, books repository.BookRepository, cache *CacheService, logger *logger.Logger) *CommunityService {
	return &CommunityService{
		community: community,
		follows:   follows,
		books:     books,
		cache:     cache,
		logger:    logger,
	}
}

// ListPosts returns the public feed. The first page is served from cache.
func (s *CommunityService) ListPosts(ctx context.Context, before *time.Time) ([]*domain.CommunityPost, error) {
	page := domain.PostPage{Limit: FeedPageSize, Before: before}
	load := func(ctx context.Context) ([]*domain.CommunityPost, error) {
		return s.community.ListPosts(ctx, page)
	}

	var (
		posts []*domain.CommunityPost
		err   error
	)
	if before == nil && s.cache != nil {
		posts, err = s.cache.GetFeedWithCache(ctx, load)
	} else {
		posts, err = load(ctx)
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to list community posts")
		return nil, errors.NewBackendError("Failed to load community posts", err)
	}
	return posts, nil
}

// Feed returns posts from the people userID follows
func (s *CommunityService) Feed(ctx context.Context, userID string, before *time.Time) ([]*domain.CommunityPost, error) {
	authors, err := s.follows.FollowingIDs(ctx, userID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load followed users")
		return nil, errors.NewBackendError("Failed to load feed", err)
	}
	authors = append(authors, userID)

	posts, err := s.community.ListPostsByAuthors(ctx, authors, domain.PostPage{Limit: FeedPageSize, Before: before})
	if err != nil {
		s.logger.WithError(err).Error("Failed to load feed")
		return nil, errors.NewBackendError("Failed to load feed", err)
	}
	return posts, nil
}

// CreatePost publishes a post, optionally about one of the author's books
func (s *CommunityService) CreatePost(ctx context.Context, userID string, req *domain.CreatePostRequest) (*domain.CommunityPost, error) {
	content, err := sanitize.Apply(sanitize.PostContent, req.Content)
	if err != nil {
		return nil, err
	}

	post := &domain.CommunityPost{UserID: userID, Content: content}
	if req.BookID != nil && *req.BookID != "" {
		book, err := s.books.Get(ctx, userID, *req.BookID)
		if err != nil {
			s.logger.WithError(err).Error("Failed to load book for post")
			return nil, errors.NewBackendError("Failed to save post", err)
		}
		if book == nil {
			return nil, errors.NewFieldError("book_id", "Book not found on your shelf")
		}
		post.BookID = &book.ID
		post.BookTitle = &book.Title
	}

	if err := s.community.CreatePost(ctx, post); err != nil {
		s.logger.WithError(err).Error("Failed to create post")
		return nil, errors.NewBackendError("Failed to save post", err)
	}
	s.invalidate(ctx)
	return post, nil
}

// DeletePost removes one of userID's posts
func (s *CommunityService) DeletePost(ctx context.Context, userID, id string) error {
	deleted, err := s.community.DeletePost(ctx, userID, id)
	if err != nil {
		s.logger.WithError(err).WithField("post_id", id).Error("Failed to delete post")
		return errors.NewBackendError("Failed to delete post", err)
	}
	if !deleted {
		return errors.NewNotFoundError("Post not found")
	}
	s.invalidate(ctx)
	return nil
}

// CreateReply adds a reply to a post
func (s *CommunityService) CreateReply(ctx context.Context, userID, postID string, req *domain.CreateReplyRequest) (*domain.PostReply, error) {
	content, err := sanitize.Apply(sanitize.Reply, req.Content)
	if err != nil {
		return nil, err
	}
	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}

	reply := &domain.PostReply{PostID: postID, UserID: userID, Content: content}
	if err := s.community.CreateReply(ctx, reply); err != nil {
		s.logger.WithError(err).WithField("post_id", postID).Error("Failed to create reply")
		return nil, errors.NewBackendError("Failed to save reply", err)
	}
	s.invalidate(ctx)
	return reply, nil
}

// ListReplies returns a post's replies in reading order
func (s *CommunityService) ListReplies(ctx context.Context, postID string) ([]*domain.PostReply, error) {
	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}
	replies, err := s.community.ListReplies(ctx, postID)
	if err != nil {
		s.logger.WithError(err).WithField("post_id", postID).Error("Failed to list replies")
		return nil, errors.NewBackendError("Failed to load replies", err)
	}
	return replies, nil
}

func (s *CommunityService) requirePost(ctx context.Context, postID string) error {
	if err := requireID(postID, "post_id"); err != nil {
		return err
	}
	post, err := s.community.GetPost(ctx, postID)
	if err != nil {
		s.logger.WithError(err).WithField("post_id", postID).Error("Failed to load post")
		return errors.NewBackendError("Failed to load post", err)
	}
	if post == nil {
		return errors.NewNotFoundError("Post not found")
	}
	return nil
}

// invalidate drops the cached first page, whose reply counts and posts changed
func (s *CommunityService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.InvalidateFeed(ctx)
	}
}
