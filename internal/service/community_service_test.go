package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beyond-pages/internal/domain"
	"beyond-pages/pkg/errors"
	"beyond-pages/pkg/kvstore"
	"beyond-pages/pkg/logger"
	"beyond-pages/pkg/redis"
)

func TestCommunityService_PostsAndReplies(t *testing.T) {
	ctx := context.Background()
	community := &memCommunity{}
	books := newMemBooks()
	book := &domain.Book{UserID: "user-1", Title: "Emma"}
	require.NoError(t, books.Create(ctx, book))

	svc := NewCommunityService(community, newMemFollows(), books, nil, logger.Nop())

	post, err := svc.CreatePost(ctx, "user-1", &domain.CreatePostRequest{Content: "Loving <b>this</b>", BookID: &book.ID})
	require.NoError(t, err)
	assert.Equal(t, "Loving this", post.Content)
	require.NotNil(t, post.BookTitle)
	assert.Equal(t, "Emma", *post.BookTitle)

	_, err = svc.CreatePost(ctx, "user-2", &domain.CreatePostRequest{Content: "mine?", BookID: &book.ID})
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, "book_id", appErr.Details["field"])

	_, err = svc.CreatePost(ctx, "user-1", &domain.CreatePostRequest{Content: "   "})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, err = svc.CreateReply(ctx, "user-2", post.ID, &domain.CreateReplyRequest{Content: "Me too"})
	require.NoError(t, err)
	_, err = svc.CreateReply(ctx, "user-1", post.ID, &domain.CreateReplyRequest{Content: "Thanks"})
	require.NoError(t, err)

	replies, err := svc.ListReplies(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, "Me too", replies[0].Content)

	_, err = svc.CreateReply(ctx, "user-2", "missing", &domain.CreateReplyRequest{Content: "hello"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

	assert.True(t, errors.IsType(svc.DeletePost(ctx, "user-2", post.ID), errors.ErrorTypeNotFound))
	require.NoError(t, svc.DeletePost(ctx, "user-1", post.ID))
}

func TestCommunityService_FirstPageIsCached(t *testing.T) {
	ctx := context.Background()
	community := &memCommunity{}
	store := kvstore.NewMemory()
	svc := NewCommunityService(community, newMemFollows(), newMemBooks(), NewCacheService(store, nil), logger.Nop())

	_, err := svc.CreatePost(ctx, "user-1", &domain.CreatePostRequest{Content: "first"})
	require.NoError(t, err)

	posts, err := svc.ListPosts(ctx, nil)
	require.NoError(t, err)
	require.Len(t, posts, 1)

	assert.Eventually(t, func() bool {
		_, found, _ := store.Get(ctx, redis.KeyCommunityFeed)
		return found
	}, time.Second, 10*time.Millisecond)

	_, err = svc.ListPosts(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, community.listCalls)

	before := time.Now().Add(time.Hour)
	_, err = svc.ListPosts(ctx, &before)
	require.NoError(t, err)
	assert.Equal(t, 2, community.listCalls, "later pages bypass the cache")

	_, err = svc.CreatePost(ctx, "user-1", &domain.CreatePostRequest{Content: "second"})
	require.NoError(t, err)
	_, found, _ := store.Get(ctx, redis.KeyCommunityFeed)
	assert.False(t, found, "creating a post invalidates the cached page")
}

func TestCommunityService_Feed(t *testing.T) {
	ctx := context.Background()
	community := &memCommunity{}
	follows := newMemFollows()
	svc := NewCommunityService(community, follows, newMemBooks(), nil, logger.Nop())

	for _, author := range []string{"user-1", "user-2", "user-3"} {
		_, err := svc.CreatePost(ctx, author, &domain.CreatePostRequest{Content: "post by " + author})
		require.NoError(t, err)
	}
	_, err := follows.Follow(ctx, "user-1", "user-2")
	require.NoError(t, err)

	posts, err := svc.Feed(ctx, "user-1", nil)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	for _, p := range posts {
		assert.NotEqual(t, "user-3", p.UserID)
	}
}
