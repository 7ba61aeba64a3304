package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"beyond-pages/internal/domain"
	"beyond-pages/pkg/kvstore"
	"beyond-pages/pkg/redis"
)

// CacheService provides cache-aside access to the first page of the
// community feed. Cache failures never fail a request.
type CacheService struct {
	store  kvstore.Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewCacheService creates a new cache service
func NewCacheService(store kvstore.Store, logger *zap.Logger) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{
		store:  store,
		ttl:    redis.TTLCommunityFeed,
		logger: logger,
	}
}

// GetFeedWithCache returns the cached first feed page or loads it with dbFallback
func (c *CacheService) GetFeedWithCache(ctx context.Context, dbFallback func(ctx context.Context) ([]*domain.CommunityPost, error)) ([]*domain.CommunityPost, error) {
	cachedData, found, err := c.store.Get(ctx, redis.KeyCommunityFeed)
	if err == nil && found {
		var posts []*domain.CommunityPost
		if marshalErr := json.Unmarshal([]byte(cachedData), &posts); marshalErr == nil {
			c.logger.Debug("Feed cache hit", zap.Int("posts", len(posts)))
			return posts, nil
		} else {
			c.logger.Warn("Feed cache corrupted, falling back to database", zap.Error(marshalErr))
		}
	} else if err != nil {
		c.logger.Warn("Feed cache error, falling back to database", zap.Error(err))
	}

	c.logger.Debug("Feed cache miss")
	posts, err := dbFallback(ctx)
	if err != nil {
		return nil, fmt.Errorf("database fallback failed: %w", err)
	}

	// Cache the result asynchronously (fire and forget)
	go c.cacheFeedAsync(posts)

	return posts, nil
}

// InvalidateFeed drops the cached feed page after a post is created or deleted
func (c *CacheService) InvalidateFeed(ctx context.Context) {
	if err := c.store.Delete(ctx, redis.KeyCommunityFeed); err != nil {
		c.logger.Error("Failed to invalidate feed cache", zap.Error(err))
		return
	}
	c.logger.Debug("Feed cache invalidated")
}

func (c *CacheService) cacheFeedAsync(posts []*domain.CommunityPost) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := json.Marshal(posts)
	if err != nil {
		c.logger.Error("Failed to marshal feed for caching", zap.Error(err))
		return
	}

	if err := c.store.Set(ctx, redis.KeyCommunityFeed, string(data), c.ttl); err != nil {
		c.logger.Error("Failed to cache feed", zap.Error(err))
	} else {
		c.logger.Debug("Feed cached successfully", zap.Int("posts", len(posts)))
	}
}
