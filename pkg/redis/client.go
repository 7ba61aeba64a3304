package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Client struct {
	rdb        *redis.Client
	KeyBuilder *KeyBuilder
	log        *zap.Logger
}

// Cache key constants
const (
	KeyCommunityFeed = "communityPosts"          // first page of the public community feed
	KeyGuestFlag     = "guest:%s:isGuest"        // guest:{guestID}:isGuest
	KeyGuestSession  = "guest:%s:guestSession"   // guest:{guestID}:guestSession
	KeyGuestPosts    = "guest:%s:communityPosts" // guest:{guestID}:communityPosts
	KeyRateLimit     = "rate_limit_%s_%s"        // rate_limit_{subject}_{actionType}
	KeyPreference    = "prefs:%s:%s"             // prefs:{subject}:{name}
)

// TTL constants
const (
	TTLCommunityFeed = 30 * time.Second
	TTLGuestSession  = 24 * time.Hour
)

// NewClient creates a new Redis client
func NewClient(redisURL string, environment string, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = 50
	opts.MinIdleConns = 5
	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb, KeyBuilder: NewKeyBuilder(environment), log: log}, nil
}

// IsNil reports whether err is the go-redis "key does not exist" sentinel
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Get retrieves a value from Redis
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	start := time.Now()
	val, err := c.rdb.Get(ctx, key).Result()
	c.logOp("redis_get", key, time.Since(start), err, IsNil(err))
	return val, err
}

// Set stores a value in Redis with TTL. A zero TTL keeps the key forever.
func (c *Client) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	start := time.Now()
	err := c.rdb.Set(ctx, key, value, ttl).Err()
	c.logOp("redis_set", key, time.Since(start), err, false)
	return err
}

// Delete removes keys from Redis
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	start := time.Now()
	err := c.rdb.Del(ctx, keys...).Err()
	c.log.Debug("redis_del",
		zap.Int("keys", len(keys)),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err))
	return err
}

// Exists checks if a key exists
func (c *Client) Exists(ctx context.Context, keys ...string) (int64, error) {
	start := time.Now()
	n, err := c.rdb.Exists(ctx, keys...).Result()
	c.log.Debug("redis_exists",
		zap.Int64("result", n),
		zap.Int("keys", len(keys)),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err))
	return n, err
}

// Expire sets a TTL on a key
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	start := time.Now()
	err := c.rdb.Expire(ctx, key, ttl).Err()
	c.logOp("redis_expire", key, time.Since(start), err, false)
	return err
}

// ScanKeys returns every key starting with prefix. SCAN is used instead of
// KEYS so large keyspaces do not block the server.
func (c *Client) ScanKeys(ctx context.Context, prefix string) ([]string, error) {
	start := time.Now()
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := c.rdb.Scan(ctx, cursor, escapeGlob(prefix)+"*", 100).Result()
		if err != nil {
			c.logOp("redis_scan", prefix, time.Since(start), err, false)
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	c.log.Debug("redis_scan",
		zap.String("key_prefix", prefixForLog(prefix)),
		zap.Int("keys", len(keys)),
		zap.Duration("duration", time.Since(start)))
	return keys, nil
}

// Health checks the Redis connection
func (c *Client) Health(ctx context.Context) error {
	start := time.Now()
	err := c.rdb.Ping(ctx).Err()
	dur := time.Since(start)
	if err != nil {
		c.log.Info("redis_ping", zap.Duration("duration", dur), zap.Error(err))
	} else {
		c.log.Debug("redis_ping", zap.Duration("duration", dur))
	}
	return err
}

func (c *Client) logOp(op, key string, dur time.Duration, err error, miss bool) {
	if err != nil && !miss {
		c.log.Info(op,
			zap.String("key_prefix", prefixForLog(key)),
			zap.Duration("duration", dur),
			zap.Error(err))
		return
	}
	c.log.Debug(op,
		zap.String("key_prefix", prefixForLog(key)),
		zap.Bool("miss", miss),
		zap.Duration("duration", dur))
}

// escapeGlob escapes the characters SCAN MATCH treats as patterns
func escapeGlob(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}

// prefixForLog returns a safe prefix of a key to avoid logging PII
func prefixForLog(key string) string {
	if len(key) <= 24 {
		return key
	}
	return key[:24] + "…"
}
