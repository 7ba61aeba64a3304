package kvstore

import (
	"context"
	"fmt"
	"time"

	"beyond-pages/pkg/redis"
)

// Redis is a Store backed by the shared Redis client. Keys are namespaced
// with the client's environment prefix.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps a connected Redis client
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, r.client.KeyBuilder.BuildKey(key))
	if redis.IsNil(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kvstore get: %w", err)
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.client.KeyBuilder.BuildKey(key), value, ttl); err != nil {
		return fmt.Errorf("kvstore set: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	built := make([]string, len(keys))
	for i, k := range keys {
		built[i] = r.client.KeyBuilder.BuildKey(k)
	}
	if err := r.client.Delete(ctx, built...); err != nil {
		return fmt.Errorf("kvstore delete: %w", err)
	}
	return nil
}

func (r *Redis) Keys(ctx context.Context, prefix string) ([]string, error) {
	raw, err := r.client.ScanKeys(ctx, r.client.KeyBuilder.BuildKey(prefix))
	if err != nil {
		return nil, fmt.Errorf("kvstore keys: %w", err)
	}
	keys := make([]string, len(raw))
	for i, k := range raw {
		keys[i] = r.client.KeyBuilder.StripKey(k)
	}
	return keys, nil
}
