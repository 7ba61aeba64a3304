// Package kvstore is the string key/value store behind guest sessions,
// rate-limit windows and small per-subject preferences.
//
// It mirrors the browser storage the web client used: synchronous-looking
// reads and writes of string values, no transactions, last write wins.
// Redis backs it in production and Memory backs it in tests and in
// deployments without REDIS_URL.
package kvstore

import (
	"context"
	"time"
)

// Store is a string key/value store. A ttl of zero keeps the value until it
// is deleted.
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// Keys lists every key starting with prefix, in no particular order.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// DeletePrefix removes every key starting with prefix and returns how many
// keys were removed.
func DeletePrefix(ctx context.Context, s Store, prefix string) (int, error) {
	keys, err := s.Keys(ctx, prefix)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := s.Delete(ctx, keys...); err != nil {
		return 0, err
	}
	return len(keys), nil
}
