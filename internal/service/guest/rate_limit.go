package guest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"beyond-pages/pkg/kvstore"
	"beyond-pages/pkg/logger"
	"beyond-pages/pkg/redis"
)

// DefaultWindow is the length of one rate-limit window
const DefaultWindow = time.Hour

// Decision is the outcome of one CheckLimit call
type Decision struct {
	Allowed     bool      `json:"allowed"`
	Count       int       `json:"count"`
	Limit       int       `json:"limit"`
	WindowStart time.Time `json:"windowStart"`
	ResetAt     time.Time `json:"resetAt"`
}

// Remaining returns how many actions are left in the current window
func (d Decision) Remaining() int {
	if d.Count >= d.Limit {
		return 0
	}
	return d.Limit - d.Count
}

// window is the persisted record, timestamps in milliseconds
type window struct {
	Count       int   `json:"count"`
	WindowStart int64 `json:"windowStart"`
}

// RateLimiter is a fixed-window action counter keyed by (subject, action).
// Records live in a kvstore.Store without locking, so concurrent checks for
// the same key can race and the last write wins.
type RateLimiter struct {
	store  kvstore.Store
	window time.Duration
	now    func() time.Time
	logger *logger.Logger
}

// Option configures a RateLimiter
type Option func(*RateLimiter)

// WithWindow sets the window length
func WithWindow(d time.Duration) Option {
	return func(l *RateLimiter) {
		if d > 0 {
			l.window = d
		}
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(l *RateLimiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets the limiter's logger
func WithLogger(log *logger.Logger) Option {
	return func(l *RateLimiter) {
		if log != nil {
			l.logger = log
		}
	}
}

// NewRateLimiter creates a fixed-window limiter over store
func NewRateLimiter(store kvstore.Store, opts ...Option) *RateLimiter {
	l := &RateLimiter{
		store:  store,
		window: DefaultWindow,
		now:    time.Now,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Window returns the configured window length
func (l *RateLimiter) Window() time.Duration {
	return l.window
}

// CheckLimit counts one action for subject. An expired window restarts at
// zero; a full window denies without touching the record; otherwise the
// count is incremented and persisted.
func (l *RateLimiter) CheckLimit(ctx context.Context, subject, action string, maxActions int) (Decision, error) {
	if maxActions < 0 {
		return Decision{}, fmt.Errorf("rate limit: negative max actions %d", maxActions)
	}

	key := redis.RateLimitKey(subject, action)
	now := l.now()

	rec, err := l.load(ctx, key)
	if err != nil {
		return Decision{}, err
	}

	start := time.UnixMilli(rec.WindowStart)
	if rec.WindowStart == 0 || now.Sub(start) >= l.window {
		rec = window{Count: 0, WindowStart: now.UnixMilli()}
		start = time.UnixMilli(rec.WindowStart)
	}

	decision := Decision{
		Count:       rec.Count,
		Limit:       maxActions,
		WindowStart: start,
		ResetAt:     start.Add(l.window),
	}

	if rec.Count >= maxActions {
		l.logger.WithFields(map[string]interface{}{
			"action": action,
			"count":  rec.Count,
			"limit":  maxActions,
		}).Debug("Rate limit reached")
		return decision, nil
	}

	rec.Count++
	raw, err := json.Marshal(rec)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit: encode record: %w", err)
	}
	if err := l.store.Set(ctx, key, string(raw), l.window); err != nil {
		return Decision{}, fmt.Errorf("rate limit: save record: %w", err)
	}

	decision.Allowed = true
	decision.Count = rec.Count
	return decision, nil
}

// Reset removes every window recorded for subject
func (l *RateLimiter) Reset(ctx context.Context, subject string) (int, error) {
	return kvstore.DeletePrefix(ctx, l.store, redis.RateLimitPrefix(subject))
}

// load reads a window record. A missing or unreadable record counts as a
// fresh window.
func (l *RateLimiter) load(ctx context.Context, key string) (window, error) {
	raw, found, err := l.store.Get(ctx, key)
	if err != nil {
		return window{}, fmt.Errorf("rate limit: load record: %w", err)
	}
	if !found {
		return window{}, nil
	}

	var rec window
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.Count < 0 {
		l.logger.WithError(err).Warn("Discarding corrupt rate limit record")
		return window{}, nil
	}
	return rec, nil
}
