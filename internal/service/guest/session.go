package guest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"beyond-pages/pkg/errors"
	"beyond-pages/pkg/kvstore"
	"beyond-pages/pkg/logger"
	"beyond-pages/pkg/redis"
)

// DefaultSessionTTL is how long a guest session stays valid after entry
const DefaultSessionTTL = 24 * time.Hour

// Action types counted by the limiter
const (
	ActionPost  = "post"
	ActionReply = "reply"
)

// State of a guest session
type State int

const (
	StateUnset State = iota
	StateActive
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateExpired:
		return "expired"
	default:
		return "unset"
	}
}

// Session is the stored guest session
type Session struct {
	IsGuest      bool      `json:"isGuest"`
	GuestID      string    `json:"guestId"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// ExpiresAt returns the moment the session stops being valid
func (s *Session) ExpiresAt(ttl time.Duration) time.Time {
	return s.CreatedAt.Add(ttl)
}

// Config holds the guest layer limits
type Config struct {
	SessionTTL time.Duration
	Window     time.Duration
	PostLimit  int
	ReplyLimit int
}

// DefaultConfig returns the production limits
func DefaultConfig() Config {
	return Config{
		SessionTTL: DefaultSessionTTL,
		Window:     DefaultWindow,
		PostLimit:  5,
		ReplyLimit: 10,
	}
}

// Service manages guest sessions and everything scoped to a guest id
type Service struct {
	store   kvstore.Store
	limiter *RateLimiter
	config  Config
	now     func() time.Time
	logger  *logger.Logger
}

// NewService creates a guest service. opts configure the underlying rate
// limiter; a WithClock option also drives session expiry.
func NewService(store kvstore.Store, config Config, log *logger.Logger, opts ...Option) *Service {
	defaults := DefaultConfig()
	if config.SessionTTL <= 0 {
		config.SessionTTL = defaults.SessionTTL
	}
	if config.Window <= 0 {
		config.Window = defaults.Window
	}
	if config.PostLimit <= 0 {
		config.PostLimit = defaults.PostLimit
	}
	if config.ReplyLimit <= 0 {
		config.ReplyLimit = defaults.ReplyLimit
	}
	if log == nil {
		log = logger.Nop()
	}

	limiterOpts := append([]Option{WithWindow(config.Window), WithLogger(log)}, opts...)
	limiter := NewRateLimiter(store, limiterOpts...)

	return &Service{
		store:   store,
		limiter: limiter,
		config:  config,
		now:     limiter.now,
		logger:  log,
	}
}

// Limiter exposes the rate limiter so other subjects (client IPs) can share it
func (s *Service) Limiter() *RateLimiter {
	return s.limiter
}

// Config returns the effective configuration
func (s *Service) Config() Config {
	return s.config
}

// DefaultLimit returns the configured quota for a known action
func (s *Service) DefaultLimit(action string) (int, bool) {
	switch action {
	case ActionPost:
		return s.config.PostLimit, true
	case ActionReply:
		return s.config.ReplyLimit, true
	default:
		return 0, false
	}
}

// Enter starts guest mode for env. A live session for the same identity is
// returned as is.
func (s *Service) Enter(ctx context.Context, env Environment) (*Session, error) {
	guestID := GuestID(env)

	session, state, err := s.lookup(ctx, guestID)
	if err != nil {
		return nil, err
	}
	switch state {
	case StateActive:
		return s.touch(ctx, session)
	case StateExpired:
		if err := s.teardown(ctx, guestID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	session = &Session{
		IsGuest:      true,
		GuestID:      guestID,
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, redis.GuestFlagKey(guestID), "true", s.config.SessionTTL); err != nil {
		return nil, errors.NewBackendError("Failed to start guest session", err)
	}

	s.logger.WithField("guest_id", guestID).Info("Guest session started")
	return session, nil
}

// Validate reports whether guestID has a live session and refreshes its last
// activity. An expired session is torn down and reported as invalid.
func (s *Service) Validate(ctx context.Context, guestID string) (*Session, bool, error) {
	session, state, err := s.lookup(ctx, guestID)
	if err != nil {
		return nil, false, err
	}

	switch state {
	case StateActive:
		session, err = s.touch(ctx, session)
		if err != nil {
			return nil, false, err
		}
		return session, true, nil
	case StateExpired:
		if err := s.teardown(ctx, guestID); err != nil {
			return nil, false, err
		}
		s.logger.WithField("guest_id", guestID).Info("Guest session expired")
		return nil, false, nil
	default:
		return nil, false, nil
	}
}

// State inspects a session without refreshing or tearing it down
func (s *Service) State(ctx context.Context, guestID string) (State, error) {
	_, state, err := s.lookup(ctx, guestID)
	return state, err
}

// Clear ends guest mode for guestID, on sign-in or sign-out
func (s *Service) Clear(ctx context.Context, guestID string) error {
	if !ValidID(guestID) {
		return nil
	}
	if err := s.teardown(ctx, guestID); err != nil {
		return err
	}
	s.logger.WithField("guest_id", guestID).Info("Guest session cleared")
	return nil
}

// CheckLimit counts one action for an active guest. Inactive sessions get a
// session_expired error.
func (s *Service) CheckLimit(ctx context.Context, guestID, action string, maxActions int) (Decision, error) {
	if _, ok, err := s.Validate(ctx, guestID); err != nil {
		return Decision{}, err
	} else if !ok {
		return Decision{Limit: maxActions}, errors.NewSessionExpiredError("Guest session is not active")
	}
	return s.consume(ctx, guestID, action, maxActions)
}

func (s *Service) consume(ctx context.Context, guestID, action string, maxActions int) (Decision, error) {
	decision, err := s.limiter.CheckLimit(ctx, guestID, action, maxActions)
	if err != nil {
		return Decision{}, errors.NewBackendError("Failed to check rate limit", err)
	}
	return decision, nil
}

func (s *Service) lookup(ctx context.Context, guestID string) (*Session, State, error) {
	if !ValidID(guestID) {
		return nil, StateUnset, nil
	}

	raw, found, err := s.store.Get(ctx, redis.GuestSessionKey(guestID))
	if err != nil {
		return nil, StateUnset, errors.NewBackendError("Failed to load guest session", err)
	}
	if !found {
		return nil, StateUnset, nil
	}

	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil || !session.IsGuest || session.GuestID != guestID {
		s.logger.WithField("guest_id", guestID).Warn("Discarding unreadable guest session")
		return nil, StateExpired, nil
	}
	if s.now().Sub(session.CreatedAt) > s.config.SessionTTL {
		return &session, StateExpired, nil
	}
	return &session, StateActive, nil
}

func (s *Service) touch(ctx context.Context, session *Session) (*Session, error) {
	session.LastActivity = s.now()
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// save stores the session until the end of its lifetime. The store TTL is a
// backstop; expiry is decided by CreatedAt so the teardown still runs.
func (s *Service) save(ctx context.Context, session *Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return errors.NewInternalError("Failed to encode guest session", err)
	}
	if err := s.store.Set(ctx, redis.GuestSessionKey(session.GuestID), string(raw), 2*s.config.SessionTTL); err != nil {
		return errors.NewBackendError("Failed to save guest session", err)
	}
	return nil
}

// teardown removes the session, the guest flag, drafted posts and every rate
// limit window of guestID.
func (s *Service) teardown(ctx context.Context, guestID string) error {
	err := s.store.Delete(ctx,
		redis.GuestSessionKey(guestID),
		redis.GuestFlagKey(guestID),
		redis.GuestPostsKey(guestID),
	)
	if err != nil {
		return errors.NewBackendError("Failed to clear guest session", err)
	}

	n, err := s.limiter.Reset(ctx, guestID)
	if err != nil {
		return errors.NewBackendError("Failed to clear guest rate limits", fmt.Errorf("reset %s: %w", guestID, err))
	}
	s.logger.WithFields(map[string]interface{}{
		"guest_id":    guestID,
		"rate_limits": n,
	}).Debug("Guest state removed")
	return nil
}
