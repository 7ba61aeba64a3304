package redis

import (
	"fmt"
	"strings"
)

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string // Environment prefix (staging/prod)
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	switch environment {
	case "development", "staging":
		prefix = "staging"
	case "test":
		prefix = "test"
	}

	return &KeyBuilder{prefix: prefix}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// StripKey removes the environment prefix added by BuildKey
func (kb *KeyBuilder) StripKey(key string) string {
	return strings.TrimPrefix(key, kb.prefix+":")
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

func (kb *KeyBuilder) KeyCommunityFeed() string {
	return kb.BuildKey(KeyCommunityFeed)
}

// Guest keys are unprefixed: they are handed to the kvstore, which applies
// the environment prefix itself.

func GuestFlagKey(guestID string) string {
	return fmt.Sprintf(KeyGuestFlag, guestID)
}

func GuestSessionKey(guestID string) string {
	return fmt.Sprintf(KeyGuestSession, guestID)
}

func GuestPostsKey(guestID string) string {
	return fmt.Sprintf(KeyGuestPosts, guestID)
}

func GuestKeyPrefix(guestID string) string {
	return fmt.Sprintf("guest:%s:", guestID)
}

// RateLimitKey builds rate_limit_<subject>_<actionType>
func RateLimitKey(subject, actionType string) string {
	return fmt.Sprintf(KeyRateLimit, subject, actionType)
}

// RateLimitPrefix matches every rate-limit record of one subject
func RateLimitPrefix(subject string) string {
	return fmt.Sprintf("rate_limit_%s_", subject)
}

func PreferenceKey(subject, name string) string {
	return fmt.Sprintf(KeyPreference, subject, name)
}
