package domain

import "time"

// BadgeType names an achievement
type BadgeType string

const (
	BadgeFirstBook       BadgeType = "first_book"
	BadgeBookworm        BadgeType = "bookworm"
	BadgeCritic          BadgeType = "critic"
	BadgeQuoteCollector  BadgeType = "quote_collector"
	BadgeSocialButterfly BadgeType = "social_butterfly"
	BadgeCommunityVoice  BadgeType = "community_voice"
)

// Badge is an achievement awarded to a user
type Badge struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	BadgeType BadgeType `json:"badge_type"`
	AwardedAt time.Time `json:"awarded_at"`
}

// BadgeStats are the counters badge eligibility is computed from
type BadgeStats struct {
	BooksRead  int
	Reviews    int
	Highlights int
	Following  int
	Posts      int
}
