package domain

import "time"

// Follow is a follower → following edge
type Follow struct {
	FollowerID  string    `json:"follower_id"`
	FollowingID string    `json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// FollowCounts are the two sides of a user's social graph
type FollowCounts struct {
	Followers int `json:"followers"`
	Following int `json:"following"`
}

// FollowUser is a profile in a followers/following listing
type FollowUser struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName *string   `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url"`
	FollowedAt  time.Time `json:"followed_at"`
}
