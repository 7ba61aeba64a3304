package domain

import "time"

// Profile is the public face of a user
type Profile struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName *string   `json:"display_name"`
	Bio         *string   `json:"bio"`
	AvatarURL   *string   `json:"avatar_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProfileStats are the counters shown next to a profile
type ProfileStats struct {
	BooksRead  int `json:"books_read"`
	Reviews    int `json:"reviews"`
	Highlights int `json:"highlights"`
	Posts      int `json:"posts"`
	Followers  int `json:"followers"`
	Following  int `json:"following"`
}

// ProfileView is a profile with its stats and badges
type ProfileView struct {
	Profile
	Stats  ProfileStats `json:"stats"`
	Badges []*Badge     `json:"badges"`
}

// UpdateProfileRequest represents the profile edit form
type UpdateProfileRequest struct {
	Username    string  `json:"username"`
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
}

// Preferences are per-subject display settings
type Preferences struct {
	HighContrast bool `json:"high_contrast"`
}
