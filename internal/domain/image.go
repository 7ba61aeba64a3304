package domain

import "time"

// GeneratedImage records a cover produced by the image API
type GeneratedImage struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	BookID      string    `json:"book_id"`
	Prompt      string    `json:"prompt"`
	StoragePath string    `json:"storage_path"`
	PublicURL   string    `json:"public_url"`
	CreatedAt   time.Time `json:"created_at"`
}
