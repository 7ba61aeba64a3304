package domain

import "time"

// BookStatus is the reading state of a book on a shelf
type BookStatus string

const (
	BookStatusWantToRead BookStatus = "want_to_read"
	BookStatusReading    BookStatus = "reading"
	BookStatusRead       BookStatus = "read"
)

// Valid reports whether s is a known status
func (s BookStatus) Valid() bool {
	switch s {
	case BookStatusWantToRead, BookStatusReading, BookStatusRead:
		return true
	}
	return false
}

// Book is one entry of a user's shelf
type Book struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Author      *string    `json:"author"`
	ISBN        *string    `json:"isbn"`
	Status      BookStatus `json:"status"`
	Rating      *int       `json:"rating"`
	Review      *string    `json:"review"`
	CoverURL    *string    `json:"cover_url"`
	Description *string    `json:"description"`
	PageCount   *int       `json:"page_count"`
	CurrentPage int        `json:"current_page"`
	StartedAt   *time.Time `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateBookRequest represents the add-book form
type CreateBookRequest struct {
	Title       string     `json:"title"`
	Author      *string    `json:"author"`
	ISBN        *string    `json:"isbn"`
	Status      BookStatus `json:"status"`
	Rating      *int       `json:"rating"`
	Review      *string    `json:"review"`
	CoverURL    *string    `json:"cover_url"`
	Description *string    `json:"description"`
	PageCount   *int       `json:"page_count"`
}

// UpdateBookRequest is a partial update; nil fields are left unchanged
type UpdateBookRequest struct {
	Title       *string     `json:"title"`
	Author      *string     `json:"author"`
	ISBN        *string     `json:"isbn"`
	Status      *BookStatus `json:"status"`
	Rating      *int        `json:"rating"`
	Review      *string     `json:"review"`
	CoverURL    *string     `json:"cover_url"`
	Description *string     `json:"description"`
	PageCount   *int        `json:"page_count"`
}

// ProgressRequest moves the bookmark of a book
type ProgressRequest struct {
	CurrentPage int `json:"current_page"`
}

// BookFilter narrows a shelf listing
type BookFilter struct {
	Status BookStatus
	Limit  int
	Offset int
}
