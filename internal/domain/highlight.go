package domain

import "time"

// Highlight is a quote saved from a book
type Highlight struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	BookID     string    `json:"book_id"`
	Content    string    `json:"content"`
	PageNumber *int      `json:"page_number"`
	Note       *string   `json:"note"`
	CreatedAt  time.Time `json:"created_at"`
}

type CreateHighlightRequest struct {
	Content    string  `json:"content"`
	PageNumber *int    `json:"page_number"`
	Note       *string `json:"note"`
}

// DetectQuotesRequest carries free text to scan for quotations
type DetectQuotesRequest struct {
	Text string `json:"text"`
}
