// Package search finds books by title, author or ISBN. Meilisearch serves
// queries when it is configured and reachable; Postgres ILIKE covers the rest.
package search

import "beyond-pages/internal/domain"

// BookRecord is the data we index for a book
type BookRecord struct {
	ID       string            `json:"id"`
	UserID   string            `json:"userId"`
	Title    string            `json:"title"`
	Author   string            `json:"author,omitempty"`
	ISBN     string            `json:"isbn,omitempty"`
	Status   domain.BookStatus `json:"status"`
	CoverURL string            `json:"coverUrl,omitempty"`
}

// Query describes a search request
type Query struct {
	Text   string
	UserID string // empty = every shelf
	Status domain.BookStatus
	Limit  int
}

// Response is the envelope returned by the search endpoint
type Response struct {
	Results []BookRecord `json:"results"`
	Total   int          `json:"total"`
	Query   string       `json:"query"`
	Source  string       `json:"source"`
}

const (
	SourceMeili    = "meilisearch"
	SourcePostgres = "postgres"
)

// RecordFromBook converts a shelf entry to its index record
func RecordFromBook(book *domain.Book) BookRecord {
	rec := BookRecord{
		ID:     book.ID,
		UserID: book.UserID,
		Title:  book.Title,
		Status: book.Status,
	}
	if book.Author != nil {
		rec.Author = *book.Author
	}
	if book.ISBN != nil {
		rec.ISBN = *book.ISBN
	}
	if book.CoverURL != nil {
		rec.CoverURL = *book.CoverURL
	}
	return rec
}
