package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"beyond-pages/internal/domain"
	"beyond-pages/internal/service"
	"beyond-pages/pkg/logger"
)

// BookHandler serves the caller's shelf
type BookHandler struct {
	books  *service.BookService
	covers *service.CoverService
	logger *logger.Logger
}

func NewBookHandler(books *service.BookService, covers *service.CoverService, logger *logger.Logger) *BookHandler {
	return &BookHandler{books: books, covers: covers, logger: logger}
}

// List handles GET /api/books?status=&limit=&offset=
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	limit, err := parseIntParam(r, "limit", 0)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	offset, err := parseIntParam(r, "offset", 0)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	books, err := h.books.List(r.Context(), user.ID, domain.BookFilter{
		Status: domain.BookStatus(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, books)
}

// Create handles POST /api/books
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	var req domain.CreateBookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	book, err := h.books.Create(r.Context(), user.ID, &req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusCreated, book)
}

// Get handles GET /api/books/{id}
func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	book, err := h.books.Get(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, book)
}

// Update handles PATCH /api/books/{id}
func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	var req domain.UpdateBookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	book, err := h.books.Update(r.Context(), user.ID, chi.URLParam(r, "id"), &req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, book)
}

// Delete handles DELETE /api/books/{id}
func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	if err := h.books.Delete(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondMessage(w, http.StatusOK, "Book deleted")
}

// UpdateProgress handles PUT /api/books/{id}/progress
func (h *BookHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	var req domain.ProgressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	book, err := h.books.UpdateProgress(r.Context(), user.ID, chi.URLParam(r, "id"), req.CurrentPage)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, book)
}

// GenerateCover handles POST /api/books/{id}/cover
func (h *BookHandler) GenerateCover(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	image, err := h.covers.Generate(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusCreated, image)
}

// CoverHistory handles GET /api/books/{id}/covers
func (h *BookHandler) CoverHistory(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	images, err := h.covers.History(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, images)
}
