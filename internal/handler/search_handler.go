package handler

import (
	"net/http"

	"beyond-pages/internal/domain"
	"beyond-pages/internal/search"
	"beyond-pages/pkg/logger"
)

type SearchHandler struct {
	search *search.Service
	logger *logger.Logger
}

func NewSearchHandler(search *search.Service, logger *logger.Logger) *SearchHandler {
	return &SearchHandler{search: search, logger: logger}
}

// Books handles GET /api/search/books?q=&user_id=&status=&limit=
func (h *SearchHandler) Books(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit, err := parseIntParam(r, "limit", 0)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	resp, err := h.search.Search(r.Context(), search.Query{
		Text:   query.Get("q"),
		UserID: query.Get("user_id"),
		Status: domain.BookStatus(query.Get("status")),
		Limit:  limit,
	})
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
