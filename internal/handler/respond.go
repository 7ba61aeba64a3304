package handler

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"beyond-pages/internal/domain"
	"beyond-pages/internal/middleware"
	"beyond-pages/pkg/errors"
	"beyond-pages/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Response is the success envelope
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Success: true, Data: data})
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Success: true, Message: message})
}

func respondError(w http.ResponseWriter, r *http.Request, err error, log *logger.Logger) {
	middleware.WriteError(w, r, err, log)
}

// decodeJSON reads a JSON body of at most 1 MiB into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case stderrors.Is(err, io.EOF):
			return errors.NewValidationError("Request body is required", nil)
		case stderrors.As(err, &tooLarge):
			return errors.NewValidationError("Request body is too large", nil)
		default:
			return errors.NewValidationError("Invalid request body", nil)
		}
	}
	return nil
}

func currentUser(r *http.Request) (*domain.User, error) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		return nil, errors.NewAuthenticationError("User not authenticated")
	}
	return user, nil
}

// parseBefore reads the ?before= feed cursor
func parseBefore(r *http.Request) (*time.Time, error) {
	raw := r.URL.Query().Get("before")
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, errors.NewFieldError("before", "before must be an RFC 3339 timestamp")
	}
	return &t, nil
}

func parseIntParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.NewFieldError(name, name+" must be a non-negative integer")
	}
	return n, nil
}
