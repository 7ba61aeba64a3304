package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"beyond-pages/pkg/errors"
	"beyond-pages/pkg/logger"
)

// WriteError writes err as the JSON error envelope. Errors that are not an
// AppError are reported as internal errors; their cause is only logged.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *logger.Logger) {
	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.NewInternalError("Internal server error", err)
	}

	requestID := RequestIDFromContext(r.Context())
	log := logger.WithFields(map[string]interface{}{
		"request_id": requestID,
		"method":     r.Method,
		"path":       r.URL.Path,
		"status":     appErr.StatusCode,
	}).WithError(appErr)
	if appErr.StatusCode >= http.StatusInternalServerError {
		log.Error("Request failed")
	} else {
		log.Debug("Request rejected")
	}

	response := &errors.ErrorResponse{}
	response.Error.Type = appErr.Type
	response.Error.Message = appErr.Message
	response.Error.Details = appErr.Details
	response.Error.RequestID = requestID
	response.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	if encErr := json.NewEncoder(w).Encode(response); encErr != nil {
		logger.WithError(encErr).Error("Failed to encode error response")
	}
}
