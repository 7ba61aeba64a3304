package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"beyond-pages/internal/domain"
	"beyond-pages/internal/service"
	"beyond-pages/pkg/errors"
	"beyond-pages/pkg/logger"
)

// ContextKey represents keys used in request context
type ContextKey string

const (
	// UserContextKey is the key for user information in context
	UserContextKey ContextKey = "user"
	// RequestIDContextKey is the key for request ID in context
	RequestIDContextKey ContextKey = "request_id"
	// GuestContextKey is the key for the active guest session in context
	GuestContextKey ContextKey = "guest"
)

// Auth creates an authentication middleware
func Auth(authService service.AuthService, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				WriteError(w, r, errors.NewAuthenticationError("Authorization header is required"), logger)
				return
			}

			user, appErr := authenticate(r.Context(), authService, authHeader, logger)
			if appErr != nil {
				WriteError(w, r, appErr, logger)
				return
			}

			logger.WithField("user_id", user.ID).Debug("User authenticated successfully")
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), UserContextKey, user)))
		})
	}
}

// OptionalAuth creates an optional authentication middleware
// If token is provided, it validates it, otherwise continues without authentication
func OptionalAuth(authService service.AuthService, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, appErr := authenticate(r.Context(), authService, authHeader, logger)
			if appErr != nil {
				WriteError(w, r, appErr, logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), UserContextKey, user)))
		})
	}
}

func authenticate(ctx context.Context, authService service.AuthService, authHeader string, logger *logger.Logger) (*domain.User, *errors.AppError) {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, errors.NewAuthenticationError("Invalid authorization header format")
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return nil, errors.NewAuthenticationError("Token is required")
	}

	user, err := authService.ValidateToken(ctx, token)
	if err != nil {
		logger.WithError(err).Debug("Token validation failed")
		if appErr, ok := errors.As(err); ok {
			return nil, appErr
		}
		return nil, errors.NewAuthenticationError("Invalid or expired token")
	}
	return user, nil
}

// UserFromContext returns the authenticated caller, if any
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*domain.User)
	return user, ok && user != nil
}

// RequestID creates a middleware that adds a unique request ID to each
// request. A well-formed X-Request-ID from the client is kept.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}

		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext returns the id assigned by RequestID
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDContextKey).(string)
	return id
}
