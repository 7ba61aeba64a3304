package middleware

import (
	"context"
	"net/http"

	"beyond-pages/internal/service/guest"
	"beyond-pages/pkg/logger"
)

// GuestHeader carries the guest id issued by POST /api/guest/session
const GuestHeader = "X-Guest-ID"

// Guest loads the caller's guest session from X-Guest-ID. Requests without a
// live session continue without one; an expired session is torn down on the
// way.
func Guest(sessions *guest.Service, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			guestID := r.Header.Get(GuestHeader)
			if guestID == "" {
				next.ServeHTTP(w, r)
				return
			}

			session, ok, err := sessions.Validate(r.Context(), guestID)
			if err != nil {
				logger.WithError(err).Warn("Guest session lookup failed")
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), GuestContextKey, session)))
		})
	}
}

// GuestFromContext returns the live guest session loaded by Guest
func GuestFromContext(ctx context.Context) (*guest.Session, bool) {
	session, ok := ctx.Value(GuestContextKey).(*guest.Session)
	return session, ok && session != nil
}

// Subject identifies the caller for per-subject state such as preferences:
// the user id when signed in, otherwise the guest id.
func Subject(ctx context.Context) (string, bool) {
	if user, ok := UserFromContext(ctx); ok {
		return user.ID, true
	}
	if session, ok := GuestFromContext(ctx); ok {
		return session.GuestID, true
	}
	return "", false
}
