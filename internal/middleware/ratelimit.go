package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"beyond-pages/internal/service/guest"
	"beyond-pages/pkg/clientip"
	"beyond-pages/pkg/errors"
	"beyond-pages/pkg/logger"
)

const actionRequest = "request"

// IPRateLimit counts every request against a fixed window per client IP as
// resolved by ips. The limiter failing lets traffic through.
func IPRateLimit(limiter *guest.RateLimiter, ips *clientip.Resolver, maxRequests int, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if maxRequests <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, err := limiter.CheckLimit(r.Context(), ipSubject(ips.FromRequest(r)), actionRequest, maxRequests)
			if err != nil {
				logger.WithError(err).Warn("IP rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}

			SetRateLimitHeaders(w, decision)
			if !decision.Allowed {
				retry := time.Until(decision.ResetAt).Seconds()
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(retry)))
				WriteError(w, r, errors.NewRateLimitError("Too many requests, please slow down"), logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SetRateLimitHeaders reports a limiter decision to the client
func SetRateLimitHeaders(w http.ResponseWriter, d guest.Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining()))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
}

// ipSubject keeps raw addresses out of store keys
func ipSubject(ip string) string {
	return "ip:" + strconv.FormatUint(xxhash.Sum64String(ip), 36)
}
