package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"beyond-pages/pkg/logger"
)

// CORSConfig holds CORS configuration. An origin entry may use a single
// leading wildcard label, e.g. "https://*.vercel.app" for preview deploys.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// DefaultCORSConfig allows the reader app's methods and headers; origins
// come from ALLOWED_ORIGINS
func DefaultCORSConfig() *CORSConfig {
	return &CORSConfig{
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type",
			"X-Request-ID", GuestHeader,
		},
		ExposedHeaders: []string{
			"X-Request-ID", GuestHeader,
			"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset",
			"Retry-After",
		},
		AllowCredentials: true,
		MaxAge:           86400,
	}
}

// originMatcher decides whether an Origin header is allowed
type originMatcher struct {
	any      bool
	exact    map[string]struct{}
	prefixes []string // scheme of each wildcard entry
	suffixes []string // host after the wildcard label
}

func newOriginMatcher(origins []string) *originMatcher {
	m := &originMatcher{exact: map[string]struct{}{}, any: len(origins) == 0}
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch {
		case o == "*":
			m.any = true
		case strings.Contains(o, "://*."):
			scheme, host, _ := strings.Cut(o, "*")
			m.prefixes = append(m.prefixes, scheme)
			m.suffixes = append(m.suffixes, host)
		case o != "":
			m.exact[o] = struct{}{}
		}
	}
	return m
}

func (m *originMatcher) allows(origin string) bool {
	if origin == "" {
		return false
	}
	if m.any {
		return true
	}
	if _, ok := m.exact[origin]; ok {
		return true
	}
	for i, prefix := range m.prefixes {
		rest, ok := strings.CutPrefix(origin, prefix)
		if !ok {
			continue
		}
		label, ok := strings.CutSuffix(rest, m.suffixes[i])
		if ok && label != "" && !strings.ContainsAny(label, "./:") {
			return true
		}
	}
	return false
}

// CORS answers preflight requests and decorates responses for allowed origins
func CORS(config *CORSConfig, logger *logger.Logger) func(http.Handler) http.Handler {
	if config == nil {
		config = DefaultCORSConfig()
	}

	origins := newOriginMatcher(config.AllowedOrigins)
	methods := strings.Join(config.AllowedMethods, ", ")
	headers := strings.Join(config.AllowedHeaders, ", ")
	exposed := strings.Join(config.ExposedHeaders, ", ")
	maxAge := strconv.Itoa(config.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := origins.allows(origin)
			h := w.Header()

			if allowed {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				if config.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				if exposed != "" {
					h.Set("Access-Control-Expose-Headers", exposed)
				}
			} else if origin != "" {
				logger.WithField("origin", origin).Debug("CORS origin rejected")
			}

			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
			if !preflight {
				next.ServeHTTP(w, r)
				return
			}

			if allowed {
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				if config.MaxAge > 0 {
					h.Set("Access-Control-Max-Age", maxAge)
				}
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
