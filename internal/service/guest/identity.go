package guest

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// IDPrefix starts every guest identifier
const IDPrefix = "guest_"

// Environment holds the client attributes a guest identity is derived from.
type Environment struct {
	UserAgent      string `json:"userAgent"`
	Locale         string `json:"locale"`
	ScreenWidth    int    `json:"screenWidth"`
	ScreenHeight   int    `json:"screenHeight"`
	TimezoneOffset int    `json:"timezoneOffset"` // minutes, as reported by the browser
}

// GuestID derives a stable pseudo-identity from env. The same environment
// always yields the same id; different visitors may collide.
func GuestID(env Environment) string {
	fingerprint := fmt.Sprintf("%s|%s|%dx%d|%d",
		env.UserAgent, env.Locale, env.ScreenWidth, env.ScreenHeight, env.TimezoneOffset)
	return IDPrefix + strconv.FormatUint(xxhash.Sum64String(fingerprint), 36)
}

// ValidID reports whether id has the shape GuestID produces
func ValidID(id string) bool {
	rest, ok := strings.CutPrefix(id, IDPrefix)
	if !ok || rest == "" || len(rest) > 13 {
		return false
	}
	for _, r := range rest {
		if (r < '0' || r > '9') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}

// EnvironmentFromRequest fills the header-derived fields of env from r.
// Screen size and timezone come from the request body and are kept as given.
func EnvironmentFromRequest(r *http.Request, env Environment) Environment {
	if env.UserAgent == "" {
		env.UserAgent = r.UserAgent()
	}
	if env.Locale == "" {
		env.Locale = primaryLocale(r.Header.Get("Accept-Language"))
	}
	return env
}

// primaryLocale returns the first tag of an Accept-Language header
func primaryLocale(header string) string {
	tag, _, _ := strings.Cut(header, ",")
	tag, _, _ = strings.Cut(tag, ";")
	return strings.TrimSpace(tag)
}
