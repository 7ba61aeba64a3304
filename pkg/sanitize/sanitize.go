package sanitize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"beyond-pages/pkg/errors"
)

var emailPattern = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

// Apply sanitizes input according to policy
func Apply(policy Policy, input string) (string, error) {
	rule, ok := rules[policy]
	if !ok {
		return "", fmt.Errorf("sanitize: unknown policy %d", policy)
	}

	switch rule.Kind {
	case KindHTML:
		return checkLength(rule, cleanHTML(input, rule.AllowedTags))
	case KindUsername:
		return cleanUsername(rule, input)
	case KindEmail:
		return cleanEmail(rule, input)
	default:
		return checkLength(rule, cleanText(input))
	}
}

// HTML keeps the policy's allowed tags and strips everything else
func HTML(input string, policy Policy) (string, error) {
	if policy.Rule().Kind != KindHTML {
		return "", fmt.Errorf("sanitize: %s is not an HTML policy", policy)
	}
	return Apply(policy, input)
}

// Text strips all markup and control characters
func Text(input string, policy Policy) (string, error) {
	if policy.Rule().Kind != KindText {
		return "", fmt.Errorf("sanitize: %s is not a plain-text policy", policy)
	}
	return Apply(policy, input)
}

// UsernameOf normalizes a username: lowercase ASCII letters and digits only.
func UsernameOf(input string) (string, error) {
	return Apply(Username, input)
}

// EmailOf normalizes and validates an email address
func EmailOf(input string) (string, error) {
	return Apply(Email, input)
}

// Optional sanitizes a pointer field, leaving nil untouched
func Optional(policy Policy, input *string) (*string, error) {
	if input == nil {
		return nil, nil
	}
	out, err := Apply(policy, *input)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func checkLength(rule Rule, out string) (string, error) {
	n := utf8.RuneCountInString(out)
	if n < rule.MinLength {
		if rule.MinLength == 1 {
			return "", errors.NewFieldError(rule.Field, fmt.Sprintf("%s is required", rule.Field))
		}
		return "", errors.NewFieldError(rule.Field, fmt.Sprintf("%s must be at least %d characters", rule.Field, rule.MinLength))
	}
	if rule.MaxLength > 0 && n > rule.MaxLength {
		return "", errors.NewFieldError(rule.Field, fmt.Sprintf("%s must be at most %d characters", rule.Field, rule.MaxLength))
	}
	return out, nil
}

func cleanUsername(rule Rule, input string) (string, error) {
	var b strings.Builder
	for _, r := range strings.ToLower(input) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	out := b.String()
	n := len(out)
	if n < rule.MinLength || n > rule.MaxLength {
		return "", errors.NewFieldError(rule.Field,
			fmt.Sprintf("username must be %d-%d lowercase letters or digits", rule.MinLength, rule.MaxLength))
	}
	return out, nil
}

func cleanEmail(rule Rule, input string) (string, error) {
	out := strings.ToLower(strings.TrimSpace(input))
	if len(out) > rule.MaxLength || !emailPattern.MatchString(out) {
		return "", errors.NewFieldError(rule.Field, "email address is invalid")
	}
	return out, nil
}

// stripControl removes control characters except newline and tab, and
// normalizes line endings.
func stripControl(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == utf8.RuneError {
			return -1
		}
		return r
	}, s)
}
