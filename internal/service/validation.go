package service

import (
	"net/url"
	"strings"

	"beyond-pages/pkg/errors"
)

const maxURLLength = 2048

// fieldMessage keeps a sanitizer's user-facing message
func fieldMessage(err error, fallback string) string {
	if appErr, ok := errors.As(err); ok {
		return appErr.Message
	}
	return fallback
}

// normalizeURL accepts absolute http(s) URLs. Blank input clears the field.
func normalizeURL(raw, field string) (*string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if len(raw) > maxURLLength {
		return nil, errors.NewFieldError(field, "URL is too long")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.NewFieldError(field, "Must be an http or https URL")
	}
	out := u.String()
	return &out, nil
}

// requireID rejects empty path identifiers
func requireID(id, field string) error {
	if strings.TrimSpace(id) == "" {
		return errors.NewFieldError(field, field+" is required")
	}
	return nil
}
