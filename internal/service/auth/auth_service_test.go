package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beyond-pages/pkg/errors"
	"beyond-pages/pkg/logger"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func sign(t *testing.T, method jwt.SigningMethod, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func baseClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "7f1c2b1e-1111-4a4a-9c9c-000000000001",
		"email": "reader@example.com",
		"role":  "authenticated",
		"aud":   "authenticated",
		"iat":   testNow.Add(-time.Minute).Unix(),
		"exp":   testNow.Add(time.Hour).Unix(),
		"user_metadata": map[string]interface{}{
			"full_name":      "Jane Reader",
			"avatar_url":     "https://example.com/a.png",
			"email_verified": true,
		},
	}
}

func TestValidateToken(t *testing.T) {
	svc := newService(testSecret, logger.Nop(), func() time.Time { return testNow })

	token := sign(t, jwt.SigningMethodHS256, testSecret, baseClaims())
	user, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "7f1c2b1e-1111-4a4a-9c9c-000000000001", user.ID)
	assert.Equal(t, "reader@example.com", user.Email)
	assert.Equal(t, "authenticated", user.Role)
	assert.Equal(t, "Jane Reader", user.Name)
	assert.Equal(t, "https://example.com/a.png", user.AvatarURL)
	assert.True(t, user.EmailVerified)
}

func TestValidateToken_Rejected(t *testing.T) {
	svc := newService(testSecret, logger.Nop(), func() time.Time { return testNow })

	with := func(mutate func(c jwt.MapClaims)) jwt.MapClaims {
		c := baseClaims()
		mutate(c)
		return c
	}

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		message string
	}{
		{
			name:    "not a jwt",
			token:   func(t *testing.T) string { return "ya29.opaque-token" },
			message: "Unrecognized token format",
		},
		{
			name:    "wrong secret",
			token:   func(t *testing.T) string { return sign(t, jwt.SigningMethodHS256, "another-secret", baseClaims()) },
			message: "Invalid JWT token",
		},
		{
			name: "expired",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS256, testSecret, with(func(c jwt.MapClaims) { c["exp"] = testNow.Add(-time.Minute).Unix() }))
			},
			message: "Token has expired",
		},
		{
			name: "missing exp",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS256, testSecret, with(func(c jwt.MapClaims) { delete(c, "exp") }))
			},
			message: "Invalid JWT token",
		},
		{
			name: "missing sub",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS256, testSecret, with(func(c jwt.MapClaims) { delete(c, "sub") }))
			},
			message: "Invalid JWT token: no user identifier",
		},
		{
			name: "wrong audience",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS256, testSecret, with(func(c jwt.MapClaims) { c["aud"] = "other-app" }))
			},
			message: "Token not intended for this application",
		},
		{
			name: "anon key",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS256, testSecret, with(func(c jwt.MapClaims) { c["role"] = "anon" }))
			},
			message: "Sign in required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(context.Background(), tt.token(t))
			appErr, ok := errors.As(err)
			require.True(t, ok, "expected AppError, got %v", err)
			assert.Equal(t, errors.ErrorTypeAuthentication, appErr.Type)
			assert.Equal(t, tt.message, appErr.Message)
		})
	}
}

func TestValidateToken_NoSecret(t *testing.T) {
	svc := NewService("", logger.Nop())
	token := sign(t, jwt.SigningMethodHS256, testSecret, baseClaims())

	_, err := svc.ValidateToken(context.Background(), token)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuthentication))
}

func TestIsJWTToken(t *testing.T) {
	tests := []struct {
		token    string
		expected bool
	}{
		{"eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0.sig", true},
		{"ya29.A0AS3H6NexampleGoogleAccessToken", false},
		{"a.b.c.d", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, isJWTToken(tt.token), tt.token)
	}
}
