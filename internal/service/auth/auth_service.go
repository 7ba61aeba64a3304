package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"beyond-pages/internal/domain"
	"beyond-pages/internal/service"
	"beyond-pages/pkg/errors"
	"beyond-pages/pkg/logger"
)

// authenticatedAudience is the aud claim Supabase puts on user sessions
const authenticatedAudience = "authenticated"

// Service implements the AuthService interface
type Service struct {
	jwtSecret []byte
	logger    *logger.Logger
	now       func() time.Time
}

// NewService creates a new auth service verifying tokens signed with the
// project's JWT secret
func NewService(jwtSecret string, logger *logger.Logger) service.AuthService {
	return newService(jwtSecret, logger, time.Now)
}

func newService(jwtSecret string, logger *logger.Logger, now func() time.Time) *Service {
	return &Service{
		jwtSecret: []byte(jwtSecret),
		logger:    logger,
		now:       now,
	}
}

// ValidateToken validates a Supabase access token and returns the caller
func (s *Service) ValidateToken(ctx context.Context, token string) (*domain.User, error) {
	token = strings.TrimSpace(token)
	if !isJWTToken(token) {
		return nil, errors.NewAuthenticationError("Unrecognized token format")
	}

	claims, err := s.validateSupabaseJWT(token)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:            claims.Sub,
		Email:         claims.Email,
		Role:          claims.Role,
		EmailVerified: getBoolValue(claims.UserMetadata, "email_verified"),
		Name:          getStringValue(claims.UserMetadata, "name"),
		AvatarURL:     getStringValue(claims.UserMetadata, "avatar_url"),
	}
	if user.Name == "" {
		user.Name = getStringValue(claims.UserMetadata, "full_name")
	}

	s.logger.WithField("user_id", user.ID).Debug("Supabase JWT token validated successfully")
	return user, nil
}

// validateSupabaseJWT validates a Supabase JWT token with signature verification
func (s *Service) validateSupabaseJWT(tokenString string) (*domain.AuthClaims, error) {
	if len(s.jwtSecret) == 0 {
		s.logger.Error("SUPABASE_JWT_SECRET not configured")
		return nil, errors.NewAuthenticationError("JWT validation not configured")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			s.logger.Debug("JWT token has expired")
			return nil, errors.NewAuthenticationError("Token has expired")
		}
		s.logger.WithError(err).Warn("Failed to parse/validate JWT token")
		return nil, errors.NewAuthenticationError("Invalid JWT token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.NewAuthenticationError("Invalid JWT token")
	}

	claims := &domain.AuthClaims{
		Sub:   getStringValue(mapClaims, "sub"),
		Email: getStringValue(mapClaims, "email"),
		Role:  getStringValue(mapClaims, "role"),
		Iss:   getStringValue(mapClaims, "iss"),
		Iat:   getInt64Value(mapClaims, "iat"),
		Exp:   getInt64Value(mapClaims, "exp"),
	}
	if meta, ok := mapClaims["user_metadata"].(map[string]interface{}); ok {
		claims.UserMetadata = meta
	}

	aud, _ := mapClaims.GetAudience()
	if len(aud) > 0 {
		claims.Aud = aud[0]
		if !containsString(aud, authenticatedAudience) {
			return nil, errors.NewAuthenticationError("Token not intended for this application")
		}
	}

	if claims.Sub == "" {
		s.logger.Warn("No user identifier found in JWT token")
		return nil, errors.NewAuthenticationError("Invalid JWT token: no user identifier")
	}
	if claims.Role == "anon" {
		return nil, errors.NewAuthenticationError("Sign in required")
	}
	return claims, nil
}

func isJWTToken(token string) bool {
	return token != "" && strings.Count(token, ".") == 2
}

// Helper functions to safely extract values from claim maps
func getStringValue(m map[string]interface{}, key string) string {
	if val, ok := m[key].(string); ok {
		return val
	}
	return ""
}

func getBoolValue(m map[string]interface{}, key string) bool {
	if val, ok := m[key].(bool); ok {
		return val
	}
	return false
}

func getInt64Value(m map[string]interface{}, key string) int64 {
	if val, ok := m[key].(float64); ok {
		return int64(val)
	}
	return 0
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
