package domain

// User is the authenticated caller, taken from a verified Supabase JWT
type User struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	Name          string `json:"name"`
	AvatarURL     string `json:"avatar_url"`
	EmailVerified bool   `json:"email_verified"`
}

// AuthClaims represents the Supabase access token claims
type AuthClaims struct {
	Sub          string                 `json:"sub"`
	Email        string                 `json:"email"`
	Role         string                 `json:"role"`
	Aud          string                 `json:"aud"`
	Iss          string                 `json:"iss"`
	Iat          int64                  `json:"iat"`
	Exp          int64                  `json:"exp"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
}
