package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application
type Config struct {
	Port              string
	AllowedOrigins    []string
	TrustedProxies    []string // addresses or CIDR blocks allowed to set X-Forwarded-For
	LogLevel          string
	LogFormat         string // json or console
	Environment       string
	DatabaseURL       string
	DatabaseReadURL   string // Read replica URL for SELECT queries
	RedisURL          string
	SupabaseURL       string
	SupabaseAnonKey   string
	SupabaseJWTSecret string

	Storage StorageConfig
	Search  SearchConfig
	Image   ImageConfig
	Guest   GuestConfig
}

// StorageConfig points at the S3-compatible bucket used for covers and avatars
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	Bucket    string
	PublicURL string // base URL objects are served from
}

// Enabled reports whether object storage is configured
func (c StorageConfig) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

type SearchConfig struct {
	URL       string
	MasterKey string
}

// ImageConfig configures the third-party image-generation API
type ImageConfig struct {
	APIURL string
	APIKey string
	Model  string
	Size   string
}

// Enabled reports whether cover generation can run
func (c ImageConfig) Enabled() bool {
	return c.APIURL != "" && c.APIKey != ""
}

// GuestConfig holds guest session and rate-limit settings
type GuestConfig struct {
	SessionTTL  time.Duration
	Window      time.Duration
	PostLimit   int
	ReplyLimit  int
	IPRateLimit int // requests per window per client IP, 0 disables
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:              getEnv("PORT", "8080"),
		AllowedOrigins:    parseList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:8080")),
		TrustedProxies:    parseList(getEnv("TRUSTED_PROXIES", "")),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		Environment:       getEnv("ENVIRONMENT", "production"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		DatabaseReadURL:   getEnv("DATABASE_READ_URL", getEnv("DATABASE_URL", "")), // Falls back to write DB if not set
		RedisURL:          getEnv("REDIS_URL", ""),
		SupabaseURL:       getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:   getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseJWTSecret: getEnv("SUPABASE_JWT_SECRET", ""),
		Storage: StorageConfig{
			Endpoint:  getEnv("STORAGE_ENDPOINT", ""),
			AccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey: getEnv("STORAGE_SECRET_KEY", ""),
			Region:    getEnv("STORAGE_REGION", "us-east-1"),
			UseSSL:    getBoolEnv("STORAGE_USE_SSL", true),
			Bucket:    getEnv("STORAGE_BUCKET", "beyond-pages"),
			PublicURL: strings.TrimRight(getEnv("STORAGE_PUBLIC_URL", ""), "/"),
		},
		Search: SearchConfig{
			URL:       getEnv("MEILI_URL", ""),
			MasterKey: getEnv("MEILI_MASTER_KEY", ""),
		},
		Image: ImageConfig{
			APIURL: getEnv("IMAGE_API_URL", "https://api.openai.com/v1/images/generations"),
			APIKey: getEnv("IMAGE_API_KEY", ""),
			Model:  getEnv("IMAGE_MODEL", "dall-e-3"),
			Size:   getEnv("IMAGE_SIZE", "1024x1024"),
		},
		Guest: GuestConfig{
			SessionTTL:  time.Duration(getIntEnv("GUEST_SESSION_TTL_HOURS", 24)) * time.Hour,
			Window:      time.Duration(getIntEnv("RATE_LIMIT_WINDOW_MINUTES", 60)) * time.Minute,
			PostLimit:   getIntEnv("GUEST_POST_LIMIT", 5),
			ReplyLimit:  getIntEnv("GUEST_REPLY_LIMIT", 10),
			IPRateLimit: getIntEnv("IP_RATE_LIMIT", 300),
		},
	}, nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// parseList parses a comma-separated value into a slice
func parseList(value string) []string {
	if value == "" {
		return []string{}
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getIntEnv gets a non-negative integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return fallback
}
