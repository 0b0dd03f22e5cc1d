package server

import (
	"os"
	"strconv"
	"time"
)

// Config controls the development backend
type Config struct {
	// DatabaseURL selects the store: a postgres:// URL uses PostgreSQL,
	// anything else is a sqlite path. Empty means an in-memory sqlite database.
	DatabaseURL string

	JWTSecret []byte
	TokenTTL  time.Duration

	// Admin account created on start when both are set
	AdminEmail    string
	AdminPassword string

	TrialsPerUser     int
	GenerationEnabled bool // reported as api_key_configured

	CodeTTL      time.Duration
	SendInterval time.Duration
	MaxAttempts  int
	ExposeCodes  bool // return codes in responses instead of emailing them

	Now func() time.Time
}

// DefaultConfig returns development defaults with environment overrides
func DefaultConfig() Config {
	return Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		JWTSecret:         []byte(getEnv("JOYFUL_JWT_SECRET", "joyful-dev-secret")),
		TokenTTL:          getDuration("JOYFUL_TOKEN_TTL", 24*time.Hour),
		AdminEmail:        os.Getenv("JOYFUL_ADMIN_EMAIL"),
		AdminPassword:     os.Getenv("JOYFUL_ADMIN_PASSWORD"),
		TrialsPerUser:     getInt("JOYFUL_TRIALS_PER_USER", 5),
		GenerationEnabled: getEnv("JOYFUL_GENERATION_ENABLED", "true") == "true",
		CodeTTL:           10 * time.Minute,
		SendInterval:      60 * time.Second,
		MaxAttempts:       3,
		ExposeCodes:       true,
		Now:               time.Now,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}
