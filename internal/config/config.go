package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the gateway.
type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	SQLitePath  string
	RedisURL    string

	// Protocol settings
	Chain        string        // chain family for transaction address checks
	TokenSecret  string        // HMAC key for bearer tokens
	TokenTTL     time.Duration // bearer token lifetime
	ChallengeTTL time.Duration // how long an issued challenge stays redeemable
	WalletSeed   string        // base64 Ed25519 seed for the gateway wallet
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		Env:          getEnv("ENV", "development"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		SQLitePath:   os.Getenv("SQLITE_PATH"),
		RedisURL:     os.Getenv("REDIS_URL"),
		Chain:        getEnv("CHAIN", "ethereum"),
		TokenSecret:  os.Getenv("TOKEN_SECRET"),
		TokenTTL:     getDuration("TOKEN_TTL_SECONDS", time.Hour),
		ChallengeTTL: getDuration("CHALLENGE_TTL_SECONDS", 2*time.Minute),
		WalletSeed:   os.Getenv("WALLET_SEED"),
	}

	// In production, require the external stores and a real token key
	if cfg.Env == "production" {
		if cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required in production")
		}
		if cfg.RedisURL == "" {
			panic("REDIS_URL is required in production")
		}
		if cfg.TokenSecret == "" {
			panic("TOKEN_SECRET is required in production")
		}
	}
	if cfg.TokenSecret == "" {
		cfg.TokenSecret = "dev-only-token-secret"
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
