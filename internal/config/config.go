package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

type Config struct {
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	JWTExpiry   time.Duration

	// BaseURL is the externally visible origin used to build QR payloads
	// (BaseURL + "/a/" + token). Stored without a trailing slash.
	BaseURL string

	// MediaDir is where uploaded photos are stored
	MediaDir string
}

func Load() *Config {
	config := &Config{
		JWTSecret:   getEnv("JWT_SECRET", defaultJWTSecret),
		JWTIssuer:   getEnv("JWT_ISS", "sitekeeper-api"),
		JWTAudience: getEnv("JWT_AUD", "sitekeeper-api"),
		JWTExpiry:   24 * time.Hour, // Default to 24 hours
		BaseURL:     strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		MediaDir:    getEnv("MEDIA_DIR", "media"),
	}

	// Parse JWT expiry from environment if provided
	if expiryStr := os.Getenv("JWT_EXPIRY"); expiryStr != "" {
		if expiry, err := time.ParseDuration(expiryStr); err == nil {
			config.JWTExpiry = expiry
		}
	}

	return config
}

// Validate checks the configuration for values that would be unsafe or
// unusable at runtime
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters, got %d", len(c.JWTSecret))
	}
	if os.Getenv("ENVIRONMENT") == "production" && c.JWTSecret == defaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be changed from the default in production")
	}
	if c.JWTIssuer == "" {
		return fmt.Errorf("JWT_ISS must not be empty")
	}
	if c.JWTAudience == "" {
		return fmt.Errorf("JWT_AUD must not be empty")
	}
	if c.JWTExpiry < time.Minute {
		return fmt.Errorf("JWT_EXPIRY must be at least 1 minute, got %v", c.JWTExpiry)
	}
	if c.JWTExpiry > 30*24*time.Hour {
		return fmt.Errorf("JWT_EXPIRY must be at most 30 days, got %v", c.JWTExpiry)
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BASE_URL must be an absolute URL, got %q", c.BaseURL)
	}
	if c.MediaDir == "" {
		return fmt.Errorf("MEDIA_DIR must not be empty")
	}
	return nil
}

// LoadAndValidate loads the configuration and fails fast on invalid values
func LoadAndValidate() (*Config, error) {
	cfg := Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// QRPayload builds the exact string encoded into an asset's QR code
func (c *Config) QRPayload(token string) string {
	return c.BaseURL + "/a/" + token
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
