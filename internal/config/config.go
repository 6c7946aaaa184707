package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the checkout service
// Following 12-factor app principles, all config is loaded from environment variables
type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Backend  BackendConfig
	Checkout CheckoutConfig
	Coupon   CouponConfig
	LogLevel string
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
}

type AuthConfig struct {
	APIKeys []string // Valid API keys for authentication
}

// BackendConfig points at the store backend that owns carts, coupons,
// orders and gateway order creation.
type BackendConfig struct {
	BaseURL string
	Timeout int // seconds, per upstream request
}

type CheckoutConfig struct {
	Currency   string // ISO 4217 code used for gateway orders
	SessionTTL int    // seconds a checkout session stays in memory
}

// CouponConfig lists published coupon-code files used only for advisory
// hints; leave empty to disable the prefilter.
type CouponConfig struct {
	HintFileURLs []string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			ReadTimeout:     getEnvAsInt("READ_TIMEOUT", 15),
			WriteTimeout:    getEnvAsInt("WRITE_TIMEOUT", 15),
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 30),
		},
		Auth: AuthConfig{
			APIKeys: getEnvAsSlice("API_KEYS", []string{"apitest"}),
		},
		Backend: BackendConfig{
			BaseURL: getEnv("BACKEND_BASE_URL", "http://localhost:5000"),
			Timeout: getEnvAsInt("BACKEND_TIMEOUT", 15),
		},
		Checkout: CheckoutConfig{
			Currency:   getEnv("CURRENCY", "INR"),
			SessionTTL: getEnvAsInt("SESSION_TTL", 3600),
		},
		Coupon: CouponConfig{
			HintFileURLs: getEnvAsSlice("COUPON_HINT_URLS", nil),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if len(c.Auth.APIKeys) == 0 {
		return fmt.Errorf("at least one API key must be configured")
	}

	if c.Backend.BaseURL == "" {
		return fmt.Errorf("BACKEND_BASE_URL is required")
	}
	if _, err := url.ParseRequestURI(c.Backend.BaseURL); err != nil {
		return fmt.Errorf("invalid BACKEND_BASE_URL: %w", err)
	}

	if len(c.Checkout.Currency) != 3 {
		return fmt.Errorf("invalid currency code: %s", c.Checkout.Currency)
	}
	if c.Checkout.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %d", c.Checkout.SessionTTL)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	return strings.Split(valueStr, ",")
}
