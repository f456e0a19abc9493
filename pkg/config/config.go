package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv   string
	LogLevel string
	HTTPAddr string

	// Database
	DatabaseURL string
	SQLitePath  string

	// Redis
	RedisURL string

	// RabbitMQ
	RabbitMQURL string

	// Sessions
	SessionSecret         string
	SessionTTL            time.Duration
	CartTTL               time.Duration
	IdentityLookupTimeout time.Duration
	CookieSecure          bool

	// SMS
	SMSAPIURL    string
	SMSAccountID string
	SMSAuthToken string
	SMSFrom      string

	// Bootstrap
	AdminPhone string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		HTTPAddr: getEnv("HTTP_ADDR", "0.0.0.0:8080"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		SessionSecret:         getEnv("SESSION_SECRET", ""),
		SessionTTL:            getDurationEnv("SESSION_TTL", 30*24*time.Hour),
		CartTTL:               getDurationEnv("CART_TTL", 14*24*time.Hour),
		IdentityLookupTimeout: getDurationEnv("IDENTITY_LOOKUP_TIMEOUT", 2*time.Second),
		CookieSecure:          getBoolEnv("COOKIE_SECURE", false),

		SMSAPIURL:    getEnv("SMS_API_URL", ""),
		SMSAccountID: getEnv("SMS_ACCOUNT_ID", ""),
		SMSAuthToken: getEnv("SMS_AUTH_TOKEN", ""),
		SMSFrom:      getEnv("SMS_FROM", ""),

		AdminPhone: getEnv("THERMAE_ADMIN_PHONE", ""),
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// SMSEnabled reports whether a real SMS provider is configured.
func (c *Config) SMSEnabled() bool {
	return c.SMSAPIURL != "" && c.SMSAccountID != "" && c.SMSAuthToken != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
