// config/config.go - environment-driven application configuration
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	WSPort      string
	AppEnv      string
	DatabaseURL string

	JWTSecret string
	TokenTTL  time.Duration

	CORSOrigins       string
	AdminEmailPattern *regexp.Regexp

	RateLimitEnabled    bool
	RateLimitMax        int
	RateLimitWindow     time.Duration
	AuthRateLimitMax    int
	AuthRateLimitWindow time.Duration

	// AuditLog selects where audit entries go: "all", "db", "log" or "off".
	AuditLog string
}

// Load reads .env (if present) and the process environment. The returned
// bool reports whether a .env file was found.
func Load() (*Config, bool, error) {
	envLoaded := godotenv.Load() == nil

	pattern := getEnv("ADMIN_EMAIL_PATTERN", "^admin@")
	adminRe, err := regexp.Compile(pattern)
	if err != nil {
		return nil, envLoaded, fmt.Errorf("invalid ADMIN_EMAIL_PATTERN %q: %w", pattern, err)
	}

	cfg := &Config{
		Port:                getEnv("PORT", "3000"),
		WSPort:              getEnv("WS_PORT", "4000"),
		AppEnv:              getEnv("APP_ENV", "development"),
		DatabaseURL:         databaseURL(),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		TokenTTL:            time.Duration(getEnvInt("TOKEN_TTL_HOURS", 720)) * time.Hour,
		CORSOrigins:         getEnv("CORS_ORIGINS", "http://localhost:3000"),
		AdminEmailPattern:   adminRe,
		RateLimitEnabled:    !isFalse(os.Getenv("RATE_LIMIT_ENABLED")),
		RateLimitMax:        getEnvInt("RATE_LIMIT_MAX_REQUESTS", 100),
		RateLimitWindow:     time.Duration(getEnvInt("RATE_LIMIT_WINDOW_MS", 900000)) * time.Millisecond,
		AuthRateLimitMax:    getEnvInt("AUTH_RATE_LIMIT_MAX", 5),
		AuthRateLimitWindow: time.Duration(getEnvInt("AUTH_RATE_LIMIT_WINDOW_MS", 300000)) * time.Millisecond,
		AuditLog:            strings.ToLower(getEnv("AUDIT_LOG", "all")),
	}
	return cfg, envLoaded, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable must be set. Generate one with: openssl rand -base64 64")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters long")
	}
	switch c.AuditLog {
	case "all", "db", "log", "off":
	default:
		return fmt.Errorf("AUDIT_LOG must be one of all, db, log, off (got %q)", c.AuditLog)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func databaseURL() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", ""),
		getEnv("DB_NAME", "taskhub"),
		getEnv("DB_SSLMODE", "disable"),
	)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return def
}

func isFalse(val string) bool {
	val = strings.ToLower(strings.TrimSpace(val))
	return val == "false" || val == "0" || val == "no"
}
