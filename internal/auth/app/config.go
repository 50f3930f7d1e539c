package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	JWTSecret    string        // Required: HS256 secret, at least 32 bytes
	Issuer       string        // Issuer claim (default: clubfig-auth)
	Audience     []string      // Audience claim, comma separated (default: clubfig-web)
	AccessTTL    time.Duration // Access token lifetime (default: 15m)
	RefreshTTL   time.Duration // Refresh token and cookie lifetime (default: 7d)
	JWTLeeway    time.Duration // Clock skew allowed on exp/nbf (default: 0)
	DBDriver     string        // sqlite or postgres (default: sqlite)
	DatabaseFile string        // SQLite database file (default: ./auth.db)
	DatabaseURL  string        // Postgres DSN, required for the postgres driver
	PepperFile   string        // File holding the password pepper (default: ./pepper)

	CookieSecure bool // Secure flag on the refresh cookie (default: true)

	RedisAddr              string        // Optional: shared login throttle
	LoginThrottleAttempts  int           // Login attempts per tenant and IP per window (default: 20)
	LoginThrottleWindow    time.Duration // (default: 15m)
	RefreshReuseRevokesAll bool          // Revoke all sessions when a rotated token is replayed (default: false)

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
	StatsInterval       time.Duration // Refresh token gauge interval (default: 1m)
}

// LoadConfig reads the environment, after loading .env when one exists.
func LoadConfig() Config {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	return Config{
		JWTSecret:    os.Getenv("AUTH_JWT_SECRET"),
		Issuer:       getEnvOrDefault("AUTH_ISSUER", "clubfig-auth"),
		Audience:     splitList(getEnvOrDefault("AUTH_AUDIENCE", "clubfig-web")),
		AccessTTL:    getEnvDurationOrDefault("AUTH_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:   getEnvDurationOrDefault("AUTH_REFRESH_TTL", 7*24*time.Hour),
		JWTLeeway:    getEnvDurationOrDefault("AUTH_JWT_LEEWAY", 0),
		DBDriver:     strings.ToLower(getEnvOrDefault("AUTH_DB_DRIVER", "sqlite")),
		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		DatabaseURL:  os.Getenv("AUTH_DATABASE_URL"),
		PepperFile:   getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		CookieSecure: getEnvBoolOrDefault("AUTH_COOKIE_SECURE", true),

		RedisAddr:              os.Getenv("AUTH_REDIS_ADDR"),
		LoginThrottleAttempts:  getEnvIntOrDefault("AUTH_LOGIN_THROTTLE_ATTEMPTS", 20),
		LoginThrottleWindow:    getEnvDurationOrDefault("AUTH_LOGIN_THROTTLE_WINDOW", 15*time.Minute),
		RefreshReuseRevokesAll: getEnvBoolOrDefault("AUTH_REFRESH_REUSE_REVOKES_ALL", false),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		StatsInterval:       getEnvDurationOrDefault("STATS_INTERVAL", time.Minute),
	}
}

var (
	ErrMissingSecret = errors.New("AUTH_JWT_SECRET must be at least 32 bytes")
	ErrUnknownDriver = errors.New("AUTH_DB_DRIVER must be sqlite or postgres")
	ErrMissingDSN    = errors.New("AUTH_DATABASE_URL is required for the postgres driver")
	ErrNoAudience    = errors.New("AUTH_AUDIENCE must name at least one audience")
)

func (c Config) Validate() error {
	if len(c.JWTSecret) < 32 {
		return ErrMissingSecret
	}
	if len(c.Audience) == 0 {
		return ErrNoAudience
	}
	if c.JWTLeeway < 0 {
		return errors.New("AUTH_JWT_LEEWAY must not be negative")
	}
	switch c.DBDriver {
	case "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return ErrMissingDSN
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.DBDriver)
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.LoginThrottleAttempts <= 0 || c.LoginThrottleWindow <= 0 {
		return errors.New("login throttle attempts and window must be positive")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
