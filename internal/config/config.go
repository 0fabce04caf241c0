// Package config provides configuration management for the decide service.
// It handles loading configuration from environment variables with sensible
// defaults and validates the configuration so the service starts safely.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - LOG_FILE: Optional log file path (default: stdout)
//
// Rate Limiting:
//   - RATE_LIMIT_ENABLED: Enable rate limiting (default: true)
//   - RATE_LIMIT_PUBLIC: Public endpoint requests per window (default: 60)
//   - RATE_LIMIT_PUBLIC_WINDOW: Public endpoint window (default: 60s)
//   - RATE_LIMIT_WORKFLOW: Workflow endpoint requests per window (default: 20)
//   - RATE_LIMIT_WORKFLOW_WINDOW: Workflow endpoint window (default: 60s)
//   - RATE_LIMIT_ADMIN: Admin endpoint requests per window (default: 10)
//   - RATE_LIMIT_ADMIN_WINDOW: Admin endpoint window (default: 60s)
//
// Idempotency:
//   - IDEMPOTENCY_TTL: Stored response lifetime (default: 24h)
//   - IDEMPOTENCY_BACKEND: "memory" or "redis" (default: memory)
//
// Redis (only used when IDEMPOTENCY_BACKEND=redis or RATE_LIMIT_BACKEND=redis):
//   - RATE_LIMIT_BACKEND: "memory" or "redis" (default: memory)
//   - REDIS_ADDRESS: Redis server address (default: localhost:6379)
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//
// Security:
//   - JWT_SECRET: Admin token signing secret (required, minimum 32 characters)
//
// Policy Page Watch:
//   - WATCH_ENABLED: Enable scheduled policy page checks (default: false)
//   - WATCH_SCHEDULE: Cron schedule for checks (default: "@hourly")
//   - WATCH_TIMEOUT: Per-page fetch timeout (default: 15s)
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the decide service.
// All fields correspond to environment variables that can be set to
// override the default values.
type Config struct {
	// Application settings
	Port     string
	LogLevel string
	LogFile  string

	// Rate limiting, one quota per endpoint class
	RateLimitEnabled   bool
	RateLimitBackend   string
	PublicRateLimit    int
	PublicRateWindow   time.Duration
	WorkflowRateLimit  int
	WorkflowRateWindow time.Duration
	AdminRateLimit     int
	AdminRateWindow    time.Duration

	// Idempotency cache
	IdempotencyTTL     time.Duration
	IdempotencyBackend string

	// Redis, shared by the redis-backed limiter and idempotency store
	RedisAddress  string
	RedisPassword string
	RedisDB       int

	// Admin authentication
	JWTSecret string

	// Policy page change detection
	WatchEnabled  bool
	WatchSchedule string
	WatchTimeout  time.Duration
}

// Load creates a new Config instance with values loaded from environment
// variables. Missing variables fall back to defaults. Load does not validate;
// call Validate() on the returned Config before use.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		RateLimitEnabled:   getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitBackend:   getEnv("RATE_LIMIT_BACKEND", "memory"),
		PublicRateLimit:    getEnvInt("RATE_LIMIT_PUBLIC", 60),
		PublicRateWindow:   getEnvDuration("RATE_LIMIT_PUBLIC_WINDOW", time.Minute),
		WorkflowRateLimit:  getEnvInt("RATE_LIMIT_WORKFLOW", 20),
		WorkflowRateWindow: getEnvDuration("RATE_LIMIT_WORKFLOW_WINDOW", time.Minute),
		AdminRateLimit:     getEnvInt("RATE_LIMIT_ADMIN", 10),
		AdminRateWindow:    getEnvDuration("RATE_LIMIT_ADMIN_WINDOW", time.Minute),

		IdempotencyTTL:     getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		IdempotencyBackend: getEnv("IDEMPOTENCY_BACKEND", "memory"),

		RedisAddress:  getEnv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret: getEnv("JWT_SECRET", ""),

		WatchEnabled:  getEnvBool("WATCH_ENABLED", false),
		WatchSchedule: getEnv("WATCH_SCHEDULE", "@hourly"),
		WatchTimeout:  getEnvDuration("WATCH_TIMEOUT", 15*time.Second),
	}
}

// Validate checks that the configuration is usable. It returns an error
// describing the first problem found.
func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid PORT %q: must be numeric", c.Port)
	}

	if c.RateLimitEnabled {
		for name, pair := range map[string]struct {
			limit  int
			window time.Duration
		}{
			"public":   {c.PublicRateLimit, c.PublicRateWindow},
			"workflow": {c.WorkflowRateLimit, c.WorkflowRateWindow},
			"admin":    {c.AdminRateLimit, c.AdminRateWindow},
		} {
			if pair.limit <= 0 {
				return fmt.Errorf("rate limit for %s endpoints must be positive, got %d", name, pair.limit)
			}
			if pair.window <= 0 {
				return fmt.Errorf("rate limit window for %s endpoints must be positive, got %v", name, pair.window)
			}
		}
	}

	switch c.RateLimitBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid RATE_LIMIT_BACKEND %q: must be memory or redis", c.RateLimitBackend)
	}

	switch c.IdempotencyBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid IDEMPOTENCY_BACKEND %q: must be memory or redis", c.IdempotencyBackend)
	}

	if c.IdempotencyTTL <= 0 {
		return fmt.Errorf("IDEMPOTENCY_TTL must be positive, got %v", c.IdempotencyTTL)
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters, got %d", len(c.JWTSecret))
	}

	if c.RedisDB < 0 || c.RedisDB > 15 {
		return fmt.Errorf("REDIS_DB must be between 0 and 15, got %d", c.RedisDB)
	}

	if c.WatchEnabled && c.WatchTimeout <= 0 {
		return fmt.Errorf("WATCH_TIMEOUT must be positive, got %v", c.WatchTimeout)
	}

	return nil
}

// NeedsRedis reports whether any configured backend requires a Redis client.
func (c *Config) NeedsRedis() bool {
	return c.RateLimitBackend == "redis" || c.IdempotencyBackend == "redis"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
