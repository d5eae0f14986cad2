package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures process-level configuration for the feature host.
type Config struct {
	Addr          string
	JWTSigningKey string

	Redis     RedisConfig
	RateLimit RateLimitConfig

	// HandlerTimeout bounds how long a feature handler may run before the
	// pipeline fails the invocation.
	HandlerTimeout time.Duration

	// DefaultCacheTTL is used by cached fetches when a feature does not
	// specify its own TTL.
	DefaultCacheTTL time.Duration
}

// RedisConfig holds Redis connection settings. An empty URL means Redis is
// not configured and in-memory backends are used instead.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RateLimitConfig holds request rate limiting settings.
type RateLimitConfig struct {
	Disabled bool
	Limit    int
	Window   time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	addr := os.Getenv("FEATUREHOST_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Config{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		RateLimit: RateLimitConfig{
			Disabled: os.Getenv("RATELIMIT_DISABLED") == "true",
			Limit:    envInt("RATELIMIT_REQUESTS", 60),
			Window:   envDuration("RATELIMIT_WINDOW", time.Minute),
		},
		HandlerTimeout:  envDuration("HANDLER_TIMEOUT", 10*time.Second),
		DefaultCacheTTL: envDuration("CACHE_DEFAULT_TTL", time.Minute),
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
