// Package config builds process configuration from environment variables so
// main stays lean. All tunables of the admission and identity layer live
// here; nothing derives configuration internally.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "portalx/pkg/platform/strings"
)

// Config captures server level configuration.
type Config struct {
	Addr string
	Env  string

	DatabaseURL string
	DBTimeout   time.Duration

	Redis RedisConfig

	JWTSecret string
	JWTExpiry time.Duration

	UserAccessCode  string
	AdminAccessCode string

	BcryptCost int

	RateLimitDisabled bool

	TokenCacheSize int
	TokenCacheTTL  time.Duration

	AdminGrantTTL    time.Duration
	AccessSessionTTL time.Duration

	KafkaBrokers    []string
	KafkaAuditTopic string

	ShutdownTimeout time.Duration
}

// RedisConfig holds connection settings for the optional Redis rate-limit
// backend. An empty URL means the in-memory store is used.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// IsProduction reports whether the process runs with production hardening
// (generic error bodies, JSON logs).
func (c Config) IsProduction() bool { return c.Env == "production" }

// FromEnv builds a Config from environment variables with development
// defaults. Secrets default to obviously-fake values that must be overridden
// in production.
func FromEnv() Config {
	return Config{
		Addr: getString("PORTALX_ADDR", ":"+getString("PORT", "8080")),
		Env:  getString("PORTALX_ENV", "development"),

		DatabaseURL: getString("DATABASE_URL", ""),
		DBTimeout:   getDuration("DB_TIMEOUT", 5*time.Second),

		Redis: RedisConfig{
			URL:          getString("REDIS_URL", ""),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},

		JWTSecret: getString("JWT_SECRET", "dev-secret-change-in-production"),
		JWTExpiry: getDuration("JWT_EXPIRES_IN", 7*24*time.Hour),

		UserAccessCode:  getString("USER_ACCESS_CODE", ""),
		AdminAccessCode: getString("ADMIN_ACCESS_CODE", ""),

		BcryptCost: getInt("BCRYPT_ROUNDS", 10),

		RateLimitDisabled: getBool("RATE_LIMIT_DISABLED", false),

		TokenCacheSize: getInt("TOKEN_CACHE_SIZE", 1000),
		TokenCacheTTL:  getDuration("TOKEN_CACHE_TTL", 5*time.Minute),

		AdminGrantTTL:    getDuration("ADMIN_GRANT_TTL", 10*time.Minute),
		AccessSessionTTL: getDuration("ACCESS_SESSION_TTL", 24*time.Hour),

		KafkaBrokers:    getList("KAFKA_BROKERS"),
		KafkaAuditTopic: getString("KAFKA_AUDIT_TOPIC", "portalx.audit.security"),

		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	return pstrings.DedupeAndTrim(strings.Split(v, ","))
}
