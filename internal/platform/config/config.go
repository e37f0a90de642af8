// Package config builds process configuration from environment variables so
// main stays lean. Every section has development defaults; production
// deployments override them.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates all sections.
type Config struct {
	Server    Server
	Postgres  Postgres
	Redis     Redis
	Auth      Auth
	TTS       TTS
	Audit     Audit
	RateLimit RateLimit
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	RequestTimeout time.Duration
}

// Postgres configures the document store and audit store. An empty URL keeps
// the process on in-memory stores (dev and tests).
type Postgres struct {
	URL          string
	StoreTimeout time.Duration
}

// Redis configures the rate limiter backend. Empty URL disables rate limiting.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Auth configures bearer token verification.
type Auth struct {
	JWTSigningKey string
	Issuer        string
	Audience      string
}

// TTS configures the ElevenLabs proxy.
type TTS struct {
	APIKey   string
	BaseURL  string
	AudioDir string
}

// Audit configures the audit trail pipeline.
type Audit struct {
	BufferSize   int
	KafkaBrokers []string
	KafkaTopic   string
}

// RateLimit configures the per-IP fixed window limiter.
type RateLimit struct {
	Window      time.Duration
	MaxRequests int
}

// FromEnv builds the full configuration from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:           envOr("SERENYX_ADDR", ":8080"),
			RequestTimeout: envDuration("SERENYX_REQUEST_TIMEOUT", 30*time.Second),
		},
		Postgres: Postgres{
			URL:          os.Getenv("DATABASE_URL"),
			StoreTimeout: envDuration("SERENYX_STORE_TIMEOUT", 10*time.Second),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Auth: Auth{
			// Default for development - must be overridden in production.
			JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:        envOr("JWT_ISSUER", "serenyx"),
			Audience:      envOr("JWT_AUDIENCE", "serenyx-api"),
		},
		TTS: TTS{
			APIKey:   os.Getenv("ELEVENLABS_API_KEY"),
			BaseURL:  envOr("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io/v1"),
			AudioDir: envOr("SERENYX_AUDIO_DIR", "./data/audio"),
		},
		Audit: Audit{
			BufferSize:   envInt("AUDIT_BUFFER_SIZE", 1024),
			KafkaBrokers: envList("AUDIT_KAFKA_BROKERS"),
			KafkaTopic:   envOr("AUDIT_KAFKA_TOPIC", "serenyx.audit"),
		},
		RateLimit: RateLimit{
			Window:      envDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
			MaxRequests: envInt("RATE_LIMIT_MAX", 100),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
