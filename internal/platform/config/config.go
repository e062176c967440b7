// Package config builds the gateway configuration from environment
// variables so main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config groups all gateway configuration.
type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	RateLimit RateLimitConfig
	Protocol  ProtocolConfig
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr string
}

// PostgresConfig selects the persistent store. An empty URL keeps the
// in-memory stores.
type PostgresConfig struct {
	URL string
}

// RedisConfig selects the shared replay guard. An empty URL keeps the
// in-process guard.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig selects the audit sink. Empty brokers keep the memory store.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// RateLimitConfig caps mutating requests per client IP inside a fixed
// window. A zero limit disables limiting.
type RateLimitConfig struct {
	Limit  int64
	Window time.Duration
}

// ProtocolConfig carries the settlement protocol's tunables, including the
// two documented design gaps kept behind switches (see DESIGN.md).
type ProtocolConfig struct {
	// MaxSignatureAge is the challenge expiry window.
	MaxSignatureAge time.Duration
	// EscrowTTL is the default escrow validity window.
	EscrowTTL time.Duration
	// EnforceExpiryOnBuy rejects purchases of expired domains when true.
	// The audited design allows them; default stays permissive.
	EnforceExpiryOnBuy bool
	// RenewalFee charges domain renewal when non-empty (decimal string).
	// The audited design renews for free; default stays permissive.
	RenewalFee string
	// Treasury receives renewal fees.
	Treasury string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Server: ServerConfig{
			Addr: envOr("ANS_ADDR", ":8080"),
		},
		Postgres: PostgresConfig{
			URL: os.Getenv("ANS_POSTGRES_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("ANS_REDIS_URL"),
			PoolSize:     envInt("ANS_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("ANS_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("ANS_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("ANS_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("ANS_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: envList("ANS_KAFKA_BROKERS"),
			Topic:   envOr("ANS_KAFKA_AUDIT_TOPIC", "ans.audit"),
		},
		RateLimit: RateLimitConfig{
			Limit:  int64(envInt("ANS_RATE_LIMIT", 120)),
			Window: envDuration("ANS_RATE_LIMIT_WINDOW", time.Minute),
		},
		Protocol: ProtocolConfig{
			MaxSignatureAge:    envDuration("ANS_MAX_SIGNATURE_AGE", 5*time.Minute),
			EscrowTTL:          envDuration("ANS_ESCROW_TTL", 24*time.Hour),
			EnforceExpiryOnBuy: os.Getenv("ANS_ENFORCE_EXPIRY_ON_BUY") == "true",
			RenewalFee:         os.Getenv("ANS_RENEWAL_FEE"),
			Treasury:           os.Getenv("ANS_TREASURY_WALLET"),
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
