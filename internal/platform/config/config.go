package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
}

// RedisConfig captures connection settings for the lock service.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig captures the certification store connection.
type PostgresConfig struct {
	DSN string
}

// KafkaConfig captures the audit event stream settings. Empty brokers means
// audit events stay local.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("ATTEST_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
	}
}

// RedisFromEnv builds a RedisConfig from environment variables.
func RedisFromEnv() RedisConfig {
	return RedisConfig{
		URL:          os.Getenv("ATTEST_REDIS_URL"),
		PoolSize:     envInt("ATTEST_REDIS_POOL_SIZE", 10),
		MinIdleConns: envInt("ATTEST_REDIS_MIN_IDLE", 2),
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// PostgresFromEnv builds a PostgresConfig from environment variables. An
// empty DSN selects the in-memory store.
func PostgresFromEnv() PostgresConfig {
	return PostgresConfig{DSN: os.Getenv("ATTEST_POSTGRES_DSN")}
}

// KafkaFromEnv builds a KafkaConfig from environment variables.
func KafkaFromEnv() KafkaConfig {
	brokers := os.Getenv("ATTEST_KAFKA_BROKERS")
	topic := os.Getenv("ATTEST_KAFKA_AUDIT_TOPIC")
	if topic == "" {
		topic = "attest.audit.events"
	}
	cfg := KafkaConfig{Topic: topic}
	if brokers != "" {
		cfg.Brokers = strings.Split(brokers, ",")
	}
	return cfg
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
