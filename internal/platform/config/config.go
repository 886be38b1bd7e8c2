package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// DevSigningKey is the JWT key used when no key is configured and the server
// runs entirely in-memory. It must never reach a deployment backed by real
// storage; Validate enforces that.
const DevSigningKey = "dev-secret-key-change-in-production"

// Server captures process-level configuration for the portal backend.
type Server struct {
	Addr          string
	JWTSigningKey string

	PostgresURL string
	Redis       RedisConfig

	// Kafka mirror of committed transitions; empty brokers disable it.
	KafkaBrokers []string
	KafkaTopic   string

	// TransitionRetries bounds the read-guard-write cycle on conflicting
	// concurrent transitions before surfacing the conflict to the caller.
	TransitionRetries int

	// DraftDebounce is the autosave coalescing window; DraftTTL bounds how
	// long an abandoned draft survives.
	DraftDebounce time.Duration
	DraftTTL      time.Duration
}

// RedisConfig carries connection settings for the draft session store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("IPREGISTRY_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = strings.Split(v, ",")
	}
	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		topic = "ipregistry.transitions"
	}

	return Server{
		Addr:          addr,
		JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),
		PostgresURL:   os.Getenv("POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		KafkaBrokers:      brokers,
		KafkaTopic:        topic,
		TransitionRetries: envInt("TRANSITION_RETRIES", 3),
		DraftDebounce:     envDuration("DRAFT_DEBOUNCE", time.Second),
		DraftTTL:          envDuration("DRAFT_TTL", 7*24*time.Hour),
	}
}

// Validate rejects configurations that must not start. A server pointed at
// real storage with no signing key would otherwise run with a well-known
// token secret.
func (s Server) Validate() error {
	if s.JWTSigningKey == "" && s.PostgresURL != "" {
		return errors.New("JWT_SIGNING_KEY is required when POSTGRES_URL is set")
	}
	return nil
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
