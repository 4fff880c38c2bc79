// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() builds a Config with defaults; Load layers file and env on top.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Outbox publishers.
const (
	PublisherLog   = "log"
	PublisherKafka = "kafka"
	PublisherNone  = "none"
)

// Idempotency backends.
const (
	IdempotencyMemory = "memory"
	IdempotencyRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the handler: text, json or pretty.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Store selects where events, questions and bets are kept.
	Store      string `koanf:"store"`
	SQLitePath string `koanf:"sqlite_path"`

	// QueueSize bounds the outbox queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of outbox publishers.
	WorkerCount int `koanf:"worker_count"`

	Publisher string `koanf:"publisher"`
	// KafkaBrokers is a comma separated broker list.
	KafkaBrokers string `koanf:"kafka_brokers"`
	KafkaTopic   string `koanf:"kafka_topic"`

	// Idempotency selects the Idempotency-Key backend.
	Idempotency       string `koanf:"idempotency"`
	RedisAddr         string `koanf:"redis_addr"`
	IdempotencyTTLSec int    `koanf:"idempotency_ttl_sec"`
	// DedupeSize caps the in-memory idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// CodeLength is the length of generated event join codes.
	CodeLength int `koanf:"code_length"`

	// Bet bounds used when an event is created without any.
	DefaultMinBetCents int64 `koanf:"default_min_bet_cents"`
	DefaultMaxBetCents int64 `koanf:"default_max_bet_cents"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		Store:              StoreMemory,
		SQLitePath:         "betpool.db",
		QueueSize:          4096,
		WorkerCount:        1,
		Publisher:          PublisherLog,
		KafkaTopic:         "betpool.settlements",
		Idempotency:        IdempotencyMemory,
		IdempotencyTTLSec:  86_400,
		DedupeSize:         100_000,
		CodeLength:         8,
		DefaultMinBetCents: 500,
		DefaultMaxBetCents: 10_000,
	}
}

// Brokers splits KafkaBrokers, dropping blanks.
func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// IdempotencyTTL is IdempotencyTTLSec as a duration.
func (c *Config) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempotencyTTLSec) * time.Second
}

// Validate checks that the values are usable together.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return invalid("addr must not be empty")
	case c.QueueSize <= 0:
		return invalid("queue_size must be positive")
	case c.WorkerCount <= 0:
		return invalid("worker_count must be positive")
	case c.DedupeSize <= 0:
		return invalid("dedupe_size must be positive")
	case c.IdempotencyTTLSec <= 0:
		return invalid("idempotency_ttl_sec must be positive")
	case c.CodeLength < 4:
		return invalid("code_length must be at least 4")
	case c.DefaultMinBetCents < 100:
		return invalid("default_min_bet_cents must be at least 100")
	case c.DefaultMaxBetCents < c.DefaultMinBetCents:
		return invalid("default_max_bet_cents must not be below default_min_bet_cents")
	}

	switch c.Store {
	case StoreMemory:
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return invalid("sqlite_path is required for the sqlite store")
		}
	default:
		return invalid(fmt.Sprintf("unknown store %q", c.Store))
	}

	switch c.Publisher {
	case PublisherLog, PublisherNone:
	case PublisherKafka:
		if len(c.Brokers()) == 0 || strings.TrimSpace(c.KafkaTopic) == "" {
			return invalid("kafka_brokers and kafka_topic are required for the kafka publisher")
		}
	default:
		return invalid(fmt.Sprintf("unknown publisher %q", c.Publisher))
	}

	switch c.Idempotency {
	case IdempotencyMemory:
	case IdempotencyRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return invalid("redis_addr is required for redis idempotency")
		}
	default:
		return invalid(fmt.Sprintf("unknown idempotency backend %q", c.Idempotency))
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}
