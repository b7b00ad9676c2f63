// Package config provides runtime configuration values for the storefront
// binaries.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds configuration knobs for the servers, the stores and the
// event workers. Empty RedisAddr or AMQPURL disables that dependency.
type Config struct {
	HTTPAddr        string
	GRPCAddr        string
	ShutdownTimeout time.Duration
	LogLevel        string

	MySQLDSN             string
	MySQLMaxOpenConns    int
	MySQLMaxIdleConns    int
	MySQLConnMaxLifetime time.Duration
	LockWaitTimeout      time.Duration
	ScopeTimeout         time.Duration
	Migrate              bool

	RedisAddr      string
	IdempotencyTTL time.Duration

	AMQPURL        string
	EventQueue     string
	EventWorkers   int
	EventQueueSize int

	RetryAttempts  int
	RetryBaseDelay time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func boolenv(key string, def bool) bool {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func durenvms(key string, defMs int) time.Duration {
	ms := atoienv(key, defMs)
	return time.Duration(ms) * time.Millisecond
}

func durenvs(key string, defSec int) time.Duration {
	sec := atoienv(key, defSec)
	return time.Duration(sec) * time.Second
}

// Load collects configuration from environment with defaults.
func Load() Config {
	return Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		GRPCAddr:        getenv("GRPC_ADDR", ":50051"),
		ShutdownTimeout: durenvs("SHUTDOWN_TIMEOUT_S", 15),
		LogLevel:        strings.ToLower(getenv("LOG_LEVEL", "info")),

		MySQLDSN:             getenv("MYSQL_DSN", "root:root@tcp(localhost:3306)/storefront"),
		MySQLMaxOpenConns:    atoienv("MYSQL_MAX_OPEN_CONNS", 50),
		MySQLMaxIdleConns:    atoienv("MYSQL_MAX_IDLE_CONNS", 25),
		MySQLConnMaxLifetime: durenvs("MYSQL_CONN_MAX_LIFETIME_S", 300),
		LockWaitTimeout:      durenvs("LOCK_WAIT_TIMEOUT_S", 5),
		ScopeTimeout:         durenvms("SCOPE_TIMEOUT_MS", 10000),
		Migrate:              boolenv("MIGRATE", true),

		RedisAddr:      os.Getenv("REDIS_ADDR"),
		IdempotencyTTL: durenvs("IDEMPOTENCY_TTL_S", 86400),

		AMQPURL:        os.Getenv("AMQP_URL"),
		EventQueue:     getenv("EVENT_QUEUE", "storefront.orders.placed"),
		EventWorkers:   atoienv("EVENT_WORKERS", 4),
		EventQueueSize: atoienv("EVENT_QUEUE_SIZE", 10000),

		RetryAttempts:  atoienv("RETRY_ATTEMPTS", 3),
		RetryBaseDelay: durenvms("RETRY_BASE_MS", 20),
	}
}
