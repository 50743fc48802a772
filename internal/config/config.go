// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/as10896/saga-demo/pkg/config"
)

// Session backend selectors.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig
	Session  SessionConfig
	Saga     SagaConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig
	Tracing  TracingConfig
}

type ServerConfig struct {
	Host            string        `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"SERVER_PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
}

type SessionConfig struct {
	// Backend selects the session store: redis, postgres, or memory.
	Backend string        `env:"SESSION_BACKEND" envDefault:"redis"`
	Timeout time.Duration `env:"SESSION_TIMEOUT" envDefault:"1h"`
	// CookieName carries the session ID between requests.
	CookieName   string `env:"SESSION_COOKIE_NAME" envDefault:"session_id"`
	CookieSecure bool   `env:"SESSION_COOKIE_SECURE" envDefault:"false"`
}

type SagaConfig struct {
	// ShippingFaultUser always fails at the shipping step. Empty disables
	// the fault injection.
	ShippingFaultUser string `env:"SHIPPING_FAULT_USER" envDefault:"user_3"`
	// StepDelay simulates per-step processing latency.
	StepDelay time.Duration `env:"SAGA_STEP_DELAY" envDefault:"0s"`
}

type RedisConfig struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type PostgresConfig struct {
	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER" envDefault:"postgres"`
	Password string `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	Database string `env:"POSTGRES_DB" envDefault:"saga_demo"`
	SSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
}

type KafkaConfig struct {
	Enabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	Brokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
}

type TracingConfig struct {
	Enabled      bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTLPEndpoint string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	SampleRate   float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	switch c.Session.Backend {
	case BackendRedis, BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("invalid SESSION_BACKEND %q: must be one of redis, postgres, memory", c.Session.Backend)
	}

	if c.Session.Timeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be positive, got %s", c.Session.Timeout)
	}
	if c.Saga.StepDelay < 0 {
		return fmt.Errorf("SAGA_STEP_DELAY must not be negative, got %s", c.Saga.StepDelay)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT out of range: %d", c.Server.Port)
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
