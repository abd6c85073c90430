package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/aescanero/datafabric/pkg/domain"
)

// Backend selects the collaborator implementations
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds all configuration for the data fabric integration service
type Config struct {
	// Server configuration
	HTTPPort int    `env:"DATAFABRIC_HTTP_PORT" envDefault:"8080"`
	GRPCPort int    `env:"DATAFABRIC_GRPC_PORT" envDefault:"9090"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Domain configuration
	Domain          string `env:"DATAFABRIC_DOMAIN" envDefault:"data-fabric"`
	DuplicatePolicy string `env:"DUPLICATE_POLICY" envDefault:"overwrite"`

	// Declarative sources; empty means the embedded catalogue
	CapabilitySourcesDir string `env:"CAPABILITY_SOURCES_DIR"`
	SignalSourcesDir     string `env:"SIGNAL_SOURCES_DIR"`

	// Backend for the event bus and the asset registry
	Backend string `env:"BACKEND" envDefault:"memory"`

	// Redis configuration
	Redis RedisConfig

	// Worker configuration
	Workers WorkerConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`

	// Streams settings
	ConsumerGroup string `env:"REDIS_CONSUMER_GROUP" envDefault:"datafabric"`
	ConsumerName  string `env:"REDIS_CONSUMER_NAME"`
	StreamMaxLen  int64  `env:"REDIS_STREAM_MAX_LEN" envDefault:"10000"`
}

// WorkerConfig holds completion worker pool configuration
type WorkerConfig struct {
	PoolSize            int           `env:"WORKER_POOL_SIZE" envDefault:"4"`
	QueueSize           int           `env:"WORKER_QUEUE_SIZE" envDefault:"64"`
	HealthCheckInterval time.Duration `env:"WORKER_HEALTH_CHECK_INTERVAL" envDefault:"30s"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	LoadTimeout     time.Duration `env:"TIMEOUT_LOAD" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}
	if c.HTTPPort == c.GRPCPort {
		return fmt.Errorf("HTTP and gRPC ports must differ: %d", c.HTTPPort)
	}

	if c.Domain == "" {
		return fmt.Errorf("domain is required")
	}
	if _, err := domain.ParseDuplicatePolicy(c.DuplicatePolicy); err != nil {
		return err
	}

	switch c.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis address is required")
		}
		if c.Redis.ConsumerGroup == "" {
			return fmt.Errorf("redis consumer group is required")
		}
	default:
		return fmt.Errorf("unsupported backend: %s (must be memory or redis)", c.Backend)
	}

	if c.Workers.PoolSize < 1 {
		return fmt.Errorf("worker pool size must be at least 1")
	}
	if c.Workers.QueueSize < 1 {
		return fmt.Errorf("worker queue size must be at least 1")
	}

	if c.Timeouts.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// Policy returns the parsed duplicate policy. Call after Validate.
func (c *Config) Policy() domain.DuplicatePolicy {
	p, _ := domain.ParseDuplicatePolicy(c.DuplicatePolicy)
	return p
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}
