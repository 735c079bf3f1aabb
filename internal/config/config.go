package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StorageMySQL    = "mysql"
	StoragePostgres = "postgres"

	EventsLog   = "log"
	EventsKafka = "kafka"
)

// Config is the resolved runtime configuration of the storefront server.
type Config struct {
	ServiceID string
	HTTPPort  int
	GRPCPort  int
	LogLevel  string

	StorageDriver string
	RedisURL      string
	MySQLDSN      string
	PostgresURL   string

	EventsDriver  string
	KafkaBrokers  []string
	KafkaTopic    string
	EventWorkers  int
	EventQueueLen int

	JWTSecret      string
	SessionTTL     time.Duration
	BcryptCost     int
	IdempotencyTTL time.Duration

	SweepInterval  time.Duration
	PaymentDelay   time.Duration
	PaymentBaseURL string

	SeedData bool
}

type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"service"`
	Storage struct {
		Driver      string `yaml:"driver"`
		RedisURL    string `yaml:"redis_url"`
		MySQLDSN    string `yaml:"mysql_dsn"`
		PostgresURL string `yaml:"postgres_url"`
	} `yaml:"storage"`
	Events struct {
		Driver   string   `yaml:"driver"`
		Brokers  []string `yaml:"brokers"`
		Topic    string   `yaml:"topic"`
		Workers  int      `yaml:"workers"`
		QueueLen int      `yaml:"queue_len"`
	} `yaml:"events"`
	Auth struct {
		JWTSecret         string `yaml:"jwt_secret"`
		SessionTTLMinutes int    `yaml:"session_ttl_minutes"`
		BcryptCost        int    `yaml:"bcrypt_cost"`
	} `yaml:"auth"`
	Orders struct {
		SweepIntervalSeconds  int    `yaml:"sweep_interval_seconds"`
		PaymentDelayMillis    int    `yaml:"payment_delay_ms"`
		PaymentBaseURL        string `yaml:"payment_base_url"`
		IdempotencyTTLSeconds int    `yaml:"idempotency_ttl_seconds"`
	} `yaml:"orders"`
	Seed *bool `yaml:"seed"`
}

// Load resolves configuration in priority order: defaults -> file -> env.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Config{
		ServiceID:      "quick-cart",
		HTTPPort:       8080,
		GRPCPort:       50051,
		LogLevel:       "info",
		StorageDriver:  StorageMemory,
		RedisURL:       "localhost:6379",
		MySQLDSN:       "root:root@tcp(localhost:3306)/quickcart?parseTime=true",
		EventsDriver:   EventsLog,
		KafkaTopic:     "quickcart.orders",
		EventWorkers:   4,
		EventQueueLen:  1024,
		SessionTTL:     24 * time.Hour,
		BcryptCost:     10,
		IdempotencyTTL: 10 * time.Minute,
		SweepInterval:  30 * time.Second,
		PaymentDelay:   1500 * time.Millisecond,
		PaymentBaseURL: "https://pay.quickcart.local",
		SeedData:       true,
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := cfg.applyFile(raw); err != nil {
				return Config{}, err
			}
		case !errors.Is(err, os.ErrNotExist):
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg.ServiceID = envOrDefault("SERVICE_ID", cfg.ServiceID)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.LogLevel = strings.ToLower(envOrDefault("LOG_LEVEL", cfg.LogLevel))

	cfg.StorageDriver = strings.ToLower(envOrDefault("STORAGE_DRIVER", cfg.StorageDriver))
	cfg.RedisURL = envOrDefault("REDIS_URL", envOrDefault("REDIS_ADDR", cfg.RedisURL))
	cfg.MySQLDSN = envOrDefault("MYSQL_DSN", cfg.MySQLDSN)
	cfg.PostgresURL = envOrDefault("POSTGRES_URL", cfg.PostgresURL)

	cfg.EventsDriver = strings.ToLower(envOrDefault("EVENTS_DRIVER", cfg.EventsDriver))
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaTopic = envOrDefault("KAFKA_TOPIC", cfg.KafkaTopic)
	cfg.EventWorkers = envInt("EVENT_WORKERS", cfg.EventWorkers)
	cfg.EventQueueLen = envInt("EVENT_QUEUE_LEN", cfg.EventQueueLen)

	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.SessionTTL = time.Duration(envInt("SESSION_TTL_MINUTES", int(cfg.SessionTTL.Minutes()))) * time.Minute
	cfg.BcryptCost = envInt("BCRYPT_COST", cfg.BcryptCost)
	cfg.IdempotencyTTL = time.Duration(envInt("IDEMPOTENCY_TTL_SECONDS", int(cfg.IdempotencyTTL.Seconds()))) * time.Second

	cfg.SweepInterval = time.Duration(envInt("SWEEP_INTERVAL_SECONDS", int(cfg.SweepInterval.Seconds()))) * time.Second
	cfg.PaymentDelay = time.Duration(envInt("PAYMENT_DELAY_MS", int(cfg.PaymentDelay.Milliseconds()))) * time.Millisecond
	cfg.PaymentBaseURL = envOrDefault("PAYMENT_BASE_URL", cfg.PaymentBaseURL)
	cfg.SeedData = envBool("SEED_DATA", cfg.SeedData)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if f.Service.ID != "" {
		c.ServiceID = f.Service.ID
	}
	if f.Service.HTTPPort > 0 {
		c.HTTPPort = f.Service.HTTPPort
	}
	if f.Service.GRPCPort > 0 {
		c.GRPCPort = f.Service.GRPCPort
	}
	if f.Service.LogLevel != "" {
		c.LogLevel = f.Service.LogLevel
	}
	if f.Storage.Driver != "" {
		c.StorageDriver = f.Storage.Driver
	}
	if f.Storage.RedisURL != "" {
		c.RedisURL = f.Storage.RedisURL
	}
	if f.Storage.MySQLDSN != "" {
		c.MySQLDSN = f.Storage.MySQLDSN
	}
	if f.Storage.PostgresURL != "" {
		c.PostgresURL = f.Storage.PostgresURL
	}
	if f.Events.Driver != "" {
		c.EventsDriver = f.Events.Driver
	}
	if len(f.Events.Brokers) > 0 {
		c.KafkaBrokers = f.Events.Brokers
	}
	if f.Events.Topic != "" {
		c.KafkaTopic = f.Events.Topic
	}
	if f.Events.Workers > 0 {
		c.EventWorkers = f.Events.Workers
	}
	if f.Events.QueueLen > 0 {
		c.EventQueueLen = f.Events.QueueLen
	}
	if f.Auth.JWTSecret != "" {
		c.JWTSecret = f.Auth.JWTSecret
	}
	if f.Auth.SessionTTLMinutes > 0 {
		c.SessionTTL = time.Duration(f.Auth.SessionTTLMinutes) * time.Minute
	}
	if f.Auth.BcryptCost > 0 {
		c.BcryptCost = f.Auth.BcryptCost
	}
	if f.Orders.SweepIntervalSeconds > 0 {
		c.SweepInterval = time.Duration(f.Orders.SweepIntervalSeconds) * time.Second
	}
	if f.Orders.PaymentDelayMillis > 0 {
		c.PaymentDelay = time.Duration(f.Orders.PaymentDelayMillis) * time.Millisecond
	}
	if f.Orders.PaymentBaseURL != "" {
		c.PaymentBaseURL = f.Orders.PaymentBaseURL
	}
	if f.Orders.IdempotencyTTLSeconds > 0 {
		c.IdempotencyTTL = time.Duration(f.Orders.IdempotencyTTLSeconds) * time.Second
	}
	if f.Seed != nil {
		c.SeedData = *f.Seed
	}
	return nil
}

func (c Config) validate() error {
	switch c.StorageDriver {
	case StorageMemory, StorageRedis, StorageMySQL:
	case StoragePostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("missing POSTGRES_URL for postgres storage")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	switch c.EventsDriver {
	case EventsLog:
	case EventsKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("missing KAFKA_BROKERS for kafka events")
		}
	default:
		return fmt.Errorf("unknown events driver %q", c.EventsDriver)
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 bytes")
	}
	return nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt falls back on empty or invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	switch os.Getenv(name) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}

// envCSV parses comma-separated env vars and drops empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
