// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
	"github.com/mikidaniel85/warehouse-pbb/pkg/kafka"
	"github.com/mikidaniel85/warehouse-pbb/pkg/mongodb"
)

// Store backends
const (
	BackendMongoDB = "mongodb"
	BackendMemory  = "memory"
)

// Config holds application configuration
type Config struct {
	ServerAddr   string
	Environment  string
	LogLevel     string
	StoreBackend string

	MongoDB         *mongodb.Config
	ConflictRetries int

	// StoreTimeout bounds every single store call made by the application.
	StoreTimeout       time.Duration
	ReadRetryMaxElapse time.Duration

	Kafka              *kafka.Config
	KafkaEnabled       bool
	OutboxPollInterval time.Duration

	TracingEnabled bool
	OTLPEndpoint   string

	OCREndpoint string
	OCRTimeout  time.Duration

	SentinelWarehouse string
	AuditBuffer       int
	AllowedOrigins    []string
}

// Load reads a .env file when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*Config, error) {
	kafkaConfig := kafka.DefaultConfig()
	kafkaConfig.Brokers = getEnvList("KAFKA_BROKERS", kafkaConfig.Brokers)

	mongoConfig := mongodb.DefaultConfig()
	mongoConfig.URI = getEnv("MONGODB_URI", mongoConfig.URI)
	mongoConfig.Database = getEnv("MONGODB_DATABASE", mongoConfig.Database)
	mongoConfig.ReplicaSet = getEnv("MONGODB_REPLICA_SET", "")
	mongoConfig.ConnectTimeout = getEnvDuration("MONGODB_CONNECT_TIMEOUT", mongoConfig.ConnectTimeout)
	mongoConfig.Username = getEnv("MONGODB_USERNAME", "")
	mongoConfig.Password = getEnv("MONGODB_PASSWORD", "")
	mongoConfig.AuthDB = getEnv("MONGODB_AUTH_DB", "admin")

	cfg := &Config{
		ServerAddr:         getEnv("SERVER_ADDR", ":8080"),
		Environment:        getEnv("ENVIRONMENT", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		StoreBackend:       strings.ToLower(getEnv("STORE_BACKEND", BackendMongoDB)),
		MongoDB:            mongoConfig,
		ConflictRetries:    getEnvInt("CONFLICT_RETRIES", 5),
		StoreTimeout:       getEnvDuration("STORE_TIMEOUT", 5*time.Second),
		ReadRetryMaxElapse: getEnvDuration("READ_RETRY_MAX_ELAPSED", 2*time.Second),
		Kafka:              kafkaConfig,
		KafkaEnabled:       getEnvBool("KAFKA_ENABLED", false),
		OutboxPollInterval: getEnvDuration("OUTBOX_POLL_INTERVAL", time.Second),
		TracingEnabled:     getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OCREndpoint:        getEnv("OCR_ENDPOINT", ""),
		OCRTimeout:         getEnvDuration("OCR_TIMEOUT", 15*time.Second),
		SentinelWarehouse:  getEnv("SENTINEL_WAREHOUSE", domain.DefaultSentinelWarehouse),
		AuditBuffer:        getEnvInt("AUDIT_BUFFER", 256),
		AllowedOrigins:     getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMongoDB, BackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendMongoDB, BackendMemory, c.StoreBackend)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive")
	}
	if c.ConflictRetries < 1 {
		return fmt.Errorf("CONFLICT_RETRIES must be at least 1")
	}
	if c.AuditBuffer < 1 {
		return fmt.Errorf("AUDIT_BUFFER must be at least 1")
	}
	if domain.NormalizeComponent(c.SentinelWarehouse) == "" {
		return fmt.Errorf("SENTINEL_WAREHOUSE must not be blank")
	}
	if c.KafkaEnabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
