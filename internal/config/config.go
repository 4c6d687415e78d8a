package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Environment string
	LogLevel    string
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	NewRelic    NewRelicConfig
	Worker      WorkerConfig
	Simulation  SimulationConfig
	Webhook     WebhookConfig
	Idempotency IdempotencyConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// WorkerConfig holds worker pool configuration.
type WorkerConfig struct {
	PaymentWorkers   int
	RefundWorkers    int
	WebhookWorkers   int
	PollTimeout      time.Duration
	SweepInterval    time.Duration
	MetricsPort      string
	ShutdownDeadline time.Duration
}

// SimulationConfig controls the simulated settlement.
type SimulationConfig struct {
	TestMode            bool
	TestPaymentSuccess  bool
	TestProcessingDelay time.Duration
	PaymentDelayMin     time.Duration
	PaymentDelayMax     time.Duration
	RefundDelay         time.Duration
}

// WebhookConfig holds webhook delivery configuration.
type WebhookConfig struct {
	TestRetryIntervals bool
	Timeout            time.Duration
}

// IdempotencyConfig selects the idempotency store backend.
type IdempotencyConfig struct {
	Backend string
	TTL     time.Duration
}

// Idempotency backends.
const (
	IdempotencyBackendPostgres = "postgres"
	IdempotencyBackendRedis    = "redis"
)

// Load loads configuration from environment variables.
// A .env file in the working directory is read first, if present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8000"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "gateway_user"),
			Password: getEnv("DB_PASSWORD", "gateway_pass"),
			DBName:   getEnv("DB_NAME", "payment_gateway"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "payment-gateway"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Worker: WorkerConfig{
			PaymentWorkers:   getIntEnv("PAYMENT_WORKERS", 1),
			RefundWorkers:    getIntEnv("REFUND_WORKERS", 1),
			WebhookWorkers:   getIntEnv("WEBHOOK_WORKERS", 1),
			PollTimeout:      getDurationEnv("QUEUE_POLL_TIMEOUT", 5*time.Second),
			SweepInterval:    getDurationEnv("RETRY_SWEEP_INTERVAL", 10*time.Second),
			MetricsPort:      getEnv("METRICS_PORT", "9100"),
			ShutdownDeadline: getDurationEnv("WORKER_SHUTDOWN_DEADLINE", 30*time.Second),
		},
		Simulation: SimulationConfig{
			TestMode:            getBoolEnv("TEST_MODE", false),
			TestPaymentSuccess:  getBoolEnv("TEST_PAYMENT_SUCCESS", true),
			TestProcessingDelay: getDurationEnv("TEST_PROCESSING_DELAY", time.Second),
			PaymentDelayMin:     getDurationEnv("PAYMENT_DELAY_MIN", 5*time.Second),
			PaymentDelayMax:     getDurationEnv("PAYMENT_DELAY_MAX", 10*time.Second),
			RefundDelay:         getDurationEnv("REFUND_DELAY", 3*time.Second),
		},
		Webhook: WebhookConfig{
			TestRetryIntervals: getBoolEnv("WEBHOOK_RETRY_INTERVALS_TEST", false),
			Timeout:            getDurationEnv("WEBHOOK_TIMEOUT", 5*time.Second),
		},
		Idempotency: IdempotencyConfig{
			Backend: getEnv("IDEMPOTENCY_BACKEND", IdempotencyBackendPostgres),
			TTL:     getDurationEnv("IDEMPOTENCY_TTL", 24*time.Hour),
		},
	}
}

// IsDevelopment reports whether the service runs in a development environment.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
