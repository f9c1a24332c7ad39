package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"argus/pkg/errors"
)

type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	ClickHouse    ClickHouseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Engine        EngineConfig
	ErrorTracking ErrorTrackingConfig
	Workers       WorkerConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"argus"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`

	// Address for the Prometheus metrics endpoint; empty disables it
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type ClickHouseConfig struct {
	Host     string `envconfig:"CLICKHOUSE_HOST" required:"true"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"market"`
}

type RedisConfig struct {
	Enabled  bool          `envconfig:"REDIS_ENABLED" default:"false"`
	Host     string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int           `envconfig:"REDIS_PORT" default:"6379"`
	Password string        `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	QuoteTTL time.Duration `envconfig:"REDIS_QUOTE_TTL" default:"6h"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Enabled bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	Brokers []string `envconfig:"KAFKA_BROKERS"`
	Topic   string   `envconfig:"KAFKA_REDUCTION_TOPIC" default:"argus.reduction.events"`
}

// EngineConfig controls the matching and reduction-scan parameters
type EngineConfig struct {
	// Instruments to process per batch run
	Instruments []string `envconfig:"ENGINE_INSTRUMENTS"`

	// Baseline period, e.g. "2026-07". Empty means the previous calendar month.
	Period string `envconfig:"ENGINE_PERIOD"`

	// Metric used to pick the baseline observation
	MetricType string `envconfig:"ENGINE_METRIC_TYPE" default:"closing_price"`

	// Number of nearest strikes per option class
	StrikesPerClass int `envconfig:"ENGINE_STRIKES_PER_CLASS" default:"3"`

	// Option classes to match, e.g. "CE,PE"
	OptionClasses []string `envconfig:"ENGINE_OPTION_CLASSES" default:"CE,PE"`

	// Reduction threshold in percent
	ThresholdPct float64 `envconfig:"ENGINE_THRESHOLD_PCT" default:"50.0"`

	// Scan mode: "first" or "all"
	ScanMode string `envconfig:"ENGINE_SCAN_MODE" default:"first"`

	// Units processed concurrently per batch run
	Concurrency int `envconfig:"ENGINE_CONCURRENCY" default:"4"`

	// Store accessor limits
	StoreQueryRate   float64       `envconfig:"ENGINE_STORE_QUERY_RATE" default:"50"`
	StoreMaxAttempts int           `envconfig:"ENGINE_STORE_MAX_ATTEMPTS" default:"3"`
	StoreTimeout     time.Duration `envconfig:"ENGINE_STORE_TIMEOUT" default:"10s"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// WorkerConfig contains intervals for background workers
type WorkerConfig struct {
	// How often the full matching+reduction batch runs
	AnalysisInterval time.Duration `envconfig:"WORKER_ANALYSIS_INTERVAL" default:"24h"`
	AnalysisEnabled  bool          `envconfig:"WORKER_ANALYSIS_ENABLED" default:"true"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
