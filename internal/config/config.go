// Package config provides configuration loading and management for queue-keeper.
// It supports loading configuration from YAML files with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"queue-keeper/internal/domain"
)

// StorageMode represents the storage backend mode.
type StorageMode string

const (
	// StorageModeMemory uses in-memory implementations for all storage.
	StorageModeMemory StorageMode = "memory"
	// StorageModeStorage uses real storage backends (PostgreSQL, Redis, SQS or Kafka).
	StorageModeStorage StorageMode = "storage"
)

// IsValid returns true if the storage mode is valid.
func (m StorageMode) IsValid() bool {
	return m == StorageModeMemory || m == StorageModeStorage
}

// QueueDriver selects the transport the poller consumes store events from.
type QueueDriver string

const (
	QueueDriverSQS   QueueDriver = "sqs"
	QueueDriverKafka QueueDriver = "kafka"
)

// IsValid returns true if the driver is known.
func (d QueueDriver) IsValid() bool {
	return d == QueueDriverSQS || d == QueueDriverKafka
}

// Config represents the complete application configuration.
type Config struct {
	Environment string         `yaml:"environment"`
	Storage     StorageConfig  `yaml:"storage"`
	Server      ServerConfig   `yaml:"server"`
	Queue       QueueConfig    `yaml:"queue"`
	SQS         SQSConfig      `yaml:"sqs"`
	Kafka       KafkaConfig    `yaml:"kafka"`
	Redis       RedisConfig    `yaml:"redis"`
	Postgres    PostgresConfig `yaml:"postgres"`
	Seed        SeedConfig     `yaml:"seed"`
	Logger      LoggerConfig   `yaml:"logger"`
}

// StorageConfig holds the storage mode configuration.
type StorageConfig struct {
	Mode StorageMode `yaml:"mode"`
}

// UseMemory returns true if in-memory storage should be used.
func (c *StorageConfig) UseMemory() bool {
	return c.Mode == StorageModeMemory
}

// UseStorage returns true if real storage backends should be used.
func (c *StorageConfig) UseStorage() bool {
	return c.Mode == StorageModeStorage
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// QueueConfig holds poller settings shared by every transport.
type QueueConfig struct {
	Driver QueueDriver `yaml:"driver"`

	// WaitTime is the long-poll wait of a single receive call.
	WaitTime time.Duration `yaml:"wait_time"`

	// PollInterval is the pause between poll cycles.
	PollInterval time.Duration `yaml:"poll_interval"`

	// VisibilityTimeout applies to the in-memory queue; SQS uses the queue's own setting.
	VisibilityTimeout time.Duration `yaml:"visibility_timeout"`

	// ProcessTimeout bounds the handling of one message; 0 disables it.
	ProcessTimeout time.Duration `yaml:"process_timeout"`

	DeadLetter DeadLetterConfig `yaml:"dead_letter"`
}

// DeadLetterConfig controls the optional dead-letter path.
type DeadLetterConfig struct {
	Enabled bool `yaml:"enabled"`

	// MaxReceives is the receive count at which a failing message is dead-lettered.
	MaxReceives int `yaml:"max_receives"`
}

// SQSConfig holds AWS SQS settings.
type SQSConfig struct {
	Region          string `yaml:"region"`
	QueueURL        string `yaml:"queue_url"`
	DeadLetterURL   string `yaml:"dead_letter_url"`
	Endpoint        string `yaml:"endpoint"` // optional, e.g. LocalStack
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// KafkaConfig holds Kafka connection and topic settings.
type KafkaConfig struct {
	Brokers         []string `yaml:"brokers"`
	Topic           string   `yaml:"topic"`
	DeadLetterTopic string   `yaml:"dead_letter_topic"`
	ConsumerGroup   string   `yaml:"consumer_group"`
}

// RedisConfig holds Redis connection settings for the static lookup cache.
type RedisConfig struct {
	// Addr, when set, takes precedence over Host and Port.
	Addr     string        `yaml:"addr"`
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	// URL, when set, takes precedence over the discrete fields.
	URL          string `yaml:"url"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int32  `yaml:"max_open_conns"`
	MaxIdleConns int32  `yaml:"max_idle_conns"`
}

// SeedConfig controls startup data seeding.
type SeedConfig struct {
	// TestData replaces stores and queues with a fixed fixture set.
	TestData bool `yaml:"test_data"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// Load reads configuration from the specified YAML file path.
// A missing file is not an error: defaults and the environment still apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	// Clean the path to prevent path traversal attacks
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overrides file values with the environment variables the
// deployment injects.
func applyEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString(&cfg.Environment, "ENVIRONMENT")
	setString(&cfg.Postgres.URL, "DATABASE_URL")
	setString(&cfg.SQS.Region, "AWS_REGION")
	setString(&cfg.SQS.QueueURL, "AWS_SQS_QUEUE_URL")
	setString(&cfg.SQS.DeadLetterURL, "AWS_SQS_DLQ_URL")
	setString(&cfg.SQS.AccessKeyID, "AWS_ACCESS_KEY_ID")
	setString(&cfg.SQS.SecretAccessKey, "AWS_SECRET_ACCESS_KEY")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Logger.Level, "LOGGING_LEVEL")
}

// applyDefaults sets sensible default values for configuration fields
// that are not explicitly set in the config file.
func applyDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "prod"
	}

	// Storage defaults
	if cfg.Storage.Mode == "" {
		cfg.Storage.Mode = StorageModeMemory
	}

	// Server defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 120 * time.Second
	}

	// Queue defaults
	if cfg.Queue.Driver == "" {
		cfg.Queue.Driver = QueueDriverSQS
	}
	if cfg.Queue.WaitTime == 0 {
		cfg.Queue.WaitTime = time.Second
	}
	if cfg.Queue.PollInterval == 0 {
		cfg.Queue.PollInterval = time.Second
	}
	if cfg.Queue.VisibilityTimeout == 0 {
		cfg.Queue.VisibilityTimeout = 30 * time.Second
	}
	if cfg.Queue.DeadLetter.MaxReceives == 0 {
		cfg.Queue.DeadLetter.MaxReceives = 3
	}

	// Kafka defaults
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{"localhost:9092"}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "store-events"
	}
	if cfg.Kafka.DeadLetterTopic == "" {
		cfg.Kafka.DeadLetterTopic = cfg.Kafka.Topic + "-dlq"
	}
	if cfg.Kafka.ConsumerGroup == "" {
		cfg.Kafka.ConsumerGroup = "queue-keeper"
	}

	// Redis defaults
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.CacheTTL == 0 {
		cfg.Redis.CacheTTL = 10 * time.Minute
	}

	// Postgres defaults
	if cfg.Postgres.Host == "" {
		cfg.Postgres.Host = "localhost"
	}
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = 5432
	}
	if cfg.Postgres.SSLMode == "" {
		// production databases are only reachable over TLS
		if cfg.IsProduction() {
			cfg.Postgres.SSLMode = "require"
		} else {
			cfg.Postgres.SSLMode = "disable"
		}
	}
	if cfg.Postgres.MaxOpenConns == 0 {
		cfg.Postgres.MaxOpenConns = 25
	}
	if cfg.Postgres.MaxIdleConns == 0 {
		cfg.Postgres.MaxIdleConns = 5
	}

	// Logger defaults
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.Format == "" {
		cfg.Logger.Format = "json"
	}
}

// Validate reports missing or contradictory settings. The returned error
// wraps domain.ErrConfiguration.
func (c *Config) Validate() error {
	if !c.Storage.Mode.IsValid() {
		return fmt.Errorf("%w: unknown storage mode %q", domain.ErrConfiguration, c.Storage.Mode)
	}
	if !c.Queue.Driver.IsValid() {
		return fmt.Errorf("%w: unknown queue driver %q", domain.ErrConfiguration, c.Queue.Driver)
	}
	if c.Queue.DeadLetter.MaxReceives < 1 {
		return fmt.Errorf("%w: queue.dead_letter.max_receives must be positive", domain.ErrConfiguration)
	}

	if c.Storage.UseMemory() {
		return nil
	}

	if c.Postgres.URL == "" && c.Postgres.Database == "" {
		return fmt.Errorf("%w: DATABASE_URL or postgres.database is required", domain.ErrConfiguration)
	}

	if c.Queue.Driver == QueueDriverSQS {
		if c.SQS.QueueURL == "" {
			return fmt.Errorf("%w: AWS_SQS_QUEUE_URL is required", domain.ErrConfiguration)
		}
		if c.SQS.Region == "" {
			return fmt.Errorf("%w: AWS_REGION is required", domain.ErrConfiguration)
		}
		if c.Queue.DeadLetter.Enabled && c.SQS.DeadLetterURL == "" {
			return fmt.Errorf("%w: AWS_SQS_DLQ_URL is required when dead-lettering is enabled", domain.ErrConfiguration)
		}
	}

	return nil
}

// IsProduction returns true for the prod environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "prod"
}

// Address returns the full server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ConnString returns the PostgreSQL connection string. A URL without an
// sslmode parameter gets the configured SSLMode.
func (c *PostgresConfig) ConnString() string {
	if c.URL != "" {
		return withSSLMode(c.URL, c.SSLMode)
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// withSSLMode adds sslmode to a postgres URL that does not set one.
// Keyword/value DSNs are returned unchanged.
func withSSLMode(raw, mode string) string {
	if mode == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
		return raw
	}
	q := u.Query()
	if q.Get("sslmode") != "" {
		return raw
	}
	q.Set("sslmode", mode)
	u.RawQuery = q.Encode()
	return u.String()
}

// RedisAddr returns the Redis address in host:port format.
func (c *RedisConfig) RedisAddr() string {
	if c.Addr != "" {
		return c.Addr
	}
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
