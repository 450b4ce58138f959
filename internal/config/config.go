package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultReadTimeoutSeconds is the default read timeout in seconds
	DefaultReadTimeoutSeconds = 10
	// DefaultWriteTimeoutSeconds is the default write timeout in seconds
	DefaultWriteTimeoutSeconds = 30
	// DefaultShutdownTimeoutSeconds is the default shutdown timeout in seconds
	DefaultShutdownTimeoutSeconds = 30
)

type Config struct {
	Debug     bool            `yaml:"debug"` // Application debug mode (controls log level and format)
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Sentry    SentryConfig    `yaml:"sentry"`
	Publisher PublisherConfig `yaml:"publisher"`
	Queue     QueueConfig     `yaml:"queue"`
}

type ServerConfig struct {
	Address      string        `yaml:"address"`      // e.g., ":8075"
	ReadTimeout  time.Duration `yaml:"read_timeout"` // Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CORSOrigins  []string      `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type SentryConfig struct {
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
}

// PublisherConfig tunes the publication engine itself.
type PublisherConfig struct {
	SiteURL            string        `yaml:"site_url"`             // Public site base URL used in article links
	DedupTTL           time.Duration `yaml:"dedup_ttl"`            // How long the fast-path dedup keys live
	WebhookVerifyToken string        `yaml:"webhook_verify_token"` // Token for the webhook subscription handshake
}

// QueueConfig tunes the background auto-publish worker.
type QueueConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval"`
	BatchSize      int           `yaml:"batch_size"`
	MaxAttempts    int           `yaml:"max_attempts"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

// Validate checks if the server configuration is valid and sets defaults.
func (c *ServerConfig) Validate() error {
	if c.Address == "" {
		c.Address = ":8075" // Default port
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeoutSeconds * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeoutSeconds * time.Second
	}
	return nil
}

// Validate checks if the configuration is valid and returns an error if not.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return errors.New("database.host is required")
	}
	if c.Database.Name == "" {
		return errors.New("database.name is required")
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if c.Queue.PollInterval <= 0 {
		return fmt.Errorf("queue.poll_interval must be positive, got %v", c.Queue.PollInterval)
	}
	if c.Queue.MaxAttempts <= 0 {
		return fmt.Errorf("queue.max_attempts must be positive, got %d", c.Queue.MaxAttempts)
	}
	return nil
}

// setDefaults sets default values for configuration fields
func setDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8075"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeoutSeconds * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeoutSeconds * time.Second
	}
	if cfg.Database.Port == "" {
		cfg.Database.Port = "5432"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Publisher.DedupTTL == 0 {
		cfg.Publisher.DedupTTL = 30 * 24 * time.Hour
	}
	if cfg.Queue.PollInterval == 0 {
		cfg.Queue.PollInterval = 15 * time.Second
	}
	if cfg.Queue.BatchSize == 0 {
		cfg.Queue.BatchSize = 10
	}
	if cfg.Queue.MaxAttempts == 0 {
		cfg.Queue.MaxAttempts = 3
	}
	if cfg.Queue.PublishTimeout == 0 {
		cfg.Queue.PublishTimeout = 5 * time.Minute
	}
}

// overrideWithEnvVars overrides configuration with environment variables
func overrideWithEnvVars(cfg *Config) {
	if host := os.Getenv("DATABASE_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if port := os.Getenv("DATABASE_PORT"); port != "" {
		cfg.Database.Port = port
	}
	if user := os.Getenv("DATABASE_USER"); user != "" {
		cfg.Database.User = user
	}
	if password := os.Getenv("DATABASE_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}
	if name := os.Getenv("DATABASE_NAME"); name != "" {
		cfg.Database.Name = name
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.Redis.URL = redisURL
	}
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		cfg.Sentry.DSN = dsn
	}
	if siteURL := os.Getenv("SITE_URL"); siteURL != "" {
		cfg.Publisher.SiteURL = siteURL
	}
	if token := os.Getenv("WEBHOOK_VERIFY_TOKEN"); token != "" {
		cfg.Publisher.WebhookVerifyToken = token
	}
	// Parse APP_DEBUG environment variable
	if appDebug := os.Getenv("APP_DEBUG"); appDebug != "" {
		cfg.Debug = parseBool(appDebug)
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Set defaults
	setDefaults(&cfg)

	// Override with environment variables if present
	overrideWithEnvVars(&cfg)

	// Set server defaults
	if err := cfg.Server.Validate(); err != nil {
		return nil, fmt.Errorf("server config validation: %w", err)
	}

	// Override server config with environment variable if present
	if port := os.Getenv("CROSSPOST_PORT"); port != "" {
		cfg.Server.Address = ":" + port
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// parseBool parses a string value as a boolean.
// Returns true for "true", "1", "yes" (case-insensitive), false otherwise.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes"
}
