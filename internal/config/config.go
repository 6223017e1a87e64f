package config

import (
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	Scraper   ScraperConfig
	Scheduler SchedulerConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string        `env:"SERVER_PORT" envDefault:"8080"`
	Host            string        `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// DatabaseConfig selects and configures the store
type DatabaseConfig struct {
	Driver        string `env:"DB_DRIVER" envDefault:"postgres"`
	Host          string `env:"DB_HOST" envDefault:"localhost"`
	Port          string `env:"DB_PORT" envDefault:"5432"`
	User          string `env:"DB_USER" envDefault:"postgres"`
	Password      string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName        string `env:"DB_NAME" envDefault:"portfolio"`
	SSLMode       string `env:"DB_SSLMODE" envDefault:"disable"`
	SQLitePath    string `env:"DB_SQLITE_PATH" envDefault:"stock_db.sqlite"`
	MigrationsDir string `env:"DB_MIGRATIONS_DIR" envDefault:"db/migrations"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled     bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	Brokers     []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	Topic       string   `env:"KAFKA_TOPIC" envDefault:"portfolio-events"`
	IngestTopic string   `env:"KAFKA_INGEST_TOPIC" envDefault:"price-ingest-requests"`
	GroupID     string   `env:"KAFKA_GROUP_ID" envDefault:"portfolio-service"`
}

// RedisConfig configures the history fetch cache
type RedisConfig struct {
	Enabled   bool          `env:"REDIS_ENABLED" envDefault:"false"`
	Addr      string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password  string        `env:"REDIS_PASSWORD"`
	DB        int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL  time.Duration `env:"REDIS_CACHE_TTL" envDefault:"15m"`
	KeyPrefix string        `env:"REDIS_KEY_PREFIX" envDefault:"portfolio"`
}

// ScraperConfig configures the price history source
type ScraperConfig struct {
	BaseURL   string        `env:"SCRAPER_BASE_URL" envDefault:"https://finance.yahoo.com"`
	UserAgent string        `env:"SCRAPER_USER_AGENT" envDefault:"Mozilla/5.0"`
	Timeout   time.Duration `env:"SCRAPER_TIMEOUT" envDefault:"30s"`
	Debug     bool          `env:"SCRAPER_DEBUG" envDefault:"false"`
}

// SchedulerConfig configures the periodic price refresh. A zero interval
// disables it.
type SchedulerConfig struct {
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL" envDefault:"0s"`
	LookbackDays    int           `env:"REFRESH_LOOKBACK_DAYS" envDefault:"7"`
}

// LogConfig configures the process logger
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads configuration from environment variables, after loading a .env
// file from the working directory if one exists
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("invalid DB_DRIVER %q: must be %s or %s", c.Database.Driver, DriverPostgres, DriverSQLite)
	}
	if c.Scheduler.RefreshInterval < 0 {
		return fmt.Errorf("invalid REFRESH_INTERVAL %s: must not be negative", c.Scheduler.RefreshInterval)
	}
	if c.Scheduler.LookbackDays < 1 {
		return fmt.Errorf("invalid REFRESH_LOOKBACK_DAYS %d: must be at least 1", c.Scheduler.LookbackDays)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	return nil
}

// Addr returns the listen address
func (s *ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}
