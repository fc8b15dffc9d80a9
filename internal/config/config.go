package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	App         AppConfig         `envPrefix:"APP_"`
	Database    DatabaseConfig    `envPrefix:"DB_"`
	JWT         JWTConfig         `envPrefix:"JWT_"`
	Redis       RedisConfig       `envPrefix:"REDIS_"`
	Queue       QueueConfig       `envPrefix:"QUEUE_"`
	Calculation CalculationConfig `envPrefix:"CALCULATION_"`
	Lark        LarkConfig        `envPrefix:"LARK_"`
	SMTP        SMTPConfig        `envPrefix:"SMTP_"`
}

// AppConfig holds application configuration
type AppConfig struct {
	Port            int           `env:"PORT" envDefault:"8080"`
	Env             string        `env:"ENV" envDefault:"development"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

type DatabaseConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD"`
	Name     string `env:"NAME" envDefault:"cmlabs_hris"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string `env:"SECRET_KEY"`
	AccessExpiration string `env:"ACCESS_EXPIRATION_TIME" envDefault:"1h"`
}

// RedisConfig enables the shared run lock. Without an address runs are
// locked in process memory.
type RedisConfig struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

const (
	QueueDriverLocal = "local"
	QueueDriverAMQP  = "amqp"
)

type QueueConfig struct {
	Driver         string        `env:"DRIVER" envDefault:"local"`
	AMQPDSN        string        `env:"AMQP_DSN"`
	Name           string        `env:"NAME" envDefault:"attendance_calculation"`
	PublishTimeout time.Duration `env:"PUBLISH_TIMEOUT" envDefault:"10s"`
	LocalSize      int           `env:"LOCAL_SIZE" envDefault:"64"`
}

type CalculationConfig struct {
	Workers         int           `env:"WORKERS" envDefault:"1"`
	ExternalTimeout time.Duration `env:"EXTERNAL_TIMEOUT" envDefault:"30s"`
	LockTTL         time.Duration `env:"LOCK_TTL" envDefault:"6h"`
	NightlyEnabled  bool          `env:"NIGHTLY_ENABLED" envDefault:"false"`
	NightlyHour     int           `env:"NIGHTLY_HOUR" envDefault:"0"`

	// Timezone anchors shift times and calendar days.
	Timezone string `env:"TIMEZONE" envDefault:"UTC"`
}

// Location returns the loaded Timezone, or UTC when it cannot be loaded.
func (c CalculationConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type LarkConfig struct {
	Enabled   bool          `env:"ENABLED" envDefault:"false"`
	BaseURL   string        `env:"BASE_URL" envDefault:"https://open.larksuite.com/open-apis"`
	AppID     string        `env:"APP_ID"`
	AppSecret string        `env:"APP_SECRET"`
	Timeout   time.Duration `env:"TIMEOUT" envDefault:"15s"`
}

type SMTPConfig struct {
	Host       string   `env:"HOST"`
	Port       int      `env:"PORT" envDefault:"587"`
	Username   string   `env:"USERNAME"`
	Password   string   `env:"PASSWORD"`
	From       string   `env:"FROM"`
	FromName   string   `env:"FROM_NAME" envDefault:"HRIS"`
	AppURL     string   `env:"APP_URL"`
	Recipients []string `env:"RUN_SUMMARY_RECIPIENTS" envSeparator:","`
}

// Load reads .env when present and parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	config := &Config{}
	if err := env.Parse(config); err != nil {
		var aggErr env.AggregateError
		if errors.As(err, &aggErr) && len(aggErr.Errors) > 0 {
			return nil, fmt.Errorf("invalid environment: %w", aggErr.Errors[0])
		}
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}

	switch c.Queue.Driver {
	case QueueDriverLocal:
	case QueueDriverAMQP:
		if c.Queue.AMQPDSN == "" {
			return fmt.Errorf("QUEUE_AMQP_DSN is required when QUEUE_DRIVER is amqp")
		}
	default:
		return fmt.Errorf("QUEUE_DRIVER must be one of: local, amqp")
	}

	if c.Calculation.Workers < 1 {
		return fmt.Errorf("CALCULATION_WORKERS must be at least 1")
	}
	if c.Calculation.NightlyHour < 0 || c.Calculation.NightlyHour > 23 {
		return fmt.Errorf("CALCULATION_NIGHTLY_HOUR must be between 0 and 23")
	}
	if _, err := time.LoadLocation(c.Calculation.Timezone); err != nil {
		return fmt.Errorf("CALCULATION_TIMEZONE is not a valid IANA zone: %w", err)
	}

	if c.Lark.Enabled && (c.Lark.AppID == "" || c.Lark.AppSecret == "") {
		return fmt.Errorf("LARK_APP_ID and LARK_APP_SECRET are required when LARK_ENABLED is true")
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
