package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Session backends understood by SESSION_BACKEND.
const (
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config holds the application configuration.
type Config struct {
	Env  string `env:"APP_ENV" envDefault:"development"`
	Port string `env:"PORT" envDefault:"8080"`

	PostgresDSN string `env:"POSTGRES_DSN"`

	RedisURL      string `env:"REDIS_URL"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	SessionBackend string        `env:"SESSION_BACKEND" envDefault:"redis"`
	SQLitePath     string        `env:"SQLITE_PATH" envDefault:"sessions.db"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"0s"`
	LockTTL        time.Duration `env:"LOCK_TTL" envDefault:"30s"`

	WhatsAppToken         string `env:"WHATSAPP_ACCESS_TOKEN"`
	WhatsAppPhoneNumberID string `env:"WHATSAPP_PHONE_NUMBER_ID"`
	WhatsAppVerifyToken   string `env:"WHATSAPP_VERIFY_TOKEN"`
	WhatsAppAppSecret     string `env:"WHATSAPP_APP_SECRET"`
	WhatsAppAPIBase       string `env:"WHATSAPP_API_BASE" envDefault:"https://graph.facebook.com/v19.0"`

	APIKey string `env:"API_KEY"`

	QueueEnabled bool `env:"QUEUE_ENABLED" envDefault:"false"`
	Workers      int  `env:"WORKERS" envDefault:"4"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

var (
	cfg    *Config
	cfgErr error
	once   sync.Once
)

// LoadConfig loads the configuration once per process. Later calls
// return the same Config, or the same error.
func LoadConfig() (*Config, error) {
	once.Do(func() {
		cfg, cfgErr = Load()
		if cfgErr != nil {
			log.Printf("❌ Failed to load configuration: %v", cfgErr)
		}
	})
	return cfg, cfgErr
}

// Load reads .env (if any) and decodes the environment into a Config.
func Load() (*Config, error) {
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			break
		}
	}

	var c Config
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	c.SessionBackend = strings.ToLower(strings.TrimSpace(c.SessionBackend))

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks values that are wrong regardless of the command being run.
func (c *Config) Validate() error {
	switch c.SessionBackend {
	case BackendRedis, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend)
	}
	if c.SessionTTL < 0 {
		return errors.New("SESSION_TTL must not be negative")
	}
	if c.LockTTL <= 0 {
		return errors.New("LOCK_TTL must be positive")
	}
	if c.Workers < 1 {
		return errors.New("WORKERS must be at least 1")
	}
	return nil
}

// NeedsRedis reports whether the selected features require a Redis connection.
func (c *Config) NeedsRedis() bool {
	return c.SessionBackend == BackendRedis || c.QueueEnabled
}

// ValidateServe checks everything the HTTP service needs to start.
func (c *Config) ValidateServe() error {
	var missing []string
	if c.PostgresDSN == "" {
		missing = append(missing, "POSTGRES_DSN")
	}
	if c.WhatsAppToken == "" {
		missing = append(missing, "WHATSAPP_ACCESS_TOKEN")
	}
	if c.WhatsAppPhoneNumberID == "" {
		missing = append(missing, "WHATSAPP_PHONE_NUMBER_ID")
	}
	if c.WhatsAppVerifyToken == "" {
		missing = append(missing, "WHATSAPP_VERIFY_TOKEN")
	}
	if c.NeedsRedis() && c.RedisURL == "" && c.RedisAddr == "" {
		missing = append(missing, "REDIS_URL or REDIS_ADDR")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}
