// Package config loads process configuration once at startup: an optional
// .env file, then environment variables, then struct validation.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Env      string `envconfig:"ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	HTTP        HTTPConfig
	OpenWeather OpenWeatherConfig
	Redis       RedisConfig
	RateLimit   RateLimitConfig
	Database    DatabaseConfig
	Kafka       KafkaConfig
	Warmer      WarmerConfig
}

type HTTPConfig struct {
	Port string `envconfig:"PORT" default:"3001" validate:"required,numeric"`
	// AllowedHosts are the CORS origins. Empty means no cross-origin access.
	AllowedHosts []string `envconfig:"ALLOWED_HOSTS"`
	// TrustProxy keys the rate limiter on X-Forwarded-For. Enable it only
	// behind a proxy that overwrites the header.
	TrustProxy bool `envconfig:"TRUST_PROXY" default:"false"`
}

type OpenWeatherConfig struct {
	APIKey  SecretString  `envconfig:"OPENWEATHER_API_KEY"`
	BaseURL string        `envconfig:"OPENWEATHER_BASE_URL" default:"https://api.openweathermap.org" validate:"required,url"`
	Timeout time.Duration `envconfig:"OPENWEATHER_TIMEOUT" default:"3s" validate:"gt=0"`
}

type RedisConfig struct {
	URL        SecretString `envconfig:"REDIS_URL" default:"redis://localhost:6379/0" validate:"required"`
	TTLSeconds int          `envconfig:"CACHE_TTL_SECONDS" default:"3600" validate:"gt=0"`
}

// CacheTTL is the lifetime of a weather cache entry.
func (r RedisConfig) CacheTTL() time.Duration {
	return time.Duration(r.TTLSeconds) * time.Second
}

type RateLimitConfig struct {
	WindowSeconds int `envconfig:"RATE_LIMIT_WINDOW_SECONDS" default:"60" validate:"gt=0"`
	Count         int `envconfig:"RATE_LIMIT_COUNT" default:"20" validate:"gt=0"`
}

func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

type DatabaseConfig struct {
	DSN SecretString `envconfig:"DB_DSN"`
}

type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS"`
	Topic   string   `envconfig:"KAFKA_TOPIC" default:"weather_lookups" validate:"required"`
	Group   string   `envconfig:"KAFKA_GROUP" default:"weather_lookup_aggregator" validate:"required"`
}

// Enabled reports whether lookup events should be published.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type WarmerConfig struct {
	Interval    time.Duration `envconfig:"WARM_INTERVAL" default:"10m" validate:"gt=0"`
	TopN        int           `envconfig:"WARM_TOP_N" default:"20" validate:"gt=0"`
	Concurrency int           `envconfig:"WARM_CONCURRENCY" default:"4" validate:"gt=0"`
}

var (
	ErrMissingAPIKey   = errors.New("OPENWEATHER_API_KEY is required")
	ErrMissingDSN      = errors.New("DB_DSN is required")
	ErrMissingBrokers  = errors.New("KAFKA_BROKERS is required")
	errInvalidSettings = errors.New("invalid configuration")
)

// Load reads .env (if present) and the environment into a validated Config.
func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()
	return load()
}

func load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidSettings, err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidSettings, err)
	}
	return &cfg, nil
}

// RequireUpstream fails when the provider API key is not configured.
func (c *Config) RequireUpstream() error {
	if c.OpenWeather.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func (c *Config) RequireDatabase() error {
	if c.Database.DSN == "" {
		return ErrMissingDSN
	}
	return nil
}

func (c *Config) RequireKafka() error {
	if !c.Kafka.Enabled() {
		return ErrMissingBrokers
	}
	return nil
}

// IsProduction switches logging to JSON.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
