package config

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	CounterBackendPostgres = "postgres"
	CounterBackendRedis    = "redis"
)

// AppConfig holds the application configuration
type AppConfig struct {
	Port         string `mapstructure:"PORT"`
	Env          string `mapstructure:"ENV"`
	DBURL        string `mapstructure:"DB_URL"`
	RedisAddress string `mapstructure:"REDIS_URL"`
	BearerToken  string `mapstructure:"BEARER_TOKEN"`
	SymmetricKey string `mapstructure:"SYMMETRIC_KEY"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	CounterBackend   string `mapstructure:"COUNTER_BACKEND"`
	NetPayablePolicy string `mapstructure:"BILLING_NET_PAYABLE_POLICY"`

	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`

	SMTPHost string `mapstructure:"SMTP_HOST"`
	SMTPPort int    `mapstructure:"SMTP_PORT"`
	SMTPUser string `mapstructure:"SMTP_USER"`
	SMTPPass string `mapstructure:"SMTP_PASS"`
	SMTPFrom string `mapstructure:"SMTP_FROM"`

	Redis RedisConfig `mapstructure:",squash"`
}

// RedisConfig holds the pool settings for the Redis client.
type RedisConfig struct {
	PoolSize     int           `mapstructure:"REDIS_POOL_SIZE"`
	MinIdleConns int           `mapstructure:"REDIS_MIN_IDLE_CONNS"`
	DialTimeout  time.Duration `mapstructure:"REDIS_DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `mapstructure:"REDIS_READ_TIMEOUT"`
	MaxRetries   int           `mapstructure:"REDIS_MAX_RETRIES"`
}

var keys = []string{
	"PORT", "ENV", "DB_URL", "REDIS_URL", "BEARER_TOKEN", "SYMMETRIC_KEY",
	"LOG_LEVEL", "LOG_FORMAT", "COUNTER_BACKEND", "BILLING_NET_PAYABLE_POLICY",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "CORS_ORIGINS",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASS", "SMTP_FROM",
	"REDIS_POOL_SIZE", "REDIS_MIN_IDLE_CONNS", "REDIS_DIAL_TIMEOUT", "REDIS_READ_TIMEOUT", "REDIS_MAX_RETRIES",
}

// Load reads configuration from the environment, falling back to a .env
// file in the working directory when present.
func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8930")
	v.SetDefault("ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("COUNTER_BACKEND", CounterBackendPostgres)
	v.SetDefault("BILLING_NET_PAYABLE_POLICY", "line-net")
	v.SetDefault("RATE_LIMIT_RPS", 15)
	v.SetDefault("RATE_LIMIT_BURST", 30)
	v.SetDefault("CORS_ORIGINS", "http://localhost:4200")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 5)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "30s")
	v.SetDefault("REDIS_READ_TIMEOUT", "10s")
	v.SetDefault("REDIS_MAX_RETRIES", 3)

	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	// A missing .env is fine; the environment is the primary source.
	_ = v.ReadInConfig()

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(strings.Join(cfg.CORSOrigins, ","))
	if cfg.SMTPFrom == "" {
		cfg.SMTPFrom = cfg.SMTPUser
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *AppConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, is.Port),
		validation.Field(&c.DBURL, validation.Required),
		validation.Field(&c.RedisAddress, validation.Required),
		validation.Field(&c.BearerToken, validation.Required),
		validation.Field(&c.SymmetricKey, validation.Required, validation.RuneLength(32, 32)),
		validation.Field(&c.CounterBackend, validation.In(CounterBackendPostgres, CounterBackendRedis)),
		validation.Field(&c.NetPayablePolicy, validation.In("line-net", "legacy-double-discount")),
		validation.Field(&c.RateLimitRPS, validation.Min(0.1)),
		validation.Field(&c.RateLimitBurst, validation.Min(1)),
	)
}

// GetBearerToken returns the BearerToken from the config
func (c *AppConfig) GetBearerToken() string {
	return c.BearerToken
}

// IsDevelopment reports whether verbose logging and insecure cookies are allowed.
func (c *AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
