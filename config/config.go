// Package config loads service configuration from an optional YAML file
// and ICHI_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// EnvProduction is the only environment in which dev overrides are never honored.
	EnvProduction = "production"

	// HardMaxRecipients caps ping.max_recipients regardless of configuration.
	HardMaxRecipients = 10
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Ping      PingConfig      `mapstructure:"ping"`
	Mail      MailConfig      `mapstructure:"mail"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Dev       DevOverrides    `mapstructure:"dev"`
}

type AppConfig struct {
	Env           string `mapstructure:"env"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres | sqlite
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | console
}

type PingConfig struct {
	MaxRecipients     int           `mapstructure:"max_recipients"`
	ReferenceTimeZone string        `mapstructure:"reference_time_zone"`
	SentMarkerTTL     time.Duration `mapstructure:"sent_marker_ttl"`
}

type MailConfig struct {
	Driver   string `mapstructure:"driver"` // smtp | log
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

// DevOverrides loosen rate limiting for local testing. Read them through
// Config.DevOverrides, never through the Dev field directly.
type DevOverrides struct {
	DisableRateLimits    bool `mapstructure:"disable_rate_limits"`
	UniqueDayKeys        bool `mapstructure:"unique_day_keys"`
	MaxRecipientsCeiling int  `mapstructure:"max_recipients_ceiling"`
}

// Load reads the config file at path (optional) and overlays environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ICHI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Database.DSN == "" {
		return nil, errors.New("database.dsn is required")
	}
	if cfg.Auth.JWTSecret == "" && cfg.IsProduction() {
		return nil, errors.New("auth.jwt_secret is required in production")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.public_base_url", "http://localhost:8080")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("ping.max_recipients", 3)
	v.SetDefault("ping.reference_time_zone", "Europe/Berlin")
	v.SetDefault("ping.sent_marker_ttl", 36*time.Hour)

	v.SetDefault("mail.driver", "log")
	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "ichi <noreply@localhost>")

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("rate_limit.rps", 1.0)
	v.SetDefault("rate_limit.burst", 5)

	v.SetDefault("sentry.dsn", "")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.service_name", "ichi")

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "ichi.ping.sent")

	v.SetDefault("dev.disable_rate_limits", false)
	v.SetDefault("dev.unique_day_keys", false)
	v.SetDefault("dev.max_recipients_ceiling", 0)
}

// IsProduction reports whether app.env is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, EnvProduction)
}

// DevOverrides returns the dev section only for binaries built with the
// ichidev tag and running outside production. Otherwise it is the zero value.
func (c *Config) DevOverrides() DevOverrides {
	if !devOverridesCompiled || c.IsProduction() {
		return DevOverrides{}
	}
	return c.Dev
}

// EffectiveMaxRecipients clamps ping.max_recipients to [1, HardMaxRecipients],
// or to the dev ceiling when one is active.
func (c *Config) EffectiveMaxRecipients() int {
	ceiling := HardMaxRecipients
	if dev := c.DevOverrides().MaxRecipientsCeiling; dev > 0 {
		ceiling = dev
	}
	return clampRecipients(c.Ping.MaxRecipients, ceiling)
}

func clampRecipients(n, ceiling int) int {
	if n < 1 {
		return 1
	}
	if n > ceiling {
		return ceiling
	}
	return n
}
