package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Session     SessionConfig     `mapstructure:"session"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Points      PointsConfig      `mapstructure:"points"`
	Tenancy     TenancyConfig     `mapstructure:"tenancy"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	PublicURL    string        `mapstructure:"public_url"`
}

type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// SessionConfig configures the cookie that carries the server-side session id.
type SessionConfig struct {
	Name          string `mapstructure:"name"`
	HashKey       string `mapstructure:"hash_key"`
	BlockKey      string `mapstructure:"block_key"`
	MaxAgeSeconds int    `mapstructure:"max_age_seconds"`
	Secure        bool   `mapstructure:"secure"`
	Domain        string `mapstructure:"domain"`
}

type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type RateLimitConfig struct {
	LoginPerMinute int `mapstructure:"login_per_minute"`
}

type CacheConfig struct {
	SuperAdminTTL time.Duration `mapstructure:"superadmin_ttl"`
}

// PointsConfig points the completion ledger at an optional external collector.
type PointsConfig struct {
	WebhookURL    string        `mapstructure:"webhook_url"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type TenancyConfig struct {
	DefaultTenantID string `mapstructure:"default_tenant_id"`
}

// MaintenanceConfig drives the housekeeping worker.
type MaintenanceConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.public_url", "http://localhost:8080")
	v.SetDefault("database.path", "data/dzemat.db")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("session.name", "dzemat_session")
	v.SetDefault("session.max_age_seconds", 7*24*60*60)
	v.SetDefault("jwt.access_token_ttl", 24*time.Hour)
	v.SetDefault("rate_limit.login_per_minute", 20)
	v.SetDefault("cache.superadmin_ttl", 5*time.Minute)
	v.SetDefault("points.timeout", 10*time.Second)
	v.SetDefault("tenancy.default_tenant_id", "default-tenant-demo")
	v.SetDefault("maintenance.interval", time.Hour)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
