// Package config loads the gateway's configuration surface: session
// bounds, pool sizing, and database connection parameters. The layering
// (code default < optional YAML file < environment variable) mirrors the
// envDefault/file/env precedence model in StricklySoft-core's
// pkg/config/loader.go, reimplemented on spf13/viper rather than that
// package's reflection-tag walking.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable this package
// reads, so PGGATEWAY_MAX_SESSIONS overrides max_sessions, etc.
const EnvPrefix = "PGGATEWAY"

// Database holds the parameters needed to reach the target Postgres
// instance.
type Database struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN renders Database as a libpq connection string for pgxpool.ParseConfig.
func (d Database) DSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode)
}

// Config is the gateway's full configuration surface.
type Config struct {
	MaxSessions int           `mapstructure:"max_sessions"`
	SessionTTL  time.Duration `mapstructure:"session_ttl"`
	PoolMin     int           `mapstructure:"pool_min"`
	PoolMax     int           `mapstructure:"pool_max"`
	Database    Database      `mapstructure:"database"`

	// ShutdownGrace bounds the session manager's shutdown (rolling back
	// live sessions and closing the pool) once the serve loop has
	// returned. In-flight handlers get no separate grace period: they run
	// on the serve loop's context, which is canceled when the shutdown
	// signal arrives.
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`

	// MetricsEnabled toggles whether monitor.metrics has a populated
	// registry to report from.
	MetricsEnabled bool `mapstructure:"metrics_enabled"`
}

func defaults() Config {
	return Config{
		MaxSessions: 10,
		SessionTTL:  30 * time.Minute,
		PoolMin:     2,
		PoolMax:     10,
		Database: Database{
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
		},
		ShutdownGrace:  10 * time.Second,
		MetricsEnabled: true,
	}
}

// Load resolves Config from defaults, an optional YAML file at path (if
// non-empty and present), and PGGATEWAY_-prefixed environment variables,
// in that ascending priority order, then validates it.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := defaults()
	v.SetDefault("max_sessions", def.MaxSessions)
	v.SetDefault("session_ttl", def.SessionTTL)
	v.SetDefault("pool_min", def.PoolMin)
	v.SetDefault("pool_max", def.PoolMax)
	v.SetDefault("shutdown_grace", def.ShutdownGrace)
	v.SetDefault("metrics_enabled", def.MetricsEnabled)
	v.SetDefault("database.host", def.Database.Host)
	v.SetDefault("database.port", def.Database.Port)
	v.SetDefault("database.sslmode", def.Database.SSLMode)

	// viper's AutomaticEnv only checks the environment for keys it has
	// already been told about; nested keys need an explicit bind.
	for _, key := range []string{
		"max_sessions", "session_ttl", "pool_min", "pool_max",
		"shutdown_grace", "metrics_enabled",
		"database.host", "database.port", "database.name",
		"database.user", "database.password", "database.sslmode",
	} {
		_ = v.BindEnv(key)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("config: failed to read %q: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: failed to decode: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces the invariants the rest of the system assumes hold:
// positive max_sessions, session_ttl and pool_max, a non-negative
// pool_min, a pool_min <= pool_max ordering (an inverted pair is
// meaningless), and a non-empty database host.
func (c Config) Validate() error {
	if c.MaxSessions <= 0 {
		return fmt.Errorf("config: max_sessions must be positive, got %d", c.MaxSessions)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("config: session_ttl must be positive, got %s", c.SessionTTL)
	}
	if c.PoolMin < 0 {
		return fmt.Errorf("config: pool_min must not be negative, got %d", c.PoolMin)
	}
	if c.PoolMax <= 0 {
		return fmt.Errorf("config: pool_max must be positive, got %d", c.PoolMax)
	}
	if c.PoolMin > c.PoolMax {
		return fmt.Errorf("config: pool_min (%d) must not exceed pool_max (%d)", c.PoolMin, c.PoolMax)
	}
	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host must not be empty")
	}
	return nil
}
