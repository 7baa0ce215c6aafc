// Package config provides configuration management for the storyfeed
// API. It loads configuration from an optional YAML file and environment
// variables using Viper, with validation after load.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultConfigPath is where Load looks when no path is given.
const DefaultConfigPath = "config/config.yaml"

// Config is the complete configuration for the storyfeed API server.
//
// Configuration can be loaded from:
//   - YAML file (config/config.yaml)
//   - Environment variables (prefixed with STORYFEED_)
//
// Example:
//
//	cfg, err := config.Load("config/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Security      SecurityConfig      `mapstructure:"security"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Host is the network interface to bind to
	Host string `mapstructure:"host"`

	// Port is the HTTP server port (default: 8000)
	Port int `mapstructure:"port"`

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration `mapstructure:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the response.
	// Must stay generous; active subscriptions hold their connection open.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// IdleTimeout is the maximum duration to wait for the next request when keep-alives are enabled
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// GinMode sets the Gin framework mode ("debug", "release", "test")
	GinMode string `mapstructure:"gin_mode"`
}

// AuthConfig contains token signing configuration.
type AuthConfig struct {
	// Secret is the HMAC signing secret for bearer tokens.
	// Supplied via STORYFEED_AUTH_SECRET; never checked into config files.
	Secret string `mapstructure:"secret"`

	// TokenTTL is how long issued tokens stay valid (default: 1h)
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// DatabaseConfig contains database connection configuration.
type DatabaseConfig struct {
	// DSN is the sqlite data source name. File path for persistent
	// storage; "file::memory:?cache=shared" for an in-memory database.
	DSN string `mapstructure:"dsn"`
}

// ObservabilityConfig contains logging and metrics configuration.
type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level sets the log level ("debug", "info", "warn", "error", "fatal")
	Level string `mapstructure:"level"`

	// Format sets the log format ("json", "console")
	Format string `mapstructure:"format"`

	// Development enables development mode (console encoder, colors)
	Development bool `mapstructure:"development"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled enables the metrics endpoint
	Enabled bool `mapstructure:"enabled"`

	// Path is the HTTP path for the metrics endpoint (default: "/metrics")
	Path string `mapstructure:"path"`
}

// SecurityConfig contains security-related configuration.
type SecurityConfig struct {
	// EnableCORS enables CORS support
	EnableCORS bool `mapstructure:"enable_cors"`

	// AllowedOrigins is a list of allowed CORS origins
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load loads configuration from the specified file path and environment
// variables. Environment variables override file values and are prefixed
// with STORYFEED_ (e.g. STORYFEED_SERVER_PORT=9000). The config file is
// optional; the auth secret usually arrives via STORYFEED_AUTH_SECRET.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/storyfeed")
	}

	v.SetEnvPrefix("STORYFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional if all values come from env vars.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for all configuration options.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "0")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.gin_mode", "release")

	// Auth defaults
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.token_ttl", "1h")

	// Database defaults
	v.SetDefault("database.dsn", "data/storyfeed.db")

	// Logging defaults
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.logging.development", false)

	// Metrics defaults
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")

	// Security defaults
	v.SetDefault("security.enable_cors", false)
	v.SetDefault("security.allowed_origins", []string{})
}

// Validate validates the configuration. Call it after Load.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}

	if c.Server.GinMode != "debug" && c.Server.GinMode != "release" && c.Server.GinMode != "test" {
		return fmt.Errorf("invalid gin_mode: %s (must be debug, release, or test)", c.Server.GinMode)
	}

	if c.Auth.Secret == "" {
		return fmt.Errorf("auth secret is required (set STORYFEED_AUTH_SECRET)")
	}

	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("invalid auth token_ttl: %s (must be > 0)", c.Auth.TokenTTL)
	}

	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn cannot be empty")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true,
	}
	if !validLogLevels[c.Observability.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", c.Observability.Logging.Level)
	}

	if c.Observability.Logging.Format != "json" && c.Observability.Logging.Format != "console" {
		return fmt.Errorf("invalid logging format: %s (must be json or console)", c.Observability.Logging.Format)
	}

	if c.Observability.Metrics.Enabled && c.Observability.Metrics.Path == "" {
		return fmt.Errorf("metrics path cannot be empty when metrics are enabled")
	}

	return nil
}
