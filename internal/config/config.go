// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/colocapp/coloc-server/internal/domain"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Storage   StorageConfig
	Server    ServerConfig
	Auth      AuthConfig
	Flats     FlatsConfig
	RateLimit RateLimitConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `env:"ENV" envDefault:"development"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// StorageConfig holds the data directory. The database and the identity
// key live under it.
type StorageConfig struct {
	DataPath string `env:"DATA_PATH"`
}

// DatabasePath returns the SQLite database file path.
func (s StorageConfig) DatabasePath() string {
	return filepath.Join(s.DataPath, "coloc.db")
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port           string        `env:"SERVER_PORT"          envDefault:"8080"`
	ReadTimeout    time.Duration `env:"SERVER_READ_TIMEOUT"  envDefault:"15s"`
	WriteTimeout   time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout    time.Duration `env:"SERVER_IDLE_TIMEOUT"  envDefault:"60s"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// AuthConfig holds identity token configuration.
type AuthConfig struct {
	TokenDuration time.Duration `env:"IDENTITY_TOKEN_DURATION" envDefault:"24h"`
}

// FlatsConfig holds flat registry configuration.
type FlatsConfig struct {
	// DeletePolicy is "creator" or "member".
	DeletePolicy string `env:"FLAT_DELETE_POLICY" envDefault:"creator"`
}

// Policy returns the parsed delete policy. Call after Validate.
func (f FlatsConfig) Policy() domain.DeletePolicy {
	policy, _ := domain.ParseDeletePolicy(f.DeletePolicy)
	return policy
}

// RateLimitConfig holds per-client request limits for the API.
// A zero RPS disables limiting.
type RateLimitConfig struct {
	RPS   float64       `env:"RATE_LIMIT_RPS"   envDefault:"10"`
	Burst int           `env:"RATE_LIMIT_BURST" envDefault:"20"`
	Idle  time.Duration `env:"RATE_LIMIT_IDLE"  envDefault:"10m"`
}

// TelemetryConfig holds tracing configuration. An empty endpoint disables
// export.
type TelemetryConfig struct {
	Endpoint    string `env:"OTEL_ENDPOINT"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"coloc-server"`
}

// flagKeys maps command-line flags to the environment keys they override.
var flagKeys = []struct {
	name, key, usage string
}{
	{"env", "ENV", "Environment (development, staging, production)"},
	{"log-level", "LOG_LEVEL", "Log level (debug, info, warn, error)"},
	{"data-path", "DATA_PATH", "Directory for the database and identity key"},
	{"port", "SERVER_PORT", "Server port (default: 8080)"},
	{"read-timeout", "SERVER_READ_TIMEOUT", "HTTP read timeout (default: 15s)"},
	{"write-timeout", "SERVER_WRITE_TIMEOUT", "HTTP write timeout (default: 15s)"},
	{"idle-timeout", "SERVER_IDLE_TIMEOUT", "HTTP idle timeout (default: 60s)"},
	{"cors-origins", "CORS_ALLOWED_ORIGINS", "Comma-separated allowed CORS origins"},
	{"token-duration", "IDENTITY_TOKEN_DURATION", "Identity token lifetime (default: 24h)"},
	{"delete-policy", "FLAT_DELETE_POLICY", "Who may delete a flat (creator, member)"},
	{"otel-endpoint", "OTEL_ENDPOINT", "OTLP/HTTP trace endpoint (empty disables tracing)"},
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("coloc-server", flag.ContinueOnError)
	envFile := fs.String("env-file", ".env", "Path to .env file")
	values := make(map[string]*string, len(flagKeys))
	for _, f := range flagKeys {
		values[f.key] = fs.String(f.name, "", f.usage)
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file %s: %w", *envFile, err)
	}

	environment := environMap()
	for key, v := range values {
		if *v != "" {
			environment[key] = *v
		}
	}

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environment}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// environMap returns the process environment as a map.
func environMap() map[string]string {
	m := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			m[k] = v
		}
	}
	return m
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %q (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Storage.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 || c.Server.IdleTimeout <= 0 {
		return errors.New("server timeouts must be positive")
	}

	if c.Auth.TokenDuration <= 0 {
		return errors.New("identity token duration must be positive")
	}

	if c.RateLimit.RPS < 0 || (c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1) {
		return errors.New("rate limit needs a non-negative rps and a burst of at least 1")
	}

	if _, ok := domain.ParseDeletePolicy(c.Flats.DeletePolicy); !ok {
		return fmt.Errorf("invalid flat delete policy: %q (must be creator or member)", c.Flats.DeletePolicy)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath defaults the data directory to ~/.coloc.
func (c *Config) expandDataPath() error {
	defaultPath := ""
	if c.Storage.DataPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		defaultPath = filepath.Join(homeDir, ".coloc")
	}

	expanded, err := expandPath(c.Storage.DataPath, defaultPath)
	if err != nil {
		return err
	}
	c.Storage.DataPath = expanded
	return nil
}
