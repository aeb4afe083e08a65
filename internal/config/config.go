// Package config loads the server configuration.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/evcraddock/field-scheduler/internal/db"
)

// EnvPrefix is prepended to every environment variable, e.g. FSCHED_PORT.
const EnvPrefix = "FSCHED"

// Config holds the server settings.
type Config struct {
	Port         int    `mapstructure:"port"`
	DBPath       string `mapstructure:"db_path"`
	DatabaseURL  string `mapstructure:"database_url"`
	DevMode      bool   `mapstructure:"dev_mode"`
	OTelEndpoint string `mapstructure:"otel_endpoint"`
	OTelInsecure bool   `mapstructure:"otel_insecure"`
	APIRateLimit int    `mapstructure:"api_rate_limit"`
}

var keys = []string{
	"port",
	"db_path",
	"database_url",
	"dev_mode",
	"otel_endpoint",
	"otel_insecure",
	"api_rate_limit",
}

// Load reads configuration from defaults, the optional YAML file at path,
// and FSCHED_* environment variables, in increasing order of precedence.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaultDB, err := db.DefaultPath()
	if err != nil {
		return nil, err
	}

	// Defaults
	v.SetDefault("port", 8080)
	v.SetDefault("db_path", defaultDB)
	v.SetDefault("database_url", "")
	v.SetDefault("dev_mode", false)
	v.SetDefault("otel_endpoint", "")
	v.SetDefault("otel_insecure", false)
	v.SetDefault("api_rate_limit", 10)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("binding %s: %w", k, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be 1-65535, got %d", c.Port))
	}
	if c.DatabaseURL == "" && c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required when database_url is not set"))
	}
	if c.APIRateLimit <= 0 {
		errs = append(errs, fmt.Errorf("api_rate_limit must be positive, got %d", c.APIRateLimit))
	}
	return errors.Join(errs...)
}

// UsePostgres reports whether visits are stored in PostgreSQL.
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}
