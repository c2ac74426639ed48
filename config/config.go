// Package config loads service configuration from an optional YAML file with
// environment variables taking precedence, matching how the service is
// deployed (env-only in containers, a file for local development).
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	// WorkspaceDatabaseURL points at the flow/folder/user database templates
	// are read from and copies are written to.
	WorkspaceDatabaseURL string `yaml:"workspace_database_url"`
	// EntitlementDatabaseURL points at the main application database holding
	// subscription tiers and walker-agent enablement.
	EntitlementDatabaseURL string `yaml:"entitlement_database_url"`

	// RedisURL enables the result cache, sync lock and rate limiter when set.
	RedisURL string `yaml:"redis_url"`

	ServiceToken string `yaml:"service_token"`
	AuthMode     string `yaml:"auth_mode"`     // "static" or "jwt"
	AuthAudience string `yaml:"auth_audience"` // jwt mode only

	RequestTimeout time.Duration `yaml:"request_timeout"`
	ResultCacheTTL time.Duration `yaml:"result_cache_ttl"`
	UpgradeURL     string        `yaml:"upgrade_url"`
}

// Load reads the optional YAML file at path (skipped when empty), applies
// environment overrides, fills defaults and validates.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Port:           8000,
		LogLevel:       "info",
		AuthMode:       "static",
		RequestTimeout: 60 * time.Second,
		ResultCacheTTL: 6 * time.Hour,
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Port)
	}
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.WorkspaceDatabaseURL, "LANGFLOW_DATABASE_URL")
	setString(&cfg.EntitlementDatabaseURL, "ENGARDE_DATABASE_URL")
	setString(&cfg.RedisURL, "REDIS_URL")
	setString(&cfg.ServiceToken, "SUBS_SYNC_SERVICE_TOKEN")
	setString(&cfg.AuthMode, "SUBS_SYNC_AUTH_MODE")
	setString(&cfg.AuthAudience, "SUBS_SYNC_AUTH_AUDIENCE")
	setString(&cfg.UpgradeURL, "UPGRADE_URL")
	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RequestTimeout = d
		}
	}
	if v := os.Getenv("RESULT_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ResultCacheTTL = d
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) validate() error {
	if c.WorkspaceDatabaseURL == "" {
		return errors.New("workspace database URL required (LANGFLOW_DATABASE_URL)")
	}
	if c.EntitlementDatabaseURL == "" {
		return errors.New("entitlement database URL required (ENGARDE_DATABASE_URL)")
	}
	if c.ServiceToken == "" {
		return errors.New("service token required (SUBS_SYNC_SERVICE_TOKEN)")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}
