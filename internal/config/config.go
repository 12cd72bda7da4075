// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

// Package config loads the server configuration from built-in defaults, an
// optional YAML file, command-line flags and a few environment variables,
// in that order of precedence.
package config

import (
	"net/url"
	"time"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Session store backends.
const (
	SessionStorePostgres = "postgres"
	SessionStoreRedis    = "redis"
)

// Config is the effective server configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http" yaml:"http"`
	Metrics  MetricsConfig  `koanf:"metrics" yaml:"metrics"`
	Log      LogConfig      `koanf:"log" yaml:"log"`
	Database DatabaseConfig `koanf:"database" yaml:"database"`
	Store    StoreConfig    `koanf:"store" yaml:"store"`
	Session  SessionConfig  `koanf:"session" yaml:"session"`
	Redis    RedisConfig    `koanf:"redis" yaml:"redis"`
	Auth     AuthConfig     `koanf:"auth" yaml:"auth"`
}

// HTTPConfig configures the public listener.
type HTTPConfig struct {
	Addr         string   `koanf:"addr" yaml:"addr"`
	StaticDir    string   `koanf:"static_dir" yaml:"static_dir"`
	CORSOrigins  []string `koanf:"cors_origins" yaml:"cors_origins"`
	CookieSecure bool     `koanf:"cookie_secure" yaml:"cookie_secure"`
}

// MetricsConfig configures the metrics and health listener. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Format string `koanf:"format" yaml:"format"`
	Level  string `koanf:"level" yaml:"level"`
}

// DatabaseConfig configures PostgreSQL.
type DatabaseConfig struct {
	URL         string `koanf:"url" yaml:"url"`
	AutoMigrate bool   `koanf:"auto_migrate" yaml:"auto_migrate"`
}

// StoreConfig tunes repository calls.
type StoreConfig struct {
	RetryAttempts int `koanf:"retry_attempts" yaml:"retry_attempts"`
}

// SessionConfig configures login sessions.
type SessionConfig struct {
	Store        string        `koanf:"store" yaml:"store"`
	TTL          time.Duration `koanf:"ttl" yaml:"ttl"`
	ReapInterval time.Duration `koanf:"reap_interval" yaml:"reap_interval"`
}

// RedisConfig configures the Redis session backend.
type RedisConfig struct {
	URL string `koanf:"url" yaml:"url"`
}

// AuthConfig configures password hashing.
type AuthConfig struct {
	Hasher     string `koanf:"hasher" yaml:"hasher"`
	BcryptCost int    `koanf:"bcrypt_cost" yaml:"bcrypt_cost"`
}

// Validate checks required fields and enumerations.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return invalid("http.addr", "is required")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return invalid("log.format", "must be json or text")
	}
	if err := c.ValidateDatabase(); err != nil {
		return err
	}
	if c.Store.RetryAttempts < 1 {
		return invalid("store.retry_attempts", "must be at least 1")
	}

	switch c.Session.Store {
	case SessionStorePostgres:
	case SessionStoreRedis:
		if c.Redis.URL == "" {
			return invalid("redis.url", "is required when session.store is redis")
		}
	default:
		return invalid("session.store", "must be postgres or redis")
	}
	if c.Session.TTL <= 0 {
		return invalid("session.ttl", "must be positive")
	}
	if c.Session.ReapInterval <= 0 {
		return invalid("session.reap_interval", "must be positive")
	}

	switch c.Auth.Hasher {
	case "bcrypt", "argon2id":
	default:
		return invalid("auth.hasher", "must be bcrypt or argon2id")
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return invalid("auth.bcrypt_cost", "is out of range")
	}
	return nil
}

// ValidateDatabase checks only what the migrate commands need.
func (c *Config) ValidateDatabase() error {
	if c.Database.URL == "" {
		return invalid("database.url", "is required (set DATABASE_URL or database.url)")
	}
	return nil
}

// YAML renders the configuration with credentials in URLs masked.
func (c *Config) YAML() ([]byte, error) {
	redacted := *c
	redacted.HTTP.CORSOrigins = append([]string(nil), c.HTTP.CORSOrigins...)
	redacted.Database.URL = redactURL(c.Database.URL)
	redacted.Redis.URL = redactURL(c.Redis.URL)

	out, err := yaml.Marshal(&redacted)
	if err != nil {
		return nil, oops.Code("CONFIG_ENCODE_FAILED").Wrap(err)
	}
	return out, nil
}

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}

func invalid(key, reason string) error {
	return oops.Code("CONFIG_INVALID").With("key", key).Errorf("%s %s", key, reason)
}
