// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/deckhall/deckhall/internal/xdg"
)

const delim = "."

// Defaults returns the built-in configuration values.
func Defaults() map[string]any {
	return map[string]any{
		"http.addr":             ":3000",
		"http.static_dir":       "public",
		"http.cors_origins":     []string{},
		"http.cookie_secure":    false,
		"metrics.addr":          "127.0.0.1:9100",
		"log.format":            "json",
		"log.level":             "info",
		"database.url":          "",
		"database.auto_migrate": true,
		"store.retry_attempts":  3,
		"session.store":         SessionStorePostgres,
		"session.ttl":           24 * time.Hour,
		"session.reap_interval": 10 * time.Minute,
		"redis.url":             "",
		"auth.hasher":           "bcrypt",
		"auth.bcrypt_cost":      10,
	}
}

// Environment variables that override the connection strings. Flags still
// take precedence.
var envKeys = map[string]string{
	"DATABASE_URL": "database.url",
	"REDIS_URL":    "redis.url",
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"http-addr":     "http.addr",
	"static-dir":    "http.static_dir",
	"cors-origin":   "http.cors_origins",
	"cookie-secure": "http.cookie_secure",
	"metrics-addr":  "metrics.addr",
	"log-format":    "log.format",
	"log-level":     "log.level",
	"database-url":  "database.url",
	"auto-migrate":  "database.auto_migrate",
	"session-store": "session.store",
	"redis-url":     "redis.url",
}

// RegisterFlags adds the overridable settings to fs. Flag defaults are
// informational; an unset flag never overrides a file value.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("http-addr", d["http.addr"].(string), "HTTP listen address")
	fs.String("static-dir", d["http.static_dir"].(string), "directory holding the built client")
	fs.StringSlice("cors-origin", nil, "allowed CORS origin pattern (repeatable)")
	fs.Bool("cookie-secure", false, "mark the session cookie Secure")
	fs.String("metrics-addr", d["metrics.addr"].(string), "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", d["log.format"].(string), "log format (json or text)")
	fs.String("log-level", d["log.level"].(string), "log level (debug, info, warn, error)")
	fs.String("database-url", "", "PostgreSQL connection URL")
	fs.Bool("auto-migrate", true, "apply pending migrations on start")
	fs.String("session-store", d["session.store"].(string), "session backend (postgres or redis)")
	fs.String("redis-url", "", "Redis URL for the redis session backend")
}

// Load builds the effective configuration: defaults, then the YAML file, then
// environment, then flags the user set. path is the --config value; when
// empty the XDG config file is read if present. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(delim)

	if err := k.Load(confmap.Provider(Defaults(), delim), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").Wrap(err)
	}

	if path == "" {
		defaultPath, exists, err := xdg.ConfigFile()
		if err != nil {
			return nil, err
		}
		if exists {
			path = defaultPath
		}
	} else if _, err := os.Stat(path); err != nil {
		return nil, oops.Code("CONFIG_NOT_FOUND").With("path", path).Wrap(err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	for env, key := range envKeys {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			if err := k.Set(key, v); err != nil {
				return nil, oops.Code("CONFIG_LOAD_FAILED").With("env", env).Wrap(err)
			}
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, delim, k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
	}
	return &cfg, nil
}
