// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

// Package xdg provides XDG Base Directory paths for Deckhall.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "deckhall"

// ConfigFileName is the file looked up under ConfigDir when no --config
// flag is given.
const ConfigFileName = "config.yaml"

// ConfigDir returns the XDG config directory for deckhall.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", oops.Code("XDG_HOME_UNKNOWN").Wrap(err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, appName), nil
}

// ConfigFile returns the default config file path and whether it exists.
func ConfigFile() (string, bool, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", false, err
	}
	path := filepath.Join(dir, ConfigFileName)
	info, err := os.Stat(path)
	switch {
	case err == nil:
		return path, !info.IsDir(), nil
	case os.IsNotExist(err):
		return path, false, nil
	default:
		return path, false, oops.Code("XDG_STAT_FAILED").With("path", path).Wrap(err)
	}
}
