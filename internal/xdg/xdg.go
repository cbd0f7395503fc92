// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package xdg resolves Warden's XDG base directory paths.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "warden"

// ConfigDir returns $XDG_CONFIG_HOME/warden, falling back to ~/.config/warden.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// ConfigFile returns the default config file path.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ExistingConfigFile returns ConfigFile if it exists and is a regular file.
func ExistingConfigFile() (string, bool) {
	path := ConfigFile()
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return path, true
}
