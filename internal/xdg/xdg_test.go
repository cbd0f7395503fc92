// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package xdg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDir(t *testing.T) {
	t.Run("uses XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		assert.Equal(t, "/custom/config/warden", ConfigDir())
		assert.Equal(t, "/custom/config/warden/config.yaml", ConfigFile())
	})

	t.Run("falls back to HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("HOME", "/home/test")
		assert.Equal(t, "/home/test/.config/warden", ConfigDir())
	})
}

func TestExistingConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	_, ok := ExistingConfigFile()
	assert.False(t, ok)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "warden"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "warden", "config.yaml"), []byte("log:\n  level: debug\n"), 0o600))

	path, ok := ExistingConfigFile()
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "warden", "config.yaml"), path)
}

func TestExistingConfigFile_IgnoresDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "warden", "config.yaml"), 0o700))

	_, ok := ExistingConfigFile()
	assert.False(t, ok)
}
