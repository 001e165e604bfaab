package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	cadence, err := cfg.Cadence()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cadence)
	assert.Equal(t, "git", cfg.Diff.Renderer)
	assert.True(t, cfg.Cache.Enabled)
	assert.False(t, cfg.Search.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromOverridesOnlyGivenKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[playback]
cadence = "500ms"

[diff]
renderer = "http"
`), 0o644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	cadence, err := cfg.Cadence()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cadence)
	assert.Equal(t, "http", cfg.Diff.Renderer)
	assert.Equal(t, "actions", cfg.Playback.ActionsDir)
	assert.Equal(t, "diff-backend", cfg.Diff.Credential)
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Playback.ActionsDir = "session-7"
	cfg.Search.Enabled = true

	require.NoError(t, cfg.SaveTo(path))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "session-7", loaded.Playback.ActionsDir)
	assert.True(t, loaded.Search.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{name: "zero cadence", mutate: func(c *Config) { c.Playback.Cadence = "0s" }, errMsg: "must be positive"},
		{name: "bad cadence", mutate: func(c *Config) { c.Playback.Cadence = "soon" }, errMsg: "playback.cadence"},
		{name: "unknown renderer", mutate: func(c *Config) { c.Diff.Renderer = "svn" }, errMsg: "git or http"},
		{name: "cache without path", mutate: func(c *Config) { c.Cache.Path = " " }, errMsg: "cache.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestGetConfigPathHonoursEnv(t *testing.T) {
	t.Setenv("REPLAY_CONFIG", "/tmp/elsewhere.toml")
	assert.Equal(t, "/tmp/elsewhere.toml", GetConfigPath())
}
