package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fractalic-run/fractalic/config"
)

func TestDefaultHasSaneValues(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, "openai", cfg.DefaultProvider)
	assert.NotZero(t, cfg.TimeoutsSeconds["shell"])
}

func TestLoadMergesOverYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fractalic.yaml")
	require.NoError(t, os.WriteFile(path, []byte("defaultProvider: anthropic\nproviders:\n  anthropic:\n    model: claude\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.DefaultProvider)
	assert.Equal(t, "claude", cfg.Providers["anthropic"].Model)
	assert.NotZero(t, cfg.TimeoutsSeconds["shell"], "defaults still present when file doesn't override them")
}

func TestLoadMergesOTLPEndpoint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fractalic.yaml")
	require.NoError(t, os.WriteFile(path, []byte("otlpEndpoint: http://localhost:4318\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4318", cfg.OTLPEndpoint)
}

func TestIsOSeries(t *testing.T) {
	assert.True(t, config.IsOSeries("o1-preview"))
	assert.True(t, config.IsOSeries("o3-mini"))
	assert.False(t, config.IsOSeries("gpt-4o"))
}
