package gvm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gvm.toml")
	require.NoError(t, os.WriteFile(path, []byte("stack_capacity = 128\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 128, cfg.StackCapacity)
	require.Equal(t, DefaultGCTickThreshold, cfg.GCTickThreshold)
}

func TestLoadConfigRejectsMalformedToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gvm.toml")
	require.NoError(t, os.WriteFile(path, []byte("not valid toml :::"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}
