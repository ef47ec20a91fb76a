package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateHandleCache_Filesystem(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Documents", "SnapFiles")
	cfg := &StorageConfig{
		Type:         "filesystem",
		MaxOpenFiles: 4,
		Filesystem:   map[string]any{"path": root},
	}

	cache, err := CreateHandleCache(cfg)
	require.NoError(t, err)

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.Equal(t, root, cache.Resolver().Root())
	_, max := cache.Stats()
	assert.Equal(t, 4, max)
}

func TestCreateHandleCache_Memory(t *testing.T) {
	cache, err := CreateHandleCache(&StorageConfig{
		Type:         "memory",
		MaxOpenFiles: 8,
		Memory:       map[string]any{"root": "/virtual"},
	})
	require.NoError(t, err)
	assert.Equal(t, "/virtual", cache.Resolver().Root())

	_, isMem := cache.Resolver().Fs().(*afero.MemMapFs)
	assert.True(t, isMem)
	require.NoError(t, cache.Open("u", "a.txt"))
}

func TestCreateFilesystem_Errors(t *testing.T) {
	_, _, err := CreateFilesystem(&StorageConfig{Type: "s3"})
	assert.Error(t, err)

	_, _, err = CreateFilesystem(&StorageConfig{Type: "filesystem", Filesystem: map[string]any{}})
	assert.ErrorContains(t, err, "path is required")

	_, _, err = CreateFilesystem(&StorageConfig{Type: "filesystem", Filesystem: map[string]any{"path": []int{1}}})
	assert.Error(t, err)
}

func TestCreateFilesystem_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	_, root, err := CreateFilesystem(&StorageConfig{Type: "filesystem", Filesystem: map[string]any{"path": "~/Documents/SnapFiles"}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "Documents", "SnapFiles"), root)
}

func TestSFSConfig(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.Port = 8123
	cfg.Server.ShutdownTimeout = 3 * time.Second
	cfg.RateLimit.Enabled = true

	sfsCfg := SFSConfig(cfg)
	assert.Equal(t, 8123, sfsCfg.Port)
	assert.Equal(t, 3*time.Second, sfsCfg.ShutdownTimeout)
	assert.True(t, sfsCfg.RateLimit.Enabled)
	assert.Equal(t, uint(100), sfsCfg.RateLimit.RequestsPerSecond)

	adapters := CreateAdapters(cfg, nil)
	require.Len(t, adapters, 1)
	assert.Equal(t, "SFS", adapters[0].Protocol())
	assert.Equal(t, 8123, adapters[0].Port())
}

func TestInitializeMetrics_Disabled(t *testing.T) {
	result := InitializeMetrics(GetDefaultConfig())

	assert.Nil(t, result.Server)
	assert.NotNil(t, result.CommandMetrics)
	assert.NotNil(t, result.HTTPMetrics)
}
