package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"

	"github.com/marmos91/snapfiles/internal/logger"
	"github.com/marmos91/snapfiles/pkg/content"
)

// CreateHandleCache builds the storage backend selected by cfg.Type, the
// resolver rooted in it, and the handle cache on top.
//
// The root directory is created if it does not exist.
func CreateHandleCache(cfg *StorageConfig) (*content.HandleCache, error) {
	fsys, root, err := CreateFilesystem(cfg)
	if err != nil {
		return nil, err
	}

	resolver, err := content.NewResolver(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolver: %w", err)
	}

	logger.Info("Storage: type=%s root=%s max_open_files=%d", cfg.Type, root, cfg.MaxOpenFiles)
	return content.NewHandleCache(resolver, cfg.MaxOpenFiles), nil
}

// CreateFilesystem returns the afero filesystem and root directory for
// the configured backend.
func CreateFilesystem(cfg *StorageConfig) (afero.Fs, string, error) {
	switch cfg.Type {
	case "filesystem":
		return createOsFilesystem(cfg.Filesystem)
	case "memory":
		return createMemoryFilesystem(cfg.Memory)
	default:
		return nil, "", fmt.Errorf("unknown storage type: %q", cfg.Type)
	}
}

func createOsFilesystem(options map[string]any) (afero.Fs, string, error) {
	type FilesystemStorageConfig struct {
		Path string `mapstructure:"path"`
	}

	var storageCfg FilesystemStorageConfig
	if err := mapstructure.Decode(options, &storageCfg); err != nil {
		return nil, "", fmt.Errorf("failed to decode filesystem storage config: %w", err)
	}

	if storageCfg.Path == "" {
		return nil, "", fmt.Errorf("filesystem storage: path is required")
	}

	root, err := filepath.Abs(expandHome(storageCfg.Path))
	if err != nil {
		return nil, "", fmt.Errorf("filesystem storage: %w", err)
	}

	return afero.NewOsFs(), root, nil
}

func createMemoryFilesystem(options map[string]any) (afero.Fs, string, error) {
	type MemoryStorageConfig struct {
		Root string `mapstructure:"root"`
	}

	var storageCfg MemoryStorageConfig
	if err := mapstructure.Decode(options, &storageCfg); err != nil {
		return nil, "", fmt.Errorf("failed to decode memory storage config: %w", err)
	}

	if storageCfg.Root == "" {
		storageCfg.Root = DefaultMemoryRoot
	}

	logger.Warn("Using in-memory storage: files are lost on shutdown")
	return afero.NewMemMapFs(), filepath.Clean(storageCfg.Root), nil
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
