package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/snapfiles/pkg/adapter/sfs"
	"github.com/marmos91/snapfiles/pkg/content"
	"github.com/marmos91/snapfiles/pkg/metrics"
)

// DefaultMemoryRoot is the virtual root of the in-memory storage backend.
const DefaultMemoryRoot = "/SnapFiles"

// ApplyDefaults fills zero-valued fields with their defaults. Values loaded
// from the file or the environment are never overwritten.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyStorageDefaults(&cfg.Storage)
	applyRateLimitDefaults(&cfg.RateLimit)
	applyMetricsDefaults(&cfg.Metrics)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Port == 0 {
		cfg.Port = sfs.DefaultPort
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 2 * time.Minute
	}
	if cfg.MetricsLogInterval == 0 {
		cfg.MetricsLogInterval = 5 * time.Minute
	}
}

func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.Type == "" {
		cfg.Type = "filesystem"
	}
	if cfg.MaxOpenFiles == 0 {
		cfg.MaxOpenFiles = content.DefaultMaxOpenFiles
	}

	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}

	if _, ok := cfg.Filesystem["path"]; !ok {
		cfg.Filesystem["path"] = DefaultStoragePath()
	}
	if _, ok := cfg.Memory["root"]; !ok {
		cfg.Memory["root"] = DefaultMemoryRoot
	}
}

func applyRateLimitDefaults(cfg *RateLimitConfig) {
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 100
	}
	if cfg.Burst == 0 {
		cfg.Burst = 2 * cfg.RequestsPerSecond
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = metrics.DefaultPort
	}
}

// DefaultStoragePath returns the SnapFiles folder inside the user's
// Documents directory.
func DefaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "SnapFiles"
	}
	return filepath.Join(home, "Documents", "SnapFiles")
}

// GetDefaultConfig returns a Config with every default applied.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
