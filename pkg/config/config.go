package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variable overrides, e.g.
// SNAPFILES_SERVER_PORT=8080.
const EnvPrefix = "SNAPFILES"

// Config represents the complete SnapFiles server configuration.
//
// The configuration is loaded from a YAML or TOML file with environment
// variable overrides:
//  1. Default values (lowest priority)
//  2. Configuration file
//  3. Environment variables (highest priority)
//
// Command line flags of the start command are applied on top by the caller.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server contains HTTP listener settings
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Storage selects where user files live
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// RateLimit configures per-client request limiting
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// ServerConfig contains the HTTP listener settings.
type ServerConfig struct {
	// Port is the TCP port of the command endpoint.
	Port int `mapstructure:"port" yaml:"port" validate:"min=1,max=65535"`

	// BindAddress limits the listener to one interface. Empty means all.
	BindAddress string `mapstructure:"bind_address" yaml:"bind_address"`

	// ShutdownTimeout is the maximum time to wait for in-flight requests.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"required,gt=0"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" validate:"min=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"min=0"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout" validate:"min=0"`

	// MetricsLogInterval is how often request and handle statistics are
	// logged. Negative disables the log line.
	MetricsLogInterval time.Duration `mapstructure:"metrics_log_interval" yaml:"metrics_log_interval"`
}

// MarshalYAML renders durations in their human-readable form.
func (c ServerConfig) MarshalYAML() (any, error) {
	return struct {
		Port               int    `yaml:"port"`
		BindAddress        string `yaml:"bind_address"`
		ShutdownTimeout    string `yaml:"shutdown_timeout"`
		ReadTimeout        string `yaml:"read_timeout"`
		WriteTimeout       string `yaml:"write_timeout"`
		IdleTimeout        string `yaml:"idle_timeout"`
		MetricsLogInterval string `yaml:"metrics_log_interval"`
	}{
		Port:               c.Port,
		BindAddress:        c.BindAddress,
		ShutdownTimeout:    c.ShutdownTimeout.String(),
		ReadTimeout:        c.ReadTimeout.String(),
		WriteTimeout:       c.WriteTimeout.String(),
		IdleTimeout:        c.IdleTimeout.String(),
		MetricsLogInterval: c.MetricsLogInterval.String(),
	}, nil
}

// StorageConfig specifies the filesystem backing user files.
//
// The Type field selects the backend, and the matching map holds its
// options, decoded by the backend factory:
//   - filesystem: path (root directory, "~" expanded)
//   - memory: root (virtual root directory, default "/SnapFiles")
type StorageConfig struct {
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=filesystem memory"`

	// MaxOpenFiles caps the handle cache; least recently used idle handles
	// are parked beyond it.
	MaxOpenFiles int `mapstructure:"max_open_files" yaml:"max_open_files" validate:"min=1"`

	Filesystem map[string]any `mapstructure:"filesystem" yaml:"filesystem"`
	Memory     map[string]any `mapstructure:"memory" yaml:"memory"`
}

// RateLimitConfig configures the per-client token buckets.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled"`
	RequestsPerSecond uint `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             uint `mapstructure:"burst" yaml:"burst"`
}

// MetricsConfig configures the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" yaml:"port" validate:"min=0,max=65535"`
}

// envKeys are the settings that can be overridden from the environment.
// Viper only resolves environment variables for keys it knows about.
var envKeys = []string{
	"logging.level",
	"logging.format",
	"logging.output",
	"server.port",
	"server.bind_address",
	"server.shutdown_timeout",
	"server.read_timeout",
	"server.write_timeout",
	"server.idle_timeout",
	"server.metrics_log_interval",
	"storage.type",
	"storage.max_open_files",
	"storage.filesystem.path",
	"storage.memory.root",
	"rate_limit.enabled",
	"rate_limit.requests_per_second",
	"rate_limit.burst",
	"metrics.enabled",
	"metrics.port",
}

// Load loads configuration from file and environment variables.
//
// If configPath is empty, $XDG_CONFIG_HOME/snapfiles/config.yaml is tried;
// a missing default file is not an error. Defaults are applied and the
// result is validated before it is returned.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// SaveConfig writes cfg to path in YAML, creating the parent directory.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// InitConfig writes the default configuration to the default path and
// returns that path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes the default configuration to path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	return SaveConfig(GetDefaultConfig(), path)
}

func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "snapfiles")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "snapfiles")
}

// GetDefaultConfigPath returns $XDG_CONFIG_HOME/snapfiles/config.yaml.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists reports whether a file exists at the default config path.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the directory holding the default config file.
func GetConfigDir() string {
	return getConfigDir()
}
