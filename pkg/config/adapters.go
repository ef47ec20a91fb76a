package config

import (
	"github.com/marmos91/snapfiles/pkg/adapter"
	"github.com/marmos91/snapfiles/pkg/adapter/sfs"
	"github.com/marmos91/snapfiles/pkg/metrics"
)

// SFSConfig converts the server and rate limit sections into the HTTP
// adapter's configuration.
func SFSConfig(cfg *Config) sfs.SFSConfig {
	return sfs.SFSConfig{
		Port:               cfg.Server.Port,
		BindAddress:        cfg.Server.BindAddress,
		ReadTimeout:        cfg.Server.ReadTimeout,
		WriteTimeout:       cfg.Server.WriteTimeout,
		IdleTimeout:        cfg.Server.IdleTimeout,
		ShutdownTimeout:    cfg.Server.ShutdownTimeout,
		MetricsLogInterval: cfg.Server.MetricsLogInterval,
		RateLimit: sfs.RateLimitConfig{
			Enabled:           cfg.RateLimit.Enabled,
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		},
	}
}

// CreateAdapters creates the protocol adapters described by cfg.
func CreateAdapters(cfg *Config, httpMetrics metrics.HTTPMetrics) []adapter.Adapter {
	return []adapter.Adapter{
		sfs.New(SFSConfig(cfg), httpMetrics),
	}
}
