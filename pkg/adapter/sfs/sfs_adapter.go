package sfs

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/snapfiles/internal/logger"
	"github.com/marmos91/snapfiles/internal/ratelimiter"
	"github.com/marmos91/snapfiles/pkg/command"
	"github.com/marmos91/snapfiles/pkg/metrics"
)

// DefaultPort is the port block-based clients expect the service on.
const DefaultPort = 7083

// clientIdleTTL is how long a client's rate limit bucket survives without
// requests.
const clientIdleTTL = 5 * time.Minute

// SFSAdapter implements the adapter.Adapter interface for the SnapFiles
// HTTP protocol: GET (or HEAD) /<command>?user=&file=&data=...
//
// Every dispatched command answers 200 with a text body, successful or not;
// failures are carried in the body as "ERROR: <message>". Only panics escape
// the dispatcher, and those become 500 responses.
//
// Shutdown flow:
//  1. Context cancelled or Stop() called
//  2. http.Server.Shutdown stops accepting and drains in-flight requests
//  3. Requests still running after ShutdownTimeout are abandoned
//
// Thread safety:
// All methods are safe for concurrent use. Shutdown is guarded by sync.Once.
type SFSAdapter struct {
	config SFSConfig

	dispatcher *command.Dispatcher
	handler    http.Handler
	server     *http.Server

	// limiter is nil when rate limiting is disabled.
	limiter *ratelimiter.RateLimiter

	metrics metrics.HTTPMetrics

	// requests counts every request that reached the command handler.
	requests atomic.Int64

	mu       sync.Mutex
	listener net.Listener
	ready    chan struct{}

	shutdownOnce sync.Once
}

// SFSConfig holds configuration parameters for the HTTP server.
//
// Default values (applied by New if zero):
//   - Port: 7083
//   - ReadTimeout: 30s
//   - WriteTimeout: 30s
//   - IdleTimeout: 2m
//   - ShutdownTimeout: 30s
//   - MetricsLogInterval: 5m
type SFSConfig struct {
	// Port is the TCP port to listen on.
	Port int `mapstructure:"port" validate:"min=0,max=65535"`

	// BindAddress restricts the listener to one interface. Empty listens
	// on all of them.
	BindAddress string `mapstructure:"bind_address"`

	// ReadTimeout is the maximum duration for reading a complete request.
	ReadTimeout time.Duration `mapstructure:"read_timeout" validate:"min=0"`

	// WriteTimeout is the maximum duration for writing a response.
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"min=0"`

	// IdleTimeout is how long a keep-alive connection may sit idle.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"min=0"`

	// ShutdownTimeout bounds the wait for in-flight requests on shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`

	// MetricsLogInterval is the interval at which to log request and
	// handle cache statistics. Negative disables periodic logging.
	MetricsLogInterval time.Duration `mapstructure:"metrics_log_interval"`

	// RateLimit configures per-client request limiting.
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig configures the per-client token buckets.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerSecond uint `mapstructure:"requests_per_second"`
	Burst             uint `mapstructure:"burst"`
}

// applyDefaults fills in zero values with sensible defaults.
func (c *SFSConfig) applyDefaults() {
	if c.Port <= 0 {
		c.Port = DefaultPort
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 2 * time.Minute
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	if c.MetricsLogInterval == 0 {
		c.MetricsLogInterval = 5 * time.Minute
	}
}

// validate checks that the configuration is usable.
func (c *SFSConfig) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 0-65535", c.Port)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("invalid ReadTimeout %v: must be >= 0", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("invalid WriteTimeout %v: must be >= 0", c.WriteTimeout)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("invalid IdleTimeout %v: must be >= 0", c.IdleTimeout)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid ShutdownTimeout %v: must be > 0", c.ShutdownTimeout)
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond == 0 {
		return fmt.Errorf("invalid RateLimit: requests_per_second must be > 0 when enabled")
	}
	return nil
}

// New creates a new SFSAdapter with the specified configuration.
//
// The adapter is created in a stopped state. Call SetDispatcher() to inject
// the dispatcher, then call Serve() to start accepting requests.
//
// Panics if config validation fails.
func New(config SFSConfig, httpMetrics metrics.HTTPMetrics) *SFSAdapter {
	config.applyDefaults()

	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid SFS config: %v", err))
	}

	if httpMetrics == nil {
		httpMetrics = metrics.NewNoopHTTPMetrics()
	}

	var limiter *ratelimiter.RateLimiter
	if config.RateLimit.Enabled {
		limiter = ratelimiter.New(config.RateLimit.RequestsPerSecond, config.RateLimit.Burst)
		logger.Debug("SFS rate limit: %d req/s per client, burst %d",
			config.RateLimit.RequestsPerSecond, config.RateLimit.Burst)
	}

	return &SFSAdapter{
		config:  config,
		limiter: limiter,
		metrics: httpMetrics,
		ready:   make(chan struct{}),
	}
}

// SetDispatcher injects the shared dispatcher and builds the router.
func (s *SFSAdapter) SetDispatcher(d *command.Dispatcher) {
	s.dispatcher = d
	s.handler = s.newRouter()
	s.server = &http.Server{
		Addr:         s.listenAddr(),
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	logger.Debug("SFS dispatcher configured")
}

// Handler returns the HTTP handler. SetDispatcher must have been called.
func (s *SFSAdapter) Handler() http.Handler {
	return s.handler
}

func (s *SFSAdapter) listenAddr() string {
	return net.JoinHostPort(s.config.BindAddress, strconv.Itoa(s.config.Port))
}

// Serve starts the HTTP server and blocks until the context is cancelled
// or the listener fails.
func (s *SFSAdapter) Serve(ctx context.Context) error {
	if s.server == nil {
		return errors.New("SFS adapter has no dispatcher; call SetDispatcher() before Serve()")
	}

	listener, err := net.Listen("tcp", s.listenAddr())
	if err != nil {
		return fmt.Errorf("failed to create SFS listener on %s: %w", s.listenAddr(), err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	close(s.ready)

	logger.Info("SFS server listening on %s", listener.Addr())
	logger.Debug("SFS config: read_timeout=%v write_timeout=%v idle_timeout=%v",
		s.config.ReadTimeout, s.config.WriteTimeout, s.config.IdleTimeout)

	go func() {
		<-ctx.Done()
		logger.Info("SFS shutdown signal received: %v", ctx.Err())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		if err := s.Stop(shutdownCtx); err != nil {
			logger.Warn("SFS shutdown: %v", err)
		}
	}()

	if s.config.MetricsLogInterval > 0 {
		go s.logMetrics(ctx)
	}
	if s.limiter != nil {
		go s.pruneClients(ctx)
	}

	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("SFS server failed: %w", err)
	}
	return nil
}

// Addr blocks until the listener is bound and returns its address, or
// returns nil if ctx ends first.
func (s *SFSAdapter) Addr(ctx context.Context) net.Addr {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener.Addr()
}

// Stop gracefully shuts the HTTP server down. Safe to call multiple times.
func (s *SFSAdapter) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("SFS shutdown initiated")

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("SFS shutdown error: %w", err)
			return
		}
		logger.Info("SFS server stopped gracefully")
	})
	return shutdownErr
}

// logMetrics periodically logs request and handle cache statistics.
func (s *SFSAdapter) logMetrics(ctx context.Context) {
	ticker := time.NewTicker(s.config.MetricsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			open, max := s.dispatcher.Cache().Stats()
			logger.Info("SFS metrics: requests_total=%d open_handles=%d/%d",
				s.requests.Load(), open, max)
		}
	}
}

func (s *SFSAdapter) pruneClients(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.limiter.Prune(clientIdleTTL); n > 0 {
				logger.Debug("SFS rate limiter: dropped %d idle client(s)", n)
			}
		}
	}
}

// Port returns the configured TCP port.
func (s *SFSAdapter) Port() int {
	return s.config.Port
}

// Protocol returns "SFS".
func (s *SFSAdapter) Protocol() string {
	return "SFS"
}
