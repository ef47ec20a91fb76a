package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/snapfiles/internal/logger"
	"github.com/marmos91/snapfiles/pkg/adapter"
	"github.com/marmos91/snapfiles/pkg/command"
	"github.com/marmos91/snapfiles/pkg/content"
	"github.com/marmos91/snapfiles/pkg/metrics"
)

// stopTimeout bounds how long adapters get to drain on shutdown.
const stopTimeout = 30 * time.Second

// SnapServer owns the handle cache and the dispatcher built on it, and runs
// one or more protocol adapters that share them.
//
// Architecture:
//
//	SnapServer
//	  ├── HandleCache (one per process, owns every open file)
//	  ├── Dispatcher  (command table over the cache)
//	  └── Adapters    (SFS over HTTP, ...)
//
// On shutdown every adapter is stopped in reverse registration order and
// then every cached handle is closed, so no cursor outlives the process
// silently.
//
// Thread safety:
// AddAdapter must be called before Serve. Serve may be called only once.
type SnapServer struct {
	cache      *content.HandleCache
	dispatcher *command.Dispatcher

	adapters      []adapter.Adapter
	metricsServer *metrics.Server

	mu     sync.RWMutex
	served bool
}

// New creates a SnapServer around cache and the dispatcher built on it.
// Every adapter added later shares that dispatcher.
func New(cache *content.HandleCache, dispatcher *command.Dispatcher) *SnapServer {
	if cache == nil {
		panic("handle cache cannot be nil")
	}
	if dispatcher == nil {
		panic("dispatcher cannot be nil")
	}

	return &SnapServer{
		cache:      cache,
		dispatcher: dispatcher,
		adapters:   make([]adapter.Adapter, 0, 2),
	}
}

// Dispatcher returns the shared dispatcher.
func (s *SnapServer) Dispatcher() *command.Dispatcher {
	return s.dispatcher
}

// SetMetricsServer attaches the Prometheus endpoint. It is started with the
// adapters and stopped after them. Must be called before Serve.
func (s *SnapServer) SetMetricsServer(ms *metrics.Server) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metricsServer = ms
}

// AddAdapter registers a protocol adapter and injects the dispatcher into it.
//
// Returns an error if another adapter already uses the same protocol or port.
func (s *SnapServer) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		panic("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served {
		return errors.New("cannot add adapter after Serve() has been called")
	}

	for _, existing := range s.adapters {
		if existing.Protocol() == a.Protocol() {
			return fmt.Errorf("adapter for protocol %s already registered", a.Protocol())
		}
		if existing.Port() == a.Port() {
			return fmt.Errorf("port %d already in use by %s adapter", a.Port(), existing.Protocol())
		}
	}

	a.SetDispatcher(s.dispatcher)
	s.adapters = append(s.adapters, a)

	logger.Info("Registered %s adapter on port %d", a.Protocol(), a.Port())
	return nil
}

// Serve starts all adapters and blocks until ctx is cancelled or one of
// them fails. In both cases all adapters are stopped and all handles are
// closed before Serve returns.
//
// Returns ctx.Err() on a requested shutdown, or the failing adapter's error.
func (s *SnapServer) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.served {
		s.mu.Unlock()
		return errors.New("Serve() has already been called on this server instance")
	}
	s.served = true
	if len(s.adapters) == 0 {
		s.mu.Unlock()
		return errors.New("no adapters registered; call AddAdapter() before Serve()")
	}
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	metricsServer := s.metricsServer
	s.mu.Unlock()

	logger.Info("Starting SnapServer with %d adapter(s)", len(adapters))

	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	errChan := make(chan adapterError, len(adapters))
	var wg sync.WaitGroup

	for _, adp := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()

			if err := a.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("%s adapter failed: %v", a.Protocol(), err)
				errChan <- adapterError{protocol: a.Protocol(), err: err}
				return
			}
			logger.Debug("%s adapter stopped", a.Protocol())
		}(adp)
	}

	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
		shutdownErr = ctx.Err()
	case adapterErr := <-errChan:
		logger.Error("Adapter %s failed - initiating shutdown of all adapters", adapterErr.protocol)
		shutdownErr = fmt.Errorf("%s adapter error: %w", adapterErr.protocol, adapterErr.err)
	}

	s.stopAllAdapters(adapters)
	wg.Wait()

	if metricsServer != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		if err := metricsServer.Stop(stopCtx); err != nil {
			logger.Warn("Stopping metrics server: %v", err)
		}
		cancel()
	}

	if err := s.cache.CloseAll(); err != nil {
		logger.Warn("Closing handles: %v", err)
	}

	logger.Info("SnapServer stopped")
	return shutdownErr
}

type adapterError struct {
	protocol string
	err      error
}

func (s *SnapServer) stopAllAdapters(adapters []adapter.Adapter) {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	for i := len(adapters) - 1; i >= 0; i-- {
		adp := adapters[i]
		if err := adp.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error stopping %s adapter: %v", adp.Protocol(), err)
		}
	}
}

// Adapters returns a copy of the registered adapters.
func (s *SnapServer) Adapters() []adapter.Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	return adapters
}
