package adapter

import (
	"context"

	"github.com/marmos91/snapfiles/pkg/command"
)

// Adapter represents a protocol-specific front end that can be managed by
// SnapServer.
//
// Each adapter exposes the command dispatcher over one transport and
// provides a unified interface for lifecycle management. All adapters share
// the same dispatcher, and therefore the same handle cache, so a cursor
// moved through one adapter is seen by every other.
//
// Lifecycle:
//  1. Creation: Adapter is created with protocol-specific configuration
//  2. Dispatcher injection: SetDispatcher() provides the shared dispatcher
//  3. Startup: Serve() starts the protocol server and blocks until shutdown
//  4. Shutdown: Stop() initiates graceful shutdown with timeout
//
// Thread safety:
// Implementations must be safe for concurrent use. SetDispatcher() is called
// once before Serve(), but Stop() may be called concurrently with Serve().
type Adapter interface {
	// Serve starts the protocol server and blocks until the context is
	// cancelled or an unrecoverable error occurs.
	//
	// When the context is cancelled, Serve must stop accepting requests,
	// wait for in-flight ones (bounded by the adapter's shutdown timeout)
	// and return nil or context.Canceled.
	//
	// If Serve returns before context cancellation, SnapServer treats it as
	// a fatal error and stops all other adapters.
	Serve(ctx context.Context) error

	// SetDispatcher injects the shared command dispatcher.
	//
	// Called exactly once by SnapServer before Serve().
	SetDispatcher(d *command.Dispatcher)

	// Stop initiates graceful shutdown of the protocol server.
	//
	// Stop must be idempotent, safe to call concurrently with Serve(), and
	// respect the context deadline.
	Stop(ctx context.Context) error

	// Protocol returns the human-readable protocol name for logging and
	// metrics. The value is constant for the lifecycle of the adapter.
	Protocol() string

	// Port returns the TCP port the adapter is configured for.
	Port() int
}
