package command

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/marmos91/snapfiles/internal/logger"
	"github.com/marmos91/snapfiles/pkg/content"
	"github.com/marmos91/snapfiles/pkg/metrics"
)

// DefaultVersion is reported by "server?data=sfs_version" when no build
// version is injected.
const DefaultVersion = "V1.4"

// ServerInfo is the static metadata returned by the server command.
type ServerInfo struct {
	Version        string
	RuntimeVersion string
}

// ============================================================================
// Dispatch Table
// ============================================================================

// handlerFunc processes one command. Required fields listed in the table
// entry have already been checked when it runs.
type handlerFunc func(ctx context.Context, d *Dispatcher, req *Request) Result

// commandInfo contains metadata about a command for dispatch.
type commandInfo struct {
	// Name is the command name as it appears in the request path.
	Name string

	// Handler is the function that processes this command.
	Handler handlerFunc

	// NeedsFile rejects requests without a filename before the handler runs.
	NeedsFile bool

	// MissingFile overrides the failure message for a missing filename.
	MissingFile string
}

// dispatchTable maps lower-case command names to their handlers.
var dispatchTable map[string]*commandInfo

func init() {
	initDispatchTable()
}

func initDispatchTable() {
	entries := []*commandInfo{
		{Name: "readall", Handler: handleReadAll, NeedsFile: true},
		{Name: "append", Handler: handleAppend, NeedsFile: true},
		{Name: "read", Handler: handleRead, NeedsFile: true},
		{Name: "write", Handler: handleWrite, NeedsFile: true},
		{Name: "setposition", Handler: handleSetPosition, NeedsFile: true},
		{Name: "getposition", Handler: handleGetPosition, NeedsFile: true},
		{Name: "atend", Handler: handleAtEnd, NeedsFile: true},
		{Name: "truncate", Handler: handleTruncate, NeedsFile: true},
		{Name: "close", Handler: handleClose, NeedsFile: true},
		{Name: "closeall", Handler: handleCloseAll},
		{Name: "exists", Handler: handleExists, NeedsFile: true},
		{Name: "delete", Handler: handleDelete, NeedsFile: true},
		{Name: "rename", Handler: handleRename, NeedsFile: true, MissingFile: "no old filename"},
		{Name: "copy", Handler: handleCopy, NeedsFile: true, MissingFile: "no source filename"},
		{Name: "server", Handler: handleServer},
	}

	dispatchTable = make(map[string]*commandInfo, len(entries))
	for _, e := range entries {
		dispatchTable[e.Name] = e
	}
}

// Commands returns the names of all supported commands.
func Commands() []string {
	names := make([]string, 0, len(dispatchTable))
	for name := range dispatchTable {
		names = append(names, name)
	}
	return names
}

// ============================================================================
// Dispatcher
// ============================================================================

// Dispatcher routes decoded requests to command handlers that operate on a
// shared handle cache.
//
// Thread safety:
// Dispatch is safe for concurrent use; all shared state lives in the
// HandleCache, which serializes access per file.
type Dispatcher struct {
	cache   *content.HandleCache
	info    ServerInfo
	metrics metrics.CommandMetrics
}

// New creates a dispatcher over cache. A nil m disables metrics.
func New(cache *content.HandleCache, info ServerInfo, m metrics.CommandMetrics) *Dispatcher {
	if info.Version == "" {
		info.Version = DefaultVersion
	}
	if info.RuntimeVersion == "" {
		info.RuntimeVersion = runtime.Version()
	}
	if m == nil {
		m = metrics.NewNoopCommandMetrics()
	}

	return &Dispatcher{
		cache:   cache,
		info:    info,
		metrics: m,
	}
}

// Cache returns the handle cache the dispatcher operates on.
func (d *Dispatcher) Cache() *content.HandleCache {
	return d.cache
}

// Dispatch runs req and returns its result. It never panics on bad input
// and never returns a Go error: unknown commands and handler problems are
// failure results.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) Result {
	start := time.Now()

	info, ok := dispatchTable[req.Command]
	if !ok {
		logger.Debug("Unknown command %q", req.Command)
		result := Failure(fmt.Sprintf("invalid command %s", req.Command))
		d.metrics.RecordCommand("unknown", time.Since(start), true)
		return result
	}

	if logger.IsDebug() {
		logger.Debug("%s: user=%q file=%q data=%q", info.Name, req.User, req.File, truncateForLog(req.Data))
	}

	result := d.run(ctx, info, req)

	d.metrics.RecordCommand(info.Name, time.Since(start), result.Failed())
	open, _ := d.cache.Stats()
	d.metrics.SetOpenHandles(open)

	if result.Failed() {
		logger.Debug("%s: failed: %s", info.Name, result.Err)
	}
	return result
}

func (d *Dispatcher) run(ctx context.Context, info *commandInfo, req *Request) Result {
	if err := ctx.Err(); err != nil {
		return Failure(fmt.Sprintf("request cancelled (%v)", err))
	}

	if info.NeedsFile && req.File == "" {
		if info.MissingFile != "" {
			return Failure(info.MissingFile)
		}
		return Failure("no filename")
	}

	return info.Handler(ctx, d, req)
}

// maxLoggedData caps how much of a request's data argument is logged.
const maxLoggedData = 64

func truncateForLog(s string) string {
	if len(s) <= maxLoggedData {
		return s
	}
	return s[:maxLoggedData] + "..."
}

// ioFailure formats an OS-level failure on a named file.
func ioFailure(action, name string, err error) Result {
	return Failure(fmt.Sprintf("%s %s (%s)", action, name, content.Detail(err)))
}
