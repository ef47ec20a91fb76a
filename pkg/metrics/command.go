package metrics

import "time"

// CommandMetrics provides observability for dispatched file commands.
//
// Implementations collect per-command counts and latencies, bytes moved by
// the read and write commands, and the size of the handle cache. If no
// implementation is supplied to the dispatcher a no-op one is used.
type CommandMetrics interface {
	// RecordCommand records a completed command.
	//
	// Parameters:
	//   - command: Command name (e.g., "readall", "append"); unknown
	//     commands are reported as "unknown"
	//   - duration: Time taken to run the command
	//   - failed: Whether the command produced a failure result
	RecordCommand(command string, duration time.Duration, failed bool)

	// RecordBytes records payload bytes read from or written to a file.
	//
	// Parameters:
	//   - command: Command name
	//   - direction: "read" or "write"
	//   - bytes: Number of bytes transferred
	RecordBytes(command string, direction string, bytes int)

	// SetOpenHandles updates the number of handles held by the cache.
	SetOpenHandles(count int)
}

// NewNoopCommandMetrics returns a CommandMetrics that discards everything.
func NewNoopCommandMetrics() CommandMetrics {
	return noopCommandMetrics{}
}

type noopCommandMetrics struct{}

func (noopCommandMetrics) RecordCommand(command string, duration time.Duration, failed bool) {}
func (noopCommandMetrics) RecordBytes(command string, direction string, bytes int)          {}
func (noopCommandMetrics) SetOpenHandles(count int)                                         {}
