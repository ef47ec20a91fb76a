//go:build windows

package content

// LineSeparator is the line terminator written by append and consumed by
// line reads.
const LineSeparator = "\r\n"
