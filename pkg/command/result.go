package command

import (
	"bytes"
	"io"
	"strings"
)

// ErrorPrefix starts every encoded failure result.
const ErrorPrefix = "ERROR: "

// Result is the outcome of a command. Exactly one of the success payload or
// the failure message is meaningful, selected by Err.
//
// Handler-level problems (missing fields, bad values, OS failures on the
// target file) are failures, never Go errors, so that every request yields a
// body the client can display.
type Result struct {
	// Lines is the success payload. Each element already carries its own
	// terminator where one is wanted.
	Lines []string

	// Err is the failure message; empty on success.
	Err string
}

// OK is the plain success result.
func OK() Result {
	return Result{Lines: []string{"OK"}}
}

// Text is a success result carrying a single string.
func Text(s string) Result {
	return Result{Lines: []string{s}}
}

// Bool encodes a boolean the way the client expects ("True"/"False").
func Bool(b bool) Result {
	if b {
		return Text("True")
	}
	return Text("False")
}

// Failure is a failure result with the given message.
func Failure(msg string) Result {
	return Result{Err: msg}
}

// Failed reports whether r is a failure.
func (r Result) Failed() bool {
	return r.Err != ""
}

// Encode writes the wire form of r to w: success lines verbatim and in
// order, failures as "ERROR: <message>".
func (r Result) Encode(w io.Writer) (int64, error) {
	if r.Failed() {
		n, err := io.WriteString(w, ErrorPrefix+r.Err)
		return int64(n), err
	}

	var total int64
	for _, line := range r.Lines {
		n, err := io.WriteString(w, line)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Bytes returns the encoded form of r.
func (r Result) Bytes() []byte {
	var buf bytes.Buffer
	_, _ = r.Encode(&buf)
	return buf.Bytes()
}

func (r Result) String() string {
	if r.Failed() {
		return ErrorPrefix + r.Err
	}
	return strings.Join(r.Lines, "")
}
