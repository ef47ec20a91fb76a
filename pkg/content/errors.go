package content

import (
	"errors"
	"io/fs"
	"os"
)

// ============================================================================
// Standard Content Errors
// ============================================================================

// These errors provide a consistent way to indicate common failure conditions
// of the resolver and the handle cache. Command handlers check for them with
// errors.Is and turn them into failure results.
//
// Error Wrapping:
// Implementations wrap these errors with additional context:
//
//	if name == ".." {
//	    return "", fmt.Errorf("filename %q: %w", raw, content.ErrInvalidName)
//	}

var (
	// ErrInvalidName indicates a filename or user namespace that does not
	// reduce to a usable path component ("", ".", ".." or "/").
	ErrInvalidName = errors.New("invalid name")

	// ErrPathEscape indicates the resolved path would leave the storage root.
	ErrPathEscape = errors.New("path escapes storage root")

	// ErrNotFound indicates the file does not exist on disk.
	ErrNotFound = errors.New("no such file")

	// ErrAlreadyExists indicates the destination of a rename already exists.
	ErrAlreadyExists = errors.New("file already exists")

	// ErrSameFile indicates a copy whose source and destination resolve to
	// the same path.
	ErrSameFile = errors.New("source and destination are the same file")

	// ErrInvalidOrigin indicates a seek origin outside start/current/end.
	ErrInvalidOrigin = errors.New("invalid origin")

	// ErrInvalidOffset indicates a seek that would move the cursor before
	// the start of the file.
	ErrInvalidOffset = errors.New("invalid offset")
)

// Detail returns the short OS-level description of err, the part a user
// can act on ("no such file or directory", "permission denied"). Sentinel
// errors from this package are returned verbatim.
func Detail(err error) string {
	if err == nil {
		return ""
	}

	for _, sentinel := range []error{ErrInvalidName, ErrPathEscape, ErrNotFound, ErrAlreadyExists, ErrSameFile, ErrInvalidOrigin, ErrInvalidOffset} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err.Error()
	}

	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return linkErr.Err.Error()
	}

	return err.Error()
}
