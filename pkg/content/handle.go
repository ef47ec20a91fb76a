package content

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// readChunkSize bounds a single ReadAt issued by the line and character readers.
const readChunkSize = 4096

// Origin selects the reference point of a seek.
type Origin int

const (
	OriginStart Origin = iota
	OriginCurrent
	OriginEnd
)

func (o Origin) String() string {
	switch o {
	case OriginStart:
		return "start"
	case OriginCurrent:
		return "current"
	case OriginEnd:
		return "end"
	default:
		return fmt.Sprintf("Origin(%d)", int(o))
	}
}

// ParseOrigin converts the wire names "start", "current" and "end".
func ParseOrigin(s string) (Origin, error) {
	switch s {
	case "start":
		return OriginStart, nil
	case "current":
		return OriginCurrent, nil
	case "end":
		return OriginEnd, nil
	default:
		return 0, fmt.Errorf("%q: %w", s, ErrInvalidOrigin)
	}
}

// Handle is one open file bound to a resolved path. The file offset is the
// cursor shared by every command that names the same path.
//
// A Handle is only valid while the caller holds the cache's lock for its
// path, which is what HandleCache.WithHandle guarantees.
type Handle struct {
	// ID identifies this particular open of the path. A path evicted and
	// reopened gets a new ID.
	ID   uuid.UUID
	Path string

	file afero.File
}

func newHandle(path string, file afero.File) *Handle {
	return &Handle{
		ID:   uuid.New(),
		Path: path,
		file: file,
	}
}

// Position returns the current cursor offset.
func (h *Handle) Position() (int64, error) {
	return h.file.Seek(0, io.SeekCurrent)
}

// Size returns the current size of the file.
func (h *Handle) Size() (int64, error) {
	info, err := h.file.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Seek moves the cursor. Offsets may be negative relative to the current
// position or the end, but the resulting position may not be.
func (h *Handle) Seek(offset int64, origin Origin) (int64, error) {
	var base int64
	switch origin {
	case OriginStart:
	case OriginCurrent:
		pos, err := h.Position()
		if err != nil {
			return 0, err
		}
		base = pos
	case OriginEnd:
		size, err := h.Size()
		if err != nil {
			return 0, err
		}
		base = size
	default:
		return 0, fmt.Errorf("%v: %w", origin, ErrInvalidOrigin)
	}

	target := base + offset
	if target < 0 {
		return 0, fmt.Errorf("position %d: %w", target, ErrInvalidOffset)
	}
	return h.file.Seek(target, io.SeekStart)
}

// AtEnd reports whether the cursor sits at the end of the file.
func (h *Handle) AtEnd() (bool, error) {
	pos, err := h.Position()
	if err != nil {
		return false, err
	}
	size, err := h.Size()
	if err != nil {
		return false, err
	}
	return pos == size, nil
}

// Truncate cuts the file at the cursor.
func (h *Handle) Truncate() error {
	pos, err := h.Position()
	if err != nil {
		return err
	}
	return h.file.Truncate(pos)
}

// Write writes data at the cursor, overwriting existing bytes.
func (h *Handle) Write(data []byte) (int, error) {
	return h.file.Write(data)
}

// Append moves the cursor to the end of the file and writes data there.
func (h *Handle) Append(data []byte) (int, error) {
	if _, err := h.file.Seek(0, io.SeekEnd); err != nil {
		return 0, err
	}
	return h.file.Write(data)
}

// ReadAll reads the whole file from the start. The cursor ends up at the
// end of the file.
func (h *Handle) ReadAll() ([]byte, error) {
	if _, err := h.file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(h.file)
}

// ReadLine reads from the cursor up to the next occurrence of sep and
// consumes the separator. The separator is matched on its first byte; any
// remaining separator bytes are skipped without being inspected. At end of
// file the (possibly empty) remainder is returned.
func (h *Handle) ReadLine(sep string) (string, error) {
	if sep == "" {
		return "", fmt.Errorf("empty line separator")
	}

	off, err := h.Position()
	if err != nil {
		return "", err
	}

	var line []byte
	chunk := make([]byte, readChunkSize)
	for {
		n, rerr := h.file.ReadAt(chunk, off)
		if n > 0 {
			if i := bytes.IndexByte(chunk[:n], sep[0]); i >= 0 {
				line = append(line, chunk[:i]...)
				next := off + int64(i) + int64(len(sep))
				if size, err := h.Size(); err == nil && next > size {
					next = size
				}
				if _, err := h.file.Seek(next, io.SeekStart); err != nil {
					return "", err
				}
				return string(line), nil
			}
			line = append(line, chunk[:n]...)
			off += int64(n)
		}

		if isEOF(rerr) {
			if _, err := h.file.Seek(off, io.SeekStart); err != nil {
				return "", err
			}
			return string(line), nil
		}
		if rerr != nil {
			return "", rerr
		}
	}
}

// ReadChars reads count UTF-8 characters from the cursor, or fewer if the
// file ends first. Bytes that are not valid UTF-8 count as one character
// each and are returned unchanged.
func (h *Handle) ReadChars(count int) (string, error) {
	if count < 0 {
		return "", fmt.Errorf("negative count %d", count)
	}

	start, err := h.Position()
	if err != nil {
		return "", err
	}

	chunkLen := readChunkSize
	if count < readChunkSize/utf8.UTFMax {
		chunkLen = count*utf8.UTFMax + 1
	}

	var (
		out     []byte
		pending []byte
		chars   int
		off     = start
		chunk   = make([]byte, chunkLen)
	)

	for chars < count {
		n, rerr := h.file.ReadAt(chunk, off)
		if rerr != nil && !isEOF(rerr) {
			return "", rerr
		}
		pending = append(pending, chunk[:n]...)
		off += int64(n)
		eof := isEOF(rerr)

		for chars < count && len(pending) > 0 {
			if !eof && !utf8.FullRune(pending) {
				break
			}
			_, size := utf8.DecodeRune(pending)
			out = append(out, pending[:size]...)
			pending = pending[size:]
			chars++
		}

		if eof {
			break
		}
	}

	if _, err := h.file.Seek(start+int64(len(out)), io.SeekStart); err != nil {
		return "", err
	}
	return string(out), nil
}

// isEOF treats a read past the end of a file as end of file. In-memory
// files report io.ErrUnexpectedEOF when the cursor was seeked beyond the
// last byte.
func isEOF(err error) bool {
	return err == io.EOF || err == io.ErrUnexpectedEOF
}

func (h *Handle) close() error {
	return h.file.Close()
}

func (h *Handle) String() string {
	return strings.Join([]string{h.Path, h.ID.String()}, "#")
}
