package command

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/marmos91/snapfiles/pkg/content"
)

var digitsPattern = regexp.MustCompile(`^[0-9]+$`)

// handleReadAll returns the whole file as lines. Platform separators are
// normalized to "\n"; every line keeps its terminator except the last.
func handleReadAll(_ context.Context, d *Dispatcher, req *Request) Result {
	var data []byte
	err := d.cache.WithHandle(req.User, req.File, func(h *content.Handle) error {
		var err error
		data, err = h.ReadAll()
		return err
	})
	if err != nil {
		return ioFailure("cannot read", req.File, err)
	}
	d.metrics.RecordBytes("readall", "read", len(data))

	return Result{Lines: splitLines(string(data))}
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, content.LineSeparator, "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return []string{}
	}

	lines := strings.Split(text, "\n")
	for i := 0; i < len(lines)-1; i++ {
		lines[i] += "\n"
	}
	return lines
}

func handleAppend(_ context.Context, d *Dispatcher, req *Request) Result {
	if req.Data == "" {
		return Failure("no data")
	}

	payload := []byte(req.Data + content.LineSeparator)
	err := d.cache.WithHandle(req.User, req.File, func(h *content.Handle) error {
		_, err := h.Append(payload)
		return err
	})
	if err != nil {
		return ioFailure("cannot append to", req.File, err)
	}
	d.metrics.RecordBytes("append", "write", len(payload))

	return OK()
}

// handleRead reads either the next line (data=nextline) or a number of
// characters (data=characters&count=N) from the cursor.
func handleRead(_ context.Context, d *Dispatcher, req *Request) Result {
	if req.Data == "" {
		return Failure("no read mode specified")
	}

	var read func(h *content.Handle) (string, error)
	switch req.Data {
	case "nextline":
		read = func(h *content.Handle) (string, error) {
			return h.ReadLine(content.LineSeparator)
		}
	case "characters":
		raw, ok := req.Param(ParamCount)
		if !ok || raw == "" {
			return Failure("no count specified")
		}
		if !digitsPattern.MatchString(raw) {
			return Failure("invalid count")
		}
		count, err := strconv.Atoi(raw)
		if err != nil {
			return Failure("invalid count")
		}
		read = func(h *content.Handle) (string, error) {
			return h.ReadChars(count)
		}
	default:
		return Failure("invalid read mode specified")
	}

	var out string
	err := d.cache.WithHandle(req.User, req.File, func(h *content.Handle) error {
		var err error
		out, err = read(h)
		return err
	})
	if err != nil {
		return ioFailure("cannot read", req.File, err)
	}
	d.metrics.RecordBytes("read", "read", len(out))

	return Text(out)
}

func handleWrite(_ context.Context, d *Dispatcher, req *Request) Result {
	if req.Data == "" {
		return Failure("no data to be written")
	}

	err := d.cache.WithHandle(req.User, req.File, func(h *content.Handle) error {
		_, err := h.Write([]byte(req.Data))
		return err
	})
	if err != nil {
		return ioFailure("cannot write to", req.File, err)
	}
	d.metrics.RecordBytes("write", "write", len(req.Data))

	return OK()
}
