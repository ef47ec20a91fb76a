package command

import (
	"context"
	"regexp"
	"strconv"

	"github.com/marmos91/snapfiles/internal/logger"
	"github.com/marmos91/snapfiles/pkg/content"
)

var signedPattern = regexp.MustCompile(`^[+-]?[0-9]+$`)

func handleSetPosition(_ context.Context, d *Dispatcher, req *Request) Result {
	if req.Data == "" {
		return Failure("no data specified")
	}

	relativeTo, _ := req.Param(ParamRelativeTo)
	origin, err := content.ParseOrigin(relativeTo)
	if err != nil {
		return Failure("invalid relativeto")
	}

	if !signedPattern.MatchString(req.Data) {
		return Failure("invalid position")
	}
	offset, err := strconv.ParseInt(req.Data, 10, 64)
	if err != nil {
		return Failure("invalid position")
	}

	if err := d.cache.SetPosition(req.User, req.File, offset, origin); err != nil {
		return ioFailure("invalid position", req.Data, err)
	}
	return OK()
}

func handleGetPosition(_ context.Context, d *Dispatcher, req *Request) Result {
	pos, err := d.cache.Position(req.User, req.File)
	if err != nil {
		return ioFailure("cannot get position of", req.File, err)
	}
	return Text(strconv.FormatInt(pos, 10))
}

func handleAtEnd(_ context.Context, d *Dispatcher, req *Request) Result {
	atEnd, err := d.cache.AtEnd(req.User, req.File)
	if err != nil {
		return ioFailure("cannot check end of", req.File, err)
	}
	return Bool(atEnd)
}

func handleTruncate(_ context.Context, d *Dispatcher, req *Request) Result {
	if err := d.cache.Truncate(req.User, req.File); err != nil {
		return ioFailure("cannot truncate", req.File, err)
	}
	return OK()
}

// handleClose always succeeds; a file that is not open is simply ignored.
func handleClose(_ context.Context, d *Dispatcher, req *Request) Result {
	if err := d.cache.Close(req.User, req.File); err != nil {
		logger.Warn("close %s: %v", req.File, err)
	}
	return OK()
}

func handleCloseAll(_ context.Context, d *Dispatcher, _ *Request) Result {
	if err := d.cache.CloseAll(); err != nil {
		logger.Warn("closeall: %v", err)
	}
	return OK()
}
