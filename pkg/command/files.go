package command

import (
	"context"
	"fmt"

	"github.com/marmos91/snapfiles/pkg/content"
)

// handleExists checks the file on disk, not the handle cache.
func handleExists(_ context.Context, d *Dispatcher, req *Request) Result {
	exists, err := d.cache.Resolver().Exists(req.User, req.File)
	if err != nil {
		return ioFailure("cannot check", req.File, err)
	}
	return Bool(exists)
}

func handleDelete(_ context.Context, d *Dispatcher, req *Request) Result {
	if err := d.cache.Remove(req.User, req.File); err != nil {
		return Failure(fmt.Sprintf("file cannot be removed (%s)", content.Detail(err)))
	}
	return OK()
}

func handleRename(_ context.Context, d *Dispatcher, req *Request) Result {
	newName, _ := req.Param(ParamNewName)
	if newName == "" {
		return Failure("no new filename")
	}

	if err := d.cache.Rename(req.User, req.File, newName); err != nil {
		return Failure(fmt.Sprintf("could not rename %s to %s (%s)", req.File, newName, content.Detail(err)))
	}
	return OK()
}

func handleCopy(_ context.Context, d *Dispatcher, req *Request) Result {
	toFile, _ := req.Param(ParamToFile)
	if toFile == "" {
		return Failure("no destination filename")
	}

	if err := d.cache.Copy(req.User, req.File, toFile); err != nil {
		return Failure(fmt.Sprintf("could not copy %s to %s (%s)", req.File, toFile, content.Detail(err)))
	}
	return OK()
}

// handleServer answers static metadata queries; the filename is ignored.
func handleServer(_ context.Context, d *Dispatcher, req *Request) Result {
	switch req.Data {
	case "":
		return Failure("no server information requested")
	case "sfs_version":
		return Text(d.info.Version)
	case "python_version":
		return Text(d.info.RuntimeVersion)
	default:
		return Failure("invalid server information request")
	}
}
