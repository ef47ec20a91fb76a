package command

import (
	"net/url"
	"strings"
)

// Query parameter names understood by the dispatcher.
const (
	ParamUser       = "user"
	ParamFile       = "file"
	ParamData       = "data"
	ParamCount      = "count"
	ParamRelativeTo = "relativeto"
	ParamNewName    = "newname"
	ParamToFile     = "tofile"
)

// Request is one decoded client call.
type Request struct {
	// Command is the lower-cased command name.
	Command string

	// User selects the namespace directory; empty means the root.
	User string

	// File and Data are empty when the client omitted them or sent an
	// empty value; both count as missing.
	File string
	Data string

	// Params holds every query parameter, first value per key.
	Params map[string]string
}

// Param returns the named extra parameter and whether it was supplied.
func (r *Request) Param(name string) (string, bool) {
	v, ok := r.Params[name]
	return v, ok
}

// NewRequest builds a Request from a command name and a parsed query.
// Only the first value of a repeated key is used.
func NewRequest(command string, query url.Values) *Request {
	params := make(map[string]string, len(query))
	for k, vs := range query {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}

	return &Request{
		Command: strings.ToLower(strings.TrimPrefix(command, "/")),
		User:    params[ParamUser],
		File:    params[ParamFile],
		Data:    params[ParamData],
		Params:  params,
	}
}
