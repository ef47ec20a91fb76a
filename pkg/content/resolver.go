package content

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Resolver maps a (user, filename) pair to an absolute path inside the
// storage root.
//
// Layout:
//
//	<root>/<file>          user == ""
//	<root>/<user>/<file>   otherwise
//
// Only the final component of both the user namespace and the filename is
// used; any directory part supplied by the client is dropped. The joined
// path is then checked to still lie below root, so a name that survives the
// basename step but resolves outside the root is rejected with
// ErrPathEscape.
type Resolver struct {
	fs   afero.Fs
	root string
}

// NewResolver creates a resolver rooted at root and creates the root
// directory if it does not exist.
func NewResolver(fsys afero.Fs, root string) (*Resolver, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is required")
	}

	cleanRoot := filepath.Clean(root)
	if err := fsys.MkdirAll(cleanRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}

	return &Resolver{fs: fsys, root: cleanRoot}, nil
}

// Root returns the storage root directory.
func (r *Resolver) Root() string {
	return r.root
}

// Fs returns the filesystem the resolver creates directories on.
func (r *Resolver) Fs() afero.Fs {
	return r.fs
}

// Resolve returns the absolute path for filename in the user's namespace,
// creating the namespace directory on demand.
func (r *Resolver) Resolve(user, filename string) (string, error) {
	name, err := baseName(filename)
	if err != nil {
		return "", fmt.Errorf("filename %q: %w", filename, err)
	}

	dir := r.root
	if user != "" {
		ns, err := baseName(user)
		if err != nil {
			return "", fmt.Errorf("user %q: %w", user, err)
		}
		dir = filepath.Join(r.root, ns)
		if err := r.fs.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create user directory: %w", err)
		}
	}

	return r.ensureWithinRoot(filepath.Join(dir, name))
}

// Exists reports whether filename is a regular file in the user's namespace.
// It never creates the file.
func (r *Resolver) Exists(user, filename string) (bool, error) {
	p, err := r.Resolve(user, filename)
	if err != nil {
		return false, err
	}

	info, err := r.fs.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

func (r *Resolver) ensureWithinRoot(p string) (string, error) {
	clean := filepath.Clean(p)
	rel, err := filepath.Rel(r.root, clean)
	if err != nil {
		return "", fmt.Errorf("%s: %w", p, ErrPathEscape)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", p, ErrPathEscape)
	}
	return clean, nil
}

// baseName reduces a client supplied name to its final path component.
// Both separators are honoured regardless of the host platform.
func baseName(raw string) (string, error) {
	if strings.ContainsRune(raw, 0) {
		return "", ErrInvalidName
	}

	name := path.Base(strings.ReplaceAll(raw, "\\", "/"))
	switch name {
	case "", ".", "..", "/":
		return "", ErrInvalidName
	}
	return name, nil
}
