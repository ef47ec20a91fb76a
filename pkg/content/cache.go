package content

import (
	"container/list"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"sync"

	"github.com/marmos91/snapfiles/internal/logger"
	"github.com/spf13/afero"
)

// DefaultMaxOpenFiles bounds the number of descriptors the cache keeps open.
const DefaultMaxOpenFiles = 512

// HandleCache keeps at most one open Handle per resolved path so that the
// cursor of a file survives between requests.
//
// Locking:
//   - mu guards the entry map, the LRU list, the parked cursors and the
//     path lock table.
//   - Every operation holds the lock of the path(s) it touches for its whole
//     duration, including the open. Two paths are always locked in sorted
//     order.
//
// Eviction:
// When more than maxSize handles are open, the least recently used handle
// whose path is not locked is closed. Its cursor is parked and restored on
// the next open of the same path, so clients never observe the eviction.
type HandleCache struct {
	resolver *Resolver
	fs       afero.Fs
	maxSize  int

	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List
	parked  map[string]int64
	locks   map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

// NewHandleCache creates an empty cache that resolves names with resolver.
// A maxSize below 1 selects DefaultMaxOpenFiles.
func NewHandleCache(resolver *Resolver, maxSize int) *HandleCache {
	if maxSize < 1 {
		maxSize = DefaultMaxOpenFiles
	}
	return &HandleCache{
		resolver: resolver,
		fs:       resolver.Fs(),
		maxSize:  maxSize,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
		parked:   make(map[string]int64),
		locks:    make(map[string]*pathLock),
	}
}

// Resolver returns the resolver used by the cache.
func (c *HandleCache) Resolver() *Resolver {
	return c.resolver
}

// ============================================================================
// Path locks
// ============================================================================

func (c *HandleCache) lockPath(p string) func() {
	c.mu.Lock()
	pl, ok := c.locks[p]
	if !ok {
		pl = &pathLock{}
		c.locks[p] = pl
	}
	pl.refs++
	c.mu.Unlock()

	pl.mu.Lock()

	return func() {
		pl.mu.Unlock()

		c.mu.Lock()
		pl.refs--
		if pl.refs == 0 {
			delete(c.locks, p)
		}
		c.mu.Unlock()
	}
}

func (c *HandleCache) lockPaths(a, b string) func() {
	if a == b {
		return c.lockPath(a)
	}
	paths := []string{a, b}
	sort.Strings(paths)

	unlockFirst := c.lockPath(paths[0])
	unlockSecond := c.lockPath(paths[1])
	return func() {
		unlockSecond()
		unlockFirst()
	}
}

// ============================================================================
// Entry management (callers hold the path lock)
// ============================================================================

func (c *HandleCache) openLocked(p string) (*Handle, error) {
	c.mu.Lock()
	if elem, ok := c.entries[p]; ok {
		c.lru.MoveToFront(elem)
		c.mu.Unlock()
		return elem.Value.(*Handle), nil
	}
	offset, wasParked := c.parked[p]
	c.mu.Unlock()

	f, err := c.fs.OpenFile(p, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}

	if wasParked {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("restore cursor of %s: %w", p, err)
		}
	}

	h := newHandle(p, f)

	c.mu.Lock()
	delete(c.parked, p)
	c.entries[p] = c.lru.PushFront(h)
	c.evictLocked()
	c.mu.Unlock()

	logger.Debug("Opened %s (handle %s, restored=%v)", p, h.ID, wasParked)
	return h, nil
}

// evictLocked closes idle handles until the cache fits maxSize. Called with
// c.mu held. A path is idle when nobody holds or waits for its lock.
func (c *HandleCache) evictLocked() {
	for elem := c.lru.Back(); elem != nil && c.lru.Len() > c.maxSize; {
		prev := elem.Prev()
		h := elem.Value.(*Handle)

		if _, busy := c.locks[h.Path]; !busy {
			offset, err := h.Position()
			if err == nil {
				c.parked[h.Path] = offset
			}
			if err := h.close(); err != nil {
				logger.Warn("Failed to close evicted handle %s: %v", h, err)
			}
			c.lru.Remove(elem)
			delete(c.entries, h.Path)
			logger.Debug("Evicted %s (handle %s, cursor %d)", h.Path, h.ID, offset)
		}

		elem = prev
	}
}

// closeLocked closes and forgets the handle for p, including a parked cursor.
func (c *HandleCache) closeLocked(p string) error {
	c.mu.Lock()
	elem, ok := c.entries[p]
	if ok {
		c.lru.Remove(elem)
		delete(c.entries, p)
	}
	delete(c.parked, p)
	c.mu.Unlock()

	if !ok {
		return nil
	}

	h := elem.Value.(*Handle)
	logger.Debug("Closing %s (handle %s)", p, h.ID)
	if err := h.close(); err != nil {
		return fmt.Errorf("close %s: %w", p, err)
	}
	return nil
}

// ============================================================================
// Operations
// ============================================================================

// WithHandle opens (or reuses) the handle for name in the user's namespace
// and runs fn with exclusive access to it.
func (c *HandleCache) WithHandle(user, name string, fn func(h *Handle) error) error {
	p, err := c.resolver.Resolve(user, name)
	if err != nil {
		return err
	}

	unlock := c.lockPath(p)
	defer unlock()

	h, err := c.openLocked(p)
	if err != nil {
		return err
	}
	return fn(h)
}

// Open makes sure a handle for name exists, creating the file if needed.
func (c *HandleCache) Open(user, name string) error {
	return c.WithHandle(user, name, func(*Handle) error { return nil })
}

// Close closes the handle for name. Closing a file that is not open is a
// no-op.
func (c *HandleCache) Close(user, name string) error {
	p, err := c.resolver.Resolve(user, name)
	if err != nil {
		return err
	}

	unlock := c.lockPath(p)
	defer unlock()

	return c.closeLocked(p)
}

// CloseAll closes every handle. It returns the first close error but keeps
// going so that all handles are released.
func (c *HandleCache) CloseAll() error {
	c.mu.Lock()
	paths := make([]string, 0, len(c.entries)+len(c.parked))
	for p := range c.entries {
		paths = append(paths, p)
	}
	for p := range c.parked {
		if _, ok := c.entries[p]; !ok {
			paths = append(paths, p)
		}
	}
	c.mu.Unlock()

	var firstErr error
	for _, p := range paths {
		unlock := c.lockPath(p)
		if err := c.closeLocked(p); err != nil && firstErr == nil {
			firstErr = err
		}
		unlock()
	}

	logger.Debug("Closed %d handles", len(paths))
	return firstErr
}

// SetPosition moves the cursor of name, opening it if needed.
func (c *HandleCache) SetPosition(user, name string, offset int64, origin Origin) error {
	return c.WithHandle(user, name, func(h *Handle) error {
		_, err := h.Seek(offset, origin)
		return err
	})
}

// Position returns the cursor of name, opening it if needed.
func (c *HandleCache) Position(user, name string) (int64, error) {
	var pos int64
	err := c.WithHandle(user, name, func(h *Handle) error {
		var err error
		pos, err = h.Position()
		return err
	})
	return pos, err
}

// AtEnd reports whether the cursor of name is at the end of the file.
func (c *HandleCache) AtEnd(user, name string) (bool, error) {
	var atEnd bool
	err := c.WithHandle(user, name, func(h *Handle) error {
		var err error
		atEnd, err = h.AtEnd()
		return err
	})
	return atEnd, err
}

// Truncate cuts name at its cursor, opening it if needed. A freshly
// opened file has its cursor at 0, so truncating it empties it.
func (c *HandleCache) Truncate(user, name string) error {
	return c.WithHandle(user, name, func(h *Handle) error {
		return h.Truncate()
	})
}

// Remove closes name and deletes it from disk.
func (c *HandleCache) Remove(user, name string) error {
	p, err := c.resolver.Resolve(user, name)
	if err != nil {
		return err
	}

	unlock := c.lockPath(p)
	defer unlock()

	if err := c.closeLocked(p); err != nil {
		logger.Warn("Remove: %v", err)
	}
	return c.fs.Remove(p)
}

// Rename closes both names, renames the file on disk and reopens it under
// the new name with the cursor at the start. An existing destination is
// never overwritten.
func (c *HandleCache) Rename(user, name, newName string) error {
	from, err := c.resolver.Resolve(user, name)
	if err != nil {
		return err
	}
	to, err := c.resolver.Resolve(user, newName)
	if err != nil {
		return err
	}

	unlock := c.lockPaths(from, to)
	defer unlock()

	if err := c.closeLocked(from); err != nil {
		logger.Warn("Rename: %v", err)
	}
	if err := c.closeLocked(to); err != nil {
		logger.Warn("Rename: %v", err)
	}

	if from != to {
		if _, err := c.fs.Stat(to); err == nil {
			return fmt.Errorf("%s: %w", to, ErrAlreadyExists)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if err := c.fs.Rename(from, to); err != nil {
			return err
		}
	} else if _, err := c.fs.Stat(from); err != nil {
		return err
	}

	h, err := c.openLocked(to)
	if err != nil {
		return err
	}
	_, err = h.Seek(0, OriginStart)
	return err
}

// Copy closes both names and copies the content of from over to.
func (c *HandleCache) Copy(user, from, to string) error {
	src, err := c.resolver.Resolve(user, from)
	if err != nil {
		return err
	}
	dst, err := c.resolver.Resolve(user, to)
	if err != nil {
		return err
	}
	if src == dst {
		return fmt.Errorf("%s: %w", src, ErrSameFile)
	}

	unlock := c.lockPaths(src, dst)
	defer unlock()

	if err := c.closeLocked(src); err != nil {
		logger.Warn("Copy: %v", err)
	}
	if err := c.closeLocked(dst); err != nil {
		logger.Warn("Copy: %v", err)
	}

	in, err := c.fs.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := c.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// Stats returns the number of open handles and the configured maximum.
func (c *HandleCache) Stats() (size int, maxSize int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len(), c.maxSize
}
