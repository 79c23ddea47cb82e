// Package static serves the control UI files with a read-through cache.
package static

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Cache is a read-through, memoised path-to-contents map rooted at a
// directory. Each path is read from disk at most once for the lifetime of
// the process; subsequent lookups are served from memory. Failed reads are
// not memoised so a file created later can still be picked up.
type Cache struct {
	root string

	mu    sync.RWMutex
	files map[string][]byte
}

// NewCache creates a cache rooted at the given directory.
func NewCache(root string) *Cache {
	return &Cache{
		root:  root,
		files: make(map[string][]byte),
	}
}

// File returns the contents of the file at the given path relative to the
// cache root.
func (c *Cache) File(path string) ([]byte, error) {
	clean, err := c.resolve(path)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	data, ok := c.files[clean]
	c.mu.RUnlock()
	if ok {
		return data, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have filled the entry while we waited.
	if data, ok := c.files[clean]; ok {
		return data, nil
	}

	data, err = os.ReadFile(filepath.Join(c.root, clean))
	if err != nil {
		return nil, fmt.Errorf("cannot read file %q: %w", clean, err)
	}
	c.files[clean] = data
	return data, nil
}

// resolve normalizes the request path. Anchoring at "/" before Clean keeps
// ".." segments from escaping the root.
func (c *Cache) resolve(path string) (string, error) {
	clean := strings.TrimPrefix(filepath.Clean("/"+path), "/")
	if clean == "" || clean == "." {
		return "", fmt.Errorf("empty file path")
	}
	return clean, nil
}
