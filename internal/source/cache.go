package source

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"codeatlas/internal/logging"
)

// fileCache caches module content between reads and invalidates entries
// when the backing files change on disk, including changes made outside the
// provider (an editor, a git checkout). Without the watcher a symbol span
// read could splice against stale line numbers.
type fileCache struct {
	mu      sync.Mutex
	files   map[string][]byte
	watched map[string]bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

func newFileCache() *fileCache {
	c := &fileCache{
		files:   make(map[string][]byte),
		watched: make(map[string]bool),
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		// Degrade to uncached reads rather than fail the provider.
		logging.SourceDebug("file watcher unavailable, reads uncached: %v", err)
		return c
	}
	c.watcher = w
	c.done = make(chan struct{})
	go c.loop()
	return c
}

func (c *fileCache) loop() {
	for {
		select {
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				c.invalidate(ev.Name)
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			logging.SourceDebug("watcher error: %v", err)
		case <-c.done:
			return
		}
	}
}

// read returns the file content, from cache when fresh.
func (c *fileCache) read(path string) ([]byte, error) {
	if c.watcher == nil {
		return os.ReadFile(path)
	}

	c.mu.Lock()
	if data, ok := c.files[path]; ok {
		c.mu.Unlock()
		return data, nil
	}
	c.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[path] = data
	dir := filepath.Dir(path)
	if !c.watched[dir] {
		if err := c.watcher.Add(dir); err != nil {
			logging.SourceDebug("watch %s: %v", dir, err)
		} else {
			c.watched[dir] = true
		}
	}
	return data, nil
}

func (c *fileCache) invalidate(path string) {
	c.mu.Lock()
	delete(c.files, path)
	c.mu.Unlock()
}

func (c *fileCache) invalidateAll() {
	c.mu.Lock()
	c.files = make(map[string][]byte)
	c.mu.Unlock()
}

func (c *fileCache) close() {
	if c.watcher == nil {
		return
	}
	close(c.done)
	_ = c.watcher.Close()
}

