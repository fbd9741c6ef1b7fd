package prompt

import (
	"fmt"
	"os"
	"sync"
)

// FileCache caches template files to avoid repeated reads.
type FileCache struct {
	mu  sync.RWMutex
	raw map[string]string
}

// NewFileCache creates an empty cache.
func NewFileCache() *FileCache {
	return &FileCache{
		raw: make(map[string]string),
	}
}

// Load reads a template from the cache or from disk.
func (fc *FileCache) Load(path string) (string, error) {
	fc.mu.RLock()
	if content, ok := fc.raw[path]; ok {
		fc.mu.RUnlock()
		return content, nil
	}
	fc.mu.RUnlock()

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading template file: %w", err)
	}

	fc.mu.Lock()
	fc.raw[path] = string(content)
	fc.mu.Unlock()

	return string(content), nil
}

// Preload loads several templates at once, failing on the first bad path.
func (fc *FileCache) Preload(paths []string) error {
	for _, path := range paths {
		if _, err := fc.Load(path); err != nil {
			return fmt.Errorf("preloading %s: %w", path, err)
		}
	}
	return nil
}

// Len returns the number of cached templates.
func (fc *FileCache) Len() int {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return len(fc.raw)
}
