// Package cache provides LRU caching for viewer payload files.
package cache

import (
	"container/list"
	"os"
	"sync"
	"time"
)

// Stats contains cache statistics.
type Stats struct {
	Hits       int64
	Misses     int64
	Evictions  int64
	Size       int
	MaxSize    int
	TotalBytes int64
}

// Config contains cache configuration options.
type Config struct {
	// MaxSize is the maximum number of entries (0 = unlimited).
	MaxSize int

	// MaxBytes bounds the summed entry sizes (0 = unlimited).
	MaxBytes int64

	// SizeOf reports an entry's size for MaxBytes. Nil counts every entry as 0.
	SizeOf func(value any) int64
}

// DefaultConfig returns a default cache configuration.
func DefaultConfig() Config {
	return Config{
		MaxSize:  100,
		MaxBytes: 64 << 20,
	}
}

type entry[K comparable, V any] struct {
	key   K
	value V
	size  int64
}

// LRU is a thread-safe least-recently-used cache.
type LRU[K comparable, V any] struct {
	mu        sync.Mutex
	config    Config
	entries   map[K]*list.Element
	evictList *list.List
	stats     Stats
}

// NewLRU creates an LRU cache with the given configuration.
func NewLRU[K comparable, V any](config Config) *LRU[K, V] {
	if config.MaxSize < 0 {
		config.MaxSize = 0
	}
	return &LRU[K, V]{
		config:    config,
		entries:   make(map[K]*list.Element),
		evictList: list.New(),
	}
}

// Get retrieves a value and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}
	c.evictList.MoveToFront(ent)
	c.stats.Hits++
	return ent.Value.(*entry[K, V]).value, true
}

// Put stores a value, evicting the least recently used entries while either
// limit is exceeded. A value larger than MaxBytes is not stored.
func (c *LRU[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var size int64
	if c.config.SizeOf != nil {
		size = c.config.SizeOf(value)
	}
	if c.config.MaxBytes > 0 && size > c.config.MaxBytes {
		if ent, ok := c.entries[key]; ok {
			c.removeElement(ent)
		}
		return
	}

	if ent, ok := c.entries[key]; ok {
		e := ent.Value.(*entry[K, V])
		c.stats.TotalBytes += size - e.size
		e.value = value
		e.size = size
		c.evictList.MoveToFront(ent)
	} else {
		c.entries[key] = c.evictList.PushFront(&entry[K, V]{key: key, value: value, size: size})
		c.stats.TotalBytes += size
	}

	for c.overLimit() {
		c.removeOldest()
	}
}

func (c *LRU[K, V]) overLimit() bool {
	if c.evictList.Len() <= 1 {
		return false
	}
	if c.config.MaxSize > 0 && c.evictList.Len() > c.config.MaxSize {
		return true
	}
	return c.config.MaxBytes > 0 && c.stats.TotalBytes > c.config.MaxBytes
}

// Remove removes a value from the cache.
func (c *LRU[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.entries[key]; ok {
		c.removeElement(ent)
	}
}

// Clear removes all entries from the cache.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*list.Element)
	c.evictList.Init()
	c.stats.TotalBytes = 0
}

// Len returns the number of entries in the cache.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Stats returns cache statistics.
func (c *LRU[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Size = c.evictList.Len()
	s.MaxSize = c.config.MaxSize
	return s
}

func (c *LRU[K, V]) removeOldest() {
	if ent := c.evictList.Back(); ent != nil {
		c.removeElement(ent)
		c.stats.Evictions++
	}
}

func (c *LRU[K, V]) removeElement(ent *list.Element) {
	c.evictList.Remove(ent)
	e := ent.Value.(*entry[K, V])
	delete(c.entries, e.key)
	c.stats.TotalBytes -= e.size
}

// File is a cached file body with the metadata it was read under.
type File struct {
	Data    []byte
	ModTime time.Time
	Size    int64
}

// FileCache caches file contents by path. An entry is reused only while the
// file's size and modification time are unchanged.
type FileCache struct {
	lru *LRU[string, *File]
}

// NewFileCache creates a file cache bounded by config. SizeOf is set to the
// file length.
func NewFileCache(config Config) *FileCache {
	config.SizeOf = func(v any) int64 { return int64(len(v.(*File).Data)) }
	return &FileCache{lru: NewLRU[string, *File](config)}
}

// Load returns the contents of path, reading the file when the cached copy is
// missing or stale. The returned File must not be modified.
func (c *FileCache) Load(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		c.lru.Remove(path)
		return nil, err
	}

	if f, ok := c.lru.Get(path); ok && f.Size == info.Size() && f.ModTime.Equal(info.ModTime()) {
		return f, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		c.lru.Remove(path)
		return nil, err
	}
	f := &File{Data: data, ModTime: info.ModTime(), Size: info.Size()}
	c.lru.Put(path, f)
	return f, nil
}

// Stats returns cache statistics.
func (c *FileCache) Stats() Stats {
	return c.lru.Stats()
}
