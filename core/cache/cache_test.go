package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestLRU_BasicOperations(t *testing.T) {
	cache := NewLRU[string, int](Config{MaxSize: 3})

	cache.Put("a", 1)
	cache.Put("b", 2)
	cache.Put("c", 3)

	if v, ok := cache.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", v, ok)
	}
	if _, ok := cache.Get("d"); ok {
		t.Error("Get(d) should return false")
	}
	if n := cache.Len(); n != 3 {
		t.Errorf("Len() = %d; want 3", n)
	}

	cache.Remove("b")
	if _, ok := cache.Get("b"); ok {
		t.Error("Get(b) should return false after Remove")
	}

	cache.Clear()
	if n := cache.Len(); n != 0 {
		t.Errorf("Len() after Clear = %d; want 0", n)
	}
}

func TestLRU_Eviction(t *testing.T) {
	cache := NewLRU[string, int](Config{MaxSize: 2})

	cache.Put("a", 1)
	cache.Put("b", 2)
	cache.Get("a")    // "b" is now least recently used
	cache.Put("c", 3) // evicts "b"

	if _, ok := cache.Get("b"); ok {
		t.Error("Get(b) should return false after eviction")
	}
	if _, ok := cache.Get("a"); !ok {
		t.Error("Get(a) should survive, it was used recently")
	}

	stats := cache.Stats()
	if stats.Evictions != 1 || stats.Size != 2 || stats.MaxSize != 2 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestLRU_ByteLimit(t *testing.T) {
	cache := NewLRU[string, string](Config{
		MaxBytes: 10,
		SizeOf:   func(v any) int64 { return int64(len(v.(string))) },
	})

	cache.Put("a", "12345")
	cache.Put("b", "12345")
	if got := cache.Stats().TotalBytes; got != 10 {
		t.Errorf("TotalBytes = %d; want 10", got)
	}

	cache.Put("c", "123") // evicts "a"
	if _, ok := cache.Get("a"); ok {
		t.Error("Get(a) should return false after byte-limit eviction")
	}
	if got := cache.Stats().TotalBytes; got != 8 {
		t.Errorf("TotalBytes = %d; want 8", got)
	}

	cache.Put("huge", "12345678901")
	if _, ok := cache.Get("huge"); ok {
		t.Error("values larger than MaxBytes should not be stored")
	}

	cache.Put("b", "1") // replacing adjusts the total
	if got := cache.Stats().TotalBytes; got != 4 {
		t.Errorf("TotalBytes after replace = %d; want 4", got)
	}
}

func TestLRU_Concurrent(t *testing.T) {
	cache := NewLRU[string, int](Config{MaxSize: 50})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d-%d", id, j%10)
				cache.Put(key, j)
				cache.Get(key)
			}
		}(i)
	}
	wg.Wait()

	if n := cache.Len(); n > 50 {
		t.Errorf("Len() = %d; want <= 50", n)
	}
}

func TestFileCache_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mark.json")
	if err := os.WriteFile(path, []byte(`{"book_id": "mark"}`), 0644); err != nil {
		t.Fatal(err)
	}

	fc := NewFileCache(DefaultConfig())
	f, err := fc.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(f.Data) != `{"book_id": "mark"}` {
		t.Errorf("Data = %q", f.Data)
	}

	if _, err := fc.Load(path); err != nil {
		t.Fatal(err)
	}
	if s := fc.Stats(); s.Hits != 1 || s.Misses != 1 {
		t.Errorf("Stats() = %+v; want 1 hit, 1 miss", s)
	}

	// A rewrite with a new mtime is picked up
	if err := os.WriteFile(path, []byte(`{"book_id": "mark", "v": 2}`), 0644); err != nil {
		t.Fatal(err)
	}
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}
	f, err = fc.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(f.Data) != `{"book_id": "mark", "v": 2}` {
		t.Errorf("stale Data = %q", f.Data)
	}

	// A deleted file is an error and leaves the cache
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if _, err := fc.Load(path); !os.IsNotExist(err) {
		t.Errorf("Load() error = %v; want not-exist", err)
	}
	if s := fc.Stats(); s.Size != 0 {
		t.Errorf("Size = %d after delete; want 0", s.Size)
	}
}
