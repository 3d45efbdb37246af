package metadata

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestCache(ttl time.Duration, maxItems int) *Cache {
	return NewCache(CacheConfig{TTL: ttl, MaxItems: maxItems})
}

func TestCache_SetGet(t *testing.T) {
	cache := newTestCache(time.Minute, 100)

	cache.Set("key1", "value1")

	val, ok := cache.Get("key1")
	if !ok {
		t.Fatal("expected key1 to exist")
	}
	if val != "value1" {
		t.Errorf("expected value1, got %v", val)
	}

	if _, ok := cache.Get("nonexistent"); ok {
		t.Error("expected key to not exist")
	}
}

func TestCache_LRUEviction(t *testing.T) {
	cache := newTestCache(time.Minute, 2)

	cache.Set("A", 1)
	cache.Set("B", 2)
	cache.Set("C", 3)

	if _, ok := cache.Get("A"); ok {
		t.Error("expected A to be evicted")
	}
	for _, key := range []string{"B", "C"} {
		if _, ok := cache.Get(key); !ok {
			t.Errorf("expected %s to be cached", key)
		}
	}
}

func TestCache_LRUEviction_RecentlyRead(t *testing.T) {
	cache := newTestCache(time.Minute, 2)

	cache.Set("A", 1)
	cache.Set("B", 2)
	cache.Get("A")
	cache.Set("C", 3)

	if _, ok := cache.Get("B"); ok {
		t.Error("expected B to be evicted as least recently used")
	}
	if _, ok := cache.Get("A"); !ok {
		t.Error("expected A to survive after being read")
	}
}

func TestCache_HardExpiry(t *testing.T) {
	cache := newTestCache(200*time.Millisecond, 2)

	cache.Set("D", 4)
	time.Sleep(100 * time.Millisecond)
	if _, ok := cache.Get("D"); !ok {
		t.Fatal("expected D before TTL")
	}

	// reads do not extend the lifetime
	time.Sleep(150 * time.Millisecond)
	if _, ok := cache.Get("D"); ok {
		t.Error("expected D to be expired after TTL")
	}
	if cache.Len() != 0 {
		t.Errorf("expected expired entry to be dropped, got %d items", cache.Len())
	}
}

func TestCache_SetRestartsTTL(t *testing.T) {
	cache := newTestCache(200*time.Millisecond, 10)

	cache.Set("key1", "value1")
	time.Sleep(150 * time.Millisecond)
	cache.Set("key1", "value2")
	time.Sleep(100 * time.Millisecond)

	val, ok := cache.Get("key1")
	if !ok || val != "value2" {
		t.Errorf("Get() = %v, %v; want value2", val, ok)
	}
}

func TestCache_DeleteClear(t *testing.T) {
	cache := newTestCache(time.Minute, 100)

	cache.Set("key1", "value1")
	cache.Set("key2", "value2")
	cache.Delete("key1")

	if _, ok := cache.Get("key1"); ok {
		t.Error("expected key1 to be deleted")
	}
	if cache.Len() != 1 {
		t.Errorf("expected 1 item, got %d", cache.Len())
	}

	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("expected cache to be empty, got %d items", cache.Len())
	}
}

func TestCache_CloseClears(t *testing.T) {
	cache := newTestCache(time.Minute, 100)

	cache.Set("key1", "value1")
	cache.Close()

	if _, ok := cache.Get("key1"); ok {
		t.Error("expected Close to drop cached items")
	}
}

func TestLoad_CachesValue(t *testing.T) {
	cache := newTestCache(time.Minute, 100)
	calls := 0

	fn := func() (string, error) {
		calls++
		return "tt0499549", nil
	}

	for i := 0; i < 3; i++ {
		id, err := Load(cache, "imdb:search", "avatar|2009", fn)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if id != "tt0499549" {
			t.Errorf("Load() = %q, want tt0499549", id)
		}
	}

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestLoad_ErrorsNotCached(t *testing.T) {
	cache := newTestCache(time.Minute, 100)
	calls := 0
	boom := errors.New("boom")

	fn := func() (string, error) {
		calls++
		if calls == 1 {
			return "", boom
		}
		return "ok", nil
	}

	if _, err := Load(cache, "tmdb:search", "x", fn); !errors.Is(err, boom) {
		t.Fatalf("Load() error = %v, want boom", err)
	}
	if v, err := Load(cache, "tmdb:search", "x", fn); err != nil || v != "ok" {
		t.Fatalf("Load() = %q, %v; want ok", v, err)
	}
}

func TestLoad_SingleFlight(t *testing.T) {
	cache := newTestCache(time.Minute, 100)

	var calls atomic.Int32
	release := make(chan struct{})
	fn := func() (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]int, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = Load(cache, "omdb:search", "matrix", fn)
		}(i)
	}

	// give the goroutines a chance to join the in-flight call
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 in-flight call, got %d", got)
	}
	for i, r := range results {
		if r != 42 {
			t.Errorf("result[%d] = %d, want 42", i, r)
		}
	}
}
