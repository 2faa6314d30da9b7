package cache

import (
	"testing"
	"time"
)

func newMemoryTestCache(t *testing.T, cfg ProviderConfig) Cache {
	t.Helper()
	c, err := New("memory", cfg)
	if err != nil {
		t.Fatalf("New memory cache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestMemoryCache_Operations(t *testing.T) {
	t.Parallel()
	c := newMemoryTestCache(t, ProviderConfig{Size: 10, TTL: time.Hour})

	if val, ok := c.Get("responses|https://a.test/"); ok || val != nil {
		t.Fatalf("Expected a miss with nil value, got %q, %v", val, ok)
	}

	c.Set("responses|https://a.test/", []byte("page v1"))
	c.Set("responses|https://a.test/", []byte("page v2"))
	c.Set("videos|supervideo|e1", []byte(`{"source":"x"}`))
	if val, ok := c.Get("responses|https://a.test/"); !ok || string(val) != "page v2" {
		t.Fatalf("Get after overwrite = %q, %v; want page v2", val, ok)
	}
	if c.Len() != 2 || !c.Contains("videos|supervideo|e1") {
		t.Fatalf("Len = %d, want 2 with the video entry present", c.Len())
	}

	c.Delete("videos|supervideo|e1")
	c.Delete("absent")
	if c.Contains("videos|supervideo|e1") || c.Len() != 1 {
		t.Errorf("Deleted entry still present, Len = %d", c.Len())
	}
}

func TestMemoryCache_EvictCallback(t *testing.T) {
	t.Parallel()
	var evicted []string
	c := newMemoryTestCache(t, ProviderConfig{
		Size:    2,
		TTL:     time.Hour,
		OnEvict: func(key string, _ []byte) { evicted = append(evicted, key) },
	})

	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	c.Set("c", []byte("3")) // capacity reached, "a" goes
	c.Delete("b")

	if len(evicted) != 2 || evicted[0] != "a" || evicted[1] != "b" {
		t.Fatalf("Evicted = %v, want [a b]", evicted)
	}
	if c.Contains("a") || c.Contains("b") || !c.Contains("c") {
		t.Error("Only c should remain")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	t.Parallel()
	c := newMemoryTestCache(t, ProviderConfig{Size: 10, TTL: 20 * time.Millisecond})

	c.Set("short", []byte("lived"))
	time.Sleep(80 * time.Millisecond)
	if _, ok := c.Get("short"); ok {
		t.Error("Expected the entry to expire")
	}
}
