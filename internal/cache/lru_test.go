package cache

import (
	"testing"
	"time"
)

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("day", 1)
	c.Set("week", 2)
	c.Get("day")
	c.Set("month", 3)

	if _, ok := c.Get("week"); ok {
		t.Fatal("week should have been evicted")
	}
	if v, ok := c.Get("day"); !ok || v != 1 {
		t.Fatalf("day = %d, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("Size() = %d", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	now := time.Date(2024, 2, 25, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("month", "series")
	c.Set("year", "series")
	now = now.Add(30 * time.Second)
	if _, ok := c.Get("month"); !ok {
		t.Fatal("entry should still be fresh")
	}
	now = now.Add(time.Minute)
	if _, ok := c.Get("month"); ok {
		t.Fatal("entry should have expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired() = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Fatalf("Size() = %d", c.Size())
	}
}

func TestLRUCacheClearAndDelete(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("a should be deleted")
	}
	c.Clear()
	if c.Size() != 0 {
		t.Fatalf("Size() after Clear = %d", c.Size())
	}
	c.Set("c", 3)
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatal("cache unusable after Clear")
	}
}

func TestManagerSweep(t *testing.T) {
	now := time.Now()
	c := NewLRUCache[int](10, time.Second)
	c.now = func() time.Time { return now }
	c.Set("x", 1)
	now = now.Add(2 * time.Second)

	m := NewManager()
	m.Register(c)
	if n := m.sweep(); n != 1 {
		t.Fatalf("sweep() = %d, want 1", n)
	}
	m.StartCleanup(time.Hour)
	m.Stop()
}
