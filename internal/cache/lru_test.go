package cache

import (
	"testing"
	"time"
)

func TestLRUCache_EvictsOldest(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	var evicted []string
	c.OnEvict(func(key string, _ int) { evicted = append(evicted, key) })

	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok { // a becomes most recent
		t.Fatalf("expected a to be cached")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Fatalf("evicted = %v, want [b]", evicted)
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d, want 2", c.Size())
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	c := NewLRUCache[string](10, time.Minute)
	now := time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	now = now.Add(2 * time.Minute)

	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected expired entry to miss")
	}

	c.Set("x", "1")
	c.Set("y", "2")
	now = now.Add(2 * time.Minute)
	if n := c.CleanExpired(); n != 2 {
		t.Fatalf("CleanExpired = %d, want 2", n)
	}
}

func TestLRUCache_TakeIsOnce(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("p", 42)

	v, ok := c.Take("p")
	if !ok || v != 42 {
		t.Fatalf("Take = %d, %v", v, ok)
	}
	if _, ok := c.Take("p"); ok {
		t.Fatalf("second Take must miss")
	}
}

func TestLRUCache_ValuesByPrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("owner1/a", 1)
	c.Set("owner2/b", 2)
	c.Set("owner1/c", 3)

	got := c.Values("owner1/")
	if len(got) != 2 || got[0] != 3 || got[1] != 1 {
		t.Fatalf("Values = %v, want [3 1]", got)
	}
}

func TestManager_Sweep(t *testing.T) {
	c := NewLRUCache[int](10, -time.Second) // everything is already expired
	c.Set("a", 1)

	m := NewManager()
	m.Register(c)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("Sweep = %d, want 1", n)
	}
	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
