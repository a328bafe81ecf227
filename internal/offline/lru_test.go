package offline

import "testing"

func TestStatusCache_PutGet(t *testing.T) {
	c := newStatusCache(4)
	c.Put("a", CachedReadingList)

	status, ok := c.Get("a")
	if !ok || status != CachedReadingList {
		t.Errorf("Get(a) = %v, %v", status, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) should report absence")
	}
}

func TestStatusCache_Update(t *testing.T) {
	c := newStatusCache(4)
	c.Put("a", CachedReadingList)
	c.Put("a", NotCached)

	status, ok := c.Get("a")
	if !ok || status != NotCached {
		t.Errorf("Get(a) = %v, %v, want NotCached", status, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestStatusCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newStatusCache(2)
	c.Put("a", CachedReadingList)
	c.Put("b", CachedFullArchive)

	// Touch "a" so "b" is the eviction candidate.
	c.Get("a")
	c.Put("c", NotCached)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should have survived")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should be present")
	}
}

func TestStatusCache_ZeroCapacityDefaults(t *testing.T) {
	c := newStatusCache(0)
	c.Put("a", CachedReadingList)
	if _, ok := c.Get("a"); !ok {
		t.Error("cache with defaulted capacity should store entries")
	}
}
