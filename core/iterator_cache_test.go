package core

import "testing"

func TestIteratorCacheAddIsIdempotentForLiveKey(t *testing.T) {
	c := NewIteratorCache[primaryIdentity](0)
	id := primaryIdentity{tableID: 1, primary: 5}
	h1, err := c.Add(id)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	h2, err := c.Add(id)
	if err != nil {
		t.Fatalf("add again: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("expected the same handle for the same live key, got %d and %d", h1, h2)
	}
}

func TestIteratorCacheRemoveTombstonesHandle(t *testing.T) {
	c := NewIteratorCache[primaryIdentity](0)
	id := primaryIdentity{tableID: 1, primary: 5}
	h, err := c.Add(id)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	c.Remove(id)
	if _, ok := c.Get(h); ok {
		t.Fatalf("expected tombstoned handle to be invalid")
	}

	h2, err := c.Add(id)
	if err != nil {
		t.Fatalf("re-add after remove: %v", err)
	}
	if h2 == h {
		t.Fatalf("expected a fresh handle after tombstoning, got the same one back")
	}
}

func TestIteratorCacheRespectsCeiling(t *testing.T) {
	c := NewIteratorCache[primaryIdentity](1)
	if _, err := c.Add(primaryIdentity{tableID: 1, primary: 1}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if _, err := c.Add(primaryIdentity{tableID: 1, primary: 2}); err != ErrIteratorCacheFull {
		t.Fatalf("expected ErrIteratorCacheFull, got %v", err)
	}
}

func TestIteratorCacheEndHandleRoundTrip(t *testing.T) {
	c := NewIteratorCache[primaryIdentity](0)
	end := c.CacheTable(42)
	if !IsEndHandle(end) {
		t.Fatalf("expected CacheTable to return an end handle, got %d", end)
	}
	tableID, ok := c.FindTableByEndIterator(end)
	if !ok || tableID != 42 {
		t.Fatalf("FindTableByEndIterator = %d, %v, want 42, true", tableID, ok)
	}

	again := c.CacheTable(42)
	if again != end {
		t.Fatalf("expected CacheTable to be idempotent, got %d and %d", end, again)
	}

	if c.EndIteratorForTable(42) != end {
		t.Fatalf("EndIteratorForTable mismatch")
	}
	if c.EndIteratorForTable(99) != IteratorInvalid {
		t.Fatalf("expected IteratorInvalid for an uncached table")
	}
}
