package core

import "testing"

func newTestU64Index(t *testing.T) (*SecondaryIndex[U64Key], *Ledger) {
	t.Helper()
	led, err := NewInMemory()
	if err != nil {
		t.Fatalf("new in-memory ledger: %v", err)
	}
	t.Cleanup(func() { led.Close() })
	return NewSecondaryIndex[U64Key](led, NewTableRegistry(), IdxU64, 0), led
}

func TestSecondaryIndexStoreFindRemove(t *testing.T) {
	idx, _ := newTestU64Index(t)

	h, err := idx.Store(1, 2, 3, 100, U64Key(55))
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	primary, fh, err := idx.Find(1, 2, 3, U64Key(55))
	if err != nil || primary != 100 || fh != h {
		t.Fatalf("find = %d %d %v, want 100 %d nil", primary, fh, err, h)
	}

	if _, err := idx.Store(1, 2, 3, 200, U64Key(55)); err != ErrDuplicateSecondaryKey {
		t.Fatalf("expected ErrDuplicateSecondaryKey, got %v", err)
	}

	if err := idx.Remove(1, 2, 3, 100, U64Key(55)); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, fh2, err := idx.Find(1, 2, 3, U64Key(55)); err != nil || fh2 != IteratorInvalid {
		t.Fatalf("expected miss after remove, got %d, %v", fh2, err)
	}
}

func TestSecondaryIndexLowerUpperBoundAndNavigation(t *testing.T) {
	idx, _ := newTestU64Index(t)
	keys := []uint64{10, 20, 30}
	for i, k := range keys {
		if _, err := idx.Store(1, 2, 3, uint64(i+1), U64Key(k)); err != nil {
			t.Fatalf("store %d: %v", k, err)
		}
	}

	primary, foundKey, _, err := idx.LowerBound(1, 2, 3, U64Key(20))
	if err != nil || primary != 2 || foundKey != U64Key(20) {
		t.Fatalf("lowerbound(20) = %d, %v, %v, want 2, 20, nil", primary, foundKey, err)
	}

	primary, foundKey, _, err = idx.UpperBound(1, 2, 3, U64Key(20))
	if err != nil || primary != 3 || foundKey != U64Key(30) {
		t.Fatalf("upperbound(20) = %d, %v, %v, want 3, 30, nil", primary, foundKey, err)
	}

	_, h, err := idx.Find(1, 2, 3, U64Key(10))
	if err != nil {
		t.Fatalf("find 10: %v", err)
	}
	nextPrimary, nextH, err := idx.Next(h)
	if err != nil || nextPrimary != 2 {
		t.Fatalf("next primary = %d, %v, want 2", nextPrimary, err)
	}
	if _, _, err := idx.Next(nextH); err != nil {
		t.Fatalf("next again: %v", err)
	}
}

func TestSecondaryIndexFloat64KeyOrdering(t *testing.T) {
	led, err := NewInMemory()
	if err != nil {
		t.Fatalf("new in-memory ledger: %v", err)
	}
	defer led.Close()
	idx := NewSecondaryIndex[Float64Key](led, NewTableRegistry(), IdxFloat64, 0)

	if _, err := idx.Store(1, 2, 3, 1, Float64Key(-1.5)); err != nil {
		t.Fatalf("store -1.5: %v", err)
	}
	if _, err := idx.Store(1, 2, 3, 2, Float64Key(2.5)); err != nil {
		t.Fatalf("store 2.5: %v", err)
	}

	primary, foundKey, _, err := idx.LowerBound(1, 2, 3, Float64Key(0))
	if err != nil || primary != 2 || foundKey != Float64Key(2.5) {
		t.Fatalf("lowerbound(0) = %d, %v, %v, want 2, 2.5, nil", primary, foundKey, err)
	}
}

func TestSecondaryIndexUpdateChangesKeyAndPreservesPrimary(t *testing.T) {
	idx, _ := newTestU64Index(t)
	h, err := idx.Store(1, 2, 3, 100, U64Key(55))
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	primary, _, nh, err := idx.Update(h, U64Key(77))
	if err != nil || primary != 100 {
		t.Fatalf("update = %d, %d, %v, want 100", primary, nh, err)
	}

	if _, fh, err := idx.Find(1, 2, 3, U64Key(55)); err != nil || fh != IteratorInvalid {
		t.Fatalf("expected old key gone after update, got %d, %v", fh, err)
	}
	newPrimary, _, err := idx.Find(1, 2, 3, U64Key(77))
	if err != nil || newPrimary != 100 {
		t.Fatalf("find new key = %d, %v, want 100", newPrimary, err)
	}
}
