package core

import "testing"

func newTestPrimaryIndex(t *testing.T) (*PrimaryIndex, *Ledger) {
	t.Helper()
	led, err := NewInMemory()
	if err != nil {
		t.Fatalf("new in-memory ledger: %v", err)
	}
	t.Cleanup(func() { led.Close() })
	return NewPrimaryIndex(led, NewTableRegistry(), 0), led
}

func TestPrimaryIndexStoreFindGetRemove(t *testing.T) {
	p, _ := newTestPrimaryIndex(t)
	var payer Address
	payer[0] = 0xaa

	h, err := p.Store(1, 2, 3, payer, 10, []byte("hello"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	fh, err := p.Find(1, 2, 3, 10)
	if err != nil || fh != h {
		t.Fatalf("find = %d, %v, want %d, nil", fh, err, h)
	}

	gotPayer, data, err := p.Get(h)
	if err != nil || string(data) != "hello" || gotPayer != payer {
		t.Fatalf("get = %v %q %v", gotPayer, data, err)
	}

	if _, err := p.Store(1, 2, 3, payer, 10, []byte("dup")); err != ErrDuplicatePrimaryKey {
		t.Fatalf("expected ErrDuplicatePrimaryKey on duplicate store, got %v", err)
	}

	oldPayer, oldData, err := p.Remove(h)
	if err != nil || oldPayer != payer || string(oldData) != "hello" {
		t.Fatalf("remove = %v %q %v", oldPayer, oldData, err)
	}
	if _, _, err := p.Get(h); err != ErrIteratorInvalid {
		t.Fatalf("expected ErrIteratorInvalid after remove, got %v", err)
	}
}

func TestPrimaryIndexFindMissingReturnsInvalid(t *testing.T) {
	p, _ := newTestPrimaryIndex(t)
	h, err := p.Find(1, 2, 3, 99)
	if err != nil || h != IteratorInvalid {
		t.Fatalf("find missing = %d, %v, want IteratorInvalid, nil", h, err)
	}
}

func TestPrimaryIndexNextAndPrevious(t *testing.T) {
	p, _ := newTestPrimaryIndex(t)
	var payer Address
	for _, k := range []uint64{1, 3, 5} {
		if _, err := p.Store(1, 2, 3, payer, k, []byte("v")); err != nil {
			t.Fatalf("store %d: %v", k, err)
		}
	}

	h1, err := p.Find(1, 2, 3, 1)
	if err != nil {
		t.Fatalf("find 1: %v", err)
	}
	h2, err := p.Next(h1)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	pk, err := p.PrimaryKey(h2)
	if err != nil || pk != 3 {
		t.Fatalf("next primary key = %d, %v, want 3", pk, err)
	}

	h3, err := p.Next(h2)
	if err != nil {
		t.Fatalf("next again: %v", err)
	}
	pk3, err := p.PrimaryKey(h3)
	if err != nil || pk3 != 5 {
		t.Fatalf("next primary key = %d, %v, want 5", pk3, err)
	}

	endH, err := p.Next(h3)
	if err != nil || !IsEndHandle(endH) {
		t.Fatalf("expected end handle after last row, got %d, %v", endH, err)
	}

	back, err := p.Previous(endH)
	if err != nil {
		t.Fatalf("previous from end: %v", err)
	}
	pkBack, err := p.PrimaryKey(back)
	if err != nil || pkBack != 5 {
		t.Fatalf("previous from end = %d, %v, want 5", pkBack, err)
	}
}

func TestPrimaryIndexLowerAndUpperBound(t *testing.T) {
	p, _ := newTestPrimaryIndex(t)
	var payer Address
	for _, k := range []uint64{10, 20, 30} {
		if _, err := p.Store(1, 2, 3, payer, k, []byte("v")); err != nil {
			t.Fatalf("store %d: %v", k, err)
		}
	}

	lb, err := p.LowerBound(1, 2, 3, 20)
	if err != nil {
		t.Fatalf("lowerbound: %v", err)
	}
	if pk, _ := p.PrimaryKey(lb); pk != 20 {
		t.Fatalf("lowerbound(20) = %d, want 20", pk)
	}

	ub, err := p.UpperBound(1, 2, 3, 20)
	if err != nil {
		t.Fatalf("upperbound: %v", err)
	}
	if pk, _ := p.PrimaryKey(ub); pk != 30 {
		t.Fatalf("upperbound(20) = %d, want 30", pk)
	}
}
