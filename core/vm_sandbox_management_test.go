package core

import "testing"

func TestSandboxManagerStartStopStatus(t *testing.T) {
	led, err := NewInMemory()
	if err != nil {
		t.Fatalf("new in-memory ledger: %v", err)
	}
	defer led.Close()

	sm := NewSandboxManager(led)
	var addr Address
	addr[0] = 1

	if _, ok := sm.Status(addr); ok {
		t.Fatalf("expected no sandbox recorded initially")
	}

	if err := sm.Start(addr, 10, 1000); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := sm.Start(addr, 10, 1000); err == nil {
		t.Fatalf("expected starting an already-active sandbox to fail")
	}

	info, ok := sm.Status(addr)
	if !ok || !info.Active || info.CPULimit != 1000 {
		t.Fatalf("status = %+v, %v", info, ok)
	}

	if err := sm.Stop(addr); err != nil {
		t.Fatalf("stop: %v", err)
	}
	info, ok = sm.Status(addr)
	if !ok || info.Active {
		t.Fatalf("expected sandbox to be inactive after stop, got %+v", info)
	}
}

func TestSandboxManagerGasLimitForActiveOnly(t *testing.T) {
	led, err := NewInMemory()
	if err != nil {
		t.Fatalf("new in-memory ledger: %v", err)
	}
	defer led.Close()

	sm := NewSandboxManager(led)
	var addr Address
	addr[0] = 2

	if _, ok := sm.GasLimitFor(addr); ok {
		t.Fatalf("expected no gas limit before sandbox starts")
	}
	if err := sm.Start(addr, 10, 500); err != nil {
		t.Fatalf("start: %v", err)
	}
	limit, ok := sm.GasLimitFor(addr)
	if !ok || limit != 500 {
		t.Fatalf("gas limit = %d, %v, want 500, true", limit, ok)
	}
	if err := sm.Stop(addr); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, ok := sm.GasLimitFor(addr); ok {
		t.Fatalf("expected no gas limit once sandbox is stopped")
	}
}

func TestSandboxManagerResetReactivates(t *testing.T) {
	led, err := NewInMemory()
	if err != nil {
		t.Fatalf("new in-memory ledger: %v", err)
	}
	defer led.Close()

	sm := NewSandboxManager(led)
	var addr Address
	addr[0] = 3
	if err := sm.Start(addr, 10, 100); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := sm.Stop(addr); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := sm.Reset(addr); err != nil {
		t.Fatalf("reset: %v", err)
	}
	info, ok := sm.Status(addr)
	if !ok || !info.Active {
		t.Fatalf("expected sandbox to be active after reset, got %+v, %v", info, ok)
	}
}

func TestSandboxManagerList(t *testing.T) {
	led, err := NewInMemory()
	if err != nil {
		t.Fatalf("new in-memory ledger: %v", err)
	}
	defer led.Close()

	sm := NewSandboxManager(led)
	var a, b Address
	a[0], b[0] = 1, 2
	if err := sm.Start(a, 10, 10); err != nil {
		t.Fatalf("start a: %v", err)
	}
	if err := sm.Start(b, 10, 10); err != nil {
		t.Fatalf("start b: %v", err)
	}
	if got := sm.List(); len(got) != 2 {
		t.Fatalf("expected 2 sandboxes listed, got %d", len(got))
	}
}
