package core

import "testing"

func TestAuthorizationGateRequireAndHas(t *testing.T) {
	declared := []PermissionLevel{{Actor: 1, Permission: 2}}
	g := NewAuthorizationGate(declared)

	if !g.HasAuthorization(1, 2) {
		t.Fatalf("expected declared authorization to be present")
	}
	if g.HasAuthorization(3, 4) {
		t.Fatalf("expected undeclared authorization to be absent")
	}

	if err := g.RequireAuthorization(9, 9); err != ErrMissingAuthorization {
		t.Fatalf("expected ErrMissingAuthorization, got %v", err)
	}
	if err := g.RequireAuthorization(1, 2); err != nil {
		t.Fatalf("require declared authorization: %v", err)
	}
	if err := g.AllAuthorizationsUsed(); err != nil {
		t.Fatalf("AllAuthorizationsUsed: %v", err)
	}
}

func TestAuthorizationGateUnusedAuthorizations(t *testing.T) {
	declared := []PermissionLevel{{Actor: 1, Permission: 2}, {Actor: 3, Permission: 4}}
	g := NewAuthorizationGate(declared)

	if err := g.AllAuthorizationsUsed(); err != ErrUnusedAuthorization {
		t.Fatalf("expected ErrUnusedAuthorization before any use, got %v", err)
	}
	unused := g.UnusedAuthorizations()
	if len(unused) != 2 {
		t.Fatalf("expected 2 unused authorizations, got %d", len(unused))
	}

	if err := g.RequireAuthorization(1, 2); err != nil {
		t.Fatalf("require: %v", err)
	}
	unused = g.UnusedAuthorizations()
	if len(unused) != 1 || unused[0].Actor != 3 {
		t.Fatalf("expected only the second permission level to remain unused, got %+v", unused)
	}

	if err := g.RequireAuthorization(3, 0); err != nil {
		t.Fatalf("require any-permission: %v", err)
	}
	if len(g.UnusedAuthorizations()) != 0 {
		t.Fatalf("expected no unused authorizations left")
	}
	if err := g.AllAuthorizationsUsed(); err != nil {
		t.Fatalf("AllAuthorizationsUsed: %v", err)
	}
}

func TestAuthorizationGateRecipients(t *testing.T) {
	g := NewAuthorizationGate(nil)
	if g.HasRecipient(1) {
		t.Fatalf("expected no recipients initially")
	}
	g.RequireRecipient(1)
	g.RequireRecipient(1)
	if !g.HasRecipient(1) {
		t.Fatalf("expected recipient to be recorded")
	}
	if got := g.Recipients(); len(got) != 1 {
		t.Fatalf("expected recipient list to dedup repeated calls, got %v", got)
	}
}

func TestAuthorizationGateLockDeclarations(t *testing.T) {
	g := NewAuthorizationGate(nil)
	g.RequireReadLock(1, 2, 3)
	g.RequireWriteLock(1, 2, 4)
	if len(g.ReadLocks()) != 1 || len(g.WriteLocks()) != 1 {
		t.Fatalf("expected one read lock and one write lock declared")
	}
}
