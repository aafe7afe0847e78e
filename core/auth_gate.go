package core

// AuthorizationGate tracks which of an action's declared authorizations have
// actually been consumed by a require_authorization call, and which
// accounts have been added to the notification (require_recipient) list.
// Every action gets its own gate; nothing here is shared across actions.
type AuthorizationGate struct {
	declared []PermissionLevel
	used     []bool
	anyUsed  []bool // per actor, used without a specific permission requirement

	recipients map[Name]bool

	readLocked  map[tableKey]bool
	writeLocked map[tableKey]bool
}

// NewAuthorizationGate builds a gate for an action that declared the given
// authorization list.
func NewAuthorizationGate(declared []PermissionLevel) *AuthorizationGate {
	return &AuthorizationGate{
		declared:    declared,
		used:        make([]bool, len(declared)),
		anyUsed:     make([]bool, len(declared)),
		recipients:  make(map[Name]bool),
		readLocked:  make(map[tableKey]bool),
		writeLocked: make(map[tableKey]bool),
	}
}

// HasAuthorization reports whether actor/permission appears in the action's
// declared authorization list, without marking it used.
func (g *AuthorizationGate) HasAuthorization(actor, permission Name) bool {
	for _, p := range g.declared {
		if p.Actor == actor && p.Permission == permission {
			return true
		}
	}
	return false
}

// RequireAuthorization marks actor/permission (or, if permission is the zero
// Name, any permission held by actor) as used, returning
// ErrMissingAuthorization if the action never declared it.
func (g *AuthorizationGate) RequireAuthorization(actor, permission Name) error {
	for i, p := range g.declared {
		if p.Actor != actor {
			continue
		}
		if permission == 0 {
			g.anyUsed[i] = true
			return nil
		}
		if p.Permission == permission {
			g.used[i] = true
			return nil
		}
	}
	return ErrMissingAuthorization
}

// AllAuthorizationsUsed is the post-action check: every authorization the
// action declared must have been consumed by at least one
// RequireAuthorization call, otherwise the action is rejected even though it
// ran to completion without error. This stops contracts from padding their
// authorization list for resources they never actually checked.
func (g *AuthorizationGate) AllAuthorizationsUsed() error {
	for i := range g.declared {
		if !g.used[i] && !g.anyUsed[i] {
			return ErrUnusedAuthorization
		}
	}
	return nil
}

// UnusedAuthorizations returns every declared permission level that has not
// yet been consumed by a RequireAuthorization call, mirroring the original
// database_api's unused_authorizations() accessor alongside its
// all_authorizations_used() bool.
func (g *AuthorizationGate) UnusedAuthorizations() []PermissionLevel {
	var out []PermissionLevel
	for i, p := range g.declared {
		if !g.used[i] && !g.anyUsed[i] {
			out = append(out, p)
		}
	}
	return out
}

// RequireRecipient enqueues account to receive a notification copy of this
// action. Calling it twice for the same account is a no-op, matching the
// original's "has_recipient" short circuit in require_recipient.
func (g *AuthorizationGate) RequireRecipient(account Name) {
	g.recipients[account] = true
}

// HasRecipient reports whether account has already been enqueued.
func (g *AuthorizationGate) HasRecipient(account Name) bool {
	return g.recipients[account]
}

// Recipients returns the full notification list accumulated so far.
func (g *AuthorizationGate) Recipients() []Name {
	out := make([]Name, 0, len(g.recipients))
	for n := range g.recipients {
		out = append(out, n)
	}
	return out
}

// RequireReadLock/RequireWriteLock record that an action touches a table in
// a way that must be serialized against concurrent actions on the same
// table. The gate only records the declaration; enforcing it against
// concurrently running actions is the scheduler's job, which sits outside
// this trust boundary.
func (g *AuthorizationGate) RequireReadLock(code, scope, table Name) {
	g.readLocked[tableKey{Code: code, Scope: scope, Table: table}] = true
}

func (g *AuthorizationGate) RequireWriteLock(code, scope, table Name) {
	g.writeLocked[tableKey{Code: code, Scope: scope, Table: table}] = true
}

// ReadLocks and WriteLocks expose the declared lock sets, e.g. for a
// scheduler to inspect after the action finishes building its gate.
func (g *AuthorizationGate) ReadLocks() []tableKey {
	out := make([]tableKey, 0, len(g.readLocked))
	for k := range g.readLocked {
		out = append(out, k)
	}
	return out
}

func (g *AuthorizationGate) WriteLocks() []tableKey {
	out := make([]tableKey, 0, len(g.writeLocked))
	for k := range g.writeLocked {
		out = append(out, k)
	}
	return out
}
