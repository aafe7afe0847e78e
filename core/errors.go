package core

import "errors"

// Sentinel errors returned across the table registry, iterator cache, and
// database API layers. Guest-facing wrappers translate these into the
// handle/sentinel conventions (-1, bool returns) the ABI expects; internally
// callers use errors.Is against these values.
var (
	// ErrRowNotFound is returned by the StateRW layer when a key has no
	// current value.
	ErrRowNotFound = errors.New("core: row not found")

	// ErrTableNotFound means no contract has ever stored a row under the
	// given (code, scope, table) triple.
	ErrTableNotFound = errors.New("core: table not found")

	// ErrIteratorInvalid is returned when a caller dereferences a handle
	// that does not name a live row, typically handle -1 or a stale handle
	// whose row was removed.
	ErrIteratorInvalid = errors.New("core: iterator invalid")

	// ErrIteratorCacheFull is returned when a DatabaseAPI instance's live
	// iterator count would exceed its configured ceiling.
	ErrIteratorCacheFull = errors.New("core: iterator cache full")

	// ErrNotPrimaryPayer is returned by db_update_i64/db_remove_i64 when the
	// caller is not the contract that owns the table.
	ErrNotPrimaryPayer = errors.New("core: wrong code for table access")

	// ErrDuplicatePrimaryKey is returned by db_store_i64 when the primary
	// key already exists in the table.
	ErrDuplicatePrimaryKey = errors.New("core: duplicate primary key")

	// ErrDuplicateSecondaryKey is returned by a secondary index store when
	// the key is already present in that table's index.
	ErrDuplicateSecondaryKey = errors.New("core: duplicate secondary key")

	// ErrMissingAuthorization is returned by require_authorization when the
	// action's authorization list does not contain the requested account.
	ErrMissingAuthorization = errors.New("core: missing required authorization")

	// ErrUnusedAuthorization is returned at the end-of-action check when an
	// authorization was declared but never consumed by require_authorization.
	ErrUnusedAuthorization = errors.New("core: authorization declared but never used")

	// ErrNaNSecondaryKey is returned when a float64 secondary key is NaN,
	// which has no defined position in the deterministic total order.
	ErrNaNSecondaryKey = errors.New("core: NaN is not a valid secondary key")

	// ErrCPUBudgetExceeded is returned by checktime when an action has
	// consumed more host-call instructions than its configured budget.
	ErrCPUBudgetExceeded = errors.New("core: CPU budget exceeded")

	// ErrDeferredTransactionLimit caps the number of deferred transactions a
	// single action may request.
	ErrDeferredTransactionLimit = errors.New("core: deferred transaction limit exceeded")

	// ErrContextFreeMutation is returned by the db_store_i64/db_update_i64/
	// db_remove_i64 family (and their secondary-index counterparts) when the
	// DatabaseAPI was built for a context-free action. Context-free code runs
	// before authorization is known to be valid, so it must not touch state.
	ErrContextFreeMutation = errors.New("core: context-free actions cannot mutate state")
)
