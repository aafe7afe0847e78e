package core

import "strings"

// DeferredTransaction is an action scheduled to run after the current one
// commits, carrying its own payload rather than referring back to an
// existing transaction.
type DeferredTransaction struct {
	SenderID  [16]byte
	Payer     Address
	Actions   []Action
	DelayUntl uint64
}

// DeferredReference points at a transaction that already exists elsewhere
// (e.g. one the guest received as context-free data) instead of embedding a
// fresh payload.
type DeferredReference struct {
	SenderID [16]byte
	TxHash   Hash
}

// DeferredRequest is a tagged union over the two ways an action can ask for
// a deferred transaction, matching the guest ABI's send_deferred overloads.
type DeferredRequest struct {
	Transaction *DeferredTransaction
	Reference   *DeferredReference
}

const maxDeferredPerAction = 32

// ActionResults accumulates everything an action produced as a side effect:
// console output, deferred transaction requests, and (when this action is
// itself a bundled sequence) the ordered record of sub-actions applied. A
// fresh instance is built per top level action and discarded once its
// contents are folded into the enclosing transaction's receipt.
type ActionResults struct {
	console  strings.Builder
	deferred []DeferredRequest
	applied  []Action
}

// NewActionResults returns an empty accumulator.
func NewActionResults() *ActionResults { return &ActionResults{} }

// Print appends text to the action's console output buffer.
func (r *ActionResults) Print(text string) { r.console.WriteString(text) }

// Console returns the console buffer accumulated so far.
func (r *ActionResults) Console() string { return r.console.String() }

// RecordApplied appends a to the applied-actions log, in the order actions
// actually ran.
func (r *ActionResults) RecordApplied(a Action) { r.applied = append(r.applied, a) }

// AppliedActions returns the ordered applied-actions log.
func (r *ActionResults) AppliedActions() []Action { return r.applied }

// SendDeferredTransaction enqueues a freshly built deferred transaction,
// returning ErrDeferredTransactionLimit once maxDeferredPerAction is
// reached so a single action cannot unboundedly inflate a block.
func (r *ActionResults) SendDeferredTransaction(tx DeferredTransaction) error {
	if len(r.deferred) >= maxDeferredPerAction {
		return ErrDeferredTransactionLimit
	}
	r.deferred = append(r.deferred, DeferredRequest{Transaction: &tx})
	return nil
}

// SendDeferredReference enqueues a reference to an existing transaction.
func (r *ActionResults) SendDeferredReference(ref DeferredReference) error {
	if len(r.deferred) >= maxDeferredPerAction {
		return ErrDeferredTransactionLimit
	}
	r.deferred = append(r.deferred, DeferredRequest{Reference: &ref})
	return nil
}

// DeferredTransactionsCount mirrors the guest ABI's
// get_sent_deferred_tx_count: the number of deferred requests queued so far.
func (r *ActionResults) DeferredTransactionsCount() int { return len(r.deferred) }

// DeferredRequests returns the queued deferred requests in request order.
func (r *ActionResults) DeferredRequests() []DeferredRequest { return r.deferred }

// AppendResults moves every entry of other onto r, preserving order. It is
// used when a parent action's accumulator absorbs a bundled sub-action's
// results; other is left empty afterwards.
func (r *ActionResults) AppendResults(other *ActionResults) {
	if other == nil {
		return
	}
	r.console.WriteString(other.console.String())
	r.deferred = append(r.deferred, other.deferred...)
	r.applied = append(r.applied, other.applied...)
	other.console.Reset()
	other.deferred = nil
	other.applied = nil
}
