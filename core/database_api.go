package core

import "encoding/binary"

// DatabaseAPI is the full state-database surface exposed to one action's
// guest code. A fresh instance is built for every action by NewDatabaseAPI;
// nothing here is a package-level singleton, so concurrent actions never
// share iterator handles, authorization state, or billing accumulators.
type DatabaseAPI struct {
	receiver Name

	tables  *TableRegistry
	primary *PrimaryIndex
	idx64   *SecondaryIndex[U64Key]
	idx128  *SecondaryIndex[U128Key]
	idx256  *SecondaryIndex[U256Key]
	idxDbl  *SecondaryIndex[Float64Key]
	secRefs *secondaryRefRegistry

	auth    *AuthorizationGate
	usage   *UsageLedger
	cpu     *CPUMeter
	results *ActionResults

	privileged         bool
	contextFree        bool
	usedContextFreeAPI bool
	contextFreeData    []byte
	actionData         []byte
}

// DatabaseAPIConfig bundles the shared, long-lived collaborators a
// DatabaseAPI is built on top of: the persistent store and the table
// registry that must be shared by every action touching the same contracts,
// plus the per-action tunables.
type DatabaseAPIConfig struct {
	Store            StateRW
	Tables           *TableRegistry
	MaxIteratorCache int
	CPUBudget        int
}

// NewDatabaseAPI builds a DatabaseAPI scoped to a single action. Callers
// construct one of these per action execution and discard it once the
// action finishes; it is never retained across actions.
func NewDatabaseAPI(cfg DatabaseAPIConfig, action Action) *DatabaseAPI {
	return &DatabaseAPI{
		receiver:        action.Receiver,
		tables:          cfg.Tables,
		primary:         NewPrimaryIndex(cfg.Store, cfg.Tables, cfg.MaxIteratorCache),
		idx64:           NewSecondaryIndex[U64Key](cfg.Store, cfg.Tables, IdxU64, cfg.MaxIteratorCache),
		idx128:          NewSecondaryIndex[U128Key](cfg.Store, cfg.Tables, IdxU128, cfg.MaxIteratorCache),
		idx256:          NewSecondaryIndex[U256Key](cfg.Store, cfg.Tables, IdxU256, cfg.MaxIteratorCache),
		idxDbl:          NewSecondaryIndex[Float64Key](cfg.Store, cfg.Tables, IdxFloat64, cfg.MaxIteratorCache),
		secRefs:         newSecondaryRefRegistry(cfg.Store),
		auth:            NewAuthorizationGate(action.Authorization),
		usage:           NewUsageLedger(),
		cpu:             NewCPUMeter(cfg.CPUBudget),
		results:         NewActionResults(),
		privileged:      action.Privileged,
		contextFree:     action.IsContextFree,
		contextFreeData: action.ContextFree,
		actionData:      action.Data,
	}
}

// Privileged reports whether the action this DatabaseAPI was built for comes
// from a system-level contract.
func (d *DatabaseAPI) Privileged() bool { return d.privileged }

// IsContextFree reports whether the action this DatabaseAPI was built for
// ran before authorization could be verified.
func (d *DatabaseAPI) IsContextFree() bool { return d.contextFree }

// UsedContextFreeAPI reports whether any context-free-only accessor has been
// called during this action, mirroring the original's used_context_free_api
// bookkeeping.
func (d *DatabaseAPI) UsedContextFreeAPI() bool { return d.usedContextFreeAPI }

// GetContextFreeData returns the context-free portion of the action data
// this DatabaseAPI was constructed with, matching get_context_free_data.
func (d *DatabaseAPI) GetContextFreeData() []byte {
	d.usedContextFreeAPI = true
	return d.contextFreeData
}

// GetAction returns the action payload this DatabaseAPI was constructed
// with, matching get_action.
func (d *DatabaseAPI) GetAction() []byte { return d.actionData }

func (d *DatabaseAPI) requireMutable() error {
	if d.contextFree {
		return ErrContextFreeMutation
	}
	return nil
}

func (d *DatabaseAPI) tick(call string) error { return d.cpu.CheckTime(call) }

// Checktime runs the CPU budget check on its own, matching the guest ABI's
// checktime call, which guest code invokes directly inside a long loop
// instead of only getting it as a side effect of a db_* call.
func (d *DatabaseAPI) Checktime() error { return d.tick("checktime") }

// requireReceiverOwns enforces the mutation rule every StoreI64/UpdateI64/
// RemoveI64/StoreIdx*/RemoveIdx* call is built on: a row may only be
// mutated by the contract that is also the action's receiver. code here
// names the contract the row was filed under.
func (d *DatabaseAPI) requireReceiverOwns(code Name) error {
	if code != d.receiver {
		return ErrNotPrimaryPayer
	}
	return nil
}

// -----------------------------------------------------------------------------
// Primary index (db_*_i64)
// -----------------------------------------------------------------------------

// StoreI64 inserts a new row. Only the action's receiving contract may store
// into its own tables.
func (d *DatabaseAPI) StoreI64(scope, table Name, payer Address, primary uint64, data []byte) (int32, error) {
	if err := d.tick("db_store_i64"); err != nil {
		return IteratorInvalid, err
	}
	if err := d.requireMutable(); err != nil {
		return IteratorInvalid, err
	}
	h, err := d.primary.Store(d.receiver, scope, table, payer, primary, data)
	if err != nil {
		return IteratorInvalid, err
	}
	d.usage.Charge(payer, int64(len(data)), d.receiver.String())
	return h, nil
}

// UpdateI64 overwrites the row named by a live handle.
func (d *DatabaseAPI) UpdateI64(itr int32, payer Address, data []byte) error {
	if err := d.tick("db_update_i64"); err != nil {
		return err
	}
	if err := d.requireMutable(); err != nil {
		return err
	}
	code, _, _, ok := d.primary.TableOf(itr)
	if !ok {
		return ErrIteratorInvalid
	}
	if err := d.requireReceiverOwns(code); err != nil {
		return err
	}
	oldPayer, oldData, err := d.primary.Update(itr, payer, data)
	if err != nil {
		return err
	}
	d.usage.Refund(oldPayer, int64(len(oldData)), d.receiver.String())
	d.usage.Charge(payer, int64(len(data)), d.receiver.String())
	return nil
}

// RemoveI64 deletes the row named by a live handle, and every secondary
// index entry recorded against its primary key, mirroring the generated
// multi-index container's destructor order in the original implementation:
// erasing an object there walks every index the container maintains.
func (d *DatabaseAPI) RemoveI64(itr int32) error {
	if err := d.tick("db_remove_i64"); err != nil {
		return err
	}
	if err := d.requireMutable(); err != nil {
		return err
	}
	code, scope, table, ok := d.primary.TableOf(itr)
	if !ok {
		return ErrIteratorInvalid
	}
	if err := d.requireReceiverOwns(code); err != nil {
		return err
	}
	primaryKey, err := d.primary.PrimaryKey(itr)
	if err != nil {
		return err
	}
	payer, data, err := d.primary.Remove(itr)
	if err != nil {
		return err
	}
	d.usage.Refund(payer, int64(len(data)), d.receiver.String())

	if tableID, ok := d.tables.Find(code, scope, table); ok {
		refs, err := d.secRefs.Take(tableID, primaryKey)
		if err != nil {
			return err
		}
		for _, ref := range refs {
			if err := d.removeSecondaryRef(code, scope, table, primaryKey, ref); err != nil {
				return err
			}
		}
	}
	return nil
}

// removeSecondaryRef dispatches a recorded secondary-index entry to the
// index matching its kind and deletes it, refunding the key's storage cost.
func (d *DatabaseAPI) removeSecondaryRef(code, scope, table Name, primary uint64, ref secondaryRef) error {
	switch ref.kind {
	case IdxU64:
		key := U64Key(binary.BigEndian.Uint64(ref.key))
		if err := d.idx64.Remove(code, scope, table, primary, key); err != nil {
			return err
		}
		d.usage.Refund(ref.payer, int64(len(ref.key)), d.receiver.String())
	case IdxU128:
		key := U128Key{Hi: binary.BigEndian.Uint64(ref.key[0:8]), Lo: binary.BigEndian.Uint64(ref.key[8:16])}
		if err := d.idx128.Remove(code, scope, table, primary, key); err != nil {
			return err
		}
		d.usage.Refund(ref.payer, int64(len(ref.key)), d.receiver.String())
	case IdxU256:
		var key U256Key
		key.Int.SetBytes(ref.key)
		if err := d.idx256.Remove(code, scope, table, primary, key); err != nil {
			return err
		}
		d.usage.Refund(ref.payer, int64(len(ref.key)), d.receiver.String())
	case IdxFloat64:
		key := Float64Key(DecodeFloat64SecondaryKey(ref.key))
		if err := d.idxDbl.Remove(code, scope, table, primary, key); err != nil {
			return err
		}
		d.usage.Refund(ref.payer, int64(len(ref.key)), d.receiver.String())
	}
	return nil
}

// GetI64 reads the payload of the row named by a live handle.
func (d *DatabaseAPI) GetI64(itr int32) ([]byte, error) {
	if err := d.tick("db_get_i64"); err != nil {
		return nil, err
	}
	_, data, err := d.primary.Get(itr)
	return data, err
}

// FindI64 looks up an exact primary key.
func (d *DatabaseAPI) FindI64(code, scope, table Name, primary uint64) (int32, error) {
	if err := d.tick("db_find_i64"); err != nil {
		return IteratorInvalid, err
	}
	return d.primary.Find(code, scope, table, primary)
}

// EndI64 returns the end handle for a table.
func (d *DatabaseAPI) EndI64(code, scope, table Name) (int32, error) {
	if err := d.tick("db_end_i64"); err != nil {
		return IteratorInvalid, err
	}
	return d.primary.End(code, scope, table), nil
}

// NextI64 advances a handle forward one row.
func (d *DatabaseAPI) NextI64(itr int32) (int32, error) {
	if err := d.tick("db_next_i64"); err != nil {
		return IteratorInvalid, err
	}
	return d.primary.Next(itr)
}

// PreviousI64 steps a handle back one row, decoding its table from an end
// handle when necessary.
func (d *DatabaseAPI) PreviousI64(itr int32) (int32, error) {
	if err := d.tick("db_previous_i64"); err != nil {
		return IteratorInvalid, err
	}
	return d.primary.Previous(itr)
}

// LowerboundI64 returns a handle to the first row with key >= primary.
func (d *DatabaseAPI) LowerboundI64(code, scope, table Name, primary uint64) (int32, error) {
	if err := d.tick("db_lowerbound_i64"); err != nil {
		return IteratorInvalid, err
	}
	return d.primary.LowerBound(code, scope, table, primary)
}

// UpperboundI64 returns a handle to the first row with key > primary. As in
// the original implementation, this idempotently caches the table's end
// iterator as part of resolving the scan even when it finds a live row.
func (d *DatabaseAPI) UpperboundI64(code, scope, table Name, primary uint64) (int32, error) {
	if err := d.tick("db_upperbound_i64"); err != nil {
		return IteratorInvalid, err
	}
	d.primary.End(code, scope, table)
	return d.primary.UpperBound(code, scope, table, primary)
}

// -----------------------------------------------------------------------------
// Secondary indexes (idx64/idx128/idx256/idx_double)
// -----------------------------------------------------------------------------

// StoreIdx64 et al. follow the same shape for every key type; they are kept
// as separate methods (rather than a generic exported entry point) because
// the guest ABI itself exposes four distinct calling conventions, one per
// wasm-representable key width. Every Store registers the entry with
// secRefs so a later RemoveI64 on the owning primary row can cascade to it,
// and every Store/Remove/Update bills the row's secondary-key bytes through
// C7, same as the primary-row path.

func (d *DatabaseAPI) StoreIdx64(scope, table Name, payer Address, primary uint64, key uint64) (int32, error) {
	if err := d.tick("db_idx64_store"); err != nil {
		return IteratorInvalid, err
	}
	if err := d.requireMutable(); err != nil {
		return IteratorInvalid, err
	}
	k := U64Key(key)
	h, err := d.idx64.Store(d.receiver, scope, table, primary, k)
	if err != nil {
		return IteratorInvalid, err
	}
	enc := k.Encode()
	if tableID, ok := d.tables.Find(d.receiver, scope, table); ok {
		if err := d.secRefs.Add(tableID, primary, IdxU64, payer, enc); err != nil {
			return IteratorInvalid, err
		}
	}
	d.usage.Charge(payer, int64(len(enc)), d.receiver.String())
	return h, nil
}

func (d *DatabaseAPI) FindIdx64(code, scope, table Name, key uint64) (uint64, int32, error) {
	if err := d.tick("db_idx64_find_secondary"); err != nil {
		return 0, IteratorInvalid, err
	}
	return d.idx64.Find(code, scope, table, U64Key(key))
}

// FindPrimaryIdx64 resolves primary's idx64 entry directly, for a contract
// that already knows the primary key but needs a handle on this secondary
// index (the guest ABI's db_idx64_find_primary).
func (d *DatabaseAPI) FindPrimaryIdx64(code, scope, table Name, primary uint64) (uint64, int32, error) {
	if err := d.tick("db_idx64_find_primary"); err != nil {
		return 0, IteratorInvalid, err
	}
	tableID, ok := d.tables.Find(code, scope, table)
	if !ok {
		return 0, IteratorInvalid, nil
	}
	enc, ok, err := d.secRefs.Lookup(tableID, primary, IdxU64)
	if err != nil || !ok {
		return 0, IteratorInvalid, err
	}
	key, h, err := d.idx64.FindPrimary(code, scope, table, primary, enc)
	return uint64(key), h, err
}

func (d *DatabaseAPI) LowerboundIdx64(code, scope, table Name, key uint64) (uint64, uint64, int32, error) {
	if err := d.tick("db_idx64_lowerbound"); err != nil {
		return 0, 0, IteratorInvalid, err
	}
	primary, found, h, err := d.idx64.LowerBound(code, scope, table, U64Key(key))
	return primary, uint64(found), h, err
}

func (d *DatabaseAPI) UpperboundIdx64(code, scope, table Name, key uint64) (uint64, uint64, int32, error) {
	if err := d.tick("db_idx64_upperbound"); err != nil {
		return 0, 0, IteratorInvalid, err
	}
	primary, found, h, err := d.idx64.UpperBound(code, scope, table, U64Key(key))
	return primary, uint64(found), h, err
}

func (d *DatabaseAPI) NextIdx64(itr int32) (uint64, int32, error) {
	if err := d.tick("db_idx64_next"); err != nil {
		return 0, IteratorInvalid, err
	}
	return d.idx64.Next(itr)
}

func (d *DatabaseAPI) PreviousIdx64(itr int32) (uint64, int32, error) {
	if err := d.tick("db_idx64_previous"); err != nil {
		return 0, IteratorInvalid, err
	}
	return d.idx64.Previous(itr)
}

// UpdateIdx64 changes the idx64 secondary key of a live entry, re-billing
// the payer if the key's stored size changes (it never does for a fixed
// 8-byte key, but this mirrors the primary row's charge/refund pairing).
func (d *DatabaseAPI) UpdateIdx64(itr int32, payer Address, key uint64) (int32, error) {
	if err := d.tick("db_idx64_update"); err != nil {
		return IteratorInvalid, err
	}
	if err := d.requireMutable(); err != nil {
		return IteratorInvalid, err
	}
	newKey := U64Key(key)
	primary, tableID, nh, err := d.idx64.Update(itr, newKey)
	if err != nil {
		return IteratorInvalid, err
	}
	if err := d.secRefs.Retag(tableID, primary, IdxU64, payer, newKey.Encode()); err != nil {
		return IteratorInvalid, err
	}
	return nh, nil
}

func (d *DatabaseAPI) RemoveIdx64(scope, table Name, payer Address, primary uint64, key uint64) error {
	if err := d.tick("db_idx64_remove"); err != nil {
		return err
	}
	if err := d.requireMutable(); err != nil {
		return err
	}
	k := U64Key(key)
	if err := d.idx64.Remove(d.receiver, scope, table, primary, k); err != nil {
		return err
	}
	enc := k.Encode()
	if tableID, ok := d.tables.Find(d.receiver, scope, table); ok {
		_ = d.secRefs.Remove(tableID, primary, IdxU64, enc)
	}
	d.usage.Refund(payer, int64(len(enc)), d.receiver.String())
	return nil
}

func (d *DatabaseAPI) EndIdx64(code, scope, table Name) int32 { return d.idx64.End(code, scope, table) }

func (d *DatabaseAPI) StoreIdx128(scope, table Name, payer Address, primary uint64, hi, lo uint64) (int32, error) {
	if err := d.tick("db_idx128_store"); err != nil {
		return IteratorInvalid, err
	}
	if err := d.requireMutable(); err != nil {
		return IteratorInvalid, err
	}
	k := U128Key{Hi: hi, Lo: lo}
	h, err := d.idx128.Store(d.receiver, scope, table, primary, k)
	if err != nil {
		return IteratorInvalid, err
	}
	enc := k.Encode()
	if tableID, ok := d.tables.Find(d.receiver, scope, table); ok {
		if err := d.secRefs.Add(tableID, primary, IdxU128, payer, enc); err != nil {
			return IteratorInvalid, err
		}
	}
	d.usage.Charge(payer, int64(len(enc)), d.receiver.String())
	return h, nil
}

func (d *DatabaseAPI) FindIdx128(code, scope, table Name, hi, lo uint64) (uint64, int32, error) {
	if err := d.tick("db_idx128_find_secondary"); err != nil {
		return 0, IteratorInvalid, err
	}
	return d.idx128.Find(code, scope, table, U128Key{Hi: hi, Lo: lo})
}

// FindPrimaryIdx128 resolves primary's idx128 entry directly (db_idx128_find_primary).
func (d *DatabaseAPI) FindPrimaryIdx128(code, scope, table Name, primary uint64) (U128Key, int32, error) {
	if err := d.tick("db_idx128_find_primary"); err != nil {
		return U128Key{}, IteratorInvalid, err
	}
	tableID, ok := d.tables.Find(code, scope, table)
	if !ok {
		return U128Key{}, IteratorInvalid, nil
	}
	enc, ok, err := d.secRefs.Lookup(tableID, primary, IdxU128)
	if err != nil || !ok {
		return U128Key{}, IteratorInvalid, err
	}
	return d.idx128.FindPrimary(code, scope, table, primary, enc)
}

func (d *DatabaseAPI) LowerboundIdx128(code, scope, table Name, hi, lo uint64) (uint64, U128Key, int32, error) {
	if err := d.tick("db_idx128_lowerbound"); err != nil {
		return 0, U128Key{}, IteratorInvalid, err
	}
	return d.idx128.LowerBound(code, scope, table, U128Key{Hi: hi, Lo: lo})
}

func (d *DatabaseAPI) UpperboundIdx128(code, scope, table Name, hi, lo uint64) (uint64, U128Key, int32, error) {
	if err := d.tick("db_idx128_upperbound"); err != nil {
		return 0, U128Key{}, IteratorInvalid, err
	}
	return d.idx128.UpperBound(code, scope, table, U128Key{Hi: hi, Lo: lo})
}

func (d *DatabaseAPI) UpdateIdx128(itr int32, payer Address, hi, lo uint64) (int32, error) {
	if err := d.tick("db_idx128_update"); err != nil {
		return IteratorInvalid, err
	}
	if err := d.requireMutable(); err != nil {
		return IteratorInvalid, err
	}
	newKey := U128Key{Hi: hi, Lo: lo}
	primary, tableID, nh, err := d.idx128.Update(itr, newKey)
	if err != nil {
		return IteratorInvalid, err
	}
	if err := d.secRefs.Retag(tableID, primary, IdxU128, payer, newKey.Encode()); err != nil {
		return IteratorInvalid, err
	}
	return nh, nil
}

func (d *DatabaseAPI) RemoveIdx128(scope, table Name, payer Address, primary, hi, lo uint64) error {
	if err := d.tick("db_idx128_remove"); err != nil {
		return err
	}
	if err := d.requireMutable(); err != nil {
		return err
	}
	k := U128Key{Hi: hi, Lo: lo}
	if err := d.idx128.Remove(d.receiver, scope, table, primary, k); err != nil {
		return err
	}
	enc := k.Encode()
	if tableID, ok := d.tables.Find(d.receiver, scope, table); ok {
		_ = d.secRefs.Remove(tableID, primary, IdxU128, enc)
	}
	d.usage.Refund(payer, int64(len(enc)), d.receiver.String())
	return nil
}

func (d *DatabaseAPI) NextIdx128(itr int32) (uint64, int32, error) {
	if err := d.tick("db_idx128_next"); err != nil {
		return 0, IteratorInvalid, err
	}
	return d.idx128.Next(itr)
}

func (d *DatabaseAPI) PreviousIdx128(itr int32) (uint64, int32, error) {
	if err := d.tick("db_idx128_previous"); err != nil {
		return 0, IteratorInvalid, err
	}
	return d.idx128.Previous(itr)
}

func (d *DatabaseAPI) EndIdx128(code, scope, table Name) int32 {
	return d.idx128.End(code, scope, table)
}

func (d *DatabaseAPI) StoreIdx256(scope, table Name, payer Address, primary uint64, key U256Key) (int32, error) {
	if err := d.tick("db_idx256_store"); err != nil {
		return IteratorInvalid, err
	}
	if err := d.requireMutable(); err != nil {
		return IteratorInvalid, err
	}
	h, err := d.idx256.Store(d.receiver, scope, table, primary, key)
	if err != nil {
		return IteratorInvalid, err
	}
	enc := key.Encode()
	if tableID, ok := d.tables.Find(d.receiver, scope, table); ok {
		if err := d.secRefs.Add(tableID, primary, IdxU256, payer, enc); err != nil {
			return IteratorInvalid, err
		}
	}
	d.usage.Charge(payer, int64(len(enc)), d.receiver.String())
	return h, nil
}

func (d *DatabaseAPI) FindIdx256(code, scope, table Name, key U256Key) (uint64, int32, error) {
	if err := d.tick("db_idx256_find_secondary"); err != nil {
		return 0, IteratorInvalid, err
	}
	return d.idx256.Find(code, scope, table, key)
}

// FindPrimaryIdx256 resolves primary's idx256 entry directly (db_idx256_find_primary).
func (d *DatabaseAPI) FindPrimaryIdx256(code, scope, table Name, primary uint64) (U256Key, int32, error) {
	if err := d.tick("db_idx256_find_primary"); err != nil {
		return U256Key{}, IteratorInvalid, err
	}
	tableID, ok := d.tables.Find(code, scope, table)
	if !ok {
		return U256Key{}, IteratorInvalid, nil
	}
	enc, ok, err := d.secRefs.Lookup(tableID, primary, IdxU256)
	if err != nil || !ok {
		return U256Key{}, IteratorInvalid, err
	}
	return d.idx256.FindPrimary(code, scope, table, primary, enc)
}

func (d *DatabaseAPI) LowerboundIdx256(code, scope, table Name, key U256Key) (uint64, U256Key, int32, error) {
	if err := d.tick("db_idx256_lowerbound"); err != nil {
		return 0, U256Key{}, IteratorInvalid, err
	}
	return d.idx256.LowerBound(code, scope, table, key)
}

func (d *DatabaseAPI) UpperboundIdx256(code, scope, table Name, key U256Key) (uint64, U256Key, int32, error) {
	if err := d.tick("db_idx256_upperbound"); err != nil {
		return 0, U256Key{}, IteratorInvalid, err
	}
	return d.idx256.UpperBound(code, scope, table, key)
}

func (d *DatabaseAPI) UpdateIdx256(itr int32, payer Address, key U256Key) (int32, error) {
	if err := d.tick("db_idx256_update"); err != nil {
		return IteratorInvalid, err
	}
	if err := d.requireMutable(); err != nil {
		return IteratorInvalid, err
	}
	primary, tableID, nh, err := d.idx256.Update(itr, key)
	if err != nil {
		return IteratorInvalid, err
	}
	if err := d.secRefs.Retag(tableID, primary, IdxU256, payer, key.Encode()); err != nil {
		return IteratorInvalid, err
	}
	return nh, nil
}

func (d *DatabaseAPI) RemoveIdx256(scope, table Name, payer Address, primary uint64, key U256Key) error {
	if err := d.tick("db_idx256_remove"); err != nil {
		return err
	}
	if err := d.requireMutable(); err != nil {
		return err
	}
	if err := d.idx256.Remove(d.receiver, scope, table, primary, key); err != nil {
		return err
	}
	enc := key.Encode()
	if tableID, ok := d.tables.Find(d.receiver, scope, table); ok {
		_ = d.secRefs.Remove(tableID, primary, IdxU256, enc)
	}
	d.usage.Refund(payer, int64(len(enc)), d.receiver.String())
	return nil
}

func (d *DatabaseAPI) NextIdx256(itr int32) (uint64, int32, error) {
	if err := d.tick("db_idx256_next"); err != nil {
		return 0, IteratorInvalid, err
	}
	return d.idx256.Next(itr)
}

func (d *DatabaseAPI) PreviousIdx256(itr int32) (uint64, int32, error) {
	if err := d.tick("db_idx256_previous"); err != nil {
		return 0, IteratorInvalid, err
	}
	return d.idx256.Previous(itr)
}

func (d *DatabaseAPI) EndIdx256(code, scope, table Name) int32 {
	return d.idx256.End(code, scope, table)
}

// StoreIdxDouble stores a float64 secondary key, rejecting NaN since it has
// no position in the deterministic total order every validator must agree
// on.
func (d *DatabaseAPI) StoreIdxDouble(scope, table Name, payer Address, primary uint64, key float64) (int32, error) {
	if err := d.tick("db_idx_double_store"); err != nil {
		return IteratorInvalid, err
	}
	if IsNaN(key) {
		return IteratorInvalid, ErrNaNSecondaryKey
	}
	if err := d.requireMutable(); err != nil {
		return IteratorInvalid, err
	}
	k := Float64Key(key)
	h, err := d.idxDbl.Store(d.receiver, scope, table, primary, k)
	if err != nil {
		return IteratorInvalid, err
	}
	enc := k.Encode()
	if tableID, ok := d.tables.Find(d.receiver, scope, table); ok {
		if err := d.secRefs.Add(tableID, primary, IdxFloat64, payer, enc); err != nil {
			return IteratorInvalid, err
		}
	}
	d.usage.Charge(payer, int64(len(enc)), d.receiver.String())
	return h, nil
}

func (d *DatabaseAPI) FindIdxDouble(code, scope, table Name, key float64) (uint64, int32, error) {
	if err := d.tick("db_idx_double_find_secondary"); err != nil {
		return 0, IteratorInvalid, err
	}
	if IsNaN(key) {
		return 0, IteratorInvalid, ErrNaNSecondaryKey
	}
	return d.idxDbl.Find(code, scope, table, Float64Key(key))
}

// FindPrimaryIdxDouble resolves primary's idx_double entry directly
// (db_idx_double_find_primary).
func (d *DatabaseAPI) FindPrimaryIdxDouble(code, scope, table Name, primary uint64) (float64, int32, error) {
	if err := d.tick("db_idx_double_find_primary"); err != nil {
		return 0, IteratorInvalid, err
	}
	tableID, ok := d.tables.Find(code, scope, table)
	if !ok {
		return 0, IteratorInvalid, nil
	}
	enc, ok, err := d.secRefs.Lookup(tableID, primary, IdxFloat64)
	if err != nil || !ok {
		return 0, IteratorInvalid, err
	}
	key, h, err := d.idxDbl.FindPrimary(code, scope, table, primary, enc)
	return float64(key), h, err
}

func (d *DatabaseAPI) LowerboundIdxDouble(code, scope, table Name, key float64) (uint64, float64, int32, error) {
	if err := d.tick("db_idx_double_lowerbound"); err != nil {
		return 0, 0, IteratorInvalid, err
	}
	if IsNaN(key) {
		return 0, 0, IteratorInvalid, ErrNaNSecondaryKey
	}
	primary, found, h, err := d.idxDbl.LowerBound(code, scope, table, Float64Key(key))
	return primary, float64(found), h, err
}

func (d *DatabaseAPI) UpperboundIdxDouble(code, scope, table Name, key float64) (uint64, float64, int32, error) {
	if err := d.tick("db_idx_double_upperbound"); err != nil {
		return 0, 0, IteratorInvalid, err
	}
	if IsNaN(key) {
		return 0, 0, IteratorInvalid, ErrNaNSecondaryKey
	}
	primary, found, h, err := d.idxDbl.UpperBound(code, scope, table, Float64Key(key))
	return primary, float64(found), h, err
}

func (d *DatabaseAPI) NextIdxDouble(itr int32) (uint64, int32, error) {
	if err := d.tick("db_idx_double_next"); err != nil {
		return 0, IteratorInvalid, err
	}
	return d.idxDbl.Next(itr)
}

func (d *DatabaseAPI) PreviousIdxDouble(itr int32) (uint64, int32, error) {
	if err := d.tick("db_idx_double_previous"); err != nil {
		return 0, IteratorInvalid, err
	}
	return d.idxDbl.Previous(itr)
}

func (d *DatabaseAPI) RemoveIdxDouble(scope, table Name, payer Address, primary uint64, key float64) error {
	if err := d.tick("db_idx_double_remove"); err != nil {
		return err
	}
	if err := d.requireMutable(); err != nil {
		return err
	}
	k := Float64Key(key)
	if err := d.idxDbl.Remove(d.receiver, scope, table, primary, k); err != nil {
		return err
	}
	enc := k.Encode()
	if tableID, ok := d.tables.Find(d.receiver, scope, table); ok {
		_ = d.secRefs.Remove(tableID, primary, IdxFloat64, enc)
	}
	d.usage.Refund(payer, int64(len(enc)), d.receiver.String())
	return nil
}

func (d *DatabaseAPI) EndIdxDouble(code, scope, table Name) int32 {
	return d.idxDbl.End(code, scope, table)
}


// -----------------------------------------------------------------------------
// Authorization, notification, and lock declarations
// -----------------------------------------------------------------------------

func (d *DatabaseAPI) RequireAuthorization(actor Name) error {
	if err := d.tick("require_auth"); err != nil {
		return err
	}
	return d.auth.RequireAuthorization(actor, 0)
}

func (d *DatabaseAPI) RequireAuthorizationFor(actor, permission Name) error {
	if err := d.tick("require_auth2"); err != nil {
		return err
	}
	return d.auth.RequireAuthorization(actor, permission)
}

func (d *DatabaseAPI) HasAuthorization(actor Name) bool {
	return d.auth.HasAuthorization(actor, 0) || d.hasAnyPermission(actor)
}

func (d *DatabaseAPI) hasAnyPermission(actor Name) bool {
	for _, p := range d.auth.declared {
		if p.Actor == actor {
			return true
		}
	}
	return false
}

// AllAuthorizationsUsed is checked once after an action finishes executing.
func (d *DatabaseAPI) AllAuthorizationsUsed() error { return d.auth.AllAuthorizationsUsed() }

func (d *DatabaseAPI) RequireRecipient(account Name) error {
	if err := d.tick("require_recipient"); err != nil {
		return err
	}
	d.auth.RequireRecipient(account)
	return nil
}

func (d *DatabaseAPI) HasRecipient(account Name) bool { return d.auth.HasRecipient(account) }

func (d *DatabaseAPI) RequireReadLock(code, scope, table Name) {
	d.auth.RequireReadLock(code, scope, table)
}

func (d *DatabaseAPI) RequireWriteLock(code, scope, table Name) {
	d.auth.RequireWriteLock(code, scope, table)
}

// -----------------------------------------------------------------------------
// Console output, deferred transactions, and final results
// -----------------------------------------------------------------------------

func (d *DatabaseAPI) Print(text string) { d.results.Print(text) }

func (d *DatabaseAPI) SendDeferredTransaction(tx DeferredTransaction) error {
	if err := d.tick("send_deferred"); err != nil {
		return err
	}
	return d.results.SendDeferredTransaction(tx)
}

func (d *DatabaseAPI) DeferredTransactionsCount() int { return d.results.DeferredTransactionsCount() }

// Results returns the accumulator this action has been writing into, for
// the caller to fold into the transaction's overall receipt once the action
// finishes.
func (d *DatabaseAPI) Results() *ActionResults { return d.results }

// UsageDeltas returns every payer's net RAM usage delta accumulated by this
// action so far.
func (d *DatabaseAPI) UsageDeltas() map[Address]int64 { return d.usage.Totals() }

// CPUConsumed returns the number of host calls this action has made.
func (d *DatabaseAPI) CPUConsumed() int { return d.cpu.Consumed() }
