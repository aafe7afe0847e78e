package core

import (
	"encoding/binary"

	"github.com/holiman/uint256"
)

// Secondary index kinds, one per key type the guest ABI exposes
// (idx64/idx128/idx256/idx_double).
const (
	IdxU64     byte = 1
	IdxU128    byte = 2
	IdxU256    byte = 3
	IdxFloat64 byte = 4
)

// SecondaryKey is implemented by every fixed-width key type a secondary
// index can be built over. Encode must return a big-endian, order-preserving
// byte representation so that ascending byte comparison of Encode() output
// agrees with the key's natural ordering. Decode must invert Encode exactly,
// so that LowerBound/UpperBound/Next/Previous can hand the guest back the
// actual key found rather than a zero value.
type SecondaryKey interface {
	Encode() []byte
	Decode([]byte) SecondaryKeyDecoded
}

// SecondaryKeyDecoded is a marker satisfied by every concrete key type, used
// so Decode can return the decoded key without a second generic parameter.
type SecondaryKeyDecoded interface{}

// U64Key is the uint64 secondary key type (idx64).
type U64Key uint64

func (k U64Key) Encode() []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(k))
	return b
}

func (k U64Key) Decode(b []byte) SecondaryKeyDecoded {
	return U64Key(binary.BigEndian.Uint64(b))
}

// U128Key is the 128-bit secondary key type (idx128), represented as two
// big-endian halves.
type U128Key struct{ Hi, Lo uint64 }

func (k U128Key) Encode() []byte {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[0:8], k.Hi)
	binary.BigEndian.PutUint64(b[8:16], k.Lo)
	return b
}

func (k U128Key) Decode(b []byte) SecondaryKeyDecoded {
	return U128Key{Hi: binary.BigEndian.Uint64(b[0:8]), Lo: binary.BigEndian.Uint64(b[8:16])}
}

// U256Key is the 256-bit secondary key type (idx256, EOS's key256/[u128;2]),
// backed by holiman/uint256's fixed-width integer type.
type U256Key struct{ Int uint256.Int }

func (k U256Key) Encode() []byte {
	arr := k.Int.Bytes32()
	return arr[:]
}

func (k U256Key) Decode(b []byte) SecondaryKeyDecoded {
	var out U256Key
	out.Int.SetBytes(b)
	return out
}

// Float64Key is the IEEE-754 double secondary key type (idx_double). NaN has
// no position in the total order; reject it before constructing a
// Float64Key.
type Float64Key float64

func (k Float64Key) Encode() []byte { return Float64SecondaryKey(float64(k)) }

func (k Float64Key) Decode(b []byte) SecondaryKeyDecoded {
	return Float64Key(DecodeFloat64SecondaryKey(b))
}

// secIdentity uniquely names a live secondary-index cursor: the table it
// belongs to and the encoded key it points at. Encoded keys are fixed width
// per index kind, so two different keys never collide as strings.
type secIdentity struct {
	tableID int64
	key     string
}

// SecondaryIndex is a generic ordered index over one key type within one
// table. Duplicate keys are rejected: EOS secondary indexes are one row per
// distinct key value.
type SecondaryIndex[K SecondaryKey] struct {
	store  StateRW
	tables *TableRegistry
	kind   byte
	cache  *IteratorCache[secIdentity]
}

// NewSecondaryIndex constructs an index of kind over store, sharing tableID
// allocation with tables. maxCache bounds live iterator handles; <= 0 means
// unbounded.
func NewSecondaryIndex[K SecondaryKey](store StateRW, tables *TableRegistry, kind byte, maxCache int) *SecondaryIndex[K] {
	return &SecondaryIndex[K]{store: store, tables: tables, kind: kind, cache: NewIteratorCache[secIdentity](maxCache)}
}

func (idx *SecondaryIndex[K]) rowKey(tableID int64, key K, primary uint64) []byte {
	return secondaryRowKey(tableID, idx.kind, key.Encode(), primary)
}

func (idx *SecondaryIndex[K]) prefix(tableID int64) []byte {
	return secondaryIndexPrefix(tableID, idx.kind)
}

// Store adds a (key -> primary) entry, rejecting duplicate keys.
func (idx *SecondaryIndex[K]) Store(code, scope, table Name, primary uint64, key K) (int32, error) {
	tableID := idx.tables.GetOrCreate(code, scope, table)
	enc := key.Encode()
	existsPrefix := secondaryRowKey(tableID, idx.kind, enc, 0)
	existsPrefix = existsPrefix[:len(existsPrefix)-8]
	it := idx.store.PrefixIterator(existsPrefix)
	if it.Next() {
		return IteratorInvalid, ErrDuplicateSecondaryKey
	}
	rk := idx.rowKey(tableID, key, primary)
	val := make([]byte, 8)
	binary.BigEndian.PutUint64(val, primary)
	if err := idx.store.SetState(rk, val); err != nil {
		return IteratorInvalid, err
	}
	return idx.cache.Add(secIdentity{tableID: tableID, key: string(enc)})
}

// Remove deletes the entry for key, tombstoning any live handle over it.
func (idx *SecondaryIndex[K]) Remove(code, scope, table Name, primary uint64, key K) error {
	tableID, ok := idx.tables.Find(code, scope, table)
	if !ok {
		return ErrTableNotFound
	}
	rk := idx.rowKey(tableID, key, primary)
	if err := idx.store.DeleteState(rk); err != nil {
		return err
	}
	idx.cache.Remove(secIdentity{tableID: tableID, key: string(key.Encode())})
	return nil
}

// Find returns the primary key and a live handle for an exact key match.
func (idx *SecondaryIndex[K]) Find(code, scope, table Name, key K) (uint64, int32, error) {
	tableID, ok := idx.tables.Find(code, scope, table)
	if !ok {
		return 0, IteratorInvalid, nil
	}
	enc := key.Encode()
	p := secondaryRowKey(tableID, idx.kind, enc, 0)
	p = p[:len(p)-8]
	it := idx.store.PrefixIterator(p)
	if !it.Next() {
		return 0, IteratorInvalid, nil
	}
	primary := decodePrimaryFromRowKey(it.Key())
	h, err := idx.cache.Add(secIdentity{tableID: tableID, key: string(enc)})
	return primary, h, err
}

// FindPrimary resolves the live entry for primary given the exact encoded
// key a caller's own bookkeeping (secondaryRefRegistry) already recorded
// for it, returning the decoded key and a live handle. Unlike Find, which
// starts from a key value, this starts from a primary key — the guest
// ABI's find_primary, used when a contract already knows which row it
// wants but needs this index's handle on it.
func (idx *SecondaryIndex[K]) FindPrimary(code, scope, table Name, primary uint64, encKey []byte) (K, int32, error) {
	var zero K
	tableID, ok := idx.tables.Find(code, scope, table)
	if !ok {
		return zero, IteratorInvalid, nil
	}
	rk := secondaryRowKey(tableID, idx.kind, encKey, primary)
	has, err := idx.store.HasState(rk)
	if err != nil || !has {
		return zero, IteratorInvalid, err
	}
	found, _ := zero.Decode(encKey).(K)
	h, err := idx.cache.Add(secIdentity{tableID: tableID, key: string(encKey)})
	return found, h, err
}

// LowerBound returns the first entry whose key is >= key, along with the
// actual key value found, so guest code that passed in a buffer to be
// overwritten sees the row's real secondary key rather than its own input.
func (idx *SecondaryIndex[K]) LowerBound(code, scope, table Name, key K) (uint64, K, int32, error) {
	return idx.scanFrom(code, scope, table, key.Encode(), false)
}

// UpperBound returns the first entry whose key is strictly > key, along
// with the actual key value found.
func (idx *SecondaryIndex[K]) UpperBound(code, scope, table Name, key K) (uint64, K, int32, error) {
	return idx.scanFrom(code, scope, table, key.Encode(), true)
}

func (idx *SecondaryIndex[K]) scanFrom(code, scope, table Name, encKey []byte, strictlyGreater bool) (uint64, K, int32, error) {
	var zero K
	tableID, ok := idx.tables.Find(code, scope, table)
	if !ok {
		return 0, zero, IteratorInvalid, nil
	}
	from := secondaryRowKey(tableID, idx.kind, encKey, 0)
	from = from[:len(from)-8]
	to := prefixUpperBound(idx.prefix(tableID))
	it := idx.store.RangeIterator(from, to)
	for it.Next() {
		rowEnc := rowSecondaryKeyBytes(it.Key(), tableID)
		if strictlyGreater && bytesEqual(rowEnc, encKey) {
			continue
		}
		primary := decodePrimaryFromRowKey(it.Key())
		found, _ := zero.Decode(rowEnc).(K)
		h, err := idx.cache.Add(secIdentity{tableID: tableID, key: string(rowEnc)})
		return primary, found, h, err
	}
	return 0, zero, IteratorInvalid, nil
}

// Update changes the secondary key stored at a live handle to newKey,
// keeping the same owning primary key. It also returns the table id the
// entry lives in, so callers that track cross-index bookkeeping keyed by
// table id (billing, cascade-delete refs) don't need a second lookup. The
// handle returned names the updated entry; it is not guaranteed to equal h,
// since this index is keyed by the secondary value itself rather than by a
// stable object identity.
func (idx *SecondaryIndex[K]) Update(h int32, newKey K) (uint64, int64, int32, error) {
	id, ok := idx.cache.Get(h)
	if !ok {
		return 0, 0, IteratorInvalid, ErrIteratorInvalid
	}
	oldEnc := []byte(id.key)
	p := secondaryRowKey(id.tableID, idx.kind, oldEnc, 0)
	p = p[:len(p)-8]
	it := idx.store.PrefixIterator(p)
	if !it.Next() {
		return 0, 0, IteratorInvalid, ErrIteratorInvalid
	}
	primary := decodePrimaryFromRowKey(it.Key())

	newEnc := newKey.Encode()
	if !bytesEqual(newEnc, oldEnc) {
		existsPrefix := secondaryRowKey(id.tableID, idx.kind, newEnc, 0)
		existsPrefix = existsPrefix[:len(existsPrefix)-8]
		if idx.store.PrefixIterator(existsPrefix).Next() {
			return 0, 0, IteratorInvalid, ErrDuplicateSecondaryKey
		}
	}
	if err := idx.store.DeleteState(it.Key()); err != nil {
		return 0, 0, IteratorInvalid, err
	}
	idx.cache.Remove(id)

	newRK := idx.rowKey(id.tableID, newKey, primary)
	val := make([]byte, 8)
	binary.BigEndian.PutUint64(val, primary)
	if err := idx.store.SetState(newRK, val); err != nil {
		return 0, 0, IteratorInvalid, err
	}
	nh, err := idx.cache.Add(secIdentity{tableID: id.tableID, key: string(newEnc)})
	return primary, id.tableID, nh, err
}

// End returns the end handle for a table's secondary index, allocating one
// if this is the first time the table was addressed through this index.
func (idx *SecondaryIndex[K]) End(code, scope, table Name) int32 {
	tableID := idx.tables.GetOrCreate(code, scope, table)
	return idx.cache.CacheTable(tableID)
}

// Next advances a live handle to the row immediately after it in key order.
func (idx *SecondaryIndex[K]) Next(h int32) (uint64, int32, error) {
	id, ok := idx.cache.Get(h)
	if !ok {
		return 0, IteratorInvalid, ErrIteratorInvalid
	}
	keys := idx.sortedKeys(id.tableID)
	pos := indexOfKey(keys, []byte(id.key))
	if pos < 0 || pos+1 >= len(keys) {
		return 0, idx.cache.CacheTable(id.tableID), nil
	}
	next := keys[pos+1]
	primary := decodePrimaryFromRowKey(next)
	nh, err := idx.cache.Add(secIdentity{tableID: id.tableID, key: string(rowSecondaryKeyBytes(next, id.tableID))})
	return primary, nh, err
}

// Previous steps a handle back one row. If h is an end handle it decodes the
// table from the handle itself and returns the table's last row, or
// IteratorInvalid if the table (restricted to this index) is empty.
func (idx *SecondaryIndex[K]) Previous(h int32) (uint64, int32, error) {
	var tableID int64
	var curKey []byte
	if IsEndHandle(h) {
		t, ok := idx.cache.FindTableByEndIterator(h)
		if !ok {
			return 0, IteratorInvalid, ErrIteratorInvalid
		}
		tableID = t
	} else {
		id, ok := idx.cache.Get(h)
		if !ok {
			return 0, IteratorInvalid, ErrIteratorInvalid
		}
		tableID = id.tableID
		curKey = []byte(id.key)
	}

	keys := idx.sortedKeys(tableID)
	if len(keys) == 0 {
		return 0, IteratorInvalid, nil
	}
	if curKey == nil {
		last := keys[len(keys)-1]
		primary := decodePrimaryFromRowKey(last)
		nh, err := idx.cache.Add(secIdentity{tableID: tableID, key: string(rowSecondaryKeyBytes(last, tableID))})
		return primary, nh, err
	}
	pos := indexOfKey(keys, curKey)
	if pos <= 0 {
		return 0, IteratorInvalid, nil
	}
	prev := keys[pos-1]
	primary := decodePrimaryFromRowKey(prev)
	nh, err := idx.cache.Add(secIdentity{tableID: tableID, key: string(rowSecondaryKeyBytes(prev, tableID))})
	return primary, nh, err
}

func (idx *SecondaryIndex[K]) sortedKeys(tableID int64) [][]byte {
	prefix := idx.prefix(tableID)
	it := idx.store.RangeIterator(prefix, prefixUpperBound(prefix))
	var out [][]byte
	for it.Next() {
		out = append(out, append([]byte(nil), it.Key()...))
	}
	return out
}

// rowSecondaryKeyBytes strips the rowKind/tableID/indexKind prefix and the
// trailing primary key from a full secondary row key, leaving just the
// encoded secondary key.
func rowSecondaryKeyBytes(rowKey []byte, tableID int64) []byte {
	headerLen := 1 + 8 + 1
	return rowKey[headerLen : len(rowKey)-8]
}

func indexOfKey(keys [][]byte, target []byte) int {
	for i, k := range keys {
		if bytesEqual(rowSecondaryKeyBytes(k, 0), target) {
			return i
		}
	}
	return -1
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
