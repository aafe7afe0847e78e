package core

import (
	"encoding/binary"
	"sync"
)

// tableKey names one multi-index namespace: a table within a contract's
// scope. Contracts other than Code may still read rows here, but only Code
// may write them.
type tableKey struct {
	Code  Name
	Scope Name
	Table Name
}

// TableRegistry assigns a stable, monotonically increasing numeric id to
// every (code, scope, table) triple it has ever seen, mirroring the EOS
// table_id_object. Table ids, not the (code, scope, table) triple itself,
// are what gets encoded into row keys and iterator end-handles, so lookups
// stay a fixed-width integer comparison regardless of name length.
type TableRegistry struct {
	mu      sync.RWMutex
	ids     map[tableKey]int64
	reverse map[int64]tableKey
	next    int64
}

// NewTableRegistry returns an empty registry.
func NewTableRegistry() *TableRegistry {
	return &TableRegistry{
		ids:     make(map[tableKey]int64),
		reverse: make(map[int64]tableKey),
	}
}

// GetOrCreate returns the table id for (code, scope, table), allocating a
// new one if this is the first time the triple has been seen. Allocation is
// idempotent: calling it twice for the same triple returns the same id,
// matching cache_table's contract in the original iterator cache.
func (r *TableRegistry) GetOrCreate(code, scope, table Name) int64 {
	key := tableKey{Code: code, Scope: scope, Table: table}

	r.mu.RLock()
	if id, ok := r.ids[key]; ok {
		r.mu.RUnlock()
		return id
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.ids[key]; ok {
		return id
	}
	id := r.next
	r.next++
	r.ids[key] = id
	r.reverse[id] = key
	return id
}

// Find returns the table id for (code, scope, table) without creating one.
func (r *TableRegistry) Find(code, scope, table Name) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.ids[tableKey{Code: code, Scope: scope, Table: table}]
	return id, ok
}

// Lookup reverses a table id back to its (code, scope, table) triple.
func (r *TableRegistry) Lookup(id int64) (code, scope, table Name, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.reverse[id]
	return key.Code, key.Scope, key.Table, ok
}

// -----------------------------------------------------------------------------
// Row key encoding
// -----------------------------------------------------------------------------
//
// All row keys share a common byte layout so that a single ordered StateRW
// can hold primary rows and every flavour of secondary row side by side while still supporting efficient prefix and range scans:
//
//   primary row:    'P' | tableID(8, BE) | primaryKey(8, BE)
//   secondary row:  'S' | tableID(8, BE) | indexKind(1) | secondaryKey(N, BE) | primaryKey(8, BE)

const (
	rowKindPrimary   = 'P'
	rowKindSecondary = 'S'
)

func encodeTableID(id int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

// primaryRowKey builds the storage key for a row's primary-key index entry.
func primaryRowKey(tableID int64, primary uint64) []byte {
	key := make([]byte, 0, 1+8+8)
	key = append(key, rowKindPrimary)
	key = append(key, encodeTableID(tableID)...)
	pk := make([]byte, 8)
	binary.BigEndian.PutUint64(pk, primary)
	return append(key, pk...)
}

// primaryTablePrefix returns the prefix shared by every primary row in a
// table, used for emptiness checks and full-table prefix scans.
func primaryTablePrefix(tableID int64) []byte {
	key := make([]byte, 0, 1+8)
	key = append(key, rowKindPrimary)
	return append(key, encodeTableID(tableID)...)
}

// secondaryRowKey builds the storage key for one secondary index entry.
// secKey must already be in its deterministic sortable byte encoding (see
// softfloat.go and the fixed-width encoders in secondary_index.go).
func secondaryRowKey(tableID int64, indexKind byte, secKey []byte, primary uint64) []byte {
	key := make([]byte, 0, 1+8+1+len(secKey)+8)
	key = append(key, rowKindSecondary)
	key = append(key, encodeTableID(tableID)...)
	key = append(key, indexKind)
	key = append(key, secKey...)
	pk := make([]byte, 8)
	binary.BigEndian.PutUint64(pk, primary)
	return append(key, pk...)
}

// secondaryIndexPrefix returns the prefix shared by every row of one
// secondary index within a table.
func secondaryIndexPrefix(tableID int64, indexKind byte) []byte {
	key := make([]byte, 0, 1+8+1)
	key = append(key, rowKindSecondary)
	key = append(key, encodeTableID(tableID)...)
	return append(key, indexKind)
}

func decodePrimaryFromRowKey(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[len(key)-8:])
}
