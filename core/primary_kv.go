package core

type primaryIdentity struct {
	tableID int64
	primary uint64
}

// PrimaryIndex is the primary-key collaborator (C4): one row per primary
// key per table, addressable by an ordered 64-bit key, plus the iterator
// handles the guest ABI hands out for db_find_i64/db_next_i64/and friends.
// Every row also carries the account that pays for its RAM, so Update and
// Remove can report the payer without a separate lookup table.
type PrimaryIndex struct {
	store  StateRW
	tables *TableRegistry
	cache  *IteratorCache[primaryIdentity]
}

// NewPrimaryIndex builds a primary-key collaborator over store, sharing
// table id allocation with tables.
func NewPrimaryIndex(store StateRW, tables *TableRegistry, maxCache int) *PrimaryIndex {
	return &PrimaryIndex{store: store, tables: tables, cache: NewIteratorCache[primaryIdentity](maxCache)}
}

func packRow(payer Address, data []byte) []byte {
	out := make([]byte, 0, 20+len(data))
	out = append(out, payer[:]...)
	return append(out, data...)
}

func unpackRow(raw []byte) (Address, []byte) {
	var payer Address
	copy(payer[:], raw[:20])
	return payer, raw[20:]
}

// Store inserts a new row, returning ErrDuplicatePrimaryKey if primary
// already exists in the table.
func (p *PrimaryIndex) Store(code, scope, table Name, payer Address, primary uint64, data []byte) (int32, error) {
	tableID := p.tables.GetOrCreate(code, scope, table)
	key := primaryRowKey(tableID, primary)
	if has, _ := p.store.HasState(key); has {
		return IteratorInvalid, ErrDuplicatePrimaryKey
	}
	if err := p.store.SetState(key, packRow(payer, data)); err != nil {
		return IteratorInvalid, err
	}
	return p.cache.Add(primaryIdentity{tableID: tableID, primary: primary})
}

// Update overwrites the row named by a live handle, returning its previous
// payer and payload so the caller can compute a billing delta.
func (p *PrimaryIndex) Update(h int32, payer Address, data []byte) (Address, []byte, error) {
	id, ok := p.cache.Get(h)
	if !ok {
		return Address{}, nil, ErrIteratorInvalid
	}
	key := primaryRowKey(id.tableID, id.primary)
	raw, err := p.store.GetState(key)
	if err != nil {
		return Address{}, nil, err
	}
	oldPayer, oldData := unpackRow(raw)
	if err := p.store.SetState(key, packRow(payer, data)); err != nil {
		return Address{}, nil, err
	}
	return oldPayer, oldData, nil
}

// Remove deletes the row named by a live handle, tombstoning it, and returns
// the payer and payload it held so callers can refund its billing usage.
// Removing a row without also removing its secondary rows would leave
// dangling index entries that outlive the data they pointed at, so
// DatabaseAPI removes them through its secondaryRefRegistry, keyed by the
// row's table id and primary key, before considering the row gone.
func (p *PrimaryIndex) Remove(h int32) (Address, []byte, error) {
	id, ok := p.cache.Get(h)
	if !ok {
		return Address{}, nil, ErrIteratorInvalid
	}
	key := primaryRowKey(id.tableID, id.primary)
	raw, err := p.store.GetState(key)
	if err != nil {
		return Address{}, nil, err
	}
	if err := p.store.DeleteState(key); err != nil {
		return Address{}, nil, err
	}
	payer, data := unpackRow(raw)
	p.cache.Remove(primaryIdentity{tableID: id.tableID, primary: id.primary})
	return payer, data, nil
}

// Get resolves a live handle back to its payer and row payload.
func (p *PrimaryIndex) Get(h int32) (Address, []byte, error) {
	id, ok := p.cache.Get(h)
	if !ok {
		return Address{}, nil, ErrIteratorInvalid
	}
	raw, err := p.store.GetState(primaryRowKey(id.tableID, id.primary))
	if err != nil {
		return Address{}, nil, err
	}
	payer, data := unpackRow(raw)
	return payer, data, nil
}

// PrimaryKey resolves a live handle back to the primary key value it names.
func (p *PrimaryIndex) PrimaryKey(h int32) (uint64, error) {
	id, ok := p.cache.Get(h)
	if !ok {
		return 0, ErrIteratorInvalid
	}
	return id.primary, nil
}

// TableOf resolves a live handle back to the (code, scope, table) triple it
// belongs to.
func (p *PrimaryIndex) TableOf(h int32) (code, scope, table Name, ok bool) {
	id, live := p.cache.Get(h)
	if !live {
		return 0, 0, 0, false
	}
	return p.tables.Lookup(id.tableID)
}

// Find returns a live handle for an exact primary key match, or
// IteratorInvalid if no such row (or table) exists.
func (p *PrimaryIndex) Find(code, scope, table Name, primary uint64) (int32, error) {
	tableID, ok := p.tables.Find(code, scope, table)
	if !ok {
		return IteratorInvalid, nil
	}
	if has, _ := p.store.HasState(primaryRowKey(tableID, primary)); !has {
		return IteratorInvalid, nil
	}
	return p.cache.Add(primaryIdentity{tableID: tableID, primary: primary})
}

// End returns the table's end handle, allocating one if needed.
func (p *PrimaryIndex) End(code, scope, table Name) int32 {
	tableID := p.tables.GetOrCreate(code, scope, table)
	return p.cache.CacheTable(tableID)
}

// LowerBound returns a handle to the first row with primary key >= primary.
func (p *PrimaryIndex) LowerBound(code, scope, table Name, primary uint64) (int32, error) {
	return p.scanFrom(code, scope, table, primary, false)
}

// UpperBound returns a handle to the first row with primary key > primary.
func (p *PrimaryIndex) UpperBound(code, scope, table Name, primary uint64) (int32, error) {
	return p.scanFrom(code, scope, table, primary, true)
}

func (p *PrimaryIndex) scanFrom(code, scope, table Name, primary uint64, strictlyGreater bool) (int32, error) {
	tableID, ok := p.tables.Find(code, scope, table)
	if !ok {
		return IteratorInvalid, nil
	}
	from := primaryRowKey(tableID, primary)
	to := prefixUpperBound(primaryTablePrefix(tableID))
	it := p.store.RangeIterator(from, to)
	for it.Next() {
		key := decodePrimaryFromRowKey(it.Key())
		if strictlyGreater && key == primary {
			continue
		}
		return p.cache.Add(primaryIdentity{tableID: tableID, primary: key})
	}
	return IteratorInvalid, nil
}

// Next advances a live handle to the row with the next greater primary key.
func (p *PrimaryIndex) Next(h int32) (int32, error) {
	id, ok := p.cache.Get(h)
	if !ok {
		return IteratorInvalid, ErrIteratorInvalid
	}
	if id.primary == ^uint64(0) {
		return p.cache.CacheTable(id.tableID), nil
	}
	from := primaryRowKey(id.tableID, id.primary+1)
	to := prefixUpperBound(primaryTablePrefix(id.tableID))
	it := p.store.RangeIterator(from, to)
	if !it.Next() {
		return p.cache.CacheTable(id.tableID), nil
	}
	key := decodePrimaryFromRowKey(it.Key())
	return p.cache.Add(primaryIdentity{tableID: id.tableID, primary: key})
}

// Previous steps a handle back one row. If h is an end handle, it decodes
// the table from the handle and returns the table's last row, or
// IteratorInvalid if the table is empty, without looking at any other
// table's rows.
func (p *PrimaryIndex) Previous(h int32) (int32, error) {
	var tableID int64
	var havePrimary bool
	var primary uint64

	if IsEndHandle(h) {
		t, ok := p.cache.FindTableByEndIterator(h)
		if !ok {
			return IteratorInvalid, ErrIteratorInvalid
		}
		tableID = t
	} else {
		id, ok := p.cache.Get(h)
		if !ok {
			return IteratorInvalid, ErrIteratorInvalid
		}
		tableID, primary, havePrimary = id.tableID, id.primary, true
	}

	prefix := primaryTablePrefix(tableID)
	upper := prefixUpperBound(prefix)
	if havePrimary {
		upper = primaryRowKey(tableID, primary)
	}
	it := p.store.RangeIterator(prefix, upper)
	var lastKey []byte
	for it.Next() {
		lastKey = it.Key()
	}
	if lastKey == nil {
		return IteratorInvalid, nil
	}
	key := decodePrimaryFromRowKey(lastKey)
	return p.cache.Add(primaryIdentity{tableID: tableID, primary: key})
}
