package core

import "sync"

// Guest-visible iterator handle sentinels, shared by the primary and
// secondary cursor implementations.
const (
	// IteratorInvalid is returned whenever a lookup finds nothing: no row,
	// no table, or a handle that no longer names a live row.
	IteratorInvalid int32 = -1
)

// IsEndHandle reports whether h names the end of a table rather than a row.
func IsEndHandle(h int32) bool { return h <= -2 }

// EndHandleIndex extracts the end-iterator index encoded in an end handle.
func EndHandleIndex(h int32) int32 { return -h - 2 }

// endHandleFor encodes an end-iterator index back into its handle form.
func endHandleFor(index int32) int32 { return -index - 2 }

// IteratorCache gives every distinct row identity K a stable int32 handle
// for as long as it stays live, and gives every table id a stable end
// handle. K is typically a small comparable struct built from a table id
// plus a primary or secondary key, so that the same row always maps back to
// the same handle (dedup), and a removed row's handle becomes permanently
// invalid (tombstone) rather than being recycled mid-iteration.
type IteratorCache[K comparable] struct {
	mu sync.Mutex

	tableToEndIndex map[int64]int32
	endIndexToTable []int64

	keyToHandle map[K]int32
	handleToKey map[int32]K
	tombstoned  map[int32]bool
	nextHandle  int32

	maxLive int
}

// NewIteratorCache returns an empty cache. maxLive <= 0 means unbounded.
func NewIteratorCache[K comparable](maxLive int) *IteratorCache[K] {
	return &IteratorCache[K]{
		tableToEndIndex: make(map[int64]int32),
		keyToHandle:     make(map[K]int32),
		handleToKey:     make(map[int32]K),
		tombstoned:      make(map[int32]bool),
		maxLive:         maxLive,
	}
}

// CacheTable returns the end handle for tableID, allocating a new
// end-iterator index the first time the table is seen. Calling this twice
// for the same table id is intentionally idempotent and returns the same
// handle both times.
func (c *IteratorCache[K]) CacheTable(tableID int64) int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx, ok := c.tableToEndIndex[tableID]; ok {
		return endHandleFor(idx)
	}
	idx := int32(len(c.endIndexToTable))
	c.endIndexToTable = append(c.endIndexToTable, tableID)
	c.tableToEndIndex[tableID] = idx
	return endHandleFor(idx)
}

// FindTableByEndIterator reverses an end handle back to its table id.
func (c *IteratorCache[K]) FindTableByEndIterator(h int32) (int64, bool) {
	if !IsEndHandle(h) {
		return 0, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := EndHandleIndex(h)
	if int(idx) < 0 || int(idx) >= len(c.endIndexToTable) {
		return 0, false
	}
	return c.endIndexToTable[idx], true
}

// EndIteratorForTable returns the end handle for a table id already cached
// via CacheTable, or IteratorInvalid if the table was never cached.
func (c *IteratorCache[K]) EndIteratorForTable(tableID int64) int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, ok := c.tableToEndIndex[tableID]
	if !ok {
		return IteratorInvalid
	}
	return endHandleFor(idx)
}

// Add assigns key a handle, returning its existing handle if key was already
// cached and live. It returns ErrIteratorCacheFull if the cache has a
// configured ceiling and is at capacity.
func (c *IteratorCache[K]) Add(key K) (int32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.keyToHandle[key]; ok && !c.tombstoned[h] {
		return h, nil
	}
	if c.maxLive > 0 && len(c.handleToKey)-len(c.tombstoned) >= c.maxLive {
		return IteratorInvalid, ErrIteratorCacheFull
	}
	h := c.nextHandle
	c.nextHandle++
	c.keyToHandle[key] = h
	c.handleToKey[h] = key
	return h, nil
}

// Get resolves a live handle back to its key.
func (c *IteratorCache[K]) Get(h int32) (K, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero K
	if h < 0 || c.tombstoned[h] {
		return zero, false
	}
	key, ok := c.handleToKey[h]
	return key, ok
}

// Remove tombstones the handle bound to key, if any is live. Removing a row
// from the backing store must tombstone its handle so a guest holding a
// stale copy gets a clear invalid-iterator error instead of silently
// observing a different row that happens to reuse the number.
func (c *IteratorCache[K]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.keyToHandle[key]
	if !ok {
		return
	}
	c.tombstoned[h] = true
	delete(c.keyToHandle, key)
}
