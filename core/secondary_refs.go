package core

import "encoding/binary"

// secondaryRef names one secondary-index entry a primary row has
// contributed: which index kind (IdxU64/IdxU128/IdxU256/IdxFloat64), the
// exact encoded key bytes stored in that index, and the address billed for
// it, so RemoveI64 can refund the same payer that was charged on Store.
type secondaryRef struct {
	kind  byte
	key   []byte
	payer Address
}

// secondaryRefRegistry persists, per (tableID, primary), the set of
// secondary-index entries that row has contributed. RemoveI64 consults it
// to remove every matching secondary row before the primary row itself is
// gone, the same way a generated multi_index container's destructor walks
// every index when an object is erased.
type secondaryRefRegistry struct {
	store StateRW
}

func newSecondaryRefRegistry(store StateRW) *secondaryRefRegistry {
	return &secondaryRefRegistry{store: store}
}

func refsKey(tableID int64, primary uint64) []byte {
	b := make([]byte, 1+8+8)
	b[0] = 'R'
	binary.BigEndian.PutUint64(b[1:9], uint64(tableID))
	binary.BigEndian.PutUint64(b[9:17], primary)
	return b
}

func encodeRefs(refs []secondaryRef) []byte {
	var out []byte
	for _, r := range refs {
		out = append(out, r.kind)
		out = append(out, r.payer[:]...)
		lenBuf := make([]byte, 2)
		binary.BigEndian.PutUint16(lenBuf, uint16(len(r.key)))
		out = append(out, lenBuf...)
		out = append(out, r.key...)
	}
	return out
}

func decodeRefs(raw []byte) []secondaryRef {
	var refs []secondaryRef
	for len(raw) > 0 {
		kind := raw[0]
		var payer Address
		copy(payer[:], raw[1:21])
		n := binary.BigEndian.Uint16(raw[21:23])
		key := append([]byte(nil), raw[23:23+n]...)
		refs = append(refs, secondaryRef{kind: kind, payer: payer, key: key})
		raw = raw[23+n:]
	}
	return refs
}

// Add records that primary has contributed a secondary entry of kind with
// the given encoded key, billed to payer.
func (r *secondaryRefRegistry) Add(tableID int64, primary uint64, kind byte, payer Address, key []byte) error {
	k := refsKey(tableID, primary)
	existing, _ := r.store.GetState(k)
	refs := append(decodeRefs(existing), secondaryRef{kind: kind, payer: payer, key: append([]byte(nil), key...)})
	return r.store.SetState(k, encodeRefs(refs))
}

// Remove forgets one specific secondary entry for primary, leaving any
// others intact.
func (r *secondaryRefRegistry) Remove(tableID int64, primary uint64, kind byte, key []byte) error {
	k := refsKey(tableID, primary)
	has, _ := r.store.HasState(k)
	if !has {
		return nil
	}
	existing, err := r.store.GetState(k)
	if err != nil {
		return err
	}
	refs := decodeRefs(existing)
	out := refs[:0]
	for _, ref := range refs {
		if ref.kind == kind && bytesEqual(ref.key, key) {
			continue
		}
		out = append(out, ref)
	}
	if len(out) == 0 {
		return r.store.DeleteState(k)
	}
	return r.store.SetState(k, encodeRefs(out))
}

// Retag replaces the key and payer on the existing ref of kind for primary,
// or records a new one if this is the first entry of that kind. Used by
// UpdateIdx64/128/256: the entry's secondary value changed but it is still
// the same logical reference, not a new one.
func (r *secondaryRefRegistry) Retag(tableID int64, primary uint64, kind byte, payer Address, newKey []byte) error {
	k := refsKey(tableID, primary)
	existing, _ := r.store.GetState(k)
	refs := decodeRefs(existing)
	replaced := false
	for i := range refs {
		if refs[i].kind == kind {
			refs[i].key = append([]byte(nil), newKey...)
			refs[i].payer = payer
			replaced = true
			break
		}
	}
	if !replaced {
		refs = append(refs, secondaryRef{kind: kind, payer: payer, key: append([]byte(nil), newKey...)})
	}
	return r.store.SetState(k, encodeRefs(refs))
}

// Lookup returns the encoded key recorded for primary under kind, without
// removing it, for FindPrimary (the guest ABI's db_idx*_find_primary).
func (r *secondaryRefRegistry) Lookup(tableID int64, primary uint64, kind byte) ([]byte, bool, error) {
	k := refsKey(tableID, primary)
	has, err := r.store.HasState(k)
	if err != nil || !has {
		return nil, false, err
	}
	existing, err := r.store.GetState(k)
	if err != nil {
		return nil, false, err
	}
	for _, ref := range decodeRefs(existing) {
		if ref.kind == kind {
			return ref.key, true, nil
		}
	}
	return nil, false, nil
}

// Take returns every secondary entry recorded for primary and forgets them,
// for RemoveI64 to fold into each secondary index's Remove call.
func (r *secondaryRefRegistry) Take(tableID int64, primary uint64) ([]secondaryRef, error) {
	k := refsKey(tableID, primary)
	has, _ := r.store.HasState(k)
	if !has {
		return nil, nil
	}
	existing, err := r.store.GetState(k)
	if err != nil {
		return nil, err
	}
	if err := r.store.DeleteState(k); err != nil {
		return nil, err
	}
	return decodeRefs(existing), nil
}
