package core

import "testing"

func TestTableRegistryGetOrCreateIsIdempotent(t *testing.T) {
	r := NewTableRegistry()
	id1 := r.GetOrCreate(1, 2, 3)
	id2 := r.GetOrCreate(1, 2, 3)
	if id1 != id2 {
		t.Fatalf("expected same id for repeated triple, got %d and %d", id1, id2)
	}

	other := r.GetOrCreate(1, 2, 4)
	if other == id1 {
		t.Fatalf("expected distinct table to get a distinct id")
	}
}

func TestTableRegistryFindAndLookup(t *testing.T) {
	r := NewTableRegistry()
	if _, ok := r.Find(1, 2, 3); ok {
		t.Fatalf("expected Find to miss before GetOrCreate")
	}
	id := r.GetOrCreate(1, 2, 3)
	gotID, ok := r.Find(1, 2, 3)
	if !ok || gotID != id {
		t.Fatalf("Find = %d, %v, want %d, true", gotID, ok, id)
	}

	code, scope, table, ok := r.Lookup(id)
	if !ok || code != 1 || scope != 2 || table != 3 {
		t.Fatalf("Lookup(%d) = %d,%d,%d,%v, want 1,2,3,true", id, code, scope, table, ok)
	}
}

func TestRowKeyEncodingOrdersByPrimaryKey(t *testing.T) {
	k1 := primaryRowKey(7, 1)
	k2 := primaryRowKey(7, 2)
	if !(string(k1) < string(k2)) {
		t.Fatalf("expected primaryRowKey(7,1) < primaryRowKey(7,2) lexicographically")
	}
	if decodePrimaryFromRowKey(k2) != 2 {
		t.Fatalf("decodePrimaryFromRowKey = %d, want 2", decodePrimaryFromRowKey(k2))
	}
}

func TestSecondaryRowKeySharesPrefixAcrossPrimaries(t *testing.T) {
	secKey := []byte{0, 0, 0, 0, 0, 0, 0, 5}
	k1 := secondaryRowKey(9, IdxU64, secKey, 1)
	k2 := secondaryRowKey(9, IdxU64, secKey, 2)
	prefix := secondaryIndexPrefix(9, IdxU64)
	if len(k1) < len(prefix) || string(k1[:len(prefix)]) != string(prefix) {
		t.Fatalf("expected k1 to share the index prefix")
	}
	if string(k1[:len(k1)-8]) != string(k2[:len(k2)-8]) {
		t.Fatalf("expected the same secondary key to produce a shared prefix regardless of primary")
	}
}
