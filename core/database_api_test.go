package core

import "testing"

func newTestDatabaseAPI(t *testing.T, action Action) *DatabaseAPI {
	t.Helper()
	led, err := NewInMemory()
	if err != nil {
		t.Fatalf("new in-memory ledger: %v", err)
	}
	t.Cleanup(func() { led.Close() })
	cfg := DatabaseAPIConfig{
		Store:            led,
		Tables:           NewTableRegistry(),
		MaxIteratorCache: 0,
		CPUBudget:        0,
	}
	return NewDatabaseAPI(cfg, action)
}

func TestDatabaseAPIStoreFindUpdateRemove(t *testing.T) {
	action := Action{Receiver: 1, Code: 1, Authorization: []PermissionLevel{{Actor: 2, Permission: 2}}}
	db := newTestDatabaseAPI(t, action)

	var payer Address
	payer[0] = 0x01

	h, err := db.StoreI64(10, 20, payer, 5, []byte("row"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	data, err := db.GetI64(h)
	if err != nil || string(data) != "row" {
		t.Fatalf("get = %q, %v", data, err)
	}

	if err := db.UpdateI64(h, payer, []byte("row2")); err != nil {
		t.Fatalf("update: %v", err)
	}
	data, err = db.GetI64(h)
	if err != nil || string(data) != "row2" {
		t.Fatalf("get after update = %q, %v", data, err)
	}

	if err := db.RemoveI64(h); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := db.GetI64(h); err != ErrIteratorInvalid {
		t.Fatalf("expected ErrIteratorInvalid after remove, got %v", err)
	}

	if got := db.UsageDeltas()[payer]; got != 0 {
		t.Fatalf("expected usage to net back to zero after store+remove, got %d", got)
	}
}

func TestDatabaseAPIRejectsWrongCodeMutation(t *testing.T) {
	owner := Action{Receiver: 1, Code: 1}
	db := newTestDatabaseAPI(t, owner)
	var payer Address
	h, err := db.StoreI64(10, 20, payer, 1, []byte("x"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	intruder := &DatabaseAPI{receiver: 2}
	intruder.cpu = NewCPUMeter(0)
	intruder.primary = db.primary
	if err := intruder.UpdateI64(h, payer, []byte("y")); err != ErrNotPrimaryPayer {
		t.Fatalf("expected ErrNotPrimaryPayer, got %v", err)
	}
}

func TestDatabaseAPIContextFreeActionCannotMutate(t *testing.T) {
	action := Action{Receiver: 1, Code: 1, IsContextFree: true}
	db := newTestDatabaseAPI(t, action)
	if !db.IsContextFree() {
		t.Fatalf("expected IsContextFree to reflect the action")
	}

	var payer Address
	if _, err := db.StoreI64(10, 20, payer, 1, []byte("x")); err != ErrContextFreeMutation {
		t.Fatalf("expected ErrContextFreeMutation from StoreI64, got %v", err)
	}
	if _, err := db.StoreIdx64(10, 20, payer, 1, 55); err != ErrContextFreeMutation {
		t.Fatalf("expected ErrContextFreeMutation from StoreIdx64, got %v", err)
	}
}

func TestDatabaseAPIGetContextFreeDataMarksUsed(t *testing.T) {
	action := Action{Receiver: 1, Code: 1, ContextFree: []byte("cfd")}
	db := newTestDatabaseAPI(t, action)
	if db.UsedContextFreeAPI() {
		t.Fatalf("expected UsedContextFreeAPI to start false")
	}
	if got := db.GetContextFreeData(); string(got) != "cfd" {
		t.Fatalf("GetContextFreeData = %q, want %q", got, "cfd")
	}
	if !db.UsedContextFreeAPI() {
		t.Fatalf("expected UsedContextFreeAPI to be true after GetContextFreeData")
	}
}

func TestDatabaseAPIAuthorizationAndRecipientPassthrough(t *testing.T) {
	action := Action{
		Receiver:      1,
		Code:          1,
		Authorization: []PermissionLevel{{Actor: 7, Permission: 8}},
	}
	db := newTestDatabaseAPI(t, action)

	if !db.HasAuthorization(7) {
		t.Fatalf("expected actor 7 to have a declared authorization")
	}
	if err := db.RequireAuthorizationFor(7, 8); err != nil {
		t.Fatalf("require auth: %v", err)
	}
	if err := db.AllAuthorizationsUsed(); err != nil {
		t.Fatalf("all authorizations used: %v", err)
	}
	if err := db.RequireRecipient(42); err != nil {
		t.Fatalf("require recipient: %v", err)
	}
	if !db.HasRecipient(42) {
		t.Fatalf("expected recipient 42 to be recorded")
	}
}

func TestDatabaseAPIFloat64SecondaryIndexRejectsNaN(t *testing.T) {
	action := Action{Receiver: 1, Code: 1}
	db := newTestDatabaseAPI(t, action)
	var payer Address
	nan := FromSoftFloatBits(0x7ff8000000000001)
	if _, err := db.StoreIdxDouble(10, 20, payer, 1, nan); err != ErrNaNSecondaryKey {
		t.Fatalf("expected ErrNaNSecondaryKey, got %v", err)
	}
}

func TestDatabaseAPIRemoveI64CascadesSecondaryIndexes(t *testing.T) {
	action := Action{Receiver: 1, Code: 1}
	db := newTestDatabaseAPI(t, action)
	var payer Address
	payer[0] = 0x01

	h, err := db.StoreI64(10, 20, payer, 5, []byte("row"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if _, err := db.StoreIdx64(10, 20, payer, 5, 99); err != nil {
		t.Fatalf("store idx64: %v", err)
	}

	if _, fh, err := db.idx64.Find(1, 10, 20, U64Key(99)); err != nil || fh == IteratorInvalid {
		t.Fatalf("expected secondary entry to exist before remove, fh=%d err=%v", fh, err)
	}

	if err := db.RemoveI64(h); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if _, fh, err := db.idx64.Find(1, 10, 20, U64Key(99)); err != nil || fh != IteratorInvalid {
		t.Fatalf("expected secondary entry gone after RemoveI64, got fh=%d err=%v", fh, err)
	}
	if got := db.UsageDeltas()[payer]; got != 0 {
		t.Fatalf("expected usage to net back to zero after cascade remove, got %d", got)
	}
}

func TestDatabaseAPIUpdateIdx64RetagsKeyAndBilling(t *testing.T) {
	action := Action{Receiver: 1, Code: 1}
	db := newTestDatabaseAPI(t, action)
	var payer Address
	payer[0] = 0x02

	rowH, err := db.StoreI64(10, 20, payer, 7, []byte("row"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	h, err := db.StoreIdx64(10, 20, payer, 7, 11)
	if err != nil {
		t.Fatalf("store idx64: %v", err)
	}

	nh, err := db.UpdateIdx64(h, payer, 22)
	if err != nil {
		t.Fatalf("update idx64: %v", err)
	}
	if nh == IteratorInvalid {
		t.Fatalf("expected a live handle after update")
	}

	if _, fh, err := db.idx64.Find(1, 10, 20, U64Key(11)); err != nil || fh != IteratorInvalid {
		t.Fatalf("expected old idx64 key gone after update, got fh=%d err=%v", fh, err)
	}
	primary, _, err := db.idx64.Find(1, 10, 20, U64Key(22))
	if err != nil || primary != 7 {
		t.Fatalf("expected new idx64 key to resolve to primary 7, got %d, %v", primary, err)
	}

	if err := db.RemoveIdx64(10, 20, payer, 7, 22); err != nil {
		t.Fatalf("remove idx64: %v", err)
	}
	if err := db.RemoveI64(rowH); err != nil {
		t.Fatalf("remove row: %v", err)
	}
	if got := db.UsageDeltas()[payer]; got != 0 {
		t.Fatalf("expected usage to net back to zero, got %d", got)
	}
}

func TestDatabaseAPIFindPrimaryIdx64ResolvesSecondaryKey(t *testing.T) {
	action := Action{Receiver: 1, Code: 1}
	db := newTestDatabaseAPI(t, action)
	var payer Address
	payer[0] = 0x03

	if _, err := db.StoreI64(10, 20, payer, 9, []byte("row")); err != nil {
		t.Fatalf("store: %v", err)
	}
	if _, err := db.StoreIdx64(10, 20, payer, 9, 123); err != nil {
		t.Fatalf("store idx64: %v", err)
	}

	key, h, err := db.FindPrimaryIdx64(1, 10, 20, 9)
	if err != nil || h == IteratorInvalid || key != 123 {
		t.Fatalf("find primary = %d, %d, %v, want 123, live handle, nil", key, h, err)
	}

	if _, h, err := db.FindPrimaryIdx64(1, 10, 20, 999); err != nil || h != IteratorInvalid {
		t.Fatalf("expected miss for unknown primary, got h=%d err=%v", h, err)
	}
}

func TestDatabaseAPICPUBudgetExceeded(t *testing.T) {
	led, err := NewInMemory()
	if err != nil {
		t.Fatalf("new in-memory ledger: %v", err)
	}
	defer led.Close()
	cfg := DatabaseAPIConfig{Store: led, Tables: NewTableRegistry(), MaxIteratorCache: 0, CPUBudget: 1}
	db := NewDatabaseAPI(cfg, Action{Receiver: 1, Code: 1})

	var payer Address
	if _, err := db.StoreI64(1, 2, payer, 1, []byte("a")); err != nil {
		t.Fatalf("first store: %v", err)
	}
	if _, err := db.StoreI64(1, 2, payer, 2, []byte("b")); err != ErrCPUBudgetExceeded {
		t.Fatalf("expected ErrCPUBudgetExceeded, got %v", err)
	}
}
