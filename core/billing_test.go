package core

import "testing"

func TestUsageLedgerChargeAndRefund(t *testing.T) {
	u := NewUsageLedger()
	var payer Address
	payer[0] = 1

	u.Charge(payer, 100, "contract")
	if got := u.Delta(payer); got != 100+baseRowFee {
		t.Fatalf("delta after charge = %d, want %d", got, 100+baseRowFee)
	}

	u.Refund(payer, 100, "contract")
	if got := u.Delta(payer); got != 0 {
		t.Fatalf("delta after refund = %d, want 0", got)
	}
}

func TestUsageLedgerTotalsIsACopy(t *testing.T) {
	u := NewUsageLedger()
	var payer Address
	u.Charge(payer, 0, "contract")
	totals := u.Totals()
	totals[payer] = 99999
	if u.Delta(payer) == 99999 {
		t.Fatalf("expected Totals() to return an independent copy")
	}
}

func TestCPUMeterEnforcesBudget(t *testing.T) {
	m := NewCPUMeter(2)
	if err := m.CheckTime("a"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if err := m.CheckTime("b"); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if err := m.CheckTime("c"); err != ErrCPUBudgetExceeded {
		t.Fatalf("expected ErrCPUBudgetExceeded on third call, got %v", err)
	}
	if m.Consumed() != 3 {
		t.Fatalf("consumed = %d, want 3", m.Consumed())
	}
}

func TestCPUMeterZeroBudgetIsUnbounded(t *testing.T) {
	m := NewCPUMeter(0)
	for i := 0; i < 1000; i++ {
		if err := m.CheckTime("x"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
}
