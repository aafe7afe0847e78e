package core_test

import (
	"errors"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/wasmerio/wasmer-go/wasmer"

	core "synnergy-statedb/core"
)

// TestHeavyVMInvokeWithReceipt compiles a sample contract, deploys it to a
// fresh registry and verifies that logs are captured in the receipt.
func TestHeavyVMInvokeWithReceipt(t *testing.T) {
	watPath := filepath.Join("testdata", "log.wat")
	wasm, _, err := core.CompileWASM(watPath, t.TempDir())
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			t.Skip("wat2wasm not installed")
		}
		t.Fatalf("compile wasm: %v", err)
	}

	led, err := core.NewInMemory()
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	vm := core.NewHeavyVM(led, core.NewGasMeter(1_000_000), wasmer.NewEngine())
	reg := core.NewContractRegistry(led, vm, 1024, 1_000_000)

	addr := core.DeriveContractAddress(core.AddressZero, wasm)
	if err := reg.Deploy(addr, wasm, nil, 1_000_000); err != nil {
		t.Fatalf("deploy contract: %v", err)
	}

	rec, err := reg.InvokeWithReceipt(core.AddressZero, addr, "", nil, 0)
	if err != nil || !rec.Status {
		t.Fatalf("invoke error: %v %+v", err, rec)
	}
	if len(rec.Logs) != 1 || rec.Logs[0].Data != "hello" {
		t.Fatalf("unexpected logs: %+v", rec.Logs)
	}
}

// TestContractRegistryPauseBlocksInvoke verifies that a paused contract
// rejects invocations until resumed.
func TestContractRegistryPauseBlocksInvoke(t *testing.T) {
	led, err := core.NewInMemory()
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	vm := core.NewHeavyVM(led, core.NewGasMeter(1_000_000), wasmer.NewEngine())
	reg := core.NewContractRegistry(led, vm, 1024, 1_000_000)

	// A module with no exported "run" function still deploys; HeavyVM treats
	// that as a successful no-op execution.
	wasm := []byte("\x00asm\x01\x00\x00\x00")
	addr := core.DeriveContractAddress(core.AddressZero, wasm)
	if err := reg.Deploy(addr, wasm, nil, 1_000_000); err != nil {
		t.Fatalf("deploy contract: %v", err)
	}

	if err := reg.Pause(addr); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := reg.InvokeWithReceipt(core.AddressZero, addr, "", nil, 0); err == nil {
		t.Fatalf("expected invoke on paused contract to fail")
	}

	if err := reg.Resume(addr); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if _, err := reg.InvokeWithReceipt(core.AddressZero, addr, "", nil, 0); err != nil {
		t.Fatalf("invoke after resume: %v", err)
	}
}
