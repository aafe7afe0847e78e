package core

// Smart-contract registry.
//
// A ContractRegistry owns the deployed-bytecode table and routes invocations
// through a VM, building a fresh DatabaseAPI for every call so that
// iterator handles, authorization bookkeeping, and billing accumulators
// never leak between actions, let alone between contracts. Callers own the
// registry instance; there is no package-level singleton, since sharing one
// globally would let two concurrently executing actions observe each
// other's iterator handles.

import (
	"crypto/sha256"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

// ContractRegistry tracks deployed contracts and dispatches invocations to a
// VM.
type ContractRegistry struct {
	mu     sync.RWMutex
	ledger *Ledger
	tables *TableRegistry
	vm     VM
	byAddr map[Address]*SmartContract

	maxIteratorCache int
	cpuBudget        int
	sandboxes        *SandboxManager
}

// NewContractRegistry builds a registry backed by led and dispatching
// through vmm. maxIteratorCache and cpuBudget seed every DatabaseAPI this
// registry constructs for an invocation.
func NewContractRegistry(led *Ledger, vmm VM, maxIteratorCache, cpuBudget int) *ContractRegistry {
	return &ContractRegistry{
		ledger:           led,
		tables:           NewTableRegistry(),
		vm:               vmm,
		byAddr:           make(map[Address]*SmartContract),
		maxIteratorCache: maxIteratorCache,
		cpuBudget:        cpuBudget,
		sandboxes:        NewSandboxManager(led),
	}
}

// Sandboxes exposes the registry's sandbox manager so callers can start,
// stop, or inspect a contract's resource envelope independently of
// invocation.
func (cr *ContractRegistry) Sandboxes() *SandboxManager { return cr.sandboxes }

// CompileWASM compiles a .wat source file to a wasm byte blob via the
// wat2wasm CLI, or passes a .wasm file through unchanged, returning the
// bytecode and its sha256 hash.
func CompileWASM(srcPath string, outDir string) ([]byte, [32]byte, error) {
	switch filepath.Ext(srcPath) {
	case ".wasm":
		b, err := os.ReadFile(srcPath)
		if err != nil {
			return nil, [32]byte{}, err
		}
		return b, sha256.Sum256(b), nil
	case ".wat":
		out := filepath.Join(outDir, filepath.Base(srcPath)+".wasm")
		cmd := exec.Command("wat2wasm", "-o", out, srcPath)
		if err := cmd.Run(); err != nil {
			return nil, [32]byte{}, err
		}
		b, err := os.ReadFile(out)
		if err != nil {
			return nil, [32]byte{}, err
		}
		return b, sha256.Sum256(b), nil
	default:
		return nil, [32]byte{}, errors.New("unsupported source: must be .wat or .wasm")
	}
}

// Deploy registers a contract's bytecode and optional Ricardian manifest.
func (cr *ContractRegistry) Deploy(addr Address, code, ricardian []byte, gas uint64) error {
	if len(code) == 0 {
		return errors.New("empty contract bytecode")
	}

	cr.mu.Lock()
	defer cr.mu.Unlock()

	if _, exists := cr.byAddr[addr]; exists {
		return errors.New("contract already deployed")
	}

	sc := &SmartContract{
		Address:   addr,
		CodeHash:  sha256.Sum256(code),
		Bytecode:  code,
		GasLimit:  gas,
		CreatedAt: time.Now().UTC(),
	}
	cr.byAddr[addr] = sc

	if cr.ledger != nil {
		if err := cr.ledger.SetState(contractKey(addr), code); err != nil {
			return err
		}
		if len(ricardian) > 0 {
			if err := cr.ledger.SetState(ricardianKey(addr), ricardian); err != nil {
				return err
			}
		}
	}
	return nil
}

// InvokeWithReceipt runs the contract at addr, building a fresh DatabaseAPI
// scoped to this single call. HeavyVM always calls the module's exported
// "run" function; method does not select the export.
func (cr *ContractRegistry) InvokeWithReceipt(caller, addr Address, method string, args []byte, gasLimit uint64) (*Receipt, error) {
	cr.mu.RLock()
	sc, ok := cr.byAddr[addr]
	cr.mu.RUnlock()
	if !ok {
		return nil, errors.New("contract not found")
	}
	if cr.IsPaused(addr) {
		return nil, errors.New("contract is paused")
	}

	if gasLimit == 0 || gasLimit > sc.GasLimit {
		gasLimit = sc.GasLimit
	}
	if sandboxLimit, ok := cr.sandboxes.GasLimitFor(addr); ok && sandboxLimit < gasLimit {
		gasLimit = sandboxLimit
	}

	action := Action{
		Receiver:      addressToName(addr),
		Code:          addressToName(addr),
		Authorization: []PermissionLevel{{Actor: addressToName(caller), Permission: addressToName(caller)}},
		Data:          args,
	}

	db := NewDatabaseAPI(DatabaseAPIConfig{
		Store:            cr.ledger,
		Tables:           cr.tables,
		MaxIteratorCache: cr.maxIteratorCache,
		CPUBudget:        cr.cpuBudget,
	}, action)

	vmCtx := &VMContext{
		Caller:  caller,
		Address: addr,
		Action:  action,
		DB:      db,
		Gas:     NewGasMeter(gasLimit),
	}

	rec, err := cr.vm.Execute(sc.Bytecode, vmCtx)
	if err != nil {
		return rec, err
	}
	if err := db.AllAuthorizationsUsed(); err != nil {
		rec.Status = false
		return rec, err
	}
	return rec, nil
}

// Invoke is InvokeWithReceipt discarding everything but the return data.
func (cr *ContractRegistry) Invoke(caller, addr Address, method string, args []byte, gasLimit uint64) ([]byte, error) {
	rec, err := cr.InvokeWithReceipt(caller, addr, method, args, gasLimit)
	if err != nil {
		return nil, err
	}
	return rec.ReturnData, nil
}

// Ricardian fetches a contract's Ricardian manifest, if any was deployed.
func (cr *ContractRegistry) Ricardian(addr Address) ([]byte, error) {
	if cr.ledger == nil {
		return nil, errors.New("ledger not available")
	}
	return cr.ledger.GetState(ricardianKey(addr))
}

// All returns a snapshot of every deployed contract.
func (cr *ContractRegistry) All() map[Address]*SmartContract {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	out := make(map[Address]*SmartContract, len(cr.byAddr))
	for a, c := range cr.byAddr {
		out[a] = c
	}
	return out
}

// DeriveContractAddress deterministically derives an address from its
// creator and bytecode, so redeploying identical code from the same account
// always lands at the same address.
func DeriveContractAddress(creator Address, code []byte) Address {
	pre := append(creator.Bytes(), code...)
	h := sha256.Sum256(pre)
	var out Address
	copy(out[:], h[:20])
	return out
}

// addressToName folds a 20-byte address into the 8-byte Name space used by
// table scoping and authorization checks, by truncating to its first 8
// bytes. This keeps the account identity stable across an address's
// lifetime without needing a separate registry mapping addresses to names.
func addressToName(a Address) Name {
	var n uint64
	for i := 0; i < 8; i++ {
		n = n<<8 | uint64(a[i])
	}
	return Name(n)
}

func contractKey(addr Address) []byte  { return append([]byte("contract:code:"), addr.Bytes()...) }
func ricardianKey(addr Address) []byte { return append([]byte("contract:ric:"), addr.Bytes()...) }
func pausedKey(addr Address) []byte    { return append([]byte("contract:paused:"), addr.Bytes()...) }

// Pause marks addr as paused; InvokeWithReceipt rejects calls to a paused
// contract. State is persisted so the flag survives a restart.
func (cr *ContractRegistry) Pause(addr Address) error {
	if cr.ledger == nil {
		return errors.New("ledger not available")
	}
	return cr.ledger.SetState(pausedKey(addr), []byte{1})
}

// Resume clears addr's paused flag.
func (cr *ContractRegistry) Resume(addr Address) error {
	if cr.ledger == nil {
		return errors.New("ledger not available")
	}
	return cr.ledger.SetState(pausedKey(addr), []byte{0})
}

// IsPaused reports whether addr is currently paused.
func (cr *ContractRegistry) IsPaused(addr Address) bool {
	if cr.ledger == nil {
		return false
	}
	b, err := cr.ledger.GetState(pausedKey(addr))
	return err == nil && len(b) > 0 && b[0] == 1
}
