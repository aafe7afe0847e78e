package core

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// SandboxInfo holds runtime limits and state for a single sandboxed contract
// execution environment: its CPU and memory ceilings, plus whether the
// sandbox is currently accepting invocations. CPULimit caps the GasMeter
// that ContractRegistry builds for an invocation (see GasLimitFor);
// MemoryLimit is recorded and reported but does not limit guest linear
// memory.
type SandboxInfo struct {
	Contract    Address
	MemoryLimit uint64
	CPULimit    uint64
	Started     time.Time
	Active      bool
}

// SandboxManager tracks sandbox lifecycle state for a set of contracts,
// persisting it to a ledger so it survives a restart. Callers own the
// instance and typically keep one per ContractRegistry; there is no
// package-level table, so two registries in the same process (e.g. in
// tests) never see each other's sandboxes.
type SandboxManager struct {
	mu        sync.RWMutex
	ledger    *Ledger
	sandboxes map[Address]*SandboxInfo
}

// NewSandboxManager builds a manager backed by led, loading any sandbox
// records already persisted there.
func NewSandboxManager(led *Ledger) *SandboxManager {
	sm := &SandboxManager{ledger: led, sandboxes: make(map[Address]*SandboxInfo)}
	if led == nil {
		return sm
	}
	it := led.PrefixIterator([]byte("sandbox:"))
	for it.Next() {
		var info SandboxInfo
		if err := json.Unmarshal(it.Value(), &info); err == nil {
			sm.sandboxes[info.Contract] = &info
		}
	}
	return sm
}

func sandboxKey(addr Address) []byte {
	return append([]byte("sandbox:"), addr.Bytes()...)
}

func (sm *SandboxManager) persist(info *SandboxInfo) error {
	if sm.ledger == nil {
		return nil
	}
	b, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return sm.ledger.SetState(sandboxKey(info.Contract), b)
}

// Start initialises a new sandbox for addr with the given memory and CPU
// ceilings. It returns an error if a sandbox is already active for addr.
func (sm *SandboxManager) Start(addr Address, memLimit, cpuLimit uint64) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if existing, ok := sm.sandboxes[addr]; ok && existing.Active {
		return errors.New("sandbox already active")
	}
	info := &SandboxInfo{
		Contract:    addr,
		MemoryLimit: memLimit,
		CPULimit:    cpuLimit,
		Started:     time.Now().UTC(),
		Active:      true,
	}
	sm.sandboxes[addr] = info
	return sm.persist(info)
}

// Stop marks a sandbox as inactive.
func (sm *SandboxManager) Stop(addr Address) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sb, ok := sm.sandboxes[addr]
	if !ok {
		return errors.New("sandbox not found")
	}
	sb.Active = false
	return sm.persist(sb)
}

// Reset restarts the sandbox clock and reactivates it without changing its
// configured limits.
func (sm *SandboxManager) Reset(addr Address) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sb, ok := sm.sandboxes[addr]
	if !ok {
		return errors.New("sandbox not found")
	}
	sb.Started = time.Now().UTC()
	sb.Active = true
	return sm.persist(sb)
}

// Status returns the current sandbox information for addr, if any.
func (sm *SandboxManager) Status(addr Address) (SandboxInfo, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sb, ok := sm.sandboxes[addr]
	if !ok {
		return SandboxInfo{}, false
	}
	return *sb, true
}

// List returns every sandbox known to this manager, active or not.
func (sm *SandboxManager) List() []SandboxInfo {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	out := make([]SandboxInfo, 0, len(sm.sandboxes))
	for _, sb := range sm.sandboxes {
		out = append(out, *sb)
	}
	return out
}

// GasLimitFor returns the CPU limit recorded for addr's sandbox, or ok=false
// if none is active. ContractRegistry.InvokeWithReceipt uses this to cap the
// GasMeter it builds for an invocation when a sandbox has been configured.
func (sm *SandboxManager) GasLimitFor(addr Address) (uint64, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sb, ok := sm.sandboxes[addr]
	if !ok || !sb.Active {
		return 0, false
	}
	return sb.CPULimit, true
}
