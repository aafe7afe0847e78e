package core

import (
	"encoding/binary"
	"encoding/hex"
	"time"
)

// -----------------------------------------------------------------------------
// Account / hash primitives
// -----------------------------------------------------------------------------

// Address represents a 20-byte account identifier.
type Address [20]byte

func (a Address) Bytes() []byte { return a[:] }

func (a Address) Hex() string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 2+len(a)*2)
	copy(out, "0x")
	for i, v := range a {
		out[2+i*2] = hexdigits[v>>4]
		out[3+i*2] = hexdigits[v&0x0f]
	}
	return string(out)
}

func (a Address) String() string { return a.Hex() }

// Hash represents a 32-byte cryptographic hash.
type Hash [32]byte

func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

// Name is a 64-bit symbol used to identify a contract ("code"), a scope, or a
// table. The three name kinds share a representation; their meaning is
// positional, matching the guest ABI convention of (code, scope, table).
type Name uint64

// Bytes renders the name as big-endian bytes so that lexicographic byte
// comparison of encoded names agrees with unsigned numeric comparison.
func (n Name) Bytes() []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(n))
	return b
}

func (n Name) String() string { return hex.EncodeToString(n.Bytes()) }

// SmartContract is the record ContractRegistry keeps about a deployed
// contract: its address, code hash, bytecode, gas limit and deployment time.
type SmartContract struct {
	Address   Address
	CodeHash  [32]byte
	Bytecode  []byte
	GasLimit  uint64
	CreatedAt time.Time
}

// PermissionLevel names an (account, permission) pair that an action may
// declare as a required authorization.
type PermissionLevel struct {
	Actor      Name
	Permission Name
}

// Action is the unit of guest-code execution presented to a DatabaseAPI
// instance. Only the fields the state-database API consumes are modelled
// here; transaction assembly, signing, and scheduling live outside this
// trust boundary.
type Action struct {
	Receiver      Name
	Code          Name
	Authorization []PermissionLevel
	Data          []byte
	ContextFree   []byte

	// Privileged marks an action from a system-level contract, matching the
	// original database_api's privileged flag.
	Privileged bool
	// IsContextFree marks an action that ran before authorization could be
	// verified; such actions may read but never mutate state.
	IsContextFree bool
}
