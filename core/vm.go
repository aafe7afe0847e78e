package core

import (
	"encoding/binary"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/wasmerio/wasmer-go/wasmer"
)

// GasMeter enforces a wasm execution budget independent of CPUMeter's host
// call counting: gas is consumed only when the guest calls the
// host_consume_gas import (wasm instructions themselves are not metered),
// while checktime charges for host boundary crossings.
type GasMeter struct {
	limit    uint64
	consumed uint64
}

// NewGasMeter returns a meter allowing up to limit gas units.
func NewGasMeter(limit uint64) *GasMeter { return &GasMeter{limit: limit} }

// Consume deducts n units, returning an error if that would exceed the
// configured limit.
func (g *GasMeter) Consume(n uint64) error {
	if g.consumed+n > g.limit {
		return fmt.Errorf("vm: out of gas (limit %d)", g.limit)
	}
	g.consumed += n
	return nil
}

// Remaining returns the unconsumed gas.
func (g *GasMeter) Remaining() uint64 { return g.limit - g.consumed }

// Log is a single entry in a Receipt's log, produced by the guest's print
// host call.
type Log struct {
	Address Address
	Data    string
}

// Receipt is the outcome of one action's guest execution.
type Receipt struct {
	Status     bool
	Logs       []Log
	GasUsed    uint64
	HostCalls  int
	ReturnData []byte
}

// VMContext carries everything a single guest invocation needs: the action
// being run, the DatabaseAPI instance scoped to it, and the gas meter
// tracking wasm execution cost.
type VMContext struct {
	Caller  Address
	Address Address
	Action  Action
	DB      *DatabaseAPI
	Gas     *GasMeter

	receipt      *Receipt
	bindInstance func(*wasmer.Instance)
}

// VM executes compiled guest bytecode against a VMContext.
type VM interface {
	Execute(code []byte, ctx *VMContext) (*Receipt, error)
}

// HeavyVM runs guest code through wasmer, exposing the full state-database
// guest ABI as host functions under the "env" import namespace.
type HeavyVM struct {
	led    *Ledger
	gas    *GasMeter
	engine *wasmer.Engine
}

// NewHeavyVM returns a wasmer-backed VM sharing led for persistence and gas
// as the meter Execute uses when a VMContext carries none.
func NewHeavyVM(led *Ledger, gas *GasMeter, engine *wasmer.Engine) *HeavyVM {
	return &HeavyVM{led: led, gas: gas, engine: engine}
}

// Execute instantiates code as a wasm module, registers the guest ABI host
// functions bound to ctx, and calls its exported "run" entrypoint.
func (vm *HeavyVM) Execute(code []byte, ctx *VMContext) (*Receipt, error) {
	ctx.receipt = &Receipt{Status: false}
	if ctx.Gas == nil {
		ctx.Gas = vm.gas
	}

	store := wasmer.NewStore(vm.engine)
	module, err := wasmer.NewModule(store, code)
	if err != nil {
		return ctx.receipt, fmt.Errorf("vm: compile module: %w", err)
	}

	imports := registerHost(store, ctx)
	instance, err := wasmer.NewInstance(module, imports)
	if err != nil {
		return ctx.receipt, fmt.Errorf("vm: instantiate module: %w", err)
	}
	if ctx.bindInstance != nil {
		ctx.bindInstance(instance)
	}
	logrus.WithField("address", ctx.Address.Hex()).Debug("vm: instantiated guest module")

	run, err := instance.Exports.GetFunction("run")
	if err != nil {
		// Contracts with no exported entrypoint (e.g. a bare data module
		// used only for its memory) still deploy successfully.
		ctx.receipt.Status = true
		ctx.receipt.GasUsed = ctx.Gas.consumed
		return ctx.receipt, nil
	}

	if _, err := run.Call(); err != nil {
		ctx.receipt.GasUsed = ctx.Gas.consumed
		return ctx.receipt, fmt.Errorf("vm: run: %w", err)
	}

	ctx.receipt.Status = true
	ctx.receipt.GasUsed = ctx.Gas.consumed
	ctx.receipt.HostCalls = ctx.DB.CPUConsumed()
	return ctx.receipt, nil
}

// guestMemory returns the instance's exported linear memory. Guest code is
// untrusted, so readGuestBytes and writeGuestBytes bounds-check ptr/len
// against the memory's current size before touching it.
func guestMemory(inst *wasmer.Instance) (*wasmer.Memory, error) {
	return inst.Exports.GetMemory("memory")
}

func readGuestBytes(mem *wasmer.Memory, ptr, length int32) ([]byte, error) {
	if ptr < 0 || length < 0 {
		return nil, fmt.Errorf("vm: negative pointer or length")
	}
	data := mem.Data()
	end := int(ptr) + int(length)
	if end > len(data) || int(ptr) > len(data) {
		return nil, fmt.Errorf("vm: guest memory access out of bounds")
	}
	out := make([]byte, length)
	copy(out, data[ptr:end])
	return out, nil
}

func writeGuestBytes(mem *wasmer.Memory, ptr int32, payload []byte) error {
	data := mem.Data()
	end := int(ptr) + len(payload)
	if ptr < 0 || end > len(data) {
		return fmt.Errorf("vm: guest memory access out of bounds")
	}
	copy(data[ptr:end], payload)
	return nil
}

func readU128(mem *wasmer.Memory, ptr int32) (U128Key, error) {
	b, err := readGuestBytes(mem, ptr, 16)
	if err != nil {
		return U128Key{}, err
	}
	return U128Key{Hi: binary.BigEndian.Uint64(b[0:8]), Lo: binary.BigEndian.Uint64(b[8:16])}, nil
}

func readU256(mem *wasmer.Memory, ptr int32) (U256Key, error) {
	b, err := readGuestBytes(mem, ptr, 32)
	if err != nil {
		return U256Key{}, err
	}
	var k U256Key
	k.Int.SetBytes(b)
	return k, nil
}

func boolToI32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// registerHost builds the "env" import namespace bound to ctx. Functions
// that move guest buffers (db_store_i64, db_get_i64, ...) resolve the
// instance's memory lazily on each call, since the wasmer-go API only
// exposes Exports after NewInstance returns and host functions are
// registered before that.
func registerHost(store *wasmer.Store, ctx *VMContext) *wasmer.ImportObject {
	imports := wasmer.NewImportObject()
	var inst *wasmer.Instance
	bind := func(i *wasmer.Instance) { inst = i }
	ctx.bindInstance = bind

	mem := func() (*wasmer.Memory, error) {
		if inst == nil {
			return nil, fmt.Errorf("vm: memory requested before instantiation")
		}
		return guestMemory(inst)
	}

	i32 := wasmer.I32
	i64 := wasmer.I64
	fn := func(params []*wasmer.ValueType, results []*wasmer.ValueType, cb func([]wasmer.Value) ([]wasmer.Value, error)) *wasmer.Function {
		return wasmer.NewFunction(store, wasmer.NewFunctionType(wasmer.NewValueTypes(params...), wasmer.NewValueTypes(results...)), cb)
	}

	hostPrint := fn([]*wasmer.ValueType{i32, i32}, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
		m, err := mem()
		if err != nil {
			return nil, err
		}
		data, err := readGuestBytes(m, args[0].I32(), args[1].I32())
		if err != nil {
			return nil, err
		}
		ctx.DB.Print(string(data))
		ctx.receipt.Logs = append(ctx.receipt.Logs, Log{Address: ctx.Address, Data: string(data)})
		return nil, nil
	})

	hostStoreI64 := fn([]*wasmer.ValueType{i64, i64, i64, i32, i32}, []*wasmer.ValueType{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		m, err := mem()
		if err != nil {
			return nil, err
		}
		scope := Name(args[0].I64())
		table := Name(args[1].I64())
		primary := uint64(args[2].I64())
		data, err := readGuestBytes(m, args[3].I32(), args[4].I32())
		if err != nil {
			return nil, err
		}
		h, err := ctx.DB.StoreI64(scope, table, ctx.Caller, primary, data)
		if err != nil {
			return []wasmer.Value{wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI32(h)}, nil
	})

	hostGetI64 := fn([]*wasmer.ValueType{i32, i32, i32}, []*wasmer.ValueType{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		m, err := mem()
		if err != nil {
			return nil, err
		}
		data, err := ctx.DB.GetI64(args[0].I32())
		if err != nil {
			return []wasmer.Value{wasmer.NewI32(-1)}, nil
		}
		if err := writeGuestBytes(m, args[1].I32(), truncate(data, args[2].I32())); err != nil {
			return nil, err
		}
		return []wasmer.Value{wasmer.NewI32(int32(len(data)))}, nil
	})

	hostRemoveI64 := fn([]*wasmer.ValueType{i32}, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
		return nil, ctx.DB.RemoveI64(args[0].I32())
	})

	hostFindI64 := fn([]*wasmer.ValueType{i64, i64, i64, i64}, []*wasmer.ValueType{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		h, err := ctx.DB.FindI64(Name(args[0].I64()), Name(args[1].I64()), Name(args[2].I64()), uint64(args[3].I64()))
		if err != nil {
			return []wasmer.Value{wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI32(h)}, nil
	})

	hostNextI64 := fn([]*wasmer.ValueType{i32}, []*wasmer.ValueType{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		h, err := ctx.DB.NextI64(args[0].I32())
		if err != nil {
			return []wasmer.Value{wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI32(h)}, nil
	})

	hostUpdateI64 := fn([]*wasmer.ValueType{i32, i32, i32}, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
		m, err := mem()
		if err != nil {
			return nil, err
		}
		data, err := readGuestBytes(m, args[1].I32(), args[2].I32())
		if err != nil {
			return nil, err
		}
		return nil, ctx.DB.UpdateI64(args[0].I32(), ctx.Caller, data)
	})

	hostPreviousI64 := fn([]*wasmer.ValueType{i32}, []*wasmer.ValueType{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		h, err := ctx.DB.PreviousI64(args[0].I32())
		if err != nil {
			return []wasmer.Value{wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI32(h)}, nil
	})

	hostEndI64 := fn([]*wasmer.ValueType{i64, i64, i64}, []*wasmer.ValueType{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		h, err := ctx.DB.EndI64(Name(args[0].I64()), Name(args[1].I64()), Name(args[2].I64()))
		if err != nil {
			return []wasmer.Value{wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI32(h)}, nil
	})

	hostLowerboundI64 := fn([]*wasmer.ValueType{i64, i64, i64, i64}, []*wasmer.ValueType{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		h, err := ctx.DB.LowerboundI64(Name(args[0].I64()), Name(args[1].I64()), Name(args[2].I64()), uint64(args[3].I64()))
		if err != nil {
			return []wasmer.Value{wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI32(h)}, nil
	})

	hostUpperboundI64 := fn([]*wasmer.ValueType{i64, i64, i64, i64}, []*wasmer.ValueType{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		h, err := ctx.DB.UpperboundI64(Name(args[0].I64()), Name(args[1].I64()), Name(args[2].I64()), uint64(args[3].I64()))
		if err != nil {
			return []wasmer.Value{wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI32(h)}, nil
	})

	hostRequireAuth := fn([]*wasmer.ValueType{i64}, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
		return nil, ctx.DB.RequireAuthorization(Name(args[0].I64()))
	})

	hostRequireAuth2 := fn([]*wasmer.ValueType{i64, i64}, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
		return nil, ctx.DB.RequireAuthorizationFor(Name(args[0].I64()), Name(args[1].I64()))
	})

	hostHasAuth := fn([]*wasmer.ValueType{i64}, []*wasmer.ValueType{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		return []wasmer.Value{wasmer.NewI32(boolToI32(ctx.DB.HasAuthorization(Name(args[0].I64()))))}, nil
	})

	hostRequireRecipient := fn([]*wasmer.ValueType{i64}, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
		return nil, ctx.DB.RequireRecipient(Name(args[0].I64()))
	})

	hostHasRecipient := fn([]*wasmer.ValueType{i64}, []*wasmer.ValueType{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		return []wasmer.Value{wasmer.NewI32(boolToI32(ctx.DB.HasRecipient(Name(args[0].I64()))))}, nil
	})

	hostChecktime := fn(nil, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
		return nil, ctx.DB.Checktime()
	})

	hostConsumeGas := fn([]*wasmer.ValueType{i64}, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
		return nil, ctx.Gas.Consume(uint64(args[0].I64()))
	})

	// idx64

	hostIdx64Store := fn([]*wasmer.ValueType{i64, i64, i64, i64}, []*wasmer.ValueType{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		h, err := ctx.DB.StoreIdx64(Name(args[0].I64()), Name(args[1].I64()), ctx.Caller, uint64(args[2].I64()), uint64(args[3].I64()))
		if err != nil {
			return []wasmer.Value{wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI32(h)}, nil
	})

	hostIdx64FindSecondary := fn([]*wasmer.ValueType{i64, i64, i64, i64}, []*wasmer.ValueType{i64, i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		primary, h, err := ctx.DB.FindIdx64(Name(args[0].I64()), Name(args[1].I64()), Name(args[2].I64()), uint64(args[3].I64()))
		if err != nil {
			return []wasmer.Value{wasmer.NewI64(0), wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI64(int64(primary)), wasmer.NewI32(h)}, nil
	})

	hostIdx64FindPrimary := fn([]*wasmer.ValueType{i64, i64, i64, i64}, []*wasmer.ValueType{i64, i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		key, h, err := ctx.DB.FindPrimaryIdx64(Name(args[0].I64()), Name(args[1].I64()), Name(args[2].I64()), uint64(args[3].I64()))
		if err != nil {
			return []wasmer.Value{wasmer.NewI64(0), wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI64(int64(key)), wasmer.NewI32(h)}, nil
	})

	hostIdx64Lowerbound := fn([]*wasmer.ValueType{i64, i64, i64, i64}, []*wasmer.ValueType{i64, i64, i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		primary, found, h, err := ctx.DB.LowerboundIdx64(Name(args[0].I64()), Name(args[1].I64()), Name(args[2].I64()), uint64(args[3].I64()))
		if err != nil {
			return []wasmer.Value{wasmer.NewI64(0), wasmer.NewI64(0), wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI64(int64(primary)), wasmer.NewI64(int64(found)), wasmer.NewI32(h)}, nil
	})

	hostIdx64Upperbound := fn([]*wasmer.ValueType{i64, i64, i64, i64}, []*wasmer.ValueType{i64, i64, i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		primary, found, h, err := ctx.DB.UpperboundIdx64(Name(args[0].I64()), Name(args[1].I64()), Name(args[2].I64()), uint64(args[3].I64()))
		if err != nil {
			return []wasmer.Value{wasmer.NewI64(0), wasmer.NewI64(0), wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI64(int64(primary)), wasmer.NewI64(int64(found)), wasmer.NewI32(h)}, nil
	})

	hostIdx64Next := fn([]*wasmer.ValueType{i32}, []*wasmer.ValueType{i64, i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		primary, h, err := ctx.DB.NextIdx64(args[0].I32())
		if err != nil {
			return []wasmer.Value{wasmer.NewI64(0), wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI64(int64(primary)), wasmer.NewI32(h)}, nil
	})

	hostIdx64Previous := fn([]*wasmer.ValueType{i32}, []*wasmer.ValueType{i64, i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		primary, h, err := ctx.DB.PreviousIdx64(args[0].I32())
		if err != nil {
			return []wasmer.Value{wasmer.NewI64(0), wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI64(int64(primary)), wasmer.NewI32(h)}, nil
	})

	hostIdx64Update := fn([]*wasmer.ValueType{i32, i64}, []*wasmer.ValueType{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		h, err := ctx.DB.UpdateIdx64(args[0].I32(), ctx.Caller, uint64(args[1].I64()))
		if err != nil {
			return []wasmer.Value{wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI32(h)}, nil
	})

	hostIdx64Remove := fn([]*wasmer.ValueType{i64, i64, i64, i64}, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
		return nil, ctx.DB.RemoveIdx64(Name(args[0].I64()), Name(args[1].I64()), ctx.Caller, uint64(args[2].I64()), uint64(args[3].I64()))
	})

	hostIdx64End := fn([]*wasmer.ValueType{i64, i64, i64}, []*wasmer.ValueType{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		return []wasmer.Value{wasmer.NewI32(ctx.DB.EndIdx64(Name(args[0].I64()), Name(args[1].I64()), Name(args[2].I64())))}, nil
	})

	// idx128/idx256 keys are wider than a single wasm scalar, so they pass
	// through guest memory the same way db_store_i64's row payload does:
	// a pointer to the fixed-width (16- or 32-byte) key in, and for
	// lowerbound/upperbound an out pointer the host
	// overwrites with the key actually found.

	hostIdx128Store := fn([]*wasmer.ValueType{i64, i64, i64, i32}, []*wasmer.ValueType{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		m, err := mem()
		if err != nil {
			return nil, err
		}
		k, err := readU128(m, args[3].I32())
		if err != nil {
			return nil, err
		}
		h, err := ctx.DB.StoreIdx128(Name(args[0].I64()), Name(args[1].I64()), ctx.Caller, uint64(args[2].I64()), k.Hi, k.Lo)
		if err != nil {
			return []wasmer.Value{wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI32(h)}, nil
	})

	hostIdx128FindSecondary := fn([]*wasmer.ValueType{i64, i64, i64, i32}, []*wasmer.ValueType{i64, i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		m, err := mem()
		if err != nil {
			return nil, err
		}
		k, err := readU128(m, args[3].I32())
		if err != nil {
			return nil, err
		}
		primary, h, err := ctx.DB.FindIdx128(Name(args[0].I64()), Name(args[1].I64()), Name(args[2].I64()), k.Hi, k.Lo)
		if err != nil {
			return []wasmer.Value{wasmer.NewI64(0), wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI64(int64(primary)), wasmer.NewI32(h)}, nil
	})

	hostIdx128FindPrimary := fn([]*wasmer.ValueType{i64, i64, i64, i64, i32}, []*wasmer.ValueType{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		m, err := mem()
		if err != nil {
			return nil, err
		}
		key, h, err := ctx.DB.FindPrimaryIdx128(Name(args[0].I64()), Name(args[1].I64()), Name(args[2].I64()), uint64(args[3].I64()))
		if err != nil {
			return []wasmer.Value{wasmer.NewI32(IteratorInvalid)}, nil
		}
		if h != IteratorInvalid {
			if err := writeGuestBytes(m, args[4].I32(), key.Encode()); err != nil {
				return nil, err
			}
		}
		return []wasmer.Value{wasmer.NewI32(h)}, nil
	})

	hostIdx128Lowerbound := fn([]*wasmer.ValueType{i64, i64, i64, i32, i32}, []*wasmer.ValueType{i64, i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		m, err := mem()
		if err != nil {
			return nil, err
		}
		k, err := readU128(m, args[3].I32())
		if err != nil {
			return nil, err
		}
		primary, found, h, err := ctx.DB.LowerboundIdx128(Name(args[0].I64()), Name(args[1].I64()), Name(args[2].I64()), k.Hi, k.Lo)
		if err != nil {
			return []wasmer.Value{wasmer.NewI64(0), wasmer.NewI32(IteratorInvalid)}, nil
		}
		if err := writeGuestBytes(m, args[4].I32(), found.Encode()); err != nil {
			return nil, err
		}
		return []wasmer.Value{wasmer.NewI64(int64(primary)), wasmer.NewI32(h)}, nil
	})

	hostIdx128Upperbound := fn([]*wasmer.ValueType{i64, i64, i64, i32, i32}, []*wasmer.ValueType{i64, i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		m, err := mem()
		if err != nil {
			return nil, err
		}
		k, err := readU128(m, args[3].I32())
		if err != nil {
			return nil, err
		}
		primary, found, h, err := ctx.DB.UpperboundIdx128(Name(args[0].I64()), Name(args[1].I64()), Name(args[2].I64()), k.Hi, k.Lo)
		if err != nil {
			return []wasmer.Value{wasmer.NewI64(0), wasmer.NewI32(IteratorInvalid)}, nil
		}
		if err := writeGuestBytes(m, args[4].I32(), found.Encode()); err != nil {
			return nil, err
		}
		return []wasmer.Value{wasmer.NewI64(int64(primary)), wasmer.NewI32(h)}, nil
	})

	hostIdx128Next := fn([]*wasmer.ValueType{i32}, []*wasmer.ValueType{i64, i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		primary, h, err := ctx.DB.NextIdx128(args[0].I32())
		if err != nil {
			return []wasmer.Value{wasmer.NewI64(0), wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI64(int64(primary)), wasmer.NewI32(h)}, nil
	})

	hostIdx128Previous := fn([]*wasmer.ValueType{i32}, []*wasmer.ValueType{i64, i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		primary, h, err := ctx.DB.PreviousIdx128(args[0].I32())
		if err != nil {
			return []wasmer.Value{wasmer.NewI64(0), wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI64(int64(primary)), wasmer.NewI32(h)}, nil
	})

	hostIdx128Update := fn([]*wasmer.ValueType{i32, i32}, []*wasmer.ValueType{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		m, err := mem()
		if err != nil {
			return nil, err
		}
		k, err := readU128(m, args[1].I32())
		if err != nil {
			return nil, err
		}
		h, err := ctx.DB.UpdateIdx128(args[0].I32(), ctx.Caller, k.Hi, k.Lo)
		if err != nil {
			return []wasmer.Value{wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI32(h)}, nil
	})

	hostIdx128Remove := fn([]*wasmer.ValueType{i64, i64, i64, i32}, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
		m, err := mem()
		if err != nil {
			return nil, err
		}
		k, err := readU128(m, args[3].I32())
		if err != nil {
			return nil, err
		}
		return nil, ctx.DB.RemoveIdx128(Name(args[0].I64()), Name(args[1].I64()), ctx.Caller, uint64(args[2].I64()), k.Hi, k.Lo)
	})

	hostIdx128End := fn([]*wasmer.ValueType{i64, i64, i64}, []*wasmer.ValueType{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		return []wasmer.Value{wasmer.NewI32(ctx.DB.EndIdx128(Name(args[0].I64()), Name(args[1].I64()), Name(args[2].I64())))}, nil
	})

	hostIdx256Store := fn([]*wasmer.ValueType{i64, i64, i64, i32}, []*wasmer.ValueType{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		m, err := mem()
		if err != nil {
			return nil, err
		}
		k, err := readU256(m, args[3].I32())
		if err != nil {
			return nil, err
		}
		h, err := ctx.DB.StoreIdx256(Name(args[0].I64()), Name(args[1].I64()), ctx.Caller, uint64(args[2].I64()), k)
		if err != nil {
			return []wasmer.Value{wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI32(h)}, nil
	})

	hostIdx256FindSecondary := fn([]*wasmer.ValueType{i64, i64, i64, i32}, []*wasmer.ValueType{i64, i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		m, err := mem()
		if err != nil {
			return nil, err
		}
		k, err := readU256(m, args[3].I32())
		if err != nil {
			return nil, err
		}
		primary, h, err := ctx.DB.FindIdx256(Name(args[0].I64()), Name(args[1].I64()), Name(args[2].I64()), k)
		if err != nil {
			return []wasmer.Value{wasmer.NewI64(0), wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI64(int64(primary)), wasmer.NewI32(h)}, nil
	})

	hostIdx256FindPrimary := fn([]*wasmer.ValueType{i64, i64, i64, i64, i32}, []*wasmer.ValueType{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		m, err := mem()
		if err != nil {
			return nil, err
		}
		key, h, err := ctx.DB.FindPrimaryIdx256(Name(args[0].I64()), Name(args[1].I64()), Name(args[2].I64()), uint64(args[3].I64()))
		if err != nil {
			return []wasmer.Value{wasmer.NewI32(IteratorInvalid)}, nil
		}
		if h != IteratorInvalid {
			if err := writeGuestBytes(m, args[4].I32(), key.Encode()); err != nil {
				return nil, err
			}
		}
		return []wasmer.Value{wasmer.NewI32(h)}, nil
	})

	hostIdx256Lowerbound := fn([]*wasmer.ValueType{i64, i64, i64, i32, i32}, []*wasmer.ValueType{i64, i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		m, err := mem()
		if err != nil {
			return nil, err
		}
		k, err := readU256(m, args[3].I32())
		if err != nil {
			return nil, err
		}
		primary, found, h, err := ctx.DB.LowerboundIdx256(Name(args[0].I64()), Name(args[1].I64()), Name(args[2].I64()), k)
		if err != nil {
			return []wasmer.Value{wasmer.NewI64(0), wasmer.NewI32(IteratorInvalid)}, nil
		}
		if err := writeGuestBytes(m, args[4].I32(), found.Encode()); err != nil {
			return nil, err
		}
		return []wasmer.Value{wasmer.NewI64(int64(primary)), wasmer.NewI32(h)}, nil
	})

	hostIdx256Upperbound := fn([]*wasmer.ValueType{i64, i64, i64, i32, i32}, []*wasmer.ValueType{i64, i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		m, err := mem()
		if err != nil {
			return nil, err
		}
		k, err := readU256(m, args[3].I32())
		if err != nil {
			return nil, err
		}
		primary, found, h, err := ctx.DB.UpperboundIdx256(Name(args[0].I64()), Name(args[1].I64()), Name(args[2].I64()), k)
		if err != nil {
			return []wasmer.Value{wasmer.NewI64(0), wasmer.NewI32(IteratorInvalid)}, nil
		}
		if err := writeGuestBytes(m, args[4].I32(), found.Encode()); err != nil {
			return nil, err
		}
		return []wasmer.Value{wasmer.NewI64(int64(primary)), wasmer.NewI32(h)}, nil
	})

	hostIdx256Next := fn([]*wasmer.ValueType{i32}, []*wasmer.ValueType{i64, i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		primary, h, err := ctx.DB.NextIdx256(args[0].I32())
		if err != nil {
			return []wasmer.Value{wasmer.NewI64(0), wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI64(int64(primary)), wasmer.NewI32(h)}, nil
	})

	hostIdx256Previous := fn([]*wasmer.ValueType{i32}, []*wasmer.ValueType{i64, i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		primary, h, err := ctx.DB.PreviousIdx256(args[0].I32())
		if err != nil {
			return []wasmer.Value{wasmer.NewI64(0), wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI64(int64(primary)), wasmer.NewI32(h)}, nil
	})

	hostIdx256Update := fn([]*wasmer.ValueType{i32, i32}, []*wasmer.ValueType{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		m, err := mem()
		if err != nil {
			return nil, err
		}
		k, err := readU256(m, args[1].I32())
		if err != nil {
			return nil, err
		}
		h, err := ctx.DB.UpdateIdx256(args[0].I32(), ctx.Caller, k)
		if err != nil {
			return []wasmer.Value{wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI32(h)}, nil
	})

	hostIdx256Remove := fn([]*wasmer.ValueType{i64, i64, i64, i32}, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
		m, err := mem()
		if err != nil {
			return nil, err
		}
		k, err := readU256(m, args[3].I32())
		if err != nil {
			return nil, err
		}
		return nil, ctx.DB.RemoveIdx256(Name(args[0].I64()), Name(args[1].I64()), ctx.Caller, uint64(args[2].I64()), k)
	})

	hostIdx256End := fn([]*wasmer.ValueType{i64, i64, i64}, []*wasmer.ValueType{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		return []wasmer.Value{wasmer.NewI32(ctx.DB.EndIdx256(Name(args[0].I64()), Name(args[1].I64()), Name(args[2].I64())))}, nil
	})

	f64 := wasmer.F64

	hostIdxDoubleStore := fn([]*wasmer.ValueType{i64, i64, i64, f64}, []*wasmer.ValueType{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		h, err := ctx.DB.StoreIdxDouble(Name(args[0].I64()), Name(args[1].I64()), ctx.Caller, uint64(args[2].I64()), args[3].F64())
		if err != nil {
			return []wasmer.Value{wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI32(h)}, nil
	})

	hostIdxDoubleFindSecondary := fn([]*wasmer.ValueType{i64, i64, i64, f64}, []*wasmer.ValueType{i64, i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		primary, h, err := ctx.DB.FindIdxDouble(Name(args[0].I64()), Name(args[1].I64()), Name(args[2].I64()), args[3].F64())
		if err != nil {
			return []wasmer.Value{wasmer.NewI64(0), wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI64(int64(primary)), wasmer.NewI32(h)}, nil
	})

	hostIdxDoubleFindPrimary := fn([]*wasmer.ValueType{i64, i64, i64, i64}, []*wasmer.ValueType{f64, i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		key, h, err := ctx.DB.FindPrimaryIdxDouble(Name(args[0].I64()), Name(args[1].I64()), Name(args[2].I64()), uint64(args[3].I64()))
		if err != nil {
			return []wasmer.Value{wasmer.NewF64(0), wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewF64(key), wasmer.NewI32(h)}, nil
	})

	hostIdxDoubleLowerbound := fn([]*wasmer.ValueType{i64, i64, i64, f64}, []*wasmer.ValueType{i64, f64, i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		primary, found, h, err := ctx.DB.LowerboundIdxDouble(Name(args[0].I64()), Name(args[1].I64()), Name(args[2].I64()), args[3].F64())
		if err != nil {
			return []wasmer.Value{wasmer.NewI64(0), wasmer.NewF64(0), wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI64(int64(primary)), wasmer.NewF64(found), wasmer.NewI32(h)}, nil
	})

	hostIdxDoubleUpperbound := fn([]*wasmer.ValueType{i64, i64, i64, f64}, []*wasmer.ValueType{i64, f64, i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		primary, found, h, err := ctx.DB.UpperboundIdxDouble(Name(args[0].I64()), Name(args[1].I64()), Name(args[2].I64()), args[3].F64())
		if err != nil {
			return []wasmer.Value{wasmer.NewI64(0), wasmer.NewF64(0), wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI64(int64(primary)), wasmer.NewF64(found), wasmer.NewI32(h)}, nil
	})

	hostIdxDoubleNext := fn([]*wasmer.ValueType{i32}, []*wasmer.ValueType{i64, i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		primary, h, err := ctx.DB.NextIdxDouble(args[0].I32())
		if err != nil {
			return []wasmer.Value{wasmer.NewI64(0), wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI64(int64(primary)), wasmer.NewI32(h)}, nil
	})

	hostIdxDoublePrevious := fn([]*wasmer.ValueType{i32}, []*wasmer.ValueType{i64, i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		primary, h, err := ctx.DB.PreviousIdxDouble(args[0].I32())
		if err != nil {
			return []wasmer.Value{wasmer.NewI64(0), wasmer.NewI32(IteratorInvalid)}, nil
		}
		return []wasmer.Value{wasmer.NewI64(int64(primary)), wasmer.NewI32(h)}, nil
	})

	hostIdxDoubleRemove := fn([]*wasmer.ValueType{i64, i64, i64, f64}, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
		return nil, ctx.DB.RemoveIdxDouble(Name(args[0].I64()), Name(args[1].I64()), ctx.Caller, uint64(args[2].I64()), args[3].F64())
	})

	hostIdxDoubleEnd := fn([]*wasmer.ValueType{i64, i64, i64}, []*wasmer.ValueType{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
		return []wasmer.Value{wasmer.NewI32(ctx.DB.EndIdxDouble(Name(args[0].I64()), Name(args[1].I64()), Name(args[2].I64())))}, nil
	})

	imports.Register("env", map[string]wasmer.IntoExtern{
		"print":                      hostPrint,
		"db_store_i64":               hostStoreI64,
		"db_get_i64":                 hostGetI64,
		"db_update_i64":              hostUpdateI64,
		"db_remove_i64":              hostRemoveI64,
		"db_find_i64":                hostFindI64,
		"db_next_i64":                hostNextI64,
		"db_previous_i64":            hostPreviousI64,
		"db_end_i64":                 hostEndI64,
		"db_lowerbound_i64":          hostLowerboundI64,
		"db_upperbound_i64":          hostUpperboundI64,
		"db_idx64_store":             hostIdx64Store,
		"db_idx64_find_secondary":    hostIdx64FindSecondary,
		"db_idx64_find_primary":      hostIdx64FindPrimary,
		"db_idx64_lowerbound":        hostIdx64Lowerbound,
		"db_idx64_upperbound":        hostIdx64Upperbound,
		"db_idx64_next":              hostIdx64Next,
		"db_idx64_previous":          hostIdx64Previous,
		"db_idx64_update":            hostIdx64Update,
		"db_idx64_remove":            hostIdx64Remove,
		"db_idx64_end":               hostIdx64End,
		"db_idx128_store":            hostIdx128Store,
		"db_idx128_find_secondary":   hostIdx128FindSecondary,
		"db_idx128_find_primary":     hostIdx128FindPrimary,
		"db_idx128_lowerbound":       hostIdx128Lowerbound,
		"db_idx128_upperbound":       hostIdx128Upperbound,
		"db_idx128_next":             hostIdx128Next,
		"db_idx128_previous":         hostIdx128Previous,
		"db_idx128_update":           hostIdx128Update,
		"db_idx128_remove":           hostIdx128Remove,
		"db_idx128_end":              hostIdx128End,
		"db_idx256_store":            hostIdx256Store,
		"db_idx256_find_secondary":   hostIdx256FindSecondary,
		"db_idx256_find_primary":     hostIdx256FindPrimary,
		"db_idx256_lowerbound":       hostIdx256Lowerbound,
		"db_idx256_upperbound":       hostIdx256Upperbound,
		"db_idx256_next":             hostIdx256Next,
		"db_idx256_previous":         hostIdx256Previous,
		"db_idx256_update":           hostIdx256Update,
		"db_idx256_remove":           hostIdx256Remove,
		"db_idx256_end":              hostIdx256End,
		"db_idx_double_store":           hostIdxDoubleStore,
		"db_idx_double_find_secondary":  hostIdxDoubleFindSecondary,
		"db_idx_double_find_primary":    hostIdxDoubleFindPrimary,
		"db_idx_double_lowerbound":      hostIdxDoubleLowerbound,
		"db_idx_double_upperbound":      hostIdxDoubleUpperbound,
		"db_idx_double_next":            hostIdxDoubleNext,
		"db_idx_double_previous":        hostIdxDoublePrevious,
		"db_idx_double_remove":          hostIdxDoubleRemove,
		"db_idx_double_end":             hostIdxDoubleEnd,
		"require_auth":               hostRequireAuth,
		"require_auth2":              hostRequireAuth2,
		"has_auth":                   hostHasAuth,
		"require_recipient":          hostRequireRecipient,
		"has_recipient":              hostHasRecipient,
		"checktime":                  hostChecktime,
		"host_consume_gas":           hostConsumeGas,
	})

	return imports
}

func truncate(b []byte, max int32) []byte {
	if max >= 0 && int(max) < len(b) {
		return b[:max]
	}
	return b
}
