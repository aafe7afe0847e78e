package core

import (
	"github.com/prometheus/client_golang/prometheus"
)

// baseRowFee is the flat per-row billing charge applied to every store,
// update, or remove, independent of row size. It mirrors the EOS
// base_row_fee constant and exists so that tiny rows still carry a
// meaningful RAM cost.
const baseRowFee = 200

var (
	rowUsageBytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "statedb",
		Subsystem: "billing",
		Name:      "row_usage_bytes_total",
		Help:      "Signed bytes charged or refunded to a payer's RAM usage, by table code.",
	}, []string{"code"})

	hostCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "statedb",
		Subsystem: "billing",
		Name:      "host_calls_total",
		Help:      "Guest ABI host calls observed by checktime, by call name.",
	}, []string{"call"})

	cpuBudgetExceeded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "statedb",
		Subsystem: "billing",
		Name:      "cpu_budget_exceeded_total",
		Help:      "Actions aborted because they exceeded their checktime instruction budget.",
	})
)

func init() {
	prometheus.MustRegister(rowUsageBytes, hostCallsTotal, cpuBudgetExceeded)
}

// UsageLedger accumulates per-payer RAM usage deltas for one action. It never
// reads from storage and never itself decides whether a payer can afford the
// charge; it only tallies, so that metering stays a pure, deterministic
// function of the calls the action made.
type UsageLedger struct {
	deltas map[Address]int64
}

// NewUsageLedger returns an empty usage ledger.
func NewUsageLedger() *UsageLedger {
	return &UsageLedger{deltas: make(map[Address]int64)}
}

// Charge adds rowBytes+baseRowFee to payer's usage. Removals and the old
// size of an updated row go through Refund instead.
func (u *UsageLedger) Charge(payer Address, rowBytes int64, code string) {
	delta := rowBytes + baseRowFee
	u.deltas[payer] += delta
	rowUsageBytes.WithLabelValues(code).Add(float64(delta))
}

// Refund subtracts baseRowFee+rowBytes from payer's usage, used when a row is
// removed or shrunk.
func (u *UsageLedger) Refund(payer Address, rowBytes int64, code string) {
	delta := rowBytes + baseRowFee
	u.deltas[payer] -= delta
	rowUsageBytes.WithLabelValues(code).Sub(float64(delta))
}

// Delta returns the net usage delta accumulated for payer so far.
func (u *UsageLedger) Delta(payer Address) int64 { return u.deltas[payer] }

// Totals returns a copy of every payer's accumulated delta, for the action
// result accumulator to attach to its receipt.
func (u *UsageLedger) Totals() map[Address]int64 {
	out := make(map[Address]int64, len(u.deltas))
	for k, v := range u.deltas {
		out[k] = v
	}
	return out
}

// CPUMeter enforces a per-action ceiling on guest ABI host calls, the
// checktime mechanism. It is intentionally simple: a counter and a budget,
// so the same budget always yields the same verdict independent of wall
// clock time, host load, or call order.
type CPUMeter struct {
	budget   int
	consumed int
}

// NewCPUMeter returns a meter that allows up to budget host calls.
func NewCPUMeter(budget int) *CPUMeter {
	return &CPUMeter{budget: budget}
}

// CheckTime records one host call named call and returns
// ErrCPUBudgetExceeded once the configured budget is exhausted.
func (m *CPUMeter) CheckTime(call string) error {
	m.consumed++
	hostCallsTotal.WithLabelValues(call).Inc()
	if m.budget > 0 && m.consumed > m.budget {
		cpuBudgetExceeded.Inc()
		return ErrCPUBudgetExceeded
	}
	return nil
}

// Consumed returns the number of host calls counted so far.
func (m *CPUMeter) Consumed() int { return m.consumed }
