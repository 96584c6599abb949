package program

import "errors"

// ErrComputeExhausted aborts an invocation that spent its compute budget.
var ErrComputeExhausted = errors.New("program: compute budget exhausted")

// Meter charges compute units against a fixed per-invocation budget.
//
// A Meter belongs to exactly one invocation and is not safe for concurrent
// use; invocations are sequential units of work.
type Meter struct {
	budget uint64
	used   uint64
}

// NewMeter returns a meter with the given budget. A zero budget means
// unmetered.
func NewMeter(budget uint64) *Meter {
	return &Meter{budget: budget}
}

// Consume charges units. Once the budget is exceeded the meter stays
// exhausted; the overdrawing charge is recorded capped at the budget.
func (m *Meter) Consume(units uint64) error {
	if m.budget == 0 {
		m.used += units
		return nil
	}
	if m.used+units > m.budget {
		m.used = m.budget
		return ErrComputeExhausted
	}
	m.used += units
	return nil
}

// Used returns the units consumed so far.
func (m *Meter) Used() uint64 { return m.used }

// Remaining returns the unspent budget (0 when unmetered or exhausted).
func (m *Meter) Remaining() uint64 {
	if m.budget == 0 || m.used >= m.budget {
		return 0
	}
	return m.budget - m.used
}
