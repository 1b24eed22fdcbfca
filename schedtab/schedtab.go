// Package schedtab implements the schedule-table engine (spec §4.5): a
// sequence of opcodes (advance to an expiry point, optionally adjust for
// synchronization, wrap or chain to another table) driven by alarm
// expiries on a single counter.
package schedtab

import "github.com/icinar-hv/hvcore/hv"

// State is the schedule table's life-cycle state.
type State int

const (
	Stopped State = iota
	Next           // armed, waiting for its first expiry point
	Waiting        // armed with explicit sync, waiting for the sync value
	RunningSync
	RunningAsync
)

// SyncStrategy selects how (or whether) a table corrects drift against an
// externally supplied synchronization value (spec §4.5).
type SyncStrategy int

const (
	SyncImplicit SyncStrategy = iota // deviation is always zero by construction
	SyncExplicit                     // SHORTEN/LENGTHEN bounded adjustment toward zero deviation
	SyncNone                         // sync() is not a valid call
)

// OpKind identifies one schedule-table opcode.
type OpKind int

const (
	OpWait OpKind = iota // suspend opcode processing until this expiry point
	OpAction
	OpShorten
	OpLengthen
	OpWrap
)

// Op is one entry in a table's opcode sequence.
type Op struct {
	Kind OpKind
	// Delta is the tick distance from the previous WAIT point to this one;
	// meaningful only for OpWait.
	Delta uint64
	// Bound is the maximum adjustment magnitude for OpShorten/OpLengthen.
	Bound uint64
	// Action, for OpAction, is run synchronously when this opcode executes.
	Action func()
	// NextIndex, for OpWrap, is the opcode index execution resumes at.
	NextIndex int
}

// Table is one configured schedule table: its opcode sequence plus the
// mutable engine state advanced by alarm expiries.
type Table struct {
	ID       hv.ScheduleTableID
	Ops      []Op
	SyncMode SyncStrategy
	MaxDev   uint64 // precision bound beyond which RUNNING_SYNC<->RUNNING_ASYNC transitions occur

	state      State
	index      int
	deviation  int64 // signed ticks; explicit-sync drift, zero under implicit
	pending    int64 // correction accumulated by SHORTEN/LENGTHEN, applied at the next WAIT
	syncOffset uint64
	chained    *Table // armed next table, if any, to transition into at WRAP

	// Expire re-arms the driving alarm engine at the given delta-from-now;
	// bound in from the owning kernel wiring.
	Expire func(deltaTicks uint64)
}

// State reports the table's current life-cycle state.
func (t *Table) State() State { return t.state }

// StartAbsolute arms the table against an absolute drive-counter value
// (spec §4.5): it records the sync offset, enters RunningAsync (implicit or
// no sync) or Waiting (explicit sync), and enqueues the first WAIT expiry.
func (t *Table) StartAbsolute(currentDriveValue, startOffset, modulus uint64) {
	t.syncOffset = (currentDriveValue - startOffset + modulus) % modulus
	t.index = 0
	if t.SyncMode == SyncNone || t.SyncMode == SyncImplicit {
		t.state = RunningAsync
	} else {
		t.state = Waiting
	}
	t.armNextWait()
}

// StartRelative arms the table starting delay ticks from now.
func (t *Table) StartRelative(delay uint64) {
	t.syncOffset = 0
	t.index = 0
	t.state = Next
	if t.Expire != nil {
		t.Expire(delay)
	}
}

// Stop transitions to Stopped and drops any chained table. It does not
// remove the driving alarm from its counter's queue: an already-armed
// expiry still fires, and Advance then returns without running an opcode
// because the table is Stopped.
func (t *Table) Stop() {
	t.state = Stopped
	t.chained = nil
}

// SetSyncValue supplies a synchronization value for explicit-sync tables,
// updating deviation toward zero over subsequent expiry points.
func (t *Table) SetSyncValue(v uint64) hv.Status {
	if t.SyncMode == SyncNone {
		return hv.StatusNoFunc
	}
	t.deviation = int64(v) - int64(t.index)
	return hv.OK
}

// ChainNext arms next to take over at this table's next WRAP point.
func (t *Table) ChainNext(next *Table) { t.chained = next }

// Advance runs opcodes starting at the current index until it hits a WAIT
// (re-arming the driving alarm at WAIT's delta, adjusted by any pending
// SHORTEN/LENGTHEN while under explicit sync) or a WRAP (which either
// loops to NextIndex or hands off to a chained table), per spec §4.5.
func (t *Table) Advance() {
	if t.state == Stopped {
		return
	}
	for t.index < len(t.Ops) {
		op := t.Ops[t.index]
		switch op.Kind {
		case OpWait:
			delta := t.applyPending(op.Delta)
			t.index++
			if t.Expire != nil {
				t.Expire(delta)
			}
			return
		case OpAction:
			if op.Action != nil {
				op.Action()
			}
			t.index++
		case OpShorten:
			if t.SyncMode == SyncExplicit && t.deviation > 0 {
				t.pending += t.clampToDeviation(op.Bound)
			}
			t.index++
		case OpLengthen:
			if t.SyncMode == SyncExplicit && t.deviation < 0 {
				t.pending += t.clampToDeviation(op.Bound)
			}
			t.index++
		case OpWrap:
			if t.chained != nil {
				next := t.chained
				t.chained = nil
				t.state = Stopped
				next.index = op.NextIndex
				next.state = RunningAsync
				next.Advance()
				return
			}
			t.index = op.NextIndex
		}
	}
}

// clampToDeviation draws a correction of at most bound ticks from
// t.deviation (same sign), leaving the remainder in t.deviation for a
// later opcode to keep working toward (spec §4.5: "bounded by each
// opcode's maximum").
func (t *Table) clampToDeviation(bound uint64) int64 {
	mag := t.deviation
	neg := mag < 0
	if neg {
		mag = -mag
	}
	if mag > int64(bound) {
		mag = int64(bound)
	}
	if neg {
		mag = -mag
	}
	t.deviation -= mag
	return mag
}

// applyPending folds the correction accumulated by SHORTEN/LENGTHEN since
// the last WAIT into delta, and flips RunningSync/RunningAsync based on
// whether the remaining deviation still exceeds MaxDev.
func (t *Table) applyPending(delta uint64) uint64 {
	adj := t.pending
	t.pending = 0

	if t.SyncMode == SyncExplicit {
		if t.deviation > int64(t.MaxDev) || t.deviation < -int64(t.MaxDev) {
			t.state = RunningAsync
		} else {
			t.state = RunningSync
		}
	}

	switch {
	case adj == 0:
		return delta
	case adj > 0:
		if uint64(adj) >= delta {
			return 0
		}
		return delta - uint64(adj)
	default:
		return delta + uint64(-adj)
	}
}

func (t *Table) armNextWait() {
	for i, op := range t.Ops {
		if op.Kind == OpWait {
			t.index = i + 1
			if t.Expire != nil {
				t.Expire(op.Delta)
			}
			return
		}
	}
}
