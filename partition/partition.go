// Package partition implements the partition manager (spec §4.12):
// queued (not immediate) operating-mode transitions applied at the next
// scheduler entry, and the cold/warm-start bookkeeping that decides which
// restart path a partition takes.
package partition

import "github.com/icinar-hv/hvcore/hv"

// Mode is a partition's operating mode (spec §4.12).
type Mode int

const (
	Idle Mode = iota
	ColdStart
	WarmStart
	Normal
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "IDLE"
	case ColdStart:
		return "COLD_START"
	case WarmStart:
		return "WARM_START"
	case Normal:
		return "NORMAL"
	default:
		return "UNKNOWN"
	}
}

// StartCondition records the cause of the most recent entry to
// COLD_START/WARM_START (spec §4.12).
type StartCondition int

const (
	NormalBoot StartCondition = iota
	UserRestart
	HMModuleRestart
	HMPartitionRestart
)

// Hooks performs the side effects a mode transition requires, owned by
// the subsystems that hold the affected state (task/alarm/schedtab/wq/rpc
// packages); the partition package itself holds no task/alarm/etc state.
type Hooks interface {
	// TerminateAllTasks forcibly suspends every task in the partition.
	TerminateAllTasks(p hv.PartitionID)
	// ClearAlarmsAndScheduleTables cancels every alarm and schedule table
	// owned by the partition.
	ClearAlarmsAndScheduleTables(p hv.PartitionID)
	// CloseWaitQueues aborts every wait queue owned by the partition,
	// releasing waiters with a STATE error.
	CloseWaitQueues(p hv.PartitionID)
	// ClearRPCQueues aborts every RPC channel owned by the partition.
	ClearRPCQueues(p hv.PartitionID)
	// ReinitFromConfig reloads the partition's runtime tables from the
	// immutable configuration image.
	ReinitFromConfig(p hv.PartitionID)
	// ActivateInitHook activates the partition's configured init hook task.
	ActivateInitHook(p hv.PartitionID)
	// ReleaseForScheduling allows the partition's tasks to be regularly
	// scheduled (COLD/WARM_START -> NORMAL).
	ReleaseForScheduling(p hv.PartitionID)
}

// Partition tracks one partition's operating mode, queued mode-change
// request, and restart history.
type Partition struct {
	ID    hv.PartitionID
	hooks Hooks

	mode           Mode
	pendingMode    Mode
	hasPending     bool
	everReachedNormal bool
	startCondition StartCondition
}

// New constructs a Partition in IDLE.
func New(id hv.PartitionID, hooks Hooks) *Partition {
	return &Partition{ID: id, hooks: hooks, mode: Idle}
}

// Mode returns the partition's currently applied operating mode.
func (p *Partition) Mode() Mode { return p.mode }

// StartCondition returns the cause of the most recent COLD/WARM_START entry.
func (p *Partition) StartCondition() StartCondition { return p.startCondition }

// RequestMode queues a transition to target, applied at the next
// ApplyPending call (the scheduler's next entry), per spec §4.12. cause
// is recorded as the start condition if target is a *_START mode.
func (p *Partition) RequestMode(target Mode, cause StartCondition) hv.Status {
	if !legalTransition(p.mode, target, p.everReachedNormal) {
		return hv.StatusState
	}
	p.pendingMode = target
	p.hasPending = true
	if target == ColdStart || target == WarmStart {
		p.startCondition = cause
	}
	return hv.OK
}

func legalTransition(from, to Mode, warmStartable bool) bool {
	switch {
	case from == Idle && to == ColdStart:
		return true
	case (from == ColdStart || from == WarmStart) && to == Normal:
		return true
	case from == Normal && to == Idle:
		return true
	case (from == ColdStart || from == WarmStart) && to == Idle:
		return true
	case from == Normal && to == WarmStart && warmStartable:
		return true
	case from == Idle && to == WarmStart && warmStartable:
		return true
	default:
		return false
	}
}

// ApplyPending applies the queued mode change, if any, running the
// side-effecting Hooks calls spec §4.12 requires for that transition.
// Called by the scheduler at its next entry point, never synchronously
// from the requesting syscall.
func (p *Partition) ApplyPending() {
	if !p.hasPending {
		return
	}
	p.hasPending = false
	target := p.pendingMode

	switch target {
	case ColdStart:
		p.hooks.TerminateAllTasks(p.ID)
		p.hooks.ClearAlarmsAndScheduleTables(p.ID)
		p.hooks.CloseWaitQueues(p.ID)
		p.hooks.ClearRPCQueues(p.ID)
		p.hooks.ReinitFromConfig(p.ID)
		p.hooks.ActivateInitHook(p.ID)
	case WarmStart:
		p.hooks.ActivateInitHook(p.ID)
	case Normal:
		p.hooks.ReleaseForScheduling(p.ID)
		p.everReachedNormal = true
	case Idle:
		p.hooks.TerminateAllTasks(p.ID)
		p.hooks.ClearAlarmsAndScheduleTables(p.ID)
		p.hooks.CloseWaitQueues(p.ID)
		p.hooks.ClearRPCQueues(p.ID)
	}
	p.mode = target
}
