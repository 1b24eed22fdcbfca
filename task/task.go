// Package task implements the task lifecycle and state machine (spec
// §4.10): task states, activation/termination semantics, and the
// priority-inheritance swap used by resource acquisition. Per spec §5,
// every task is owned by a single CPU and mutated only from that CPU, so
// the state field needs no lock — the lock-free CAS state machine is
// adapted here from the teacher's FastState purely to get a cheap,
// debug-friendly "only the expected transitions are legal" guard, not for
// its original cross-goroutine purpose.
package task

import (
	"sync/atomic"

	"github.com/icinar-hv/hvcore/hv"
	"github.com/icinar-hv/hvcore/list"
)

// State is a task's position in the lifecycle state machine (spec §4.10).
type State uint32

const (
	Suspended State = iota
	Ready
	Running
	WaitEv
	WaitWq
	WaitSend
	WaitRecv
	WaitAct
)

func (s State) String() string {
	switch s {
	case Suspended:
		return "SUSPENDED"
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case WaitEv:
		return "WAIT_EV"
	case WaitWq:
		return "WAIT_WQ"
	case WaitSend:
		return "WAIT_SEND"
	case WaitRecv:
		return "WAIT_RECV"
	case WaitAct:
		return "WAIT_ACT"
	default:
		return "UNKNOWN"
	}
}

// fastState is a lock-free CAS-guarded state cell, cache-line padded so
// per-task state transitions on one core never false-share with a
// neighboring task's cell in the same fixed table.
type fastState struct {
	_ [64]byte
	v atomic.Uint32
	_ [60]byte
}

func (s *fastState) load() State                { return State(s.v.Load()) }
func (s *fastState) store(v State)              { s.v.Store(uint32(v)) }
func (s *fastState) tryTransition(from, to State) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}

// Config is the immutable, offline-toolchain-produced per-task
// configuration (spec §9: no runtime allocation — this is read-only).
type Config struct {
	ID             hv.TaskID
	Partition      hv.PartitionID
	CPU            hv.CPUID
	BasePrio       int
	MaxActivations int
	Capacity       uint64 // deadline budget, nanoseconds
	Period         uint64 // AUTOSAR-style periodic re-activation interval, 0 if aperiodic
	EntryPoint     uintptr
	StackTop       uintptr
	Arg0           uint64
	IsISR          bool
	IsHook         bool
	IRQID          uint32
	RPCChannel     hv.RPCID // hv.NoRPC if this HOOK owns no RPC channel

	// MayBlock permits the task to wait on/set events on itself (spec §4.7).
	MayBlock bool
	// ElevateAtStart and ElevPrio implement the spec's resolved Open
	// Question: every fresh activation re-elevates to ElevPrio when set,
	// not just the first one.
	ElevateAtStart bool
	ElevPrio       int
	// UnmaskIRQAtStart requests the task's associated IRQ be unmasked when
	// its owning partition starts (ISR tasks only).
	UnmaskIRQAtStart bool
}

// Task is one task control block: its immutable Config plus the mutable
// runtime fields the state machine operates on.
type Task struct {
	list.Node // linkage into whichever queue currently owns this task

	Cfg Config

	state fastState

	PendingActivations int
	EffectivePrio      int
	ElevatedPrio       int // set by resource acquisition; 0 means "no elevation"
	DeadlineAt         uint64

	// Register-frame fields relevant to wait primitives; the full frame is
	// an architecture concern, these are the subset the core itself reads
	// and writes on wake.
	WaitMask, WaitClearMask uint64
	ReplyID                 hv.TaskID
	OUT1                    uint64
}

// New constructs a Task in SUSPENDED state from cfg.
func New(cfg Config) *Task {
	t := &Task{Cfg: cfg, EffectivePrio: cfg.BasePrio}
	t.state.store(Suspended)
	return t
}

// State returns the task's current lifecycle state.
func (t *Task) State() State { return t.state.load() }

// Activate implements spec §4.10's activate(t): rejects with LIMIT if
// activations are exhausted; otherwise increments pending_activations and,
// if the task was SUSPENDED, resets its register frame/priority/deadline
// and reports that it is now ready to be placed on the ready queue (the
// caller, the scheduler, does the enqueue since it owns the ready queue).
func (t *Task) Activate(now uint64) (becameReady bool, status hv.Status) {
	if t.PendingActivations >= t.Cfg.MaxActivations {
		return false, hv.StatusLimit
	}
	t.PendingActivations++

	if t.state.tryTransition(Suspended, Ready) {
		t.EffectivePrio = t.Cfg.BasePrio
		t.ElevatedPrio = 0
		if t.Cfg.ElevateAtStart {
			// Every fresh activation re-elevates, per the spec's resolved
			// Open Question on the "elevate priority" flag.
			t.ElevatePriority(t.Cfg.ElevPrio)
		}
		t.DeadlineAt = now + t.Cfg.Capacity
		return true, hv.OK
	}
	return false, hv.OK
}

// Schedule transitions a READY task to RUNNING; called by the scheduler
// when it picks this task to run next.
func (t *Task) Schedule() bool {
	return t.state.tryTransition(Ready, Running)
}

// Preempt transitions a RUNNING task back to READY.
func (t *Task) Preempt() bool {
	return t.state.tryTransition(Running, Ready)
}

// TerminateResult reports what TerminateSelf caused the owning partition
// to additionally do, since those effects (unmask an ISR's interrupt,
// drain an RPC channel's sendq) are owned by other subsystems.
type TerminateResult struct {
	NextState    State
	WasISR       bool
	WasHookDrain bool
}

// TerminateSelf implements spec §4.10's terminate_self(t): decrements
// pending_activations; if activations remain, the task re-enters
// (transitions back to READY in place) rather than suspending.
func (t *Task) TerminateSelf() TerminateResult {
	if t.PendingActivations > 0 {
		t.PendingActivations--
	}
	if t.PendingActivations > 0 {
		t.state.store(Ready)
		return TerminateResult{NextState: Ready, WasISR: t.Cfg.IsISR, WasHookDrain: t.Cfg.IsHook}
	}
	t.state.store(Suspended)
	return TerminateResult{NextState: Suspended, WasISR: t.Cfg.IsISR, WasHookDrain: t.Cfg.IsHook}
}

// WaitEvent, WaitOnWQ, WaitRPCSend, WaitRPCRecv transition a RUNNING task
// into the corresponding suspension state, per spec §4.10/§5 ("the kernel
// ... suspends explicitly on ev_wait, wq_wait, ..., rpc_call").
func (t *Task) WaitEvent(mask, clearMask uint64) bool {
	if !t.state.tryTransition(Running, WaitEv) {
		return false
	}
	t.WaitMask, t.WaitClearMask = mask, clearMask
	return true
}

func (t *Task) WaitOnWQ() bool { return t.state.tryTransition(Running, WaitWq) }

func (t *Task) WaitRPCSend() bool { return t.state.tryTransition(Running, WaitSend) }

func (t *Task) WaitRPCRecv() bool { return t.state.tryTransition(Running, WaitRecv) }

// WaitDelayedStart transitions any non-terminal state to WAIT_ACT, the
// "activation is pending a future time" state any task may enter (spec
// §4.10's "any non-terminal --delayed_start--> WAIT_ACT").
func (t *Task) WaitDelayedStart() { t.state.store(WaitAct) }

// Wake transitions any WAIT_* state to READY; used uniformly by event
// delivery, wait-queue wake, timeout, and RPC reply (spec §4.10:
// "WAIT_* --event/wake/timeout/reply--> READY").
func (t *Task) Wake() {
	switch t.state.load() {
	case WaitEv, WaitWq, WaitSend, WaitRecv, WaitAct:
		t.state.store(Ready)
	}
}

// ActivationTimeReached transitions WAIT_ACT to READY.
func (t *Task) ActivationTimeReached() bool {
	return t.state.tryTransition(WaitAct, Ready)
}

// ElevatePriority implements the priority-inheritance swap (spec §4.10):
// task_prio becomes elev_prio on resource acquisition.
func (t *Task) ElevatePriority(elev int) {
	t.ElevatedPrio = elev
	if elev > t.EffectivePrio {
		t.EffectivePrio = elev
	}
}

// RestorePriority reverts to the task's base/activation priority on
// resource release.
func (t *Task) RestorePriority() {
	t.ElevatedPrio = 0
	t.EffectivePrio = t.Cfg.BasePrio
}
