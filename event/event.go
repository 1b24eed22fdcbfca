// Package event implements the event primitive (spec §4.7): a per-task
// pending-event bitmask, set/wait/clear semantics, and inter-partition
// event forwarding (the SUPPLEMENTED FEATURES IPEV extension).
package event

import "github.com/icinar-hv/hvcore/hv"

// TaskState is the subset of task state this package needs to read/write
// to decide whether setting a bit should wake a waiter; it is the minimal
// slice of the task package's state machine this package depends on.
type TaskState interface {
	// WaitMask returns the task's saved event-wait mask if it is currently
	// blocked in WAIT_EV, and ok=false otherwise.
	WaitMask(task hv.TaskID) (mask uint64, clearMask uint64, ok bool)
	// WakeFromEventWait delivers (snapshot, clearedMask, OK) into task's
	// register frame and transitions it out of WAIT_EV.
	WakeFromEventWait(task hv.TaskID, snapshot, clearedMask uint64)
	// MayBlock reports whether task is permitted to wait on/set events on
	// itself (spec §4.7's access-control note).
	MayBlock(task hv.TaskID) bool
}

// Table tracks ev_pending for every task, and drives wake-ups through a
// TaskState implementation supplied by the task/scheduler layer.
type Table struct {
	tasks   TaskState
	pending map[hv.TaskID]uint64
}

// New constructs an event Table bound to tasks.
func New(tasks TaskState) *Table {
	return &Table{tasks: tasks, pending: make(map[hv.TaskID]uint64)}
}

// Set ORs mask into task's ev_pending (spec §4.7). If task is currently
// WAIT_EV and its wait mask intersects mask, the intersecting bits are
// cleared per clearMask's request and the task is woken with the snapshot
// of ev_pending as of the set.
func (t *Table) Set(task hv.TaskID, mask uint64) hv.Status {
	if !t.tasks.MayBlock(task) {
		return hv.StatusAccess
	}
	t.pending[task] |= mask

	waitMask, clearMask, waiting := t.tasks.WaitMask(task)
	if !waiting || waitMask&mask == 0 {
		return hv.OK
	}

	snapshot := t.pending[task]
	cleared := snapshot & clearMask
	t.pending[task] &^= cleared
	t.tasks.WakeFromEventWait(task, snapshot, cleared)
	return hv.OK
}

// Wait reports whether mask is already satisfied by task's current
// ev_pending; if so it clears the intersection per clearMask and returns
// (snapshot, true). If not satisfied, the caller (the scheduler) is
// responsible for transitioning task into WAIT_EV with (mask, clearMask)
// saved in its register frame, per spec §4.7.
func (t *Table) Wait(task hv.TaskID, mask, clearMask uint64) (snapshot uint64, satisfied bool, status hv.Status) {
	if !t.tasks.MayBlock(task) {
		return 0, false, hv.StatusAccess
	}
	cur := t.pending[task]
	if cur&mask == 0 {
		return 0, false, hv.OK
	}
	cleared := cur & clearMask
	t.pending[task] &^= cleared
	return cur, true, hv.OK
}

// Pending returns task's raw ev_pending mask, mainly for diagnostics/tests.
func (t *Table) Pending(task hv.TaskID) uint64 { return t.pending[task] }

// Reset clears task's ev_pending, e.g. on task termination/restart.
func (t *Table) Reset(task hv.TaskID) { delete(t.pending, task) }
