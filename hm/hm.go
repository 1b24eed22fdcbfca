// Package hm implements the health monitor (spec §4.13): the synchronous
// exception entry point, the asynchronous task-error entry point, and the
// per-error-code action table (IGNORE, PART_RESTART, PART_SHUTDOWN,
// MODULE_RESTART, MODULE_SHUTDOWN, PANIC) that decides what each does.
package hm

import (
	"github.com/icinar-hv/hvcore/board"
	"github.com/icinar-hv/hvcore/hv"
)

// Action is what the active HM table says to do for one error code.
type Action int

const (
	Ignore Action = iota
	PartRestart
	PartShutdown
	ModuleRestart
	ModuleShutdown
	Panic
)

// Table maps HM error ids to an Action; indexable, replaceable by
// privileged partitions (spec §4.13).
type Table map[hv.HMErrorID]Action

// Exception is the synchronous-exception payload (mirrors board.HMException
// plus the task it occurred on).
type Exception struct {
	Task      hv.TaskID
	Partition hv.PartitionID
	Regs      []uint64
	Fatal     bool
	ErrorID   hv.HMErrorID
	Vector    uint32
	FaultAddr uintptr
	Aux       uint64
}

// Hooks performs the effects an HM decision requires, owned by the
// partition/task/board layers.
type Hooks interface {
	// HasExceptionHook reports whether p defines an exception hook task.
	HasExceptionHook(p hv.PartitionID) bool
	// RecordExceptionState writes (task, errorID, faultAddr) into p's
	// user-space exception-state block.
	RecordExceptionState(p hv.PartitionID, task hv.TaskID, errorID hv.HMErrorID, faultAddr uintptr)
	// ClearFaultingTaskState clears task's state after an exception is
	// claimed by its partition's exception hook.
	ClearFaultingTaskState(task hv.TaskID)
	// ActivateExceptionHook activates p's exception hook task.
	ActivateExceptionHook(p hv.PartitionID)
	// ResumeTask resumes task after an IGNORE action.
	ResumeTask(task hv.TaskID)
	// QueuePartitionMode queues a mode change for p (PART_RESTART/PART_SHUTDOWN).
	QueuePartitionMode(p hv.PartitionID, restart bool)
	// AppendErrorRecord appends a record to p's user-space error ring,
	// used by the asynchronous task-error path.
	AppendErrorRecord(p hv.PartitionID, errorID hv.HMErrorID)
	// HasErrorHook reports whether p defines an error hook task.
	HasErrorHook(p hv.PartitionID) bool
	// ActivateErrorHook activates p's error hook task.
	ActivateErrorHook(p hv.PartitionID)
}

// Monitor dispatches exceptions and asynchronous task errors through the
// active Table, driving Hooks and board.Board for the resulting effects.
type Monitor struct {
	table Table
	hooks Hooks
	bd    board.Board
}

// New constructs a Monitor with the given initial table.
func New(table Table, hooks Hooks, bd board.Board) *Monitor {
	return &Monitor{table: table, hooks: hooks, bd: bd}
}

// SetTable replaces the active HM table; callable by privileged
// partitions per spec §4.13.
func (m *Monitor) SetTable(table Table) { m.table = table }

// HandleException implements the synchronous-exception entry point (spec
// §4.13). It returns true on every path: the exception is claimed by the
// board, taken by the partition's exception hook, or resolved through the
// active HM table.
func (m *Monitor) HandleException(e Exception) (handled bool) {
	if m.bd != nil {
		be := board.HMException{Regs: e.Regs, Fatal: e.Fatal, ErrorID: e.ErrorID, Vector: e.Vector, FaultAddr: e.FaultAddr, Aux: e.Aux}
		if m.bd.HMException(be) {
			return true
		}
	}

	if !e.Fatal && m.hooks.HasExceptionHook(e.Partition) {
		m.hooks.RecordExceptionState(e.Partition, e.Task, e.ErrorID, e.FaultAddr)
		m.hooks.ClearFaultingTaskState(e.Task)
		m.hooks.ActivateExceptionHook(e.Partition)
		return true
	}

	m.dispatch(e.Partition, e.Task, e.ErrorID)
	return true
}

// HandleAsyncError implements the asynchronous task-error entry point
// (spec §4.13): appends an error record and, if configured, activates the
// partition's error hook. It does not consult the HM action table — that
// table governs synchronous exceptions only.
func (m *Monitor) HandleAsyncError(p hv.PartitionID, errorID hv.HMErrorID) {
	m.hooks.AppendErrorRecord(p, errorID)
	if m.hooks.HasErrorHook(p) {
		m.hooks.ActivateErrorHook(p)
	}
}

func (m *Monitor) dispatch(p hv.PartitionID, task hv.TaskID, errorID hv.HMErrorID) {
	action := m.table[errorID] // zero value Ignore if unconfigured
	switch action {
	case Ignore:
		m.hooks.ResumeTask(task)
	case PartRestart:
		m.hooks.QueuePartitionMode(p, true)
	case PartShutdown:
		m.hooks.QueuePartitionMode(p, false)
	case ModuleRestart:
		if m.bd != nil {
			m.bd.Halt(hv.HaltModeHMReset)
		}
	case ModuleShutdown:
		if m.bd != nil {
			m.bd.Halt(hv.HaltModeHMShutdown)
		}
	case Panic:
		if m.bd != nil {
			m.bd.Halt(hv.HaltModeHMAssert)
		}
	}
}
