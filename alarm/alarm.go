// Package alarm implements the alarm engine (spec §4.4): per-counter,
// expiry-ordered queues of alarms whose expiry runs one of a fixed set of
// actions (event, task activation, hook, in-kernel callback, counter
// chaining, or schedule-table advance).
package alarm

import (
	"unsafe"

	"github.com/icinar-hv/hvcore/counter"
	"github.com/icinar-hv/hvcore/hv"
	"github.com/icinar-hv/hvcore/list"
)

// Action identifies what an alarm does on expiry (spec §4.4).
type Action int

const (
	ActionEvent Action = iota
	ActionTask
	ActionHook
	ActionInvoke
	ActionCounter
	ActionSchedTab
)

// Alarm is one entry in a counter's expiry-ordered queue. It embeds
// list.Node so it lives directly in the engine's intrusive list with no
// separate allocation.
type Alarm struct {
	list.Node

	ID     hv.AlarmID
	Action Action

	// Expiry is the absolute counter value (mod ctr.Max()+1) at which this
	// alarm fires.
	Expiry uint64
	// Cycle is the periodic re-arm interval; 0 means one-shot.
	Cycle uint64

	// Action-specific payload; only the field matching Action is read.
	EventTask   hv.TaskID
	EventMask   uint64
	ActivateTask hv.TaskID
	Invoke      func()
	ChainCounter *counter.Counter
	SchedTable  hv.ScheduleTableID
}

// Dispatcher executes an expired alarm's action. Implementations live in
// the packages that own the affected state (task activation, event
// delivery, schedule-table advance); the alarm engine itself holds no
// knowledge of those subsystems beyond this interface, per the spec's
// description of each action kind.
type Dispatcher interface {
	AlarmEvent(task hv.TaskID, mask uint64)
	AlarmActivateTask(task hv.TaskID)
	AlarmActivateHook(task hv.TaskID)
	AlarmInvoke(fn func())
	AlarmIncrementCounter(ctr *counter.Counter)
	AlarmAdvanceScheduleTable(id hv.ScheduleTableID)
}

// Engine is the expiry-ordered alarm queue driven by a single counter.
type Engine struct {
	head    list.Head
	ctr     *counter.Counter
	disp    Dispatcher
	sweeping bool // reentrancy guard: forbids a COUNTER action from re-entering this counter's sweep
}

// NewEngine constructs an Engine bound to ctr and registers itself as the
// counter's sweep callback.
func NewEngine(ctr *counter.Counter, disp Dispatcher) *Engine {
	e := &Engine{ctr: ctr, disp: disp}
	e.head.Init()
	ctr.SetSweep(e.sweep)
	return e
}

// alarmFromNode recovers the *Alarm embedding n. Valid because Node is
// Alarm's first field, the pattern used throughout the intrusive-list
// callers (task, wq, rpc, ...).
func alarmFromNode(n *list.Node) *Alarm {
	return (*Alarm)(unsafe.Pointer(n))
}

// Active reports whether a is currently queued on some counter's expiry
// list, used by the syscall layer to make alarm_cancel idempotent (spec
// §8 property 8: cancelling an idle alarm is a NOFUNC no-op).
func (a *Alarm) Active() bool { return list.InList(&a.Node) }

// head0 returns the current head alarm, or nil if the queue is empty.
func (e *Engine) head0() *Alarm {
	n := list.First(&e.head)
	if n == nil {
		return nil
	}
	return alarmFromNode(n)
}

// Insert adds a into the engine's expiry-ordered queue, sorted by modular
// distance from the counter's current value at insertion time (spec §4.4:
// "insertion walks until an alarm with a further distance is found").
func (e *Engine) Insert(a *Alarm) {
	base := e.ctr.Query()
	max := e.ctr.Max()
	less := func(x, y *list.Node) bool {
		ax := alarmFromNode(x)
		ay := alarmFromNode(y)
		return counter.Distance(base, ax.Expiry, max) < counter.Distance(base, ay.Expiry, max)
	}
	list.InsertSorted(&e.head, &a.Node, less)
	e.notifyHeadChanged()
}

// Cancel removes a from the engine's queue if present.
func (e *Engine) Cancel(a *Alarm) {
	if !list.InList(&a.Node) {
		return
	}
	list.Remove(&a.Node)
	e.notifyHeadChanged()
}

func (e *Engine) notifyHeadChanged() {
	if h := e.head0(); h != nil {
		e.ctr.Change(h.Expiry)
	} else {
		e.ctr.Change(0)
	}
}

// sweep is the counter.SweepFunc installed on ctr; it expires every alarm
// whose distance from currentBefore is less than n, then re-inserts
// periodic ones at (expiry+cycle) mod (max+1), all in one monotone pass
// (spec §4.4: re-insertion happens after the full sweep).
func (e *Engine) sweep(currentBefore, n uint64) {
	if e.sweeping {
		// A COUNTER action chained back into the counter it came from;
		// the spec forbids this cycle and requires offline tooling to
		// prevent it. Defend against it here rather than recursing.
		return
	}
	e.sweeping = true
	defer func() { e.sweeping = false }()

	max := e.ctr.Max()
	var expired []*Alarm
	for {
		h := e.head0()
		if h == nil || counter.Distance(currentBefore, h.Expiry, max) >= n {
			break
		}
		list.Remove(&h.Node)
		expired = append(expired, h)
	}

	for _, a := range expired {
		e.dispatch(a)
	}
	for _, a := range expired {
		if a.Cycle > 0 {
			a.Expiry = (a.Expiry + a.Cycle) % (max + 1)
			e.Insert(a)
		}
	}
	e.notifyHeadChanged()
}

func (e *Engine) dispatch(a *Alarm) {
	if e.disp == nil {
		return
	}
	switch a.Action {
	case ActionEvent:
		e.disp.AlarmEvent(a.EventTask, a.EventMask)
	case ActionTask:
		e.disp.AlarmActivateTask(a.ActivateTask)
	case ActionHook:
		e.disp.AlarmActivateHook(a.ActivateTask)
	case ActionInvoke:
		e.disp.AlarmInvoke(a.Invoke)
	case ActionCounter:
		e.disp.AlarmIncrementCounter(a.ChainCounter)
	case ActionSchedTab:
		e.disp.AlarmAdvanceScheduleTable(a.SchedTable)
	}
}
