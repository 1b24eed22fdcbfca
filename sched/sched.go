// Package sched implements the two-level scheduler (spec §4.11): a
// cyclic table of time-partition windows, and within the active window, a
// priority-bitmap-selected, FIFO-within-band ready queue. It also owns the
// timeout and deadline queues and the single kernel-exit reschedule path
// that drains them, switches windows, and picks the next task.
package sched

import (
	"unsafe"

	"github.com/icinar-hv/hvcore/board"
	"github.com/icinar-hv/hvcore/hv"
	"github.com/icinar-hv/hvcore/list"
	"github.com/icinar-hv/hvcore/prio"
	"github.com/icinar-hv/hvcore/task"
)

// WindowFlags are the per-window modifiers from the time-partition table
// (spec §4.11).
type WindowFlags uint32

const (
	First WindowFlags = 1 << iota
	Last
	Release
)

// Window is one entry of the cyclic time-partition schedule.
type Window struct {
	TP         hv.TimePartitionID
	Flags      WindowFlags
	DurationNS uint64
}

// ReadyQueue is the priority-bitmap-selected ready queue for one time
// partition's tasks (spec §4.2/§4.11): O(1) selection of the
// highest-priority non-empty band, FIFO within a band.
type ReadyQueue struct {
	bitmap prio.Bitmap
	bands  [prio.MaxPrio]list.Head
}

// NewReadyQueue constructs an empty ReadyQueue.
func NewReadyQueue() *ReadyQueue {
	rq := &ReadyQueue{}
	for i := range rq.bands {
		rq.bands[i].Init()
	}
	return rq
}

// Push enqueues t at the back of its effective-priority band.
func (rq *ReadyQueue) Push(t *task.Task) {
	p := t.EffectivePrio
	list.PushTail(&rq.bands[p], &t.Node)
	rq.bitmap.Set(p)
}

// Remove removes t from whichever band it is currently queued in; a no-op
// if t is not queued.
func (rq *ReadyQueue) Remove(t *task.Task) {
	if !list.InList(&t.Node) {
		return
	}
	p := t.EffectivePrio
	list.Remove(&t.Node)
	if list.First(&rq.bands[p]) == nil {
		rq.bitmap.Clear(p)
	}
}

func taskFromNode(n *list.Node) *task.Task { return (*task.Task)(unsafe.Pointer(n)) }

// PeekHighestPrio returns the priority of the highest non-empty band
// without dequeuing, or -1 if the queue is empty.
func (rq *ReadyQueue) PeekHighestPrio() int { return rq.bitmap.Highest() }

// PopHighest removes and returns the highest-priority, earliest-queued
// ready task, or nil if the queue is empty.
func (rq *ReadyQueue) PopHighest() *task.Task {
	p := rq.bitmap.Highest()
	if p < 0 {
		return nil
	}
	n := list.First(&rq.bands[p])
	t := taskFromNode(n)
	rq.Remove(t)
	return t
}

// Yield moves t to the back of its own priority band (round-robin at
// termination or explicit yield, per spec §4.11).
func (rq *ReadyQueue) Yield(t *task.Task) {
	rq.Remove(t)
	rq.Push(t)
}

// timeEntry is one node in the timeout or deadline queue, ordered by
// absolute expiry.
type timeEntry struct {
	list.Node
	task     *task.Task
	expiryNS uint64
}

func entryFromNode(n *list.Node) *timeEntry { return (*timeEntry)(unsafe.Pointer(n)) }

// TimeoutHandle and DeadlineHandle are the caller-visible names for the
// opaque entry ArmTimeout/ArmDeadline return, so other packages can hold
// and later pass back a handle without naming the unexported type.
type (
	TimeoutHandle  = timeEntry
	DeadlineHandle = timeEntry
)

func insertByExpiry(h *list.Head, e *timeEntry) {
	list.InsertSorted(h, &e.Node, func(a, b *list.Node) bool {
		return entryFromNode(a).expiryNS < entryFromNode(b).expiryNS
	})
}

// Scheduler is one CPU's two-level scheduler instance (spec §4.11). Every
// field is owned exclusively by Scheduler.CPU; cross-core requests reach
// it only via package ipi.
type Scheduler struct {
	CPU hv.CPUID

	windows []Window
	curIdx  int
	windowEndAt uint64

	ready map[hv.TimePartitionID]*ReadyQueue

	timeouts  list.Head
	deadlines list.Head

	lastReleasePoint uint64
	running          *task.Task

	board board.Board

	// OnDeadlineMiss surfaces a missed deadline as an HM error; it does
	// not itself cancel the task's current operation (spec §5).
	OnDeadlineMiss func(t *task.Task)
	// OnTimeout is invoked for each expired timeout after the task has been
	// moved from WAIT_* to READY; it delivers the TIMEOUT status and queues
	// the task (the kernel wires it to the syscalls table's timeout
	// resolution). May be nil, in which case the task is left READY but is
	// not put on a ready queue.
	OnTimeout func(t *task.Task)
}

// New constructs a Scheduler for cpu, driving windows cyclically, using b
// for time-partition-switch notification. The scheduler makes no MPU calls
// on b.
func New(cpu hv.CPUID, windows []Window, b board.Board) *Scheduler {
	s := &Scheduler{CPU: cpu, windows: windows, board: b, ready: make(map[hv.TimePartitionID]*ReadyQueue)}
	s.timeouts.Init()
	s.deadlines.Init()
	for _, w := range windows {
		if _, ok := s.ready[w.TP]; !ok {
			s.ready[w.TP] = NewReadyQueue()
		}
	}
	if len(windows) > 0 {
		s.windowEndAt = windows[0].DurationNS
	}
	return s
}

// ActiveWindow returns the currently active window.
func (s *Scheduler) ActiveWindow() Window { return s.windows[s.curIdx] }

// ActiveReadyQueue returns the ready queue for the currently active time
// partition.
func (s *Scheduler) ActiveReadyQueue() *ReadyQueue { return s.ready[s.ActiveWindow().TP] }

// ReadyQueueFor returns (creating if necessary) the ready queue for tp.
func (s *Scheduler) ReadyQueueFor(tp hv.TimePartitionID) *ReadyQueue {
	rq, ok := s.ready[tp]
	if !ok {
		rq = NewReadyQueue()
		s.ready[tp] = rq
	}
	return rq
}

// ArmTimeout schedules t to be woken with TIMEOUT at expiryNS if nothing
// wakes it sooner.
func (s *Scheduler) ArmTimeout(t *task.Task, expiryNS uint64) *timeEntry {
	e := &timeEntry{task: t, expiryNS: expiryNS}
	insertByExpiry(&s.timeouts, e)
	return e
}

// CancelTimeout removes e from the timeout queue, e.g. because t woke for
// another reason first.
func (s *Scheduler) CancelTimeout(e *timeEntry) {
	if e != nil {
		list.Remove(&e.Node)
	}
}

// ArmDeadline schedules a deadline-miss check for t at expiryNS.
func (s *Scheduler) ArmDeadline(t *task.Task, expiryNS uint64) *timeEntry {
	e := &timeEntry{task: t, expiryNS: expiryNS}
	insertByExpiry(&s.deadlines, e)
	return e
}

// CancelDeadline removes e from the deadline queue.
func (s *Scheduler) CancelDeadline(e *timeEntry) {
	if e != nil {
		list.Remove(&e.Node)
	}
}

// expireTimeouts wakes every timeout entry with expiryNS <= now and hands
// each task to OnTimeout, which delivers TIMEOUT.
func (s *Scheduler) expireTimeouts(now uint64) {
	for {
		n := list.First(&s.timeouts)
		if n == nil {
			break
		}
		e := entryFromNode(n)
		if e.expiryNS > now {
			break
		}
		list.Remove(n)
		e.task.Wake()
		if s.OnTimeout != nil {
			s.OnTimeout(e.task)
		}
	}
}

// expireDeadlines surfaces a missed deadline as an HM error for every
// entry with expiryNS <= now; it does not wake or cancel the task.
func (s *Scheduler) expireDeadlines(now uint64) {
	for {
		n := list.First(&s.deadlines)
		if n == nil {
			break
		}
		e := entryFromNode(n)
		if e.expiryNS > now {
			break
		}
		list.Remove(n)
		if s.OnDeadlineMiss != nil {
			s.OnDeadlineMiss(e.task)
		}
	}
}

// advanceWindow switches to the next window in the cyclic table if now
// has reached the current window's end, notifying the board and updating
// last_release_point for RELEASE-flagged windows (spec §4.11).
func (s *Scheduler) advanceWindow(now uint64) {
	if s.windowEndAt != 0 && now < s.windowEndAt {
		return
	}
	prevTP := s.ActiveWindow().TP
	s.curIdx = (s.curIdx + 1) % len(s.windows)
	next := s.windows[s.curIdx]
	s.windowEndAt = now + next.DurationNS
	if next.Flags&Release != 0 {
		s.lastReleasePoint = now
	}
	if s.board != nil {
		s.board.TPSwitch(prevTP, next.TP, uint32(next.Flags))
	}
}

// LastReleasePoint returns the most recent RELEASE window's start time,
// used by wait_periodic.
func (s *Scheduler) LastReleasePoint() uint64 { return s.lastReleasePoint }

// Unblock implements spec §4.11's unblock(task_id): forcibly wakes t from
// whatever it is waiting on. This only flips the task state: removing t
// from any wait-queue/RPC-queue linkage and delivering the STATE status
// are the caller's job (those packages own their own lists).
func (s *Scheduler) Unblock(t *task.Task) {
	switch t.State() {
	case task.WaitEv, task.WaitWq, task.WaitSend, task.WaitRecv, task.WaitAct:
		t.Wake()
	}
}

// Exit is the single per-kernel-exit reschedule path (spec §4.11): expire
// timeouts then deadlines, evaluate the window boundary, and pick the
// next task to run, preempting the currently running one if a
// higher-priority task is now ready. Partition mode changes and outgoing
// IPI dispatch are driven by the kernel wiring layer before calling Exit,
// since they are owned by the partition and ipi packages respectively.
func (s *Scheduler) Exit(now uint64) *task.Task {
	s.expireTimeouts(now)
	s.expireDeadlines(now)
	s.advanceWindow(now)

	rq := s.ActiveReadyQueue()

	if s.running != nil && s.running.State() == task.Running {
		highest := rq.PeekHighestPrio()
		if highest < 0 || highest <= s.running.EffectivePrio {
			return s.running
		}
		s.running.Preempt()
		rq.Push(s.running)
	}

	next := rq.PopHighest()
	if next == nil {
		s.running = nil
		return nil
	}
	next.Schedule()
	s.running = next
	return next
}

// Running returns the task currently RUNNING on this CPU, or nil.
func (s *Scheduler) Running() *task.Task { return s.running }
