// Package wq implements the wait-queue primitive (spec §4.6): a
// futex-style double-checked wait, queued by FIFO or priority discipline,
// with wake and timeout-driven release.
package wq

import (
	"unsafe"

	"github.com/icinar-hv/hvcore/hv"
	"github.com/icinar-hv/hvcore/list"
)

// Discipline selects how waiters are ordered for wake-up.
type Discipline int

const (
	FIFO Discipline = iota
	Priority
)

// Waiter is one blocked task's entry in a WaitQueue. It embeds list.Node so
// it lives directly in the queue's intrusive list with no allocation.
type Waiter struct {
	list.Node
	Task hv.TaskID
	Prio int
}

func waiterFromNode(n *list.Node) *Waiter { return (*Waiter)(unsafe.Pointer(n)) }

// Releaser wakes a task blocked in a WaitQueue, delivering status as its
// wait's return code. Implemented by the scheduler/task layer.
type Releaser interface {
	Release(task hv.TaskID, status hv.Status)
}

// WaitQueue is one configured wait queue (spec §4.6). The zero value is
// not usable; construct with New.
type WaitQueue struct {
	ID         hv.WaitQueueID
	disc       Discipline
	ready      bool
	userState  *uint64 // validated partition-range pointer; simulated in-process
	head       list.Head
	rel        Releaser
}

// New constructs an unconfigured WaitQueue; SetDiscipline must be called
// before Wait/Wake.
func New(id hv.WaitQueueID, rel Releaser) *WaitQueue {
	wq := &WaitQueue{ID: id, rel: rel}
	wq.head.Init()
	return wq
}

// SetDiscipline validates userState (non-nil stands in for the spec's
// partition-range pointer check) and arms the queue with disc, per spec
// §4.6.
func (wq *WaitQueue) SetDiscipline(disc Discipline, userState *uint64) hv.Status {
	if userState == nil {
		return hv.StatusIllegalAddress
	}
	wq.disc = disc
	wq.userState = userState
	wq.ready = true
	return hv.OK
}

// Wait double-checks *userState == compare (the futex pattern); if
// unequal it returns NoMatch immediately without blocking. Otherwise it
// enqueues w by the configured discipline; the caller is responsible for
// actually suspending the task and arming the timeout (spec §4.6 assigns
// blocking to the scheduler, not this package).
func (wq *WaitQueue) Wait(w *Waiter, compare uint64) hv.Status {
	if !wq.ready {
		return hv.StatusState
	}
	if *wq.userState != compare {
		return hv.StatusNoMatch
	}
	switch wq.disc {
	case Priority:
		list.InsertSorted(&wq.head, &w.Node, func(a, b *list.Node) bool {
			return waiterFromNode(a).Prio > waiterFromNode(b).Prio
		})
	default:
		list.PushTail(&wq.head, &w.Node)
	}
	return hv.OK
}

// Cancel removes w from the queue without releasing it: used when a
// caller that just enqueued w (via Wait) decides not to actually suspend
// after all, e.g. a non-blocking wq_wait(timeout=0) that matched.
func (wq *WaitQueue) Cancel(w *Waiter) {
	if !list.InList(&w.Node) {
		return
	}
	list.Remove(&w.Node)
}

// Wake removes up to n waiters in queue order and releases them with OK.
// Returns the number actually woken.
func (wq *WaitQueue) Wake(n int) int {
	woken := 0
	for woken < n {
		node := list.First(&wq.head)
		if node == nil {
			break
		}
		list.Remove(node)
		w := waiterFromNode(node)
		if wq.rel != nil {
			wq.rel.Release(w.Task, hv.OK)
		}
		woken++
	}
	return woken
}

// Timeout releases a single timed-out waiter with TIMEOUT, called by the
// scheduler's timeout queue when w's deadline expires before a Wake.
func (wq *WaitQueue) Timeout(w *Waiter) {
	if !list.InList(&w.Node) {
		return
	}
	list.Remove(&w.Node)
	if wq.rel != nil {
		wq.rel.Release(w.Task, hv.StatusTimeout)
	}
}

// Abort releases every queued waiter with STATE, per spec §4.6/§4.8's
// partition-shutdown abort semantics shared by every blocking primitive.
func (wq *WaitQueue) Abort() {
	for {
		node := list.First(&wq.head)
		if node == nil {
			return
		}
		list.Remove(node)
		w := waiterFromNode(node)
		if wq.rel != nil {
			wq.rel.Release(w.Task, hv.StatusState)
		}
	}
}
