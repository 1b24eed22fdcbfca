// Package rpc implements the RPC primitive (spec §4.8): bounded send/recv
// queues between a caller and a HOOK-type receiver, with a fast path that
// hands the caller directly to a suspended receiver (mirroring the
// teacher's microbatch.Batcher ping/pong rendezvous: a fast, un-queued
// handoff when the other side is already waiting, falling back to a
// queued slow path otherwise).
package rpc

import (
	"unsafe"

	"github.com/icinar-hv/hvcore/hv"
	"github.com/icinar-hv/hvcore/list"
)

const maxPendingActivations = 255

// Call is one caller's entry in a Channel's sendq/recvq.
type Call struct {
	list.Node
	Caller   hv.TaskID
	SendArg  uint64
	ReplyArg uint64
	Timeout  int64
}

func callFromNode(n *list.Node) *Call { return (*Call)(unsafe.Pointer(n)) }

// Dispatcher activates/wakes tasks on behalf of a Channel; implemented by
// the task/scheduler layer.
type Dispatcher interface {
	// Activate wakes receiver from SUSPENDED with (replyID, sendArg)
	// delivered into its register frame, at the given elevated priority.
	Activate(receiver hv.TaskID, replyID hv.TaskID, sendArg uint64, prio int)
	// Enqueue increments receiver's pending_activations and leaves it
	// where it is (used for the slow path, where the receiver is busy).
	Enqueue(receiver hv.TaskID)
	// WakeReply delivers replyArg into caller's OUT1 register and
	// transitions it out of WAIT_RECV/WAIT_SEND with status.
	WakeReply(caller hv.TaskID, replyArg uint64, status hv.Status)
	// Terminate self-terminates receiver, e.g. after reply(..., terminate=true).
	Terminate(receiver hv.TaskID)
	// Suspended reports whether receiver is currently SUSPENDED.
	Suspended(receiver hv.TaskID) bool
	// Prio returns a task's current priority.
	Prio(task hv.TaskID) int
}

// Channel is one configured RPC channel bound to a HOOK receiver.
type Channel struct {
	ID         hv.RPCID
	Receiver   hv.TaskID
	FloorPrio  int
	BasePrio   int
	disp       Dispatcher
	sendq      list.Head
	recvq      list.Head
	pendingAct int
}

// New constructs a Channel; disp drives all task-visible side effects.
func New(id hv.RPCID, receiver hv.TaskID, floorPrio, basePrio int, disp Dispatcher) *Channel {
	c := &Channel{ID: id, Receiver: receiver, FloorPrio: floorPrio, BasePrio: basePrio, disp: disp}
	c.sendq.Init()
	c.recvq.Init()
	return c
}

// Call implements the RPC call operation (spec §4.8). If the receiver is
// SUSPENDED and recvq is empty (fast path), call enqueues the caller
// directly onto recvq and activates the receiver at the elevated
// priority. Otherwise (slow path) the caller is queued on sendq and the
// receiver's pending_activations is incremented, bounded by 255.
func (c *Channel) Call(call *Call) hv.Status {
	if c.disp.Suspended(c.Receiver) && list.First(&c.recvq) == nil {
		list.PushTail(&c.recvq, &call.Node)
		elevated := maxInt(c.disp.Prio(call.Caller), maxInt(c.FloorPrio, c.BasePrio))
		c.disp.Activate(c.Receiver, call.Caller, call.SendArg, elevated)
		return hv.OK
	}

	if c.pendingAct >= maxPendingActivations {
		return hv.StatusLimit
	}
	list.PushTail(&c.sendq, &call.Node)
	c.pendingAct++
	c.disp.Enqueue(c.Receiver)
	return hv.OK
}

// Reply wakes the caller identified by replyID (a task ID, not a queue
// position) with replyArg in OUT1 and unlinks that caller's Call from
// whichever queue holds it. If terminate is set, the receiver
// self-terminates and the next queued sender (if any) is advanced from
// sendq to recvq.
func (c *Channel) Reply(replyID hv.TaskID, replyArg uint64, terminate bool) {
	c.disp.WakeReply(replyID, replyArg, hv.OK)

found:
	for _, q := range [2]*list.Head{&c.recvq, &c.sendq} {
		for n := list.First(q); n != nil; n = list.Next(q, n) {
			if callFromNode(n).Caller == replyID {
				list.Remove(n)
				if q == &c.sendq {
					c.pendingAct--
				}
				break found
			}
		}
	}

	if terminate {
		c.disp.Terminate(c.Receiver)
		c.advanceSendq()
	}
}

// advanceSendq moves the head of sendq to recvq and activates the
// receiver, mirroring the fast-path handoff but drawn from the queue
// instead of a fresh caller.
func (c *Channel) advanceSendq() {
	node := list.First(&c.sendq)
	if node == nil {
		return
	}
	list.Remove(node)
	c.pendingAct--
	call := callFromNode(node)
	list.PushTail(&c.recvq, node)
	elevated := maxInt(c.disp.Prio(call.Caller), maxInt(c.FloorPrio, c.BasePrio))
	c.disp.Activate(c.Receiver, call.Caller, call.SendArg, elevated)
}

// Abort releases every queued caller (both queues) with a STATE error, per
// spec §4.8's partition-shutdown semantics.
func (c *Channel) Abort() {
	for _, q := range [2]*list.Head{&c.sendq, &c.recvq} {
		for {
			node := list.First(q)
			if node == nil {
				break
			}
			list.Remove(node)
			call := callFromNode(node)
			c.disp.WakeReply(call.Caller, 0, hv.StatusState)
		}
	}
	c.pendingAct = 0
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
