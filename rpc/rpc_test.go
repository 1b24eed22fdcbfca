package rpc

import (
	"testing"

	"github.com/icinar-hv/hvcore/hv"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	suspended    bool
	activated    []hv.TaskID
	activateArgs []uint64
	enqueued     []hv.TaskID
	replies      []hv.TaskID
	replyArgs    []uint64
	replyStatus  []hv.Status
	terminated   []hv.TaskID
	prios        map[hv.TaskID]int
}

func (f *fakeDispatcher) Activate(receiver, replyID hv.TaskID, sendArg uint64, prio int) {
	f.activated = append(f.activated, receiver)
	f.activateArgs = append(f.activateArgs, sendArg)
	f.suspended = false
}
func (f *fakeDispatcher) Enqueue(receiver hv.TaskID) { f.enqueued = append(f.enqueued, receiver) }
func (f *fakeDispatcher) WakeReply(caller hv.TaskID, replyArg uint64, status hv.Status) {
	f.replies = append(f.replies, caller)
	f.replyArgs = append(f.replyArgs, replyArg)
	f.replyStatus = append(f.replyStatus, status)
}
func (f *fakeDispatcher) Terminate(receiver hv.TaskID)  { f.terminated = append(f.terminated, receiver) }
func (f *fakeDispatcher) Suspended(receiver hv.TaskID) bool { return f.suspended }
func (f *fakeDispatcher) Prio(task hv.TaskID) int {
	if f.prios == nil {
		return 0
	}
	return f.prios[task]
}

func TestFastPathActivatesSuspendedReceiver(t *testing.T) {
	disp := &fakeDispatcher{suspended: true}
	ch := New(1, 100, 0, 5, disp)

	call := &Call{Caller: 10, SendArg: 42}
	require.Equal(t, hv.OK, ch.Call(call))
	require.Equal(t, []hv.TaskID{100}, disp.activated)
	require.Equal(t, []uint64{42}, disp.activateArgs)
	require.Empty(t, disp.enqueued)
}

func TestSlowPathQueuesOnSendq(t *testing.T) {
	disp := &fakeDispatcher{suspended: false}
	ch := New(1, 100, 0, 5, disp)

	call := &Call{Caller: 10, SendArg: 42}
	require.Equal(t, hv.OK, ch.Call(call))
	require.Empty(t, disp.activated)
	require.Equal(t, []hv.TaskID{100}, disp.enqueued)
}

func TestPendingActivationsBounded(t *testing.T) {
	disp := &fakeDispatcher{suspended: false}
	ch := New(1, 100, 0, 5, disp)

	for i := 0; i < maxPendingActivations; i++ {
		require.Equal(t, hv.OK, ch.Call(&Call{Caller: hv.TaskID(i), SendArg: 1}))
	}
	require.Equal(t, hv.StatusLimit, ch.Call(&Call{Caller: 999, SendArg: 1}))
}

func TestReplyWithTerminateAdvancesSendq(t *testing.T) {
	disp := &fakeDispatcher{suspended: false}
	ch := New(1, 100, 0, 5, disp)

	ch.Call(&Call{Caller: 10, SendArg: 1})
	ch.Call(&Call{Caller: 11, SendArg: 2})

	ch.Reply(10, 999, true)
	require.Equal(t, []hv.TaskID{10}, disp.replies)
	require.Equal(t, []hv.TaskID{100}, disp.terminated)
	// next sender (11) advances from sendq to recvq and activates receiver
	require.Equal(t, []hv.TaskID{100}, disp.activated)
	require.Equal(t, []uint64{2}, disp.activateArgs)
}

func TestAbortReleasesBothQueues(t *testing.T) {
	disp := &fakeDispatcher{suspended: false}
	ch := New(1, 100, 0, 5, disp)

	ch.Call(&Call{Caller: 10, SendArg: 1})
	ch.Abort()
	require.Equal(t, []hv.TaskID{10}, disp.replies)
	require.Equal(t, []hv.Status{hv.StatusState}, disp.replyStatus)
}
