package task

import (
	"testing"

	"github.com/icinar-hv/hvcore/hv"
	"github.com/stretchr/testify/require"
)

func newTestTask() *Task {
	return New(Config{ID: 1, BasePrio: 5, MaxActivations: 2, Capacity: 1000})
}

func TestActivateFromSuspended(t *testing.T) {
	tk := newTestTask()
	ready, status := tk.Activate(100)
	require.True(t, ready)
	require.Equal(t, hv.OK, status)
	require.Equal(t, Ready, tk.State())
	require.Equal(t, uint64(1100), tk.DeadlineAt)
	require.Equal(t, 1, tk.PendingActivations)
}

func TestActivateWhileAlreadyQueuedJustCountsPending(t *testing.T) {
	tk := newTestTask()
	tk.Activate(0)
	ready, status := tk.Activate(0)
	require.False(t, ready) // already READY, not a fresh SUSPENDED->READY transition
	require.Equal(t, hv.OK, status)
	require.Equal(t, 2, tk.PendingActivations)
}

func TestActivateLimitExceeded(t *testing.T) {
	tk := newTestTask()
	tk.Activate(0)
	tk.Activate(0)
	_, status := tk.Activate(0)
	require.Equal(t, hv.StatusLimit, status)
}

func TestScheduleAndPreempt(t *testing.T) {
	tk := newTestTask()
	tk.Activate(0)
	require.True(t, tk.Schedule())
	require.Equal(t, Running, tk.State())
	require.True(t, tk.Preempt())
	require.Equal(t, Ready, tk.State())
}

func TestTerminateSelfReactivatesWhenPending(t *testing.T) {
	tk := newTestTask()
	tk.Activate(0)
	tk.Activate(0) // pending = 2
	tk.Schedule()

	res := tk.TerminateSelf()
	require.Equal(t, Ready, res.NextState)
	require.Equal(t, Ready, tk.State())
	require.Equal(t, 1, tk.PendingActivations)
}

func TestTerminateSelfSuspendsWhenNoPending(t *testing.T) {
	tk := newTestTask()
	tk.Activate(0)
	tk.Schedule()

	res := tk.TerminateSelf()
	require.Equal(t, Suspended, res.NextState)
	require.Equal(t, Suspended, tk.State())
}

func TestWaitAndWakeRoundTrip(t *testing.T) {
	tk := newTestTask()
	tk.Activate(0)
	tk.Schedule()

	require.True(t, tk.WaitEvent(0x3, 0x1))
	require.Equal(t, WaitEv, tk.State())
	tk.Wake()
	require.Equal(t, Ready, tk.State())
}

func TestPriorityInheritance(t *testing.T) {
	tk := newTestTask()
	require.Equal(t, 5, tk.EffectivePrio)
	tk.ElevatePriority(9)
	require.Equal(t, 9, tk.EffectivePrio)
	tk.RestorePriority()
	require.Equal(t, 5, tk.EffectivePrio)
}
