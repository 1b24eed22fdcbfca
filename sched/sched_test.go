package sched

import (
	"testing"

	"github.com/icinar-hv/hvcore/hv"
	"github.com/icinar-hv/hvcore/task"
	"github.com/stretchr/testify/require"
)

func newTask(id hv.TaskID, prio int) *task.Task {
	t := task.New(task.Config{ID: id, BasePrio: prio, MaxActivations: 4, Capacity: 1000})
	t.Activate(0)
	return t
}

func TestReadyQueuePriorityOrder(t *testing.T) {
	rq := NewReadyQueue()
	low := newTask(1, 1)
	high := newTask(2, 9)
	rq.Push(low)
	rq.Push(high)

	require.Equal(t, high, rq.PopHighest())
	require.Equal(t, low, rq.PopHighest())
	require.Nil(t, rq.PopHighest())
}

func TestReadyQueueFIFOWithinBand(t *testing.T) {
	rq := NewReadyQueue()
	a := newTask(1, 5)
	b := newTask(2, 5)
	rq.Push(a)
	rq.Push(b)

	require.Equal(t, a, rq.PopHighest())
	require.Equal(t, b, rq.PopHighest())
}

func TestExitPicksHighestAndPreemptsRunning(t *testing.T) {
	s := New(0, []Window{{TP: 1, DurationNS: 1_000_000}}, nil)
	low := newTask(1, 1)
	high := newTask(2, 9)

	s.ActiveReadyQueue().Push(low)
	picked := s.Exit(0)
	require.Equal(t, low, picked)
	require.Equal(t, task.Running, low.State())

	s.ActiveReadyQueue().Push(high)
	picked = s.Exit(10)
	require.Equal(t, high, picked)
	require.Equal(t, task.Ready, low.State())
}

func TestExitKeepsRunningWhenNoHigherPriorityReady(t *testing.T) {
	s := New(0, []Window{{TP: 1, DurationNS: 1_000_000}}, nil)
	running := newTask(1, 5)
	s.ActiveReadyQueue().Push(running)
	s.Exit(0)

	lower := newTask(2, 1)
	s.ActiveReadyQueue().Push(lower)
	picked := s.Exit(1)
	require.Equal(t, running, picked)
	require.Equal(t, task.Running, running.State())
}

func TestTimeoutExpiryWakesWithTimeout(t *testing.T) {
	s := New(0, []Window{{TP: 1, DurationNS: 1_000_000}}, nil)
	tk := newTask(1, 5)
	tk.Schedule()
	tk.WaitOnWQ()
	s.ArmTimeout(tk, 100)

	s.Exit(50)
	require.Equal(t, task.WaitWq, tk.State())

	s.Exit(150)
	require.Equal(t, task.Ready, tk.State())
}

func TestDeadlineMissInvokesHook(t *testing.T) {
	s := New(0, []Window{{TP: 1, DurationNS: 1_000_000}}, nil)
	tk := newTask(1, 5)
	var missed *task.Task
	s.OnDeadlineMiss = func(t *task.Task) { missed = t }
	s.ArmDeadline(tk, 100)

	s.Exit(150)
	require.Equal(t, tk, missed)
}

func TestWindowAdvancesAfterDuration(t *testing.T) {
	s := New(0, []Window{
		{TP: 1, DurationNS: 100},
		{TP: 2, DurationNS: 100},
	}, nil)
	require.Equal(t, hv.TimePartitionID(1), s.ActiveWindow().TP)

	s.Exit(0) // window end is 100, set by New; no switch yet
	require.Equal(t, hv.TimePartitionID(1), s.ActiveWindow().TP)

	s.Exit(150) // past window end, advances
	require.Equal(t, hv.TimePartitionID(2), s.ActiveWindow().TP)
}

func TestUnblockWakesWaitingTask(t *testing.T) {
	s := New(0, []Window{{TP: 1, DurationNS: 100}}, nil)
	tk := newTask(1, 5)
	tk.Schedule()
	tk.WaitOnWQ()
	s.Unblock(tk)
	require.Equal(t, task.Ready, tk.State())
}
