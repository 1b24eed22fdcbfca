package event

import (
	"testing"

	"github.com/icinar-hv/hvcore/hv"
	"github.com/stretchr/testify/require"
)

func TestIPEVSetDeliversToBoundTask(t *testing.T) {
	ts := &fakeTaskState{waitMask: 0x2, waiting: true}
	events := New(ts)
	ipev := NewIPEVTable(events)

	ipev.Bind(7, 1, 0x2)
	ipev.Set(7)

	require.True(t, ts.woken)
	require.Equal(t, uint64(0x2), events.Pending(1)&0x2)
}

func TestIPEVSetIgnoresUnboundID(t *testing.T) {
	ts := &fakeTaskState{}
	events := New(ts)
	ipev := NewIPEVTable(events)

	require.NotPanics(t, func() { ipev.Set(99) })
}

func TestIPEVSetSwallowsAccessError(t *testing.T) {
	ts := &fakeTaskState{blockable: map[hv.TaskID]bool{1: false}}
	events := New(ts)
	ipev := NewIPEVTable(events)
	ipev.Bind(1, 1, 0x1)

	require.NotPanics(t, func() { ipev.Set(1) })
	require.Equal(t, uint64(0), events.Pending(1))
}

func TestIPEVTarget(t *testing.T) {
	events := New(&fakeTaskState{})
	ipev := NewIPEVTable(events)
	ipev.Bind(3, 5, 0x10)

	task, mask, ok := ipev.Target(3)
	require.True(t, ok)
	require.Equal(t, hv.TaskID(5), task)
	require.Equal(t, uint64(0x10), mask)

	_, _, ok = ipev.Target(999)
	require.False(t, ok)
}
