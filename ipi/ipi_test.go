package ipi

import (
	"testing"

	"github.com/icinar-hv/hvcore/hv"
	"github.com/stretchr/testify/require"
)

func TestRingFIFOOrder(t *testing.T) {
	r := NewRing(4)
	require.True(t, r.Push(Action{Kind: 1, Target: 10}))
	require.True(t, r.Push(Action{Kind: 2, Target: 20}))

	a, ok := r.Pop()
	require.True(t, ok)
	require.Equal(t, uint32(10), a.Target)

	a, ok = r.Pop()
	require.True(t, ok)
	require.Equal(t, uint32(20), a.Target)

	_, ok = r.Pop()
	require.False(t, ok)
}

func TestRingOverflowRejected(t *testing.T) {
	r := NewRing(2)
	require.True(t, r.Push(Action{Target: 1}))
	require.True(t, r.Push(Action{Target: 2}))
	require.False(t, r.Push(Action{Target: 3}))
}

func TestMatrixSendSetsRescheduleBit(t *testing.T) {
	m := NewMatrix(3, 4)
	require.Equal(t, hv.OK, m.Send(0, 2, Action{Target: 99}))
	require.Equal(t, uint64(1)<<2, m.Reschedule(0))
	require.Equal(t, uint64(0), m.Reschedule(0)) // cleared after read
}

func TestMatrixDrainDeliversInOrder(t *testing.T) {
	m := NewMatrix(2, 4)
	m.Send(0, 1, Action{Target: 1})
	m.Send(0, 1, Action{Target: 2})

	var got []uint32
	m.Drain(0, 1, func(a Action) { got = append(got, a.Target) })
	require.Equal(t, []uint32{1, 2}, got)
}

func TestMatrixSendUnknownPairReturnsID(t *testing.T) {
	m := NewMatrix(2, 4)
	require.Equal(t, hv.StatusID, m.Send(0, 0, Action{})) // src==dst pair never created
}
