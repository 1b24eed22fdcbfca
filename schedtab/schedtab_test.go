package schedtab

import (
	"testing"

	"github.com/icinar-hv/hvcore/hv"
	"github.com/stretchr/testify/require"
)

func TestRelativeStartArmsFirstWait(t *testing.T) {
	var armed uint64
	tab := &Table{
		Ops:    []Op{{Kind: OpWait, Delta: 10}},
		Expire: func(d uint64) { armed = d },
	}
	tab.StartRelative(10)
	require.Equal(t, uint64(10), armed)
	require.Equal(t, Next, tab.State())
}

func TestAdvanceRunsActionsThenWaits(t *testing.T) {
	var ran []string
	var armed uint64
	tab := &Table{
		Ops: []Op{
			{Kind: OpAction, Action: func() { ran = append(ran, "a") }},
			{Kind: OpAction, Action: func() { ran = append(ran, "b") }},
			{Kind: OpWait, Delta: 5},
		},
		Expire: func(d uint64) { armed = d },
	}
	tab.StartRelative(0)
	tab.Advance()
	require.Equal(t, []string{"a", "b"}, ran)
	require.Equal(t, uint64(5), armed)
}

func TestWrapLoopsWithoutChain(t *testing.T) {
	var count int
	var armed uint64
	tab := &Table{
		Ops: []Op{
			{Kind: OpAction, Action: func() { count++ }},
			{Kind: OpWait, Delta: 1},
			{Kind: OpWrap, NextIndex: 0},
		},
		Expire: func(d uint64) { armed = d },
	}
	tab.StartRelative(0)
	tab.Advance() // runs action, hits WAIT, arms
	require.Equal(t, 1, count)
	tab.Advance() // WRAP -> back to index 0, action again, WAIT again
	require.Equal(t, 2, count)
	require.Equal(t, uint64(1), armed)
}

func TestWrapChainsToNextTable(t *testing.T) {
	var secondRan bool
	second := &Table{
		Ops: []Op{{Kind: OpAction, Action: func() { secondRan = true }}, {Kind: OpWait, Delta: 2}},
	}
	first := &Table{
		Ops: []Op{{Kind: OpWrap, NextIndex: 0}},
	}
	first.state = RunningAsync
	first.ChainNext(second)

	first.Advance()
	require.Equal(t, Stopped, first.State())
	require.True(t, secondRan)
}

func TestExplicitSyncBoundsDeviation(t *testing.T) {
	tab := &Table{
		SyncMode: SyncExplicit,
		MaxDev:   100,
		Ops: []Op{
			{Kind: OpShorten, Bound: 3},
			{Kind: OpWait, Delta: 10},
		},
	}
	tab.state = RunningSync
	tab.deviation = 5 // running 5 ticks behind schedule
	var armed uint64
	tab.Expire = func(d uint64) { armed = d }
	tab.Advance()
	require.Equal(t, uint64(7), armed) // 3 of the 5 ticks of drift drawn off, shortening the wait
	require.Equal(t, int64(2), tab.deviation)
	require.Equal(t, RunningSync, tab.State())
}

func TestSetSyncValueRejectedWhenSyncNone(t *testing.T) {
	tab := &Table{SyncMode: SyncNone}
	require.Equal(t, hv.StatusNoFunc, tab.SetSyncValue(5))
}
