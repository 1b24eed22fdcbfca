package fastproto

import (
	"testing"

	"github.com/icinar-hv/hvcore/hv"
	"github.com/stretchr/testify/require"
)

type fakeTasks struct {
	base    map[hv.TaskID]int
	synced  map[hv.TaskID]int
}

func (f *fakeTasks) BasePrio(t hv.TaskID) int { return f.base[t] }
func (f *fakeTasks) SetEffectivePrio(t hv.TaskID, prio int) {
	if f.synced == nil {
		f.synced = map[hv.TaskID]int{}
	}
	f.synced[t] = prio
}

func TestSyncNoopWhenUserPrioNotBelowNext(t *testing.T) {
	b := &Block{TaskID: 1, UserPrio: 10, NextPrio: 10}
	tasks := &fakeTasks{base: map[hv.TaskID]int{1: 5}}

	_, synced := Sync(b, 20, tasks)
	require.False(t, synced)
	require.Empty(t, tasks.synced)
}

func TestSyncClampsToBasePrioFloor(t *testing.T) {
	b := &Block{TaskID: 1, UserPrio: 1, NextPrio: 10}
	tasks := &fakeTasks{base: map[hv.TaskID]int{1: 5}}

	p, synced := Sync(b, 20, tasks)
	require.True(t, synced)
	require.Equal(t, 5, p)
	require.Equal(t, 5, tasks.synced[1])
	require.Equal(t, int32(5), b.UserPrio)
	require.Equal(t, int32(5), b.NextPrio)
}

func TestSyncClampsToPartitionMaxCeiling(t *testing.T) {
	b := &Block{TaskID: 1, UserPrio: 99, NextPrio: 100}
	tasks := &fakeTasks{base: map[hv.TaskID]int{1: 5}}

	p, synced := Sync(b, 20, tasks)
	require.True(t, synced)
	require.Equal(t, 20, p)
}

func TestSetCurrentAndNotifyNextPrio(t *testing.T) {
	b := &Block{}
	b.SetCurrent(7, 15)
	require.Equal(t, hv.TaskID(7), b.TaskID)
	require.Equal(t, int32(15), b.UserPrio)
	require.Equal(t, int32(15), b.NextPrio)

	b.NotifyNextPrio(3)
	require.Equal(t, int32(3), b.NextPrio)
}
