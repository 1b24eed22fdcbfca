package event

import (
	"testing"

	"github.com/icinar-hv/hvcore/hv"
	"github.com/stretchr/testify/require"
)

type fakeTaskState struct {
	waitMask, clearMask uint64
	waiting             bool
	woken               bool
	snapshot, cleared   uint64
	blockable           map[hv.TaskID]bool
}

func (f *fakeTaskState) WaitMask(task hv.TaskID) (uint64, uint64, bool) {
	return f.waitMask, f.clearMask, f.waiting
}
func (f *fakeTaskState) WakeFromEventWait(task hv.TaskID, snapshot, clearedMask uint64) {
	f.woken = true
	f.snapshot = snapshot
	f.cleared = clearedMask
}
func (f *fakeTaskState) MayBlock(task hv.TaskID) bool {
	if f.blockable == nil {
		return true
	}
	return f.blockable[task]
}

func TestSetWakesWaitingTaskOnIntersect(t *testing.T) {
	ts := &fakeTaskState{waitMask: 0x3, clearMask: 0x1, waiting: true}
	tbl := New(ts)

	require.Equal(t, hv.OK, tbl.Set(1, 0x1))
	require.True(t, ts.woken)
	require.Equal(t, uint64(0x1), ts.snapshot)
	require.Equal(t, uint64(0x1), ts.cleared)
	require.Equal(t, uint64(0), tbl.Pending(1)) // cleared bit removed
}

func TestSetDoesNotWakeOnDisjointMask(t *testing.T) {
	ts := &fakeTaskState{waitMask: 0x4, waiting: true}
	tbl := New(ts)

	require.Equal(t, hv.OK, tbl.Set(1, 0x1))
	require.False(t, ts.woken)
	require.Equal(t, uint64(0x1), tbl.Pending(1))
}

func TestWaitImmediatelySatisfied(t *testing.T) {
	ts := &fakeTaskState{}
	tbl := New(ts)
	tbl.Set(1, 0x3)

	snap, satisfied, status := tbl.Wait(1, 0x1, 0x1)
	require.True(t, satisfied)
	require.Equal(t, hv.OK, status)
	require.Equal(t, uint64(0x3), snap)
	require.Equal(t, uint64(0x2), tbl.Pending(1)) // 0x1 cleared
}

func TestWaitNotSatisfiedLeavesPendingForCaller(t *testing.T) {
	ts := &fakeTaskState{}
	tbl := New(ts)

	_, satisfied, status := tbl.Wait(1, 0x1, 0x1)
	require.False(t, satisfied)
	require.Equal(t, hv.OK, status)
}

func TestAccessDeniedWhenMayNotBlock(t *testing.T) {
	ts := &fakeTaskState{blockable: map[hv.TaskID]bool{1: false}}
	tbl := New(ts)

	require.Equal(t, hv.StatusAccess, tbl.Set(1, 0x1))
	_, _, status := tbl.Wait(1, 0x1, 0)
	require.Equal(t, hv.StatusAccess, status)
}
