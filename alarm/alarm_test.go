package alarm

import (
	"testing"

	"github.com/icinar-hv/hvcore/counter"
	"github.com/icinar-hv/hvcore/hv"
	"github.com/icinar-hv/hvcore/list"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	activated []hv.TaskID
	events    []hv.TaskID
	invoked   int
}

func (d *recordingDispatcher) AlarmEvent(task hv.TaskID, mask uint64) { d.events = append(d.events, task) }
func (d *recordingDispatcher) AlarmActivateTask(task hv.TaskID)       { d.activated = append(d.activated, task) }
func (d *recordingDispatcher) AlarmActivateHook(task hv.TaskID)       { d.activated = append(d.activated, task) }
func (d *recordingDispatcher) AlarmInvoke(fn func())                 { d.invoked++; fn() }
func (d *recordingDispatcher) AlarmIncrementCounter(ctr *counter.Counter) {
	ctr.Increment(1)
}
func (d *recordingDispatcher) AlarmAdvanceScheduleTable(id hv.ScheduleTableID) {}

func TestExpiryOrderAndDispatch(t *testing.T) {
	ctr := counter.New(1, 99)
	disp := &recordingDispatcher{}
	eng := NewEngine(ctr, disp)

	a1 := &Alarm{ID: 1, Action: ActionTask, ActivateTask: 10, Expiry: 5}
	a2 := &Alarm{ID: 2, Action: ActionTask, ActivateTask: 20, Expiry: 3}
	eng.Insert(a1)
	eng.Insert(a2)

	ctr.Increment(4) // expires a2 (distance 3 < 4), not a1 (distance 5 >= 4)
	require.Equal(t, []hv.TaskID{20}, disp.activated)

	ctr.Increment(5) // current now 4+5=9; a1 expiry distance from 4 is 1 < 5
	require.Equal(t, []hv.TaskID{20, 10}, disp.activated)
}

func TestPeriodicReinsertAfterSweep(t *testing.T) {
	ctr := counter.New(1, 99)
	disp := &recordingDispatcher{}
	eng := NewEngine(ctr, disp)

	a := &Alarm{ID: 1, Action: ActionTask, ActivateTask: 7, Expiry: 2, Cycle: 10}
	eng.Insert(a)

	ctr.Increment(3) // expires at distance 2, reinserts at (2+10)=12
	require.Equal(t, []hv.TaskID{7}, disp.activated)
	require.Equal(t, uint64(12), a.Expiry)
	require.True(t, list.InList(&a.Node))
}

func TestCancelRemovesFromQueue(t *testing.T) {
	ctr := counter.New(1, 99)
	eng := NewEngine(ctr, &recordingDispatcher{})

	a := &Alarm{ID: 1, Action: ActionInvoke, Expiry: 5}
	eng.Insert(a)
	eng.Cancel(a)
	require.False(t, list.InList(&a.Node))

	ctr.Increment(10) // would have expired; must not fire since cancelled
}

func TestEventAndInvokeActions(t *testing.T) {
	ctr := counter.New(1, 99)
	disp := &recordingDispatcher{}
	eng := NewEngine(ctr, disp)

	invoked := false
	eng.Insert(&Alarm{Action: ActionEvent, EventTask: 3, EventMask: 0x1, Expiry: 1})
	eng.Insert(&Alarm{Action: ActionInvoke, Invoke: func() { invoked = true }, Expiry: 1})

	ctr.Increment(2)
	require.Equal(t, []hv.TaskID{3}, disp.events)
	require.True(t, invoked)
	require.Equal(t, 1, disp.invoked)
}

func TestCounterChainedIncrement(t *testing.T) {
	parent := counter.New(1, 99)
	child := counter.New(2, 99)
	disp := &recordingDispatcher{}
	eng := NewEngine(parent, disp)
	childEng := NewEngine(child, disp)

	eng.Insert(&Alarm{Action: ActionCounter, ChainCounter: child, Expiry: 1})

	parent.Increment(2)
	require.Equal(t, uint64(1), child.Query())
	_ = childEng
}
