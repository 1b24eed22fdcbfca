package kernel

import (
	"github.com/icinar-hv/hvcore/alarm"
	"github.com/icinar-hv/hvcore/counter"
	"github.com/icinar-hv/hvcore/hv"
	"github.com/icinar-hv/hvcore/partition"
	"github.com/icinar-hv/hvcore/task"
)

// dispatch is the single adapter every subsystem package's small injected
// interface is implemented by, scoped to one CPU's core. Each subsystem
// only sees the slice of dispatch its own interface declares — the
// teacher's small-interface-injection style (e.g. eventloop's injected
// Logger/error-handler interfaces), applied uniformly here since the
// kernel wiring layer is the one place that legitimately knows about
// every subsystem at once.
type dispatch struct {
	k   *Kernel
	cpu hv.CPUID
}

func (d *dispatch) core() *core { return d.k.core(d.cpu) }

// --- event.TaskState ---

func (d *dispatch) WaitMask(t hv.TaskID) (mask, clearMask uint64, ok bool) {
	tk, found := d.core().Tasks[t]
	if !found {
		return 0, 0, false
	}
	return tk.WaitMask, tk.WaitClearMask, tk.State() == task.WaitEv
}

func (d *dispatch) WakeFromEventWait(t hv.TaskID, snapshot, clearedMask uint64) {
	c := d.core()
	tk, ok := c.Tasks[t]
	if !ok {
		return
	}
	tk.OUT1 = snapshot
	tk.Wake()
	c.Sched.ReadyQueueFor(d.k.timePartitionOf(t)).Push(tk)
}

func (d *dispatch) MayBlock(t hv.TaskID) bool {
	tk, ok := d.core().Tasks[t]
	return ok && tk.Cfg.MayBlock
}

// --- alarm.Dispatcher ---

func (d *dispatch) AlarmEvent(t hv.TaskID, mask uint64) {
	c := d.core()
	if cpu, ok := d.k.taskCPU[t]; ok && cpu != d.cpu {
		d.k.core(cpu).Events.Set(t, mask)
		return
	}
	c.Events.Set(t, mask)
}

func (d *dispatch) AlarmActivateTask(t hv.TaskID) {
	d.activate(t)
}

func (d *dispatch) AlarmActivateHook(t hv.TaskID) {
	d.activate(t)
}

func (d *dispatch) activate(t hv.TaskID) {
	cpu, ok := d.k.taskCPU[t]
	if !ok {
		return
	}
	c := d.k.core(cpu)
	tk, ok := c.Tasks[t]
	if !ok {
		return
	}
	ready, status := tk.Activate(d.k.now())
	if status == hv.OK && ready {
		c.Sched.ReadyQueueFor(d.k.timePartitionOf(t)).Push(tk)
	}
}

func (d *dispatch) AlarmInvoke(fn func()) {
	if fn != nil {
		fn()
	}
}

func (d *dispatch) AlarmIncrementCounter(ctr *counter.Counter) {
	if ctr != nil {
		ctr.Increment(1)
	}
}

func (d *dispatch) AlarmAdvanceScheduleTable(id hv.ScheduleTableID) {
	if st, ok := d.core().ScheduleTables[id]; ok {
		st.Advance()
	}
}

// --- rpc.Dispatcher ---

func (d *dispatch) Activate(receiver, replyID hv.TaskID, sendArg uint64, prio int) {
	c := d.core()
	tk, ok := c.Tasks[receiver]
	if !ok {
		return
	}
	tk.ReplyID = replyID
	tk.OUT1 = sendArg
	tk.EffectivePrio = prio
	ready, status := tk.Activate(d.k.now())
	if status == hv.OK && ready {
		c.Sched.ReadyQueueFor(d.k.timePartitionOf(receiver)).Push(tk)
	}
}

func (d *dispatch) Enqueue(receiver hv.TaskID) {
	if tk, ok := d.core().Tasks[receiver]; ok {
		tk.PendingActivations++
	}
}

func (d *dispatch) WakeReply(caller hv.TaskID, replyArg uint64, status hv.Status) {
	c := d.core()
	tk, ok := c.Tasks[caller]
	if !ok {
		return
	}
	tk.OUT1 = replyArg
	tk.Wake()
	c.Sched.ReadyQueueFor(d.k.timePartitionOf(caller)).Push(tk)
}

func (d *dispatch) Terminate(receiver hv.TaskID) {
	if tk, ok := d.core().Tasks[receiver]; ok {
		tk.TerminateSelf()
	}
}

func (d *dispatch) Suspended(receiver hv.TaskID) bool {
	tk, ok := d.core().Tasks[receiver]
	return ok && tk.State() == task.Suspended
}

func (d *dispatch) Prio(t hv.TaskID) int {
	tk, ok := d.core().Tasks[t]
	if !ok {
		return 0
	}
	return tk.EffectivePrio
}

// --- wq.Releaser ---

func (d *dispatch) Release(t hv.TaskID, status hv.Status) {
	c := d.core()
	tk, ok := c.Tasks[t]
	if !ok {
		return
	}
	if c.Syscalls != nil {
		// A wq_wait armed timeout no longer applies once the wait ends for
		// any other reason (here: a normal Wake, or Timeout's own release).
		c.Syscalls.cancelWQWaitTimeout(t)
	}
	tk.OUT1 = uint64(status)
	tk.Wake()
	c.Sched.ReadyQueueFor(d.k.timePartitionOf(t)).Push(tk)
}

// --- partition.Hooks ---

func (d *dispatch) TerminateAllTasks(p hv.PartitionID) {
	for _, tk := range d.core().Tasks {
		if tk.Cfg.Partition == p {
			for tk.State() != task.Suspended {
				tk.TerminateSelf()
			}
		}
	}
}

func (d *dispatch) ClearAlarmsAndScheduleTables(p hv.PartitionID) {
	c := d.core()
	for _, ac := range d.k.Cfg.Config.Alarms {
		if ac.Partition != p {
			continue
		}
		if eng, ok := c.AlarmEngines[ac.Counter]; ok {
			if a, ok := c.Alarms[ac.ID]; ok {
				eng.Cancel(a)
			}
		}
	}
	for _, stc := range d.k.Cfg.Config.ScheduleTables {
		if stc.Partition != p {
			continue
		}
		if st, ok := c.ScheduleTables[stc.ID]; ok {
			st.Stop()
		}
	}
}

func (d *dispatch) CloseWaitQueues(p hv.PartitionID) {
	c := d.core()
	for _, wqc := range d.k.Cfg.Config.WaitQueues {
		if wqc.Partition != p {
			continue
		}
		if q, ok := c.WaitQueues[wqc.ID]; ok {
			q.Abort()
		}
	}
}

func (d *dispatch) ClearRPCQueues(p hv.PartitionID) {
	c := d.core()
	for _, rc := range d.k.Cfg.Config.RPCChannels {
		recvPartition, _ := d.k.taskPartition(rc.Receiver)
		if recvPartition != p {
			continue
		}
		if ch, ok := c.RPCChannels[rc.ID]; ok {
			ch.Abort()
		}
	}
}

func (d *dispatch) ReinitFromConfig(p hv.PartitionID) {
	// Runtime tables are rebuilt directly from the immutable Config image
	// at Build time; nothing is mutated across restarts beyond the reset
	// already performed by the other hooks, so there is no further state
	// to reload here.
}

func (d *dispatch) ActivateInitHook(p hv.PartitionID) {
	pc, ok := d.k.Cfg.PartitionByID[p]
	if !ok || pc.InitHook == hv.NoTask {
		return
	}
	d.activate(pc.InitHook)
}

func (d *dispatch) ReleaseForScheduling(p hv.PartitionID) {
	// Tasks already sit in their owning ready queue once activated; NORMAL
	// mode lifts no additional gate in this simulation, since the
	// partition's operating mode is consulted at the syscall layer, not
	// inside the ready queue itself.
}

// --- hm.Hooks ---

func (d *dispatch) HasExceptionHook(p hv.PartitionID) bool {
	pc, ok := d.k.Cfg.PartitionByID[p]
	return ok && pc.ExceptionHook != hv.NoTask
}

func (d *dispatch) RecordExceptionState(p hv.PartitionID, t hv.TaskID, errorID hv.HMErrorID, faultAddr uintptr) {
	// The user-space exception-state block is a memory-mapped region this
	// host simulation does not model; the faulting task's identity and
	// cause are still available to the activated exception hook via
	// errorID/t for diagnostics.
}

func (d *dispatch) ClearFaultingTaskState(t hv.TaskID) {
	if tk, ok := d.core().Tasks[t]; ok {
		tk.RestorePriority()
	}
}

func (d *dispatch) ActivateExceptionHook(p hv.PartitionID) {
	pc, ok := d.k.Cfg.PartitionByID[p]
	if !ok || pc.ExceptionHook == hv.NoTask {
		return
	}
	d.activate(pc.ExceptionHook)
}

func (d *dispatch) ResumeTask(t hv.TaskID) {
	if cpu, ok := d.k.taskCPU[t]; ok {
		d.k.core(cpu).Sched.Unblock(d.k.core(cpu).Tasks[t])
	}
}

func (d *dispatch) QueuePartitionMode(p hv.PartitionID, restart bool) {
	pc, ok := d.k.Cfg.PartitionByID[p]
	if !ok {
		return
	}
	part := d.k.core(pc.CPU).Partitions[p]
	if part == nil {
		return
	}
	if restart {
		part.RequestMode(partition.ColdStart, partition.HMPartitionRestart)
	} else {
		part.RequestMode(partition.Idle, partition.HMPartitionRestart)
	}
}

func (d *dispatch) AppendErrorRecord(p hv.PartitionID, errorID hv.HMErrorID) {
	// The user-space error ring is a memory-mapped region this host
	// simulation does not model.
}

func (d *dispatch) HasErrorHook(p hv.PartitionID) bool {
	pc, ok := d.k.Cfg.PartitionByID[p]
	return ok && pc.ErrorHook != hv.NoTask
}

func (d *dispatch) ActivateErrorHook(p hv.PartitionID) {
	pc, ok := d.k.Cfg.PartitionByID[p]
	if !ok || pc.ErrorHook == hv.NoTask {
		return
	}
	d.activate(pc.ErrorHook)
}

// --- fastproto.TaskPrio ---

func (d *dispatch) BasePrio(t hv.TaskID) int {
	tk, ok := d.core().Tasks[t]
	if !ok {
		return 0
	}
	return tk.Cfg.BasePrio
}

func (d *dispatch) SetEffectivePrio(t hv.TaskID, prio int) {
	if tk, ok := d.core().Tasks[t]; ok {
		tk.EffectivePrio = prio
	}
}

// Compile-time check that dispatch implements alarm.Dispatcher.
var _ alarm.Dispatcher = (*dispatch)(nil)
