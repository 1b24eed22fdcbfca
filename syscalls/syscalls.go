// Package syscalls implements the system-call dispatch layer (spec
// §4.14): argument validation in the spec's mandated order (id range,
// state preconditions, address-range validation), and the call families
// themselves, each translating one user request into operations on the
// subsystem packages it touches. Table holds direct references to the
// concrete runtime objects owned by one CPU — in the teacher's idiom
// (eventloop's Loop holding its poller/registry/ring directly) rather
// than behind an extra layer of interfaces, since this package IS the
// kernel's own glue code, not a reusable library.
package syscalls

import (
	"github.com/icinar-hv/hvcore/alarm"
	"github.com/icinar-hv/hvcore/counter"
	"github.com/icinar-hv/hvcore/event"
	"github.com/icinar-hv/hvcore/hm"
	"github.com/icinar-hv/hvcore/hv"
	"github.com/icinar-hv/hvcore/kldd"
	"github.com/icinar-hv/hvcore/partition"
	"github.com/icinar-hv/hvcore/rpc"
	"github.com/icinar-hv/hvcore/sched"
	"github.com/icinar-hv/hvcore/schedtab"
	"github.com/icinar-hv/hvcore/shm"
	"github.com/icinar-hv/hvcore/task"
	"github.com/icinar-hv/hvcore/wq"
)

// CrossCore forwards a request to an object owned by a different CPU via
// the IPI ring (spec §4.9/§5): every cross-core syscall posts an action
// and returns OK eagerly, per spec §5's "the operation returns OK eagerly
// even if the remote outcome is an overflow." Implemented by the kernel
// wiring layer, which owns the ipi.Matrix and knows every object's owning
// CPU.
type CrossCore interface {
	ForwardTaskActivate(cpu hv.CPUID, task hv.TaskID)
	ForwardEventSet(cpu hv.CPUID, task hv.TaskID, mask uint64)
	ForwardIPEVSet(cpu hv.CPUID, id hv.IPEVID)
	ForwardCounterIncrement(cpu hv.CPUID, ctr hv.CounterID, n uint64)
	ForwardPartitionMode(cpu hv.CPUID, p hv.PartitionID, mode partition.Mode, cause partition.StartCondition)
	ForwardWaitQueueWake(cpu hv.CPUID, wqID hv.WaitQueueID, n int)
}

// Table is one CPU's system-call dispatch table, holding every object
// this CPU's syscalls may touch directly (same-CPU objects) plus a
// CrossCore forwarder for objects owned elsewhere.
type Table struct {
	CPU hv.CPUID
	Now func() uint64

	Sched             *sched.Scheduler
	Tasks             map[hv.TaskID]*task.Task
	TaskCPU           map[hv.TaskID]hv.CPUID
	TaskTimePartition map[hv.TaskID]hv.TimePartitionID
	Partitions        map[hv.PartitionID]*partition.Partition

	Counters     map[hv.CounterID]*counter.Counter
	CounterCPU   map[hv.CounterID]hv.CPUID
	AlarmEngines map[hv.CounterID]*alarm.Engine
	Alarms       map[hv.AlarmID]*alarm.Alarm
	AlarmCounter map[hv.AlarmID]hv.CounterID

	ScheduleTables map[hv.ScheduleTableID]*schedtab.Table

	WaitQueues   map[hv.WaitQueueID]*wq.WaitQueue
	WaitQueueCPU map[hv.WaitQueueID]hv.CPUID

	RPCChannels map[hv.RPCID]*rpc.Channel

	Events *event.Table
	IPEV   *event.IPEVTable
	KLDD   *kldd.Table
	SHM    *shm.Table
	HM     *hm.Monitor

	Cross CrossCore

	// deadlines holds the armed deadline-queue entry for every task with an
	// outstanding activation that carries a nonzero Capacity (spec §4.10's
	// "start its deadline at now + capacity"), so it can be cancelled on
	// terminate_self per spec §4.10 or re-armed by replenish(budget).
	deadlines map[hv.TaskID]*sched.DeadlineHandle

	// wqWaits tracks, for every task currently suspended in wq_wait with a
	// finite timeout, which queue/waiter to resolve the timeout against and
	// the armed handle to cancel if the task wakes some other way first.
	wqWaits map[hv.TaskID]*wqWaitEntry
	// sleepTimeouts is wqWaits' queue-less counterpart for sleep(timeout).
	sleepTimeouts map[hv.TaskID]*sched.TimeoutHandle
}

// wqWaitEntry is the per-task bookkeeping wq_wait's timeout wiring needs:
// the queue and waiter to release on fire, and the handle to cancel if a
// normal Wake or an unblock() gets there first.
type wqWaitEntry struct {
	queue  hv.WaitQueueID
	waiter *wq.Waiter
	handle *sched.TimeoutHandle
}

func (t *Table) now() uint64 {
	if t.Now != nil {
		return t.Now()
	}
	return 0
}

// armActivationDeadline arms id's deadline queue entry on activation. A
// zero-Capacity task never gets a deadline monitored, since a deadline
// equal to its own activation time would miss unconditionally.
func (t *Table) armActivationDeadline(id hv.TaskID, tk *task.Task) {
	if tk.Cfg.Capacity == 0 {
		return
	}
	t.armDeadlineAt(id, tk)
}

// armDeadlineAt arms (or re-arms, replacing any prior entry) id's deadline
// queue entry at tk.DeadlineAt, unconditionally.
func (t *Table) armDeadlineAt(id hv.TaskID, tk *task.Task) {
	t.cancelDeadline(id)
	if t.Sched == nil {
		return
	}
	if t.deadlines == nil {
		t.deadlines = make(map[hv.TaskID]*sched.DeadlineHandle)
	}
	t.deadlines[id] = t.Sched.ArmDeadline(tk, tk.DeadlineAt)
}

// cancelDeadline implements the "cancel the deadline" step of
// terminate_self (spec §4.10).
func (t *Table) cancelDeadline(id hv.TaskID) {
	e, ok := t.deadlines[id]
	if !ok {
		return
	}
	delete(t.deadlines, id)
	if t.Sched != nil {
		t.Sched.CancelDeadline(e)
	}
}

// armWQWaitTimeout arms a finite wq_wait timeout for the task owning w and
// remembers how to resolve it (Scheduler.OnTimeout only hands back the
// task). A negative timeoutNS means "wait forever": nothing is armed, and
// only Wake/unblock/partition-shutdown can end the wait.
func (t *Table) armWQWaitTimeout(tk *task.Task, qID hv.WaitQueueID, w *wq.Waiter, timeoutNS int64) {
	if timeoutNS < 0 || t.Sched == nil {
		return
	}
	if t.wqWaits == nil {
		t.wqWaits = make(map[hv.TaskID]*wqWaitEntry)
	}
	t.wqWaits[w.Task] = &wqWaitEntry{
		queue:  qID,
		waiter: w,
		handle: t.Sched.ArmTimeout(tk, t.now()+uint64(timeoutNS)),
	}
}

// cancelWQWaitTimeout cancels id's armed wq_wait timeout, if any. Called
// whenever id leaves WAIT_WQ for any other reason (a normal Wake, or
// unblock()) so a stale timeout entry can't fire for a task that already
// woke.
func (t *Table) cancelWQWaitTimeout(id hv.TaskID) {
	e, ok := t.wqWaits[id]
	if !ok {
		return
	}
	delete(t.wqWaits, id)
	if t.Sched != nil {
		t.Sched.CancelTimeout(e.handle)
	}
}

// cancelSleepTimeout is cancelWQWaitTimeout's counterpart for sleep(timeout).
func (t *Table) cancelSleepTimeout(id hv.TaskID) {
	e, ok := t.sleepTimeouts[id]
	if !ok {
		return
	}
	delete(t.sleepTimeouts, id)
	if t.Sched != nil {
		t.Sched.CancelTimeout(e)
	}
}

// resolveTimeout is Scheduler.OnTimeout's per-task entry point. expireTimeouts
// already flipped the task to READY; it knows nothing about which wait
// queue (if any) owns the waiter or which ready queue the task belongs to,
// so this finishes the wake: a wq_wait timeout releases (and unlinks) the
// specific waiter, while a queue-less sleep(timeout) is pushed directly.
func (t *Table) resolveTimeout(id hv.TaskID) {
	if e, ok := t.wqWaits[id]; ok {
		delete(t.wqWaits, id)
		if q, ok := t.WaitQueues[e.queue]; ok {
			q.Timeout(e.waiter)
		}
		return
	}
	if _, ok := t.sleepTimeouts[id]; ok {
		delete(t.sleepTimeouts, id)
		tk, ok := t.Tasks[id]
		if !ok {
			return
		}
		tk.OUT1 = uint64(hv.StatusTimeout)
		t.Sched.ReadyQueueFor(t.TaskTimePartition[id]).Push(tk)
	}
}

// --- task family (spec §4.14) ---

// TaskActivate implements task_activate(task_id): validates the id,
// forwards cross-core if the task is owned by another CPU (spec §4.9),
// otherwise activates it directly and pushes it onto its ready queue if
// it transitioned SUSPENDED->READY.
func (t *Table) TaskActivate(caller hv.TaskID, id hv.TaskID) hv.Status {
	tk, ok := t.Tasks[id]
	if !ok {
		if cpu, ok := t.TaskCPU[id]; ok {
			t.Cross.ForwardTaskActivate(cpu, id)
			return hv.OK
		}
		return hv.StatusID
	}
	ready, status := tk.Activate(t.now())
	if status != hv.OK {
		return status
	}
	if ready {
		t.armActivationDeadline(id, tk)
		t.Sched.ReadyQueueFor(t.TaskTimePartition[id]).Push(tk)
	}
	return hv.OK
}

// TaskTerminate implements task_terminate(): the caller terminates
// itself. Effects (ISR unmask, RPC sendq drain) are read off the
// returned TerminateResult by the kernel wiring layer, which owns those
// subsystems.
func (t *Table) TaskTerminate(caller hv.TaskID) (task.TerminateResult, hv.Status) {
	tk, ok := t.Tasks[caller]
	if !ok {
		return task.TerminateResult{}, hv.StatusID
	}
	t.cancelDeadline(caller)
	return tk.TerminateSelf(), hv.OK
}

// TaskChain implements task_chain(task_id): atomically terminate the
// caller and activate another task.
func (t *Table) TaskChain(caller hv.TaskID, next hv.TaskID) (task.TerminateResult, hv.Status) {
	res, status := t.TaskTerminate(caller)
	if status != hv.OK {
		return res, status
	}
	return res, t.TaskActivate(caller, next)
}

// Replenish implements replenish(budget) (spec §4.14): the calling task
// extends its own deadline to now+budget, replacing whatever remaining
// capacity it had left from activation. Used by a long-running task that
// knows it legitimately needs more time than its configured Capacity
// before the next deadline check, rather than letting it surface as a
// missed-deadline HM error.
func (t *Table) Replenish(caller hv.TaskID, budget uint64) hv.Status {
	tk, ok := t.Tasks[caller]
	if !ok {
		return hv.StatusID
	}
	tk.DeadlineAt = t.now() + budget
	t.armDeadlineAt(caller, tk)
	return hv.OK
}

// --- event family (spec §4.7/§4.14) ---

func (t *Table) EvSet(caller hv.TaskID, target hv.TaskID, mask uint64) hv.Status {
	if _, local := t.Tasks[target]; !local {
		if cpu, ok := t.TaskCPU[target]; ok {
			t.Cross.ForwardEventSet(cpu, target, mask)
			return hv.OK
		}
		return hv.StatusID
	}
	return t.Events.Set(target, mask)
}

func (t *Table) EvGet(caller hv.TaskID) uint64 {
	return t.Events.Pending(caller)
}

func (t *Table) EvClear(caller hv.TaskID, mask uint64) hv.Status {
	if _, ok := t.Tasks[caller]; !ok {
		return hv.StatusID
	}
	_, _, status := t.Events.Wait(caller, mask, mask)
	return status
}

// EvWaitGetClear implements ev_wait_get_clear(mask, clearMask): returns
// immediately if already satisfied; otherwise the caller (the kernel
// wiring layer) must transition the task into WAIT_EV.
func (t *Table) EvWaitGetClear(caller hv.TaskID, mask, clearMask uint64) (snapshot uint64, satisfied bool, status hv.Status) {
	return t.Events.Wait(caller, mask, clearMask)
}

// IPEVSet implements ipev_set(id): never surfaces overflow/errors to the
// caller, per spec §4.14.
func (t *Table) IPEVSet(caller hv.TaskID, id hv.IPEVID) hv.Status {
	target, _, ok := t.IPEV.Target(id)
	if !ok {
		return hv.StatusID
	}
	if cpu, ok := t.TaskCPU[target]; ok && cpu != t.CPU {
		t.Cross.ForwardIPEVSet(cpu, id)
		return hv.OK
	}
	t.IPEV.Set(id)
	return hv.OK
}

// --- alarm family (spec §4.4/§4.14) ---

func (t *Table) AlarmGet(id hv.AlarmID) (expiry uint64, cycle uint64, status hv.Status) {
	a, ok := t.Alarms[id]
	if !ok {
		return 0, 0, hv.StatusID
	}
	return a.Expiry, a.Cycle, hv.OK
}

// AlarmSetRel implements alarm_set_rel: validates expiry against the
// counter's max and arms a from its engine's counter's current value plus
// increment.
func (t *Table) AlarmSetRel(id hv.AlarmID, increment uint64, cycle uint64) hv.Status {
	a, ok := t.Alarms[id]
	if !ok {
		return hv.StatusID
	}
	ctrID, ok := t.AlarmCounter[id]
	if !ok {
		return hv.StatusID
	}
	ctr, ok := t.Counters[ctrID]
	if !ok {
		return hv.StatusID
	}
	max := ctr.Max()
	if increment > max {
		return hv.StatusValue
	}
	a.Expiry = (ctr.Query() + increment) % (max + 1)
	a.Cycle = cycle
	eng, ok := t.AlarmEngines[ctrID]
	if !ok {
		return hv.StatusID
	}
	eng.Insert(a)
	return hv.OK
}

// AlarmSetAbs implements alarm_set_abs: expiry is an absolute counter
// value rather than relative to now.
func (t *Table) AlarmSetAbs(id hv.AlarmID, expiry uint64, cycle uint64) hv.Status {
	a, ok := t.Alarms[id]
	if !ok {
		return hv.StatusID
	}
	ctrID, ok := t.AlarmCounter[id]
	if !ok {
		return hv.StatusID
	}
	ctr, ok := t.Counters[ctrID]
	if !ok || expiry > ctr.Max() {
		return hv.StatusValue
	}
	a.Expiry = expiry
	a.Cycle = cycle
	t.AlarmEngines[ctrID].Insert(a)
	return hv.OK
}

// AlarmCancel implements alarm_cancel: idempotent, NOFUNC if the alarm
// was already idle (spec §8 property 8).
func (t *Table) AlarmCancel(id hv.AlarmID) hv.Status {
	a, ok := t.Alarms[id]
	if !ok {
		return hv.StatusID
	}
	ctrID := t.AlarmCounter[id]
	eng, ok := t.AlarmEngines[ctrID]
	if !ok {
		return hv.StatusID
	}
	if !a.Active() {
		return hv.StatusNoFunc
	}
	eng.Cancel(a)
	return hv.OK
}

// --- counter family (spec §4.3/§4.14) ---

func (t *Table) CtrIncrement(caller hv.TaskID, id hv.CounterID, n uint64) hv.Status {
	ctr, ok := t.Counters[id]
	if !ok {
		if cpu, ok := t.CounterCPU[id]; ok {
			t.Cross.ForwardCounterIncrement(cpu, id, n)
			return hv.OK
		}
		return hv.StatusID
	}
	ctr.Increment(n)
	return hv.OK
}

func (t *Table) CtrGet(id hv.CounterID) (value uint64, status hv.Status) {
	ctr, ok := t.Counters[id]
	if !ok {
		return 0, hv.StatusID
	}
	return ctr.Query(), hv.OK
}

// CtrElapsed reports the modular distance travelled since since, per the
// spec's Distance primitive.
func (t *Table) CtrElapsed(id hv.CounterID, since uint64) (elapsed uint64, status hv.Status) {
	ctr, ok := t.Counters[id]
	if !ok {
		return 0, hv.StatusID
	}
	return counter.Distance(since, ctr.Query(), ctr.Max()), hv.OK
}

// --- schedule table family (spec §4.5/§4.14) ---

func (t *Table) SchedTabStartRel(id hv.ScheduleTableID, delay uint64) hv.Status {
	st, ok := t.ScheduleTables[id]
	if !ok {
		return hv.StatusID
	}
	if st.State() != schedtab.Stopped {
		return hv.StatusState
	}
	st.StartRelative(delay)
	return hv.OK
}

func (t *Table) SchedTabStartAbs(id hv.ScheduleTableID, currentDriveValue, startOffset, modulus uint64) hv.Status {
	st, ok := t.ScheduleTables[id]
	if !ok {
		return hv.StatusID
	}
	if st.State() != schedtab.Stopped {
		return hv.StatusState
	}
	st.StartAbsolute(currentDriveValue, startOffset, modulus)
	return hv.OK
}

func (t *Table) SchedTabSync(id hv.ScheduleTableID, value uint64) hv.Status {
	st, ok := t.ScheduleTables[id]
	if !ok {
		return hv.StatusID
	}
	return st.SetSyncValue(value)
}

func (t *Table) SchedTabNext(id, next hv.ScheduleTableID) hv.Status {
	st, ok := t.ScheduleTables[id]
	if !ok {
		return hv.StatusID
	}
	nt, ok := t.ScheduleTables[next]
	if !ok {
		return hv.StatusID
	}
	st.ChainNext(nt)
	return hv.OK
}

func (t *Table) SchedTabStop(id hv.ScheduleTableID) hv.Status {
	st, ok := t.ScheduleTables[id]
	if !ok {
		return hv.StatusID
	}
	st.Stop()
	return hv.OK
}

func (t *Table) SchedTabGetState(id hv.ScheduleTableID) (schedtab.State, hv.Status) {
	st, ok := t.ScheduleTables[id]
	if !ok {
		return schedtab.Stopped, hv.StatusID
	}
	return st.State(), hv.OK
}

// --- wait-queue family (spec §4.6/§4.14) ---

func (t *Table) WQSetDiscipline(id hv.WaitQueueID, disc wq.Discipline, userState *uint64) hv.Status {
	q, ok := t.WaitQueues[id]
	if !ok {
		return hv.StatusID
	}
	return q.SetDiscipline(disc, userState)
}

// WQWait implements wq_wait: returns NO_MATCH immediately if the
// double-checked compare already fails. Otherwise it enqueues w, per spec
// §4.14's timeout convention (spec §5): timeout == 0 fails immediately
// without blocking, a negative timeout suspends the caller forever, and a
// positive one suspends the caller and arms a wake-on-timeout, mirroring
// TaskActivate's armActivationDeadline.
func (t *Table) WQWait(id hv.WaitQueueID, w *wq.Waiter, compare uint64, timeoutNS int64) hv.Status {
	q, ok := t.WaitQueues[id]
	if !ok {
		return hv.StatusID
	}
	status := q.Wait(w, compare)
	if status != hv.OK {
		return status
	}
	if timeoutNS == 0 {
		q.Cancel(w)
		return hv.StatusTimeout // non-blocking wq_wait(timeout=0) fails per spec §5
	}
	tk, ok := t.Tasks[w.Task]
	if !ok {
		q.Cancel(w)
		return hv.StatusID
	}
	if !tk.WaitOnWQ() {
		q.Cancel(w)
		return hv.StatusState
	}
	t.armWQWaitTimeout(tk, id, w, timeoutNS)
	return hv.OK
}

func (t *Table) WQWake(id hv.WaitQueueID, n int) (woken int, status hv.Status) {
	q, ok := t.WaitQueues[id]
	if !ok {
		if cpu, ok := t.WaitQueueCPU[id]; ok {
			t.Cross.ForwardWaitQueueWake(cpu, id, n)
			return 0, hv.OK
		}
		return 0, hv.StatusID
	}
	return q.Wake(n), hv.OK
}

// WQUnblock implements unblock(task_id): forces a waiting task out of
// whatever it is blocked on with STATE, per spec §4.11. A task blocked in
// wq_wait is also unlinked from its wait queue, and either primitive's
// armed timeout is cancelled so it can't fire again for a task that's
// already moving, before the woken task is pushed onto its ready queue.
func (t *Table) WQUnblock(id hv.TaskID) hv.Status {
	tk, ok := t.Tasks[id]
	if !ok {
		return hv.StatusID
	}
	if e, ok := t.wqWaits[id]; ok {
		if q, ok := t.WaitQueues[e.queue]; ok {
			q.Cancel(e.waiter)
		}
	}
	t.cancelWQWaitTimeout(id)
	t.cancelSleepTimeout(id)

	before := tk.State()
	t.Sched.Unblock(tk)
	if before != task.Ready && tk.State() == task.Ready {
		tk.OUT1 = uint64(hv.StatusState)
		t.Sched.ReadyQueueFor(t.TaskTimePartition[id]).Push(tk)
	}
	return hv.OK
}

// WQSleep implements sleep(timeout): a degenerate wait with no queue, using
// the same suspend/timeout-arm machinery as wq_wait (spec §5's shared
// suspension-point contract). A zero timeout fails immediately without
// blocking; a negative timeout suspends forever (only unblock/shutdown end
// it); a positive one suspends the caller and arms a wake-on-timeout.
func (t *Table) WQSleep(caller hv.TaskID, timeoutNS int64) hv.Status {
	if timeoutNS == 0 {
		return hv.StatusTimeout // non-blocking sleep(0) fails per spec §5
	}
	tk, ok := t.Tasks[caller]
	if !ok {
		return hv.StatusID
	}
	if !tk.WaitOnWQ() {
		return hv.StatusState
	}
	if timeoutNS < 0 || t.Sched == nil {
		return hv.OK
	}
	if t.sleepTimeouts == nil {
		t.sleepTimeouts = make(map[hv.TaskID]*sched.TimeoutHandle)
	}
	t.sleepTimeouts[caller] = t.Sched.ArmTimeout(tk, t.now()+uint64(timeoutNS))
	return hv.OK
}

// --- RPC family (spec §4.8/§4.14) ---

func (t *Table) RPCCall(id hv.RPCID, call *rpc.Call) hv.Status {
	ch, ok := t.RPCChannels[id]
	if !ok {
		return hv.StatusID
	}
	return ch.Call(call)
}

func (t *Table) RPCReply(id hv.RPCID, replyID hv.TaskID, replyArg uint64, terminate bool) hv.Status {
	ch, ok := t.RPCChannels[id]
	if !ok {
		return hv.StatusID
	}
	ch.Reply(replyID, replyArg, terminate)
	return hv.OK
}

// --- shared memory / KLDD (spec §4.14, SUPPLEMENTED FEATURES) ---

func (t *Table) SHMIterate(p hv.PartitionID, id hv.SharedMemID) (shm.Window, hv.Status) {
	return t.SHM.Iterate(p, id)
}

func (t *Table) KLDDCall(p hv.PartitionID, id hv.KLDDID, a1, a2, a3 uint32) (uint32, hv.Status) {
	return t.KLDD.Call(p, id, a1, a2, a3)
}

// --- HM / partition / misc (spec §4.13/§4.12/§4.14) ---

func (t *Table) HMInject(p hv.PartitionID, task hv.TaskID, errorID hv.HMErrorID) {
	t.HM.HandleAsyncError(p, errorID)
}

func (t *Table) HMChangeTable(newTable hm.Table) {
	t.HM.SetTable(newTable)
}

func (t *Table) GetTime() uint64 {
	return t.now()
}

// WaitPeriodic reports the delta from the active time partition's last
// RELEASE point to now, the value a periodic task waits against.
func (t *Table) WaitPeriodic() uint64 {
	now := t.now()
	last := t.Sched.LastReleasePoint()
	if now < last {
		return 0
	}
	return now - last
}

func (t *Table) PartSelf(caller hv.TaskID, taskPartition map[hv.TaskID]hv.PartitionID) (hv.PartitionID, hv.Status) {
	p, ok := taskPartition[caller]
	if !ok {
		return 0, hv.StatusID
	}
	return p, hv.OK
}

func (t *Table) PartGetOperatingMode(p hv.PartitionID) (partition.Mode, hv.Status) {
	part, ok := t.Partitions[p]
	if !ok {
		return partition.Idle, hv.StatusID
	}
	return part.Mode(), hv.OK
}

func (t *Table) PartSetOperatingMode(p hv.PartitionID, mode partition.Mode, cause partition.StartCondition) hv.Status {
	part, ok := t.Partitions[p]
	if !ok {
		return hv.StatusID
	}
	return part.RequestMode(mode, cause)
}

func (t *Table) PartGetStartCondition(p hv.PartitionID) (partition.StartCondition, hv.Status) {
	part, ok := t.Partitions[p]
	if !ok {
		return partition.NormalBoot, hv.StatusID
	}
	return part.StartCondition(), hv.OK
}

// Shutdown implements shutdown(mode): halts or resets the board, an
// unconditional handoff with no return to the caller.
func (t *Table) Shutdown(bd interface{ Halt(hv.HaltMode) }, mode hv.HaltMode) {
	bd.Halt(mode)
}
