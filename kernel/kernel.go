// Package kernel wires the immutable configuration image produced by
// package config into the concrete per-CPU runtime state every other
// package operates on, and implements board.Kernel, the entry points the
// board/architecture layer drives (spec §6). It is the kernel's own glue
// code, holding concrete subsystem instances directly (eventloop's Loop
// holding its poller/registry/ring the same way) rather than behind an
// extra layer of interfaces.
package kernel

import (
	"fmt"

	"github.com/icinar-hv/hvcore/alarm"
	"github.com/icinar-hv/hvcore/board"
	"github.com/icinar-hv/hvcore/config"
	"github.com/icinar-hv/hvcore/counter"
	"github.com/icinar-hv/hvcore/diag"
	"github.com/icinar-hv/hvcore/event"
	"github.com/icinar-hv/hvcore/fastproto"
	"github.com/icinar-hv/hvcore/hm"
	"github.com/icinar-hv/hvcore/hv"
	"github.com/icinar-hv/hvcore/ipi"
	"github.com/icinar-hv/hvcore/kldd"
	"github.com/icinar-hv/hvcore/partition"
	"github.com/icinar-hv/hvcore/rpc"
	"github.com/icinar-hv/hvcore/sched"
	"github.com/icinar-hv/hvcore/schedtab"
	"github.com/icinar-hv/hvcore/shm"
	"github.com/icinar-hv/hvcore/syscalls"
	"github.com/icinar-hv/hvcore/task"
	"github.com/icinar-hv/hvcore/wq"
)

// Cross-core IPI action kinds, the opcode vocabulary between syscalls'
// CrossCore forwarding calls and the destination core's handleAction.
const (
	actTaskActivate ipi.ActionKind = iota
	actEventSet
	actIPEVSet
	actCounterIncrement
	actPartitionMode
	actWaitQueueWake
)

// core holds one CPU's concrete runtime state.
type core struct {
	CPU hv.CPUID

	Sched    *sched.Scheduler
	Syscalls *syscalls.Table

	Partitions map[hv.PartitionID]*partition.Partition
	Tasks      map[hv.TaskID]*task.Task

	Counters       map[hv.CounterID]*counter.Counter
	AlarmEngines   map[hv.CounterID]*alarm.Engine
	Alarms         map[hv.AlarmID]*alarm.Alarm
	ScheduleTables map[hv.ScheduleTableID]*schedtab.Table
	WaitQueues     map[hv.WaitQueueID]*wq.WaitQueue
	RPCChannels    map[hv.RPCID]*rpc.Channel

	Events *event.Table
	IPEV   *event.IPEVTable
	KLDD   *kldd.Table
	SHM    *shm.Table
	HM     *hm.Monitor

	FastProto map[hv.PartitionID]*fastproto.Block
}

// Kernel is the whole-system runtime built from a config.Built image: one
// core per configured CPU, a cross-core IPI matrix connecting them, and
// the board the core drives and is driven by.
type Kernel struct {
	Cfg   *config.Built
	Board board.Board
	Log   diag.Logger

	cores  map[hv.CPUID]*core
	matrix *ipi.Matrix

	taskCPU    map[hv.TaskID]hv.CPUID
	counterCPU map[hv.CounterID]hv.CPUID
	wqCPU      map[hv.WaitQueueID]hv.CPUID
}

var _ board.Kernel = (*Kernel)(nil)

// Build constructs a Kernel from cfg, ready to have Main called for each
// configured CPU.
func Build(cfg *config.Built, bd board.Board, log diag.Logger) (*Kernel, error) {
	if log == nil {
		log = diag.NewDiscard()
	}
	k := &Kernel{
		Cfg:        cfg,
		Board:      bd,
		Log:        log,
		cores:      make(map[hv.CPUID]*core, cfg.Config.NumCPU),
		taskCPU:    make(map[hv.TaskID]hv.CPUID),
		counterCPU: make(map[hv.CounterID]hv.CPUID),
		wqCPU:      make(map[hv.WaitQueueID]hv.CPUID),
	}

	ringCap := cfg.Config.IPIRingCapacity
	if ringCap <= 0 {
		ringCap = 64
	}
	k.matrix = ipi.NewMatrix(cfg.Config.NumCPU, ringCap)

	for cpu := 0; cpu < cfg.Config.NumCPU; cpu++ {
		k.cores[hv.CPUID(cpu)] = &core{
			CPU:            hv.CPUID(cpu),
			Partitions:     make(map[hv.PartitionID]*partition.Partition),
			Tasks:          make(map[hv.TaskID]*task.Task),
			Counters:       make(map[hv.CounterID]*counter.Counter),
			AlarmEngines:   make(map[hv.CounterID]*alarm.Engine),
			Alarms:         make(map[hv.AlarmID]*alarm.Alarm),
			ScheduleTables: make(map[hv.ScheduleTableID]*schedtab.Table),
			WaitQueues:     make(map[hv.WaitQueueID]*wq.WaitQueue),
			RPCChannels:    make(map[hv.RPCID]*rpc.Channel),
			FastProto:      make(map[hv.PartitionID]*fastproto.Block),
		}
	}

	if err := k.wireTasks(); err != nil {
		return nil, err
	}
	k.wireCounters()
	if err := k.wireAlarms(); err != nil {
		return nil, err
	}
	k.wireScheduleTables()
	k.wireWaitQueues()
	if err := k.wireRPCChannels(); err != nil {
		return nil, err
	}
	k.wirePartitions()
	k.wireEventsAndIPEV()
	k.wireKLDD()
	k.wireSHM()
	k.wireHM()
	k.wireFastProto()
	k.wireSchedulers()
	k.wireSyscalls()

	return k, nil
}

func (k *Kernel) core(cpu hv.CPUID) *core { return k.cores[cpu] }

func (k *Kernel) taskPartition(id hv.TaskID) (hv.PartitionID, bool) {
	tc, ok := k.Cfg.TaskByID[id]
	if !ok {
		return 0, false
	}
	return tc.Partition, true
}

func (k *Kernel) timePartitionOf(taskID hv.TaskID) hv.TimePartitionID {
	tc, ok := k.Cfg.TaskByID[taskID]
	if !ok {
		return 0
	}
	pc, ok := k.Cfg.PartitionByID[tc.Partition]
	if !ok {
		return 0
	}
	return pc.TimePartition
}

func (k *Kernel) wireTasks() error {
	for _, tc := range k.Cfg.Config.Tasks {
		c, ok := k.cores[tc.CPU]
		if !ok {
			return fmt.Errorf("kernel: task %d owned by unconfigured cpu %d", tc.ID, tc.CPU)
		}
		c.Tasks[tc.ID] = task.New(tc)
		k.taskCPU[tc.ID] = tc.CPU
	}
	return nil
}

func (k *Kernel) wireCounters() {
	for _, cc := range k.Cfg.Config.Counters {
		c := k.core(cc.CPU)
		var ctr *counter.Counter
		if cc.Kind == counter.Hardware {
			ctr = counter.NewHardware(cc.ID, cc.Max, cc.Device)
			ctr.Register()
		} else {
			ctr = counter.New(cc.ID, cc.Max)
		}
		c.Counters[cc.ID] = ctr
		k.counterCPU[cc.ID] = cc.CPU
	}
}

func (k *Kernel) wireAlarms() error {
	for cpu, c := range k.cores {
		for id, ctr := range c.Counters {
			c.AlarmEngines[id] = alarm.NewEngine(ctr, &dispatch{k: k, cpu: cpu})
		}
	}
	for _, ac := range k.Cfg.Config.Alarms {
		c := k.core(ac.CPU)
		if _, ok := c.AlarmEngines[ac.Counter]; !ok {
			return fmt.Errorf("kernel: alarm %d's counter %d not on cpu %d", ac.ID, ac.Counter, ac.CPU)
		}
		a := &alarm.Alarm{
			ID:           ac.ID,
			Action:       ac.Action,
			EventTask:    ac.EventTask,
			EventMask:    ac.EventMask,
			ActivateTask: ac.ActivateTask,
			Invoke:       ac.Invoke,
			SchedTable:   ac.SchedTable,
		}
		if ac.Action == alarm.ActionCounter {
			chainCPU, ok := k.counterCPU[ac.ChainCounter]
			if !ok {
				return fmt.Errorf("kernel: alarm %d's chain counter %d is unconfigured", ac.ID, ac.ChainCounter)
			}
			a.ChainCounter = k.core(chainCPU).Counters[ac.ChainCounter]
		}
		c.Alarms[ac.ID] = a
	}
	return nil
}

func (k *Kernel) wireScheduleTables() {
	for _, stc := range k.Cfg.Config.ScheduleTables {
		c := k.core(stc.CPU)
		st := &schedtab.Table{ID: stc.ID, Ops: stc.Ops, SyncMode: stc.SyncMode, MaxDev: stc.MaxDev}
		c.ScheduleTables[stc.ID] = st

		ctr := c.Counters[stc.Counter]
		eng := c.AlarmEngines[stc.Counter]
		driving := &alarm.Alarm{ID: hv.AlarmID(0x8000 | uint16(stc.ID)), Action: alarm.ActionSchedTab, SchedTable: stc.ID}
		st.Expire = func(delta uint64) {
			eng.Cancel(driving)
			driving.Expiry = (ctr.Query() + delta) % (ctr.Max() + 1)
			driving.Cycle = 0
			eng.Insert(driving)
		}
	}
}

func (k *Kernel) wireWaitQueues() {
	for _, wqc := range k.Cfg.Config.WaitQueues {
		c := k.core(wqc.CPU)
		c.WaitQueues[wqc.ID] = wq.New(wqc.ID, &dispatch{k: k, cpu: wqc.CPU})
		k.wqCPU[wqc.ID] = wqc.CPU
	}
}

func (k *Kernel) wireRPCChannels() error {
	for _, rc := range k.Cfg.Config.RPCChannels {
		cpu, ok := k.taskCPU[rc.Receiver]
		if !ok {
			return fmt.Errorf("kernel: rpc channel %d receiver %d not wired", rc.ID, rc.Receiver)
		}
		c := k.core(cpu)
		basePrio := c.Tasks[rc.Receiver].Cfg.BasePrio
		c.RPCChannels[rc.ID] = rpc.New(rc.ID, rc.Receiver, rc.FloorPrio, basePrio, &dispatch{k: k, cpu: cpu})
	}
	return nil
}

func (k *Kernel) wirePartitions() {
	for _, pc := range k.Cfg.Config.Partitions {
		c := k.core(pc.CPU)
		c.Partitions[pc.ID] = partition.New(pc.ID, &dispatch{k: k, cpu: pc.CPU})
	}
}

func (k *Kernel) wireEventsAndIPEV() {
	for cpu, c := range k.cores {
		c.Events = event.New(&dispatch{k: k, cpu: cpu})
		c.IPEV = event.NewIPEVTable(c.Events)
	}
	for _, ic := range k.Cfg.Config.IPEV {
		cpu, ok := k.taskCPU[ic.Task]
		if !ok {
			continue
		}
		k.core(cpu).IPEV.Bind(ic.ID, ic.Task, ic.Mask)
	}
}

func (k *Kernel) wireKLDD() {
	for _, c := range k.cores {
		c.KLDD = kldd.New()
	}
	for _, kc := range k.Cfg.Config.KLDD {
		pc, ok := k.Cfg.PartitionByID[kc.Partition]
		if !ok {
			continue
		}
		k.core(pc.CPU).KLDD.Register(kc.Partition, kc.ID, kc.Func)
	}
}

func (k *Kernel) wireSHM() {
	for _, c := range k.cores {
		c.SHM = shm.New()
	}
	for _, sc := range k.Cfg.Config.SharedMem {
		pc, ok := k.Cfg.PartitionByID[sc.Partition]
		if !ok {
			continue
		}
		k.core(pc.CPU).SHM.Configure(sc.Partition, sc.ID, sc.Window)
	}
}

func (k *Kernel) wireHM() {
	for cpu, c := range k.cores {
		c.HM = hm.New(k.Cfg.Config.HMTable, &dispatch{k: k, cpu: cpu}, k.Board)
	}
}

func (k *Kernel) wireFastProto() {
	for _, pc := range k.Cfg.Config.Partitions {
		k.core(pc.CPU).FastProto[pc.ID] = &fastproto.Block{}
	}
}

func (k *Kernel) wireSchedulers() {
	for cpu, c := range k.cores {
		c.Sched = sched.New(cpu, k.Cfg.Config.Windows[cpu], k.Board)
		hmTable := c.HM
		c.Sched.OnDeadlineMiss = func(tk *task.Task) {
			pid, ok := k.taskPartition(tk.Cfg.ID)
			if !ok {
				return
			}
			hmTable.HandleAsyncError(pid, k.Cfg.Config.DeadlineMissErrorID)
		}
		// Syscalls isn't built until wireSyscalls, later in this same
		// Build() call; by the time a timeout actually fires this closure
		// runs, it's always populated.
		c.Sched.OnTimeout = func(tk *task.Task) {
			if c.Syscalls != nil {
				c.Syscalls.resolveTimeout(tk.Cfg.ID)
			}
		}
	}
}

func (k *Kernel) wireSyscalls() {
	for cpu, c := range k.cores {
		c.Syscalls = &syscalls.Table{
			CPU:               cpu,
			Now:               k.now,
			Sched:             c.Sched,
			Tasks:             c.Tasks,
			TaskCPU:           k.taskCPU,
			TaskTimePartition: k.taskTimePartitions(),
			Partitions:        c.Partitions,
			Counters:          c.Counters,
			CounterCPU:        k.counterCPU,
			AlarmEngines:      c.AlarmEngines,
			Alarms:            c.Alarms,
			AlarmCounter:      k.alarmCounters(),
			ScheduleTables:    c.ScheduleTables,
			WaitQueues:        c.WaitQueues,
			WaitQueueCPU:      k.wqCPU,
			RPCChannels:       c.RPCChannels,
			Events:            c.Events,
			IPEV:              c.IPEV,
			KLDD:              c.KLDD,
			SHM:               c.SHM,
			HM:                c.HM,
			Cross:             &crossCore{k: k, src: cpu},
		}
	}
}

func (k *Kernel) taskTimePartitions() map[hv.TaskID]hv.TimePartitionID {
	m := make(map[hv.TaskID]hv.TimePartitionID, len(k.Cfg.Config.Tasks))
	for _, tc := range k.Cfg.Config.Tasks {
		m[tc.ID] = k.timePartitionOf(tc.ID)
	}
	return m
}

func (k *Kernel) alarmCounters() map[hv.AlarmID]hv.CounterID {
	m := make(map[hv.AlarmID]hv.CounterID, len(k.Cfg.Config.Alarms))
	for _, ac := range k.Cfg.Config.Alarms {
		m[ac.ID] = ac.Counter
	}
	return m
}

func (k *Kernel) now() uint64 {
	if k.Board == nil {
		return 0
	}
	return k.Board.GetTime()
}

// --- board.Kernel ---

// Main is the per-CPU boot entry point: every partition owned by cpu is
// driven to COLD_START (or, following an HM-triggered restart, the same
// path with a different recorded start condition) and its queued
// transition applied immediately, since boot precedes the first scheduler
// entry (spec §4.12).
func (k *Kernel) Main(cpu hv.CPUID, hmRestart bool) {
	c := k.core(cpu)
	cause := partition.NormalBoot
	if hmRestart {
		cause = partition.HMPartitionRestart
	}
	for _, p := range c.Partitions {
		p.RequestMode(partition.ColdStart, cause)
		p.ApplyPending()
	}
}

// Timer is the per-CPU timer-tick entry point: apply any partition mode
// changes queued since the last entry, send a hardware IPI to every CPU
// this one has posted cross-core actions to, then run the scheduler's
// single reschedule path (spec §4.11/§4.12).
func (k *Kernel) Timer(cpu hv.CPUID, nowNS uint64) {
	c := k.core(cpu)
	for _, p := range c.Partitions {
		p.ApplyPending()
	}
	for pid, b := range c.FastProto {
		pc := k.Cfg.PartitionByID[pid]
		if synced, ok := fastproto.Sync(b, pc.MaxPrio, &dispatch{k: k, cpu: cpu}); ok {
			c.Sched.ActiveReadyQueue().PeekHighestPrio()
			_ = synced
		}
	}
	if mask := k.matrix.Reschedule(cpu); mask != 0 && k.Board != nil {
		k.Board.IPIBroadcast(mask)
	}
	c.Sched.Exit(nowNS)
}

// IncrementCounter drives a hardware-backed counter's tick (spec §4.3).
func (k *Kernel) IncrementCounter(counter hv.CounterID, inc uint64) {
	cpu, ok := k.counterCPU[counter]
	if !ok {
		return
	}
	k.core(cpu).Counters[counter].Increment(inc)
}

// WakeISRTask activates an ISR task in response to its associated
// interrupt (spec §4.10's ISR activation path).
func (k *Kernel) WakeISRTask(taskID hv.TaskID) {
	cpu, ok := k.taskCPU[taskID]
	if !ok {
		return
	}
	c := k.core(cpu)
	tk := c.Tasks[taskID]
	ready, status := tk.Activate(k.now())
	if status == hv.OK && ready {
		c.Sched.ReadyQueueFor(k.timePartitionOf(taskID)).Push(tk)
	}
}

// IPIHandle drains every action queued from source to target and applies
// it against target's local state (spec §4.9).
func (k *Kernel) IPIHandle(target, source hv.CPUID) {
	k.matrix.Drain(source, target, func(a ipi.Action) {
		k.handleAction(target, a)
	})
}

// CheckUserAddr validates a user-supplied [addr, addr+size) range against
// p's configured memory ranges (spec §4.14's address-range validation
// step).
func (k *Kernel) CheckUserAddr(p hv.PartitionID, addr uintptr, size uintptr) hv.Status {
	pc, ok := k.Cfg.PartitionByID[p]
	if !ok {
		return hv.StatusID
	}
	for _, r := range pc.MemRanges {
		if (config.MemRange{Start: r.Start, End: r.End}).Contains(addr, size) {
			return hv.OK
		}
	}
	return hv.StatusIllegalAddress
}

func (k *Kernel) handleAction(target hv.CPUID, a ipi.Action) {
	c := k.core(target)
	switch a.Kind {
	case actTaskActivate:
		taskID := hv.TaskID(a.Target)
		tk, ok := c.Tasks[taskID]
		if !ok {
			return
		}
		ready, status := tk.Activate(k.now())
		if status == hv.OK && ready {
			c.Sched.ReadyQueueFor(k.timePartitionOf(taskID)).Push(tk)
		}
	case actEventSet:
		c.Events.Set(hv.TaskID(a.Target), a.Aux)
	case actIPEVSet:
		c.IPEV.Set(hv.IPEVID(a.Target))
	case actCounterIncrement:
		if ctr, ok := c.Counters[hv.CounterID(a.Target)]; ok {
			ctr.Increment(a.Aux)
		}
	case actPartitionMode:
		if p, ok := c.Partitions[hv.PartitionID(a.Target)]; ok {
			mode := partition.Mode(a.Aux >> 32)
			cause := partition.StartCondition(a.Aux & 0xffffffff)
			p.RequestMode(mode, cause)
		}
	case actWaitQueueWake:
		if q, ok := c.WaitQueues[hv.WaitQueueID(a.Target)]; ok {
			q.Wake(int(a.Aux))
		}
	}
}

// crossCore implements syscalls.CrossCore by posting onto the kernel's
// shared ipi.Matrix from src, the CPU the issuing syscalls.Table belongs
// to.
type crossCore struct {
	k   *Kernel
	src hv.CPUID
}

func (c *crossCore) ForwardTaskActivate(cpu hv.CPUID, task hv.TaskID) {
	c.k.matrix.Send(c.src, cpu, ipi.Action{Kind: actTaskActivate, Target: uint32(task)})
}

func (c *crossCore) ForwardEventSet(cpu hv.CPUID, task hv.TaskID, mask uint64) {
	c.k.matrix.Send(c.src, cpu, ipi.Action{Kind: actEventSet, Target: uint32(task), Aux: mask})
}

func (c *crossCore) ForwardIPEVSet(cpu hv.CPUID, id hv.IPEVID) {
	c.k.matrix.Send(c.src, cpu, ipi.Action{Kind: actIPEVSet, Target: uint32(id)})
}

func (c *crossCore) ForwardCounterIncrement(cpu hv.CPUID, ctr hv.CounterID, n uint64) {
	c.k.matrix.Send(c.src, cpu, ipi.Action{Kind: actCounterIncrement, Target: uint32(ctr), Aux: n})
}

func (c *crossCore) ForwardPartitionMode(cpu hv.CPUID, p hv.PartitionID, mode partition.Mode, cause partition.StartCondition) {
	aux := uint64(mode)<<32 | uint64(uint32(cause))
	c.k.matrix.Send(c.src, cpu, ipi.Action{Kind: actPartitionMode, Target: uint32(p), Aux: aux})
}

func (c *crossCore) ForwardWaitQueueWake(cpu hv.CPUID, wqID hv.WaitQueueID, n int) {
	c.k.matrix.Send(c.src, cpu, ipi.Action{Kind: actWaitQueueWake, Target: uint32(wqID), Aux: uint64(n)})
}
