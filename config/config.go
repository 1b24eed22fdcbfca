// Package config defines the immutable, code-literal configuration image
// the offline toolchain would otherwise produce (spec §1's "immutable
// configuration tables" are out of scope; this package is the in-process
// stand-in for their validated output). A Config value is built once at
// process start and never mutated afterward, matching the Non-goals (no
// dynamic creation of partitions/tasks/alarms/wait-queues/counters after
// boot).
package config

import (
	"fmt"

	"github.com/icinar-hv/hvcore/alarm"
	"github.com/icinar-hv/hvcore/counter"
	"github.com/icinar-hv/hvcore/hm"
	"github.com/icinar-hv/hvcore/hv"
	"github.com/icinar-hv/hvcore/kldd"
	"github.com/icinar-hv/hvcore/schedtab"
	"github.com/icinar-hv/hvcore/sched"
	"github.com/icinar-hv/hvcore/shm"
	"github.com/icinar-hv/hvcore/task"
)

// MemRange is one half-open [Start, End) address interval a partition may
// access (spec §3's up-to-four memory ranges per partition).
type MemRange struct {
	Start, End uintptr
}

// Contains reports whether [addr, addr+size) lies entirely within r.
func (r MemRange) Contains(addr, size uintptr) bool {
	return addr >= r.Start && addr+size <= r.End && addr+size >= addr
}

// PartitionConfig is one configured partition (spec §3).
type PartitionConfig struct {
	ID              hv.PartitionID
	CPU             hv.CPUID
	TimePartition   hv.TimePartitionID
	MaxPrio         int
	Privileged      bool
	Restartable     bool
	MemRanges       []MemRange
	InitHook        hv.TaskID // hv.NoTask if unused
	ErrorHook       hv.TaskID
	ExceptionHook   hv.TaskID
}

// CounterConfig is one configured counter (spec §3).
type CounterConfig struct {
	ID       hv.CounterID
	CPU      hv.CPUID
	Max      uint64
	Kind     counter.Kind
	Device   counter.Device // required when Kind == counter.Hardware
}

// AlarmConfig is one configured alarm (spec §3/§4.4).
type AlarmConfig struct {
	ID           hv.AlarmID
	Partition    hv.PartitionID
	Counter      hv.CounterID
	CPU          hv.CPUID
	Action       alarm.Action
	EventTask    hv.TaskID
	EventMask    uint64
	ActivateTask hv.TaskID
	Invoke       func()
	ChainCounter hv.CounterID
	SchedTable   hv.ScheduleTableID
	Expiry       uint64
	Cycle        uint64
}

// ScheduleTableConfig is one configured schedule table (spec §3/§4.5).
type ScheduleTableConfig struct {
	ID        hv.ScheduleTableID
	Partition hv.PartitionID
	Counter   hv.CounterID
	CPU       hv.CPUID
	Ops      []schedtab.Op
	SyncMode schedtab.SyncStrategy
	MaxDev   uint64
}

// WaitQueueConfig is one configured wait queue (spec §3/§4.6).
type WaitQueueConfig struct {
	ID        hv.WaitQueueID
	Partition hv.PartitionID
	CPU       hv.CPUID
}

// RPCChannelConfig is one configured RPC channel (spec §3/§4.8).
type RPCChannelConfig struct {
	ID        hv.RPCID
	Receiver  hv.TaskID
	FloorPrio int
}

// KLDDConfig registers one KLDD trampoline for a partition (spec §4.14).
type KLDDConfig struct {
	Partition hv.PartitionID
	ID        hv.KLDDID
	Func      kldd.Func
}

// SharedMemConfig configures one shared-memory window for a partition
// (spec §4.14's shm_iterate).
type SharedMemConfig struct {
	Partition hv.PartitionID
	ID        hv.SharedMemID
	Window    shm.Window
}

// IPEVConfig binds one inter-partition event id to its target (spec's
// SUPPLEMENTED FEATURES IPEV extension).
type IPEVConfig struct {
	ID   hv.IPEVID
	Task hv.TaskID
	Mask uint64
}

// Config is the complete immutable configuration image for one hvcore
// instance (spec §2's "all configuration is immutable after boot").
type Config struct {
	NumCPU          int
	Windows         map[hv.CPUID][]sched.Window
	IPIRingCapacity int

	Partitions     []PartitionConfig
	Tasks          []task.Config
	Counters       []CounterConfig
	Alarms         []AlarmConfig
	ScheduleTables []ScheduleTableConfig
	WaitQueues     []WaitQueueConfig
	RPCChannels    []RPCChannelConfig
	KLDD           []KLDDConfig
	SharedMem      []SharedMemConfig
	IPEV           []IPEVConfig
	HMTable        hm.Table

	// DeadlineMissErrorID is the HM error code raised (via the async
	// task-error path, spec §4.13) when a task's deadline queue entry
	// expires before it terminates or replenishes (spec property 10). Zero
	// is a valid configured error id like any other. A deadline entry is
	// armed for a task with nonzero Capacity only when it is activated
	// through syscalls.Table.TaskActivate (and moved by Replenish); alarm
	// actions, ISR wake-ups and IPI-forwarded activations arm none.
	DeadlineMissErrorID hv.HMErrorID
}

// Built is the cross-reference index produced by Build: every id mapped
// to the CPU and/or partition that owns it, ready for the kernel wiring
// layer to construct runtime objects from.
type Built struct {
	Config Config

	PartitionByID map[hv.PartitionID]PartitionConfig
	TaskByID      map[hv.TaskID]task.Config
	CounterByID   map[hv.CounterID]CounterConfig
	TablePartition map[hv.ScheduleTableID]hv.PartitionID
}

// Build validates cross-references in c and returns the index a kernel
// instance is constructed from, reproducing in-process the offline
// toolchain's validation role (spec §1: config is "produced by the
// offline configuration toolchain" on real hardware; here there is no
// separate toolchain stage, so validation happens once at Build time
// instead).
func Build(c Config) (*Built, error) {
	b := &Built{
		Config:         c,
		PartitionByID:  make(map[hv.PartitionID]PartitionConfig, len(c.Partitions)),
		TaskByID:       make(map[hv.TaskID]task.Config, len(c.Tasks)),
		CounterByID:    make(map[hv.CounterID]CounterConfig, len(c.Counters)),
		TablePartition: make(map[hv.ScheduleTableID]hv.PartitionID, len(c.ScheduleTables)),
	}

	if c.NumCPU <= 0 {
		return nil, fmt.Errorf("config: NumCPU must be positive")
	}

	for _, p := range c.Partitions {
		if _, dup := b.PartitionByID[p.ID]; dup {
			return nil, fmt.Errorf("config: duplicate partition id %d", p.ID)
		}
		if int(p.CPU) >= c.NumCPU {
			return nil, fmt.Errorf("config: partition %d owned by out-of-range cpu %d", p.ID, p.CPU)
		}
		if len(p.MemRanges) > 4 {
			return nil, fmt.Errorf("config: partition %d has more than 4 memory ranges", p.ID)
		}
		b.PartitionByID[p.ID] = p
	}

	for _, t := range c.Tasks {
		if _, dup := b.TaskByID[t.ID]; dup {
			return nil, fmt.Errorf("config: duplicate task id %d", t.ID)
		}
		owner, ok := b.PartitionByID[t.Partition]
		if !ok {
			return nil, fmt.Errorf("config: task %d owned by unknown partition %d", t.ID, t.Partition)
		}
		if t.BasePrio < 0 || t.BasePrio >= owner.MaxPrio {
			return nil, fmt.Errorf("config: task %d base priority %d exceeds partition %d max %d", t.ID, t.BasePrio, t.Partition, owner.MaxPrio)
		}
		b.TaskByID[t.ID] = t
	}

	for _, p := range c.Partitions {
		for name, hook := range map[string]hv.TaskID{"init": p.InitHook, "error": p.ErrorHook, "exception": p.ExceptionHook} {
			if hook == hv.NoTask {
				continue
			}
			ht, ok := b.TaskByID[hook]
			if !ok {
				return nil, fmt.Errorf("config: partition %d %s hook references unknown task %d", p.ID, name, hook)
			}
			if ht.Partition != p.ID {
				return nil, fmt.Errorf("config: partition %d %s hook %d belongs to partition %d", p.ID, name, hook, ht.Partition)
			}
		}
	}

	for _, ctr := range c.Counters {
		if _, dup := b.CounterByID[ctr.ID]; dup {
			return nil, fmt.Errorf("config: duplicate counter id %d", ctr.ID)
		}
		if ctr.Kind == counter.Hardware && ctr.Device == nil {
			return nil, fmt.Errorf("config: hardware counter %d has no device", ctr.ID)
		}
		b.CounterByID[ctr.ID] = ctr
	}

	for _, a := range c.Alarms {
		if _, ok := b.CounterByID[a.Counter]; !ok {
			return nil, fmt.Errorf("config: alarm %d references unknown counter %d", a.ID, a.Counter)
		}
		if a.Expiry > b.CounterByID[a.Counter].Max {
			return nil, fmt.Errorf("config: alarm %d expiry %d exceeds counter %d max %d", a.ID, a.Expiry, a.Counter, b.CounterByID[a.Counter].Max)
		}
		if _, ok := b.PartitionByID[a.Partition]; !ok {
			return nil, fmt.Errorf("config: alarm %d owned by unknown partition %d", a.ID, a.Partition)
		}
	}

	for _, st := range c.ScheduleTables {
		if _, ok := b.CounterByID[st.Counter]; !ok {
			return nil, fmt.Errorf("config: schedule table %d references unknown counter %d", st.ID, st.Counter)
		}
		if _, ok := b.PartitionByID[st.Partition]; !ok {
			return nil, fmt.Errorf("config: schedule table %d owned by unknown partition %d", st.ID, st.Partition)
		}
		b.TablePartition[st.ID] = st.Partition
	}

	for _, wqc := range c.WaitQueues {
		if _, ok := b.PartitionByID[wqc.Partition]; !ok {
			return nil, fmt.Errorf("config: wait queue %d owned by unknown partition %d", wqc.ID, wqc.Partition)
		}
	}

	for _, rpc := range c.RPCChannels {
		rt, ok := b.TaskByID[rpc.Receiver]
		if !ok {
			return nil, fmt.Errorf("config: rpc channel %d references unknown task %d", rpc.ID, rpc.Receiver)
		}
		if !rt.IsHook {
			return nil, fmt.Errorf("config: rpc channel %d receiver %d is not a HOOK task", rpc.ID, rpc.Receiver)
		}
	}

	for _, win := range c.Windows {
		for _, w := range win {
			if w.DurationNS == 0 {
				return nil, fmt.Errorf("config: zero-duration time-partition window")
			}
		}
	}

	return b, nil
}
