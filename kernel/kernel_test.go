package kernel

import (
	"testing"

	"github.com/icinar-hv/hvcore/board"
	"github.com/icinar-hv/hvcore/config"
	"github.com/icinar-hv/hvcore/counter"
	"github.com/icinar-hv/hvcore/hv"
	"github.com/icinar-hv/hvcore/partition"
	"github.com/icinar-hv/hvcore/sched"
	"github.com/icinar-hv/hvcore/task"
	"github.com/stretchr/testify/require"
)

// fakeBoard is a minimal board.Board stub recording Halt calls; every
// other method is a no-op, matching kernel's own use of Board (GetTime,
// Halt) and leaving the rest unexercised by these tests.
type fakeBoard struct {
	now      uint64
	halted   bool
	haltMode hv.HaltMode
}

func (b *fakeBoard) GetTime() uint64         { return b.now }
func (b *fakeBoard) TimerResolution() uint32 { return 1000 }
func (b *fakeBoard) Putc(byte) bool          { return false }
func (b *fakeBoard) MPUInit()                {}
func (b *fakeBoard) MPUPartSwitch(any)       {}
func (b *fakeBoard) MPUTaskSwitch(any)       {}
func (b *fakeBoard) IRQEnable(uint32)        {}
func (b *fakeBoard) IRQDisable(uint32)       {}
func (b *fakeBoard) UnhandledIRQ(uint32)     {}
func (b *fakeBoard) IPIBroadcast(uint64)     {}
func (b *fakeBoard) Halt(mode hv.HaltMode) {
	b.halted = true
	b.haltMode = mode
}
func (b *fakeBoard) HMException(board.HMException) bool                     { return false }
func (b *fakeBoard) TPSwitch(hv.TimePartitionID, hv.TimePartitionID, uint32) {}
func (b *fakeBoard) CPU0Up()                                                {}
func (b *fakeBoard) StartSecondaryCPUs()                                    {}
func (b *fakeBoard) SecondaryCPUUp(hv.CPUID)                                {}
func (b *fakeBoard) StartupComplete()                                       {}

var _ board.Board = (*fakeBoard)(nil)

func twoCPUConfig() config.Config {
	return config.Config{
		NumCPU: 2,
		Windows: map[hv.CPUID][]sched.Window{
			0: {{TP: 0, DurationNS: 1000}},
			1: {{TP: 0, DurationNS: 1000}},
		},
		IPIRingCapacity: 8,
		Partitions: []config.PartitionConfig{
			{ID: 1, CPU: 0, TimePartition: 0, MaxPrio: 10, InitHook: hv.NoTask, ErrorHook: hv.NoTask, ExceptionHook: hv.NoTask},
			{ID: 2, CPU: 1, TimePartition: 0, MaxPrio: 10, InitHook: hv.NoTask, ErrorHook: hv.NoTask, ExceptionHook: hv.NoTask},
		},
		Tasks: []task.Config{
			{ID: 1, Partition: 1, CPU: 0, BasePrio: 5, MaxActivations: 2},
			{ID: 2, Partition: 2, CPU: 1, BasePrio: 5, MaxActivations: 2},
		},
	}
}

func buildTestKernel(t *testing.T) (*Kernel, *fakeBoard) {
	t.Helper()
	bd := &fakeBoard{now: 100}
	built, err := config.Build(twoCPUConfig())
	require.NoError(t, err)
	k, err := Build(built, bd, nil)
	require.NoError(t, err)
	return k, bd
}

func TestBuildWiresEveryCPU(t *testing.T) {
	k, _ := buildTestKernel(t)
	require.Len(t, k.cores, 2)
	require.Contains(t, k.cores[0].Tasks, hv.TaskID(1))
	require.Contains(t, k.cores[1].Tasks, hv.TaskID(2))
	require.Equal(t, hv.CPUID(0), k.taskCPU[1])
	require.Equal(t, hv.CPUID(1), k.taskCPU[2])
}

func TestMainAppliesColdStartOnBoot(t *testing.T) {
	k, _ := buildTestKernel(t)
	k.Main(0, false)
	p := k.cores[0].Partitions[1]
	require.Equal(t, partition.ColdStart, p.Mode())
	require.Equal(t, partition.NormalBoot, p.StartCondition())
}

func TestMainRecordsHMRestartCause(t *testing.T) {
	k, _ := buildTestKernel(t)
	k.Main(0, true)
	p := k.cores[0].Partitions[1]
	require.Equal(t, partition.HMPartitionRestart, p.StartCondition())
}

func TestIncrementCounterRoutesToOwningCPU(t *testing.T) {
	bd := &fakeBoard{now: 100}
	cfg := twoCPUConfig()
	cfg.Counters = []config.CounterConfig{{ID: 10, CPU: 0, Max: 999, Kind: counter.Software}}
	built, err := config.Build(cfg)
	require.NoError(t, err)
	k, err := Build(built, bd, nil)
	require.NoError(t, err)

	k.IncrementCounter(10, 5)
	require.Equal(t, uint64(5), k.cores[0].Counters[10].Query())
}

func TestWakeISRTaskPushesToReadyQueue(t *testing.T) {
	k, _ := buildTestKernel(t)
	k.WakeISRTask(1)
	require.Equal(t, task.Ready, k.cores[0].Tasks[1].State())
}

func TestIPIHandleDeliversCrossCoreActivate(t *testing.T) {
	k, _ := buildTestKernel(t)
	cc := &crossCore{k: k, src: 0}
	cc.ForwardTaskActivate(1, 2)
	k.IPIHandle(1, 0)
	require.Equal(t, task.Ready, k.cores[1].Tasks[2].State())
}

func TestCheckUserAddrValidatesConfiguredRanges(t *testing.T) {
	bd := &fakeBoard{now: 100}
	cfg := twoCPUConfig()
	cfg.Partitions[0].MemRanges = []config.MemRange{{Start: 0x1000, End: 0x2000}}
	built, err := config.Build(cfg)
	require.NoError(t, err)
	k, err := Build(built, bd, nil)
	require.NoError(t, err)

	require.Equal(t, hv.OK, k.CheckUserAddr(1, 0x1000, 0x10))
	require.Equal(t, hv.StatusIllegalAddress, k.CheckUserAddr(1, 0x3000, 0x10))
	require.Equal(t, hv.StatusID, k.CheckUserAddr(99, 0x1000, 0x10))
}
