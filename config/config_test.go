package config

import (
	"testing"

	"github.com/icinar-hv/hvcore/hv"
	"github.com/icinar-hv/hvcore/sched"
	"github.com/icinar-hv/hvcore/task"
	"github.com/stretchr/testify/require"
)

func baseConfig() Config {
	return Config{
		NumCPU: 1,
		Windows: map[hv.CPUID][]sched.Window{
			0: {{TP: 0, DurationNS: 1000}},
		},
		Partitions: []PartitionConfig{
			{ID: 1, CPU: 0, MaxPrio: 64, InitHook: hv.NoTask, ErrorHook: hv.NoTask, ExceptionHook: hv.NoTask},
		},
		Tasks: []task.Config{
			{ID: 10, Partition: 1, CPU: 0, BasePrio: 5, MaxActivations: 3},
		},
	}
}

func TestBuildAcceptsValidConfig(t *testing.T) {
	b, err := Build(baseConfig())
	require.NoError(t, err)
	require.Contains(t, b.PartitionByID, hv.PartitionID(1))
	require.Contains(t, b.TaskByID, hv.TaskID(10))
}

func TestBuildRejectsDuplicatePartition(t *testing.T) {
	c := baseConfig()
	c.Partitions = append(c.Partitions, c.Partitions[0])
	_, err := Build(c)
	require.Error(t, err)
}

func TestBuildRejectsTaskWithUnknownPartition(t *testing.T) {
	c := baseConfig()
	c.Tasks[0].Partition = 99
	_, err := Build(c)
	require.Error(t, err)
}

func TestBuildRejectsTaskPriorityAbovePartitionMax(t *testing.T) {
	c := baseConfig()
	c.Tasks[0].BasePrio = 999
	_, err := Build(c)
	require.Error(t, err)
}

func TestBuildRejectsHookReferencingForeignPartition(t *testing.T) {
	c := baseConfig()
	c.Partitions = append(c.Partitions, PartitionConfig{ID: 2, CPU: 0, MaxPrio: 8, InitHook: 10, ErrorHook: hv.NoTask, ExceptionHook: hv.NoTask})
	_, err := Build(c)
	require.Error(t, err)
}

func TestBuildRejectsRPCReceiverNotHook(t *testing.T) {
	c := baseConfig()
	c.RPCChannels = []RPCChannelConfig{{ID: 1, Receiver: 10}}
	_, err := Build(c)
	require.Error(t, err)
}

func TestBuildAcceptsRPCReceiverThatIsHook(t *testing.T) {
	c := baseConfig()
	c.Tasks[0].IsHook = true
	c.RPCChannels = []RPCChannelConfig{{ID: 1, Receiver: 10}}
	_, err := Build(c)
	require.NoError(t, err)
}

func TestBuildRejectsZeroNumCPU(t *testing.T) {
	c := baseConfig()
	c.NumCPU = 0
	_, err := Build(c)
	require.Error(t, err)
}
