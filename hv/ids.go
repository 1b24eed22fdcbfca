// Package hv defines the identifier types, status codes, and error
// taxonomy shared by every kernel subsystem.
package hv

// PartitionID identifies a configured partition. Valid ids are assigned
// at configuration time and never reused.
type PartitionID uint8

// TaskID identifies a configured task, global across all partitions.
type TaskID uint16

// CounterID identifies a configured counter (software or hardware).
type CounterID uint16

// AlarmID identifies a configured alarm.
type AlarmID uint16

// ScheduleTableID identifies a configured schedule table.
type ScheduleTableID uint16

// WaitQueueID identifies a configured wait queue.
type WaitQueueID uint16

// RPCID identifies a configured RPC channel (owned by a HOOK task).
type RPCID uint16

// CPUID identifies a physical (simulated) processor core.
type CPUID uint8

// TimePartitionID identifies a time-partition window slot.
type TimePartitionID uint8

// KLDDID identifies a registered kernel-level device driver trampoline.
type KLDDID uint16

// SharedMemID identifies a configured shared-memory window.
type SharedMemID uint16

// IPEVID identifies an inter-partition event bit-group.
type IPEVID uint16

// NoTask is the sentinel value for "no task" (e.g. unset hooks).
const NoTask TaskID = 0xFFFF

// NoRPC is the sentinel for "caller is not a pending RPC reply target".
const NoRPC RPCID = 0xFFFF
