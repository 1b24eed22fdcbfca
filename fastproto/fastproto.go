// Package fastproto implements the fast user/kernel protocol (spec
// §4.16): a per-partition memory-mapped {taskid, user_prio, next_prio}
// triple that lets user code change its effective priority for cheap
// priority-ceiling resource acquisition/release without a system call,
// synchronized lazily by the kernel on entry.
package fastproto

import "github.com/icinar-hv/hvcore/hv"

// Block is the memory-mapped protocol block for one partition. On real
// hardware this is a page mapped read/write into user space; here it is a
// plain struct the kernel wiring layer places at a fixed address per
// partition.
type Block struct {
	TaskID   hv.TaskID
	UserPrio int32
	NextPrio int32
}

// TaskPrio is the minimal slice of task state Sync needs: reading a
// task's configured base priority and writing its synchronized effective
// priority.
type TaskPrio interface {
	BasePrio(task hv.TaskID) int
	SetEffectivePrio(task hv.TaskID, prio int)
}

// SetCurrent records the currently running task's id into b, maintained
// entirely by the kernel (spec §4.16: "taskid is maintained by the kernel
// as the currently running task's id").
func (b *Block) SetCurrent(task hv.TaskID, prio int) {
	b.TaskID = task
	b.UserPrio = int32(prio)
	b.NextPrio = int32(prio)
}

// NotifyNextPrio records the ready queue's new highest priority into
// next_prio; called by the scheduler whenever the ready queue's highest
// priority changes, so a subsequent kernel entry can detect
// user_prio < next_prio.
func (b *Block) NotifyNextPrio(prio int) {
	b.NextPrio = int32(prio)
}

// Sync implements fast_prio_sync (spec §4.16): on any kernel entry where
// user_prio < next_prio, bounds user_prio to [task.base_prio,
// partition.max_prio], updates the task's effective priority, and
// reports the bounded value so the caller (the scheduler) can re-evaluate
// the ready queue. Returns ok=false if no synchronization was needed.
func Sync(b *Block, maxPrio int, tasks TaskPrio) (synced int, ok bool) {
	if b.UserPrio >= b.NextPrio {
		return 0, false
	}
	base := tasks.BasePrio(b.TaskID)
	p := int(b.UserPrio)
	if p < base {
		p = base
	}
	if p > maxPrio {
		p = maxPrio
	}
	tasks.SetEffectivePrio(b.TaskID, p)
	b.UserPrio = int32(p)
	b.NextPrio = int32(p)
	return p, true
}
