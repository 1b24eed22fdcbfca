package event

import "github.com/icinar-hv/hvcore/hv"

// IPEVTable implements the inter-partition event extension (SUPPLEMENTED
// FEATURES, recovered from original_source/ipev.c): a named event bit
// addressable across partitions, distinct from a task's private
// ev_pending mask in name only — delivery still lands in the target
// task's ordinary ev_pending mask via the same Table. Each IPEVID is
// bound at configuration time to exactly one (task, mask) target; setting
// it never surfaces overflow to the caller, per spec §4.14's ipev_set
// note, the same "errors don't surface" rule the alarm engine's HOOK
// action follows.
type IPEVTable struct {
	events   *Table
	bindings map[hv.IPEVID]ipevBinding
}

type ipevBinding struct {
	task hv.TaskID
	mask uint64
}

// NewIPEVTable constructs an IPEVTable delivering through events.
func NewIPEVTable(events *Table) *IPEVTable {
	return &IPEVTable{events: events, bindings: make(map[hv.IPEVID]ipevBinding)}
}

// Bind configures id to deliver mask to task, done once at boot from the
// immutable configuration image.
func (t *IPEVTable) Bind(id hv.IPEVID, task hv.TaskID, mask uint64) {
	t.bindings[id] = ipevBinding{task: task, mask: mask}
}

// Set delivers id's bound event bit to its target task, ignoring any
// resulting error so a misbehaving partition cannot deny service to the
// one it is signaling.
func (t *IPEVTable) Set(id hv.IPEVID) {
	b, ok := t.bindings[id]
	if !ok {
		return
	}
	_ = t.events.Set(b.task, b.mask)
}

// Target reports the (task, mask, owningCPU-agnostic) an IPEVID is bound
// to, so the kernel wiring layer can decide whether to deliver locally or
// forward the set via IPI to the target task's owning CPU.
func (t *IPEVTable) Target(id hv.IPEVID) (task hv.TaskID, mask uint64, ok bool) {
	b, present := t.bindings[id]
	return b.task, b.mask, present
}
