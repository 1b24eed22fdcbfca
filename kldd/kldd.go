// Package kldd implements the Kernel-Level Device Driver call table
// (SUPPLEMENTED FEATURES, recovered from original_source/kldd.c): a
// fixed, partition-scoped table of registered trampoline functions
// invoked via the kldd_call system call (spec §4.14).
package kldd

import "github.com/icinar-hv/hvcore/hv"

// Func is one registered KLDD trampoline: three raw argument words in,
// one raw result word out, matching the driver's native calling
// convention rather than the kernel's richer error taxonomy.
type Func func(a1, a2, a3 uint32) (result uint32, err error)

// Table is the fixed, per-partition KLDD registration table. The zero
// value is not usable; construct with New.
type Table struct {
	entries map[hv.PartitionID]map[hv.KLDDID]Func
}

// New constructs an empty Table.
func New() *Table {
	return &Table{entries: make(map[hv.PartitionID]map[hv.KLDDID]Func)}
}

// Register binds id within partition p to fn, done once at boot from the
// immutable configuration image; never called after boot (spec's
// Non-goals: no dynamic reconfiguration).
func (t *Table) Register(p hv.PartitionID, id hv.KLDDID, fn Func) {
	if t.entries[p] == nil {
		t.entries[p] = make(map[hv.KLDDID]Func)
	}
	t.entries[p][id] = fn
}

// Call implements kldd_call(id, a1, a2, a3): ACCESS if p has no
// registered slots at all, ID if id is not one of p's registered slots,
// VALUE if the trampoline itself reports an error, otherwise OK with the
// trampoline's result.
func (t *Table) Call(p hv.PartitionID, id hv.KLDDID, a1, a2, a3 uint32) (uint32, hv.Status) {
	fns, ok := t.entries[p]
	if !ok {
		return 0, hv.StatusAccess
	}
	fn, ok := fns[id]
	if !ok {
		return 0, hv.StatusID
	}
	result, err := fn(a1, a2, a3)
	if err != nil {
		return 0, hv.StatusValue
	}
	return result, hv.OK
}
