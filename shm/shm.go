// Package shm implements shared-memory window iteration (SUPPLEMENTED
// FEATURES, recovered from original_source/shm.c): a read-only,
// per-partition lookup table of configured (base, size) windows, exposed
// via the shm_iterate system call (spec §4.14). Per spec §5, shared
// memory carries no in-kernel synchronization — producers and consumers
// coordinate via the wq/event primitives; this package is pure lookup.
package shm

import "github.com/icinar-hv/hvcore/hv"

// Window is one configured shared-memory range.
type Window struct {
	Base uintptr
	Size uintptr
}

// Table is the fixed, per-partition shared-memory window table. The zero
// value is not usable; construct with New.
type Table struct {
	windows map[hv.PartitionID]map[hv.SharedMemID]Window
}

// New constructs an empty Table.
func New() *Table {
	return &Table{windows: make(map[hv.PartitionID]map[hv.SharedMemID]Window)}
}

// Configure binds id within partition p to w, done once at boot from the
// immutable configuration image.
func (t *Table) Configure(p hv.PartitionID, id hv.SharedMemID, w Window) {
	if t.windows[p] == nil {
		t.windows[p] = make(map[hv.SharedMemID]Window)
	}
	t.windows[p][id] = w
}

// Iterate implements shm_iterate(id): ACCESS if p has no configured
// windows, ID if id is not one of p's windows, otherwise OK with the
// window.
func (t *Table) Iterate(p hv.PartitionID, id hv.SharedMemID) (Window, hv.Status) {
	ws, ok := t.windows[p]
	if !ok {
		return Window{}, hv.StatusAccess
	}
	w, ok := ws[id]
	if !ok {
		return Window{}, hv.StatusID
	}
	return w, hv.OK
}
