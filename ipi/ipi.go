// Package ipi implements the cross-core IPI job queue (spec §4.9): one
// fixed-size lock-free SPSC ring per ordered (source, destination) CPU
// pair. The ring's validity/sequence bookkeeping is adapted from the
// teacher's MicrotaskRing, but unlike that ring this one is strictly
// fixed-capacity: overflow is a configuration error (spec §4.9), not a
// condition to grow out of, so there is no overflow spill path here.
package ipi

import (
	"sync/atomic"

	"github.com/icinar-hv/hvcore/hv"
)

const seqSkip = ^uint64(0)

// ActionKind identifies what a cross-core Action asks the target CPU to
// do; the kernel wiring layer defines the concrete opcode values (wake a
// wait queue, activate a task, deliver an event, ...).
type ActionKind uint32

// Action is one queued cross-core request: an opcode plus an auxiliary
// value and the fixed-table object ID (e.g. a TaskID or WaitQueueID,
// stored as a raw uint32 small-int) the opcode applies to.
type Action struct {
	Kind   ActionKind
	Target uint32
	Aux    uint64
}

type slot struct {
	valid atomic.Bool
	seq   atomic.Uint64
	value Action
}

// Ring is a fixed-capacity SPSC queue of Action records for one ordered
// (src, dst) pair.
type Ring struct {
	buf  []slot
	head atomic.Uint64
	tail atomic.Uint64
}

// NewRing constructs a Ring sized to hold capacity outstanding actions;
// capacity must be sized to the maximum observable outstanding actions
// for this pair, per spec §4.9 (a configuration concern, not runtime).
func NewRing(capacity int) *Ring {
	r := &Ring{buf: make([]slot, capacity)}
	for i := range r.buf {
		r.buf[i].seq.Store(seqSkip)
	}
	return r
}

// Push enqueues a. Returns false (StatusLimit, a configuration error per
// spec §4.9) if the ring is full.
func (r *Ring) Push(a Action) bool {
	tail := r.tail.Load()
	head := r.head.Load()
	if tail-head >= uint64(len(r.buf)) {
		return false
	}
	if !r.tail.CompareAndSwap(tail, tail+1) {
		return false // single producer per ring: a CAS loss here indicates misuse
	}
	idx := tail % uint64(len(r.buf))
	r.buf[idx].value = a
	r.buf[idx].valid.Store(true)
	r.buf[idx].seq.Store(tail)
	return true
}

// Pop dequeues the oldest Action, or ok=false if empty.
func (r *Ring) Pop() (a Action, ok bool) {
	head := r.head.Load()
	tail := r.tail.Load()
	if head >= tail {
		return Action{}, false
	}
	idx := head % uint64(len(r.buf))
	if r.buf[idx].seq.Load() != head || !r.buf[idx].valid.Load() {
		return Action{}, false
	}
	a = r.buf[idx].value
	r.buf[idx].valid.Store(false)
	r.head.Store(head + 1)
	return a, true
}

// Matrix holds one Ring per ordered (src, dst) CPU pair, plus one
// reschedule bitmask per source CPU: posting from src to dst sets bit dst
// in src's word, and on each timer entry the kernel reads and clears its
// own CPU's word and sends a hardware IPI to the CPUs it names.
type Matrix struct {
	rings       map[[2]hv.CPUID]*Ring
	reschedule  []atomic.Uint64 // one word per source CPU; bit dst is set when dst has pending work from that source
	ringCap     int
}

// NewMatrix constructs a Matrix for numCPU CPUs, each pairwise ring sized
// to ringCap.
func NewMatrix(numCPU int, ringCap int) *Matrix {
	m := &Matrix{
		rings:      make(map[[2]hv.CPUID]*Ring),
		reschedule: make([]atomic.Uint64, numCPU),
		ringCap:    ringCap,
	}
	for src := 0; src < numCPU; src++ {
		for dst := 0; dst < numCPU; dst++ {
			if src == dst {
				continue
			}
			m.rings[[2]hv.CPUID{hv.CPUID(src), hv.CPUID(dst)}] = NewRing(ringCap)
		}
	}
	return m
}

// Send enqueues a onto the src->dst ring and marks dst's bit in src's
// reschedule mask. Returns StatusLimit if the ring is saturated.
func (m *Matrix) Send(src, dst hv.CPUID, a Action) hv.Status {
	ring, ok := m.rings[[2]hv.CPUID{src, dst}]
	if !ok {
		return hv.StatusID
	}
	if !ring.Push(a) {
		return hv.StatusLimit
	}
	m.reschedule[src].Or(uint64(1) << uint(dst))
	return hv.OK
}

// Reschedule returns and clears src's reschedule mask, for the scheduler
// to decide which CPUs need a hardware IPI (remote bits) or a local
// reschedule (the src's own bit, never set by Send since src != dst).
func (m *Matrix) Reschedule(src hv.CPUID) uint64 {
	return m.reschedule[src].Swap(0)
}

// Drain pops every pending Action addressed to dst from source, in FIFO
// order, invoking handle for each. Called on the target CPU's next kernel
// entry, before it runs its scheduler (spec §4.9).
func (m *Matrix) Drain(source, dst hv.CPUID, handle func(Action)) {
	ring, ok := m.rings[[2]hv.CPUID{source, dst}]
	if !ok {
		return
	}
	for {
		a, ok := ring.Pop()
		if !ok {
			return
		}
		handle(a)
	}
}
