// Package cpu enforces core affinity for the host-process simulation (spec
// §5: every kernel object has a single owning CPU; cross-core access goes
// through the ipi package, never a shared lock).
//
// On real hardware ownership is implicit in which physical core fetched the
// instruction; here each simulated hv.CPUID is stood in for by exactly one
// goroutine, and Bind/AssertCurrent use the same goroutine-ID comparison
// the teacher's event loop uses to gate its single-goroutine fast path.
package cpu

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/icinar-hv/hvcore/hv"
)

// Registry tracks which goroutine is currently standing in for each
// simulated CPU. The zero value is ready to use.
type Registry struct {
	mu    sync.Mutex
	owner map[hv.CPUID]uint64
}

// Bind records that the calling goroutine is now running as cpuID. It must
// be called once per goroutine before any AssertCurrent(cpuID) check, and is
// typically invoked at the top of a simulated core's run loop.
func (r *Registry) Bind(cpuID hv.CPUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.owner == nil {
		r.owner = make(map[hv.CPUID]uint64)
	}
	r.owner[cpuID] = goroutineID()
}

// Unbind forgets cpuID's binding, e.g. when a simulated core shuts down.
func (r *Registry) Unbind(cpuID hv.CPUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.owner, cpuID)
}

// Current reports whether the calling goroutine is bound to cpuID.
func (r *Registry) Current(cpuID hv.CPUID) bool {
	r.mu.Lock()
	id, ok := r.owner[cpuID]
	r.mu.Unlock()
	return ok && id == goroutineID()
}

// AssertCurrent panics if the calling goroutine is not bound to cpuID. Used
// at the entry of operations on objects owned by cpuID (spec §5), the
// simulation's stand-in for a hardware affinity fault.
func (r *Registry) AssertCurrent(cpuID hv.CPUID) {
	if !r.Current(cpuID) {
		panic(fmt.Sprintf("cpu: affinity violation, caller is not bound to %v", cpuID))
	}
}

// goroutineID returns the current goroutine's runtime ID, parsed out of the
// same runtime.Stack header the teacher's getGoroutineID uses. It is not a
// stable or documented Go API; it exists purely to let the simulation detect
// cross-goroutine access that would be a cross-core affinity bug on real
// hardware.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}
