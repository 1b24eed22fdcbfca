// Package board declares the external interfaces the kernel consumes from
// and provides to the board/architecture layer (spec §6). They are plain
// Go interfaces rather than concrete hardware bindings: on real hardware
// they would be implemented by architecture-specific assembly/C glue, and
// in this repository the simboard package implements Board for tests.
package board

import "github.com/icinar-hv/hvcore/hv"

// HMException describes an exception the board is offering the kernel a
// chance to classify, per board_hm_exception.
type HMException struct {
	Regs      []uint64
	Fatal     bool
	ErrorID   hv.HMErrorID
	Vector    uint32
	FaultAddr uintptr
	Aux       uint64
}

// Board is everything the core requires of its host platform: a monotonic
// clock, character I/O, MPU control, IRQ plumbing, IPI delivery, and halt.
// Every method corresponds to one board_* entry point in spec §6.
type Board interface {
	// GetTime returns monotonic nanoseconds since an arbitrary epoch.
	GetTime() uint64
	// TimerResolution is the nanosecond period of one timer tick, fixed at boot.
	TimerResolution() uint32

	// Putc performs non-blocking single-character output. ok is false if
	// the board has no console (NOFUNC in the spec's vocabulary).
	Putc(c byte) (ok bool)

	// MPUInit performs one-time MPU setup at boot.
	MPUInit()
	// MPUPartSwitch installs the region set for a time-partition switch.
	MPUPartSwitch(regionSet any)
	// MPUTaskSwitch installs the region set for a task switch within a partition.
	MPUTaskSwitch(regionSet any)

	// IRQEnable/IRQDisable mask and unmask a board interrupt line.
	IRQEnable(id uint32)
	IRQDisable(id uint32)
	// UnhandledIRQ is invoked when no dispatch table entry claims vector id.
	UnhandledIRQ(id uint32)

	// IPIBroadcast requests the board send a hardware IPI to every CPU set
	// in mask; SMP-only, a no-op on single-core configurations.
	IPIBroadcast(mask uint64)

	// Halt stops (or resets, or shuts down) the board in mode.
	Halt(mode hv.HaltMode)

	// HMException offers the board first refusal on an exception; handled
	// is true if the board fully serviced it and the kernel should not also
	// run its health-monitor pipeline.
	HMException(e HMException) (handled bool)

	// TPSwitch notifies the board a time-partition switch occurred.
	TPSwitch(prevTP, nextTP hv.TimePartitionID, flags uint32)

	// CPU bring-up hooks.
	CPU0Up()
	StartSecondaryCPUs()
	SecondaryCPUUp(cpu hv.CPUID)
	StartupComplete()
}

// Kernel is everything the board is required to call into, the inverse
// interface from spec §6's "the core provides to the board" list. A real
// architecture's interrupt vector table and trap entry point would be
// wired to these; simboard drives them directly from simulated events.
type Kernel interface {
	// Main is the per-CPU entry point invoked once board init is complete.
	// hmRestart is true if this boot followed a health-monitor-triggered
	// partition restart rather than a cold boot.
	Main(cpu hv.CPUID, hmRestart bool)

	// Timer is called on every timer interrupt with the current monotonic time.
	Timer(cpu hv.CPUID, nowNS uint64)

	// IncrementCounter is called for hardware-driven counter ticks.
	IncrementCounter(counter hv.CounterID, inc uint64)

	// WakeISRTask is registered as the IRQ handler for ISR-type tasks.
	WakeISRTask(task hv.TaskID)

	// IPIHandle is called on receipt of an IPI from source targeting this CPU.
	IPIHandle(target, source hv.CPUID)

	// CheckUserAddr validates a user-supplied pointer/length against the
	// calling partition's configured memory ranges.
	CheckUserAddr(partition hv.PartitionID, addr uintptr, size uintptr) hv.Status
}
