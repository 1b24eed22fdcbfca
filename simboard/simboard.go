// Package simboard implements board.Board as a host-process simulation:
// a manual clock instead of a hardware timer, an in-memory byte sink
// instead of a UART, and plain function calls instead of interrupt
// controller/MPU/IPI hardware. It exists so the kernel package can be
// built and tested without any target hardware (spec §6's "board/
// architecture layer" collaborator).
package simboard

import (
	"sync"

	"github.com/icinar-hv/hvcore/board"
	"github.com/icinar-hv/hvcore/hv"
)

// simOptions holds the configuration a Board is constructed with,
// resolved from a slice of SimBoardOption the way eventloop's LoopOption
// resolves loopOptions.
type simOptions struct {
	numCPU           int
	timerResolution  uint32
	putc             func(byte)
	unhandledIRQ     func(uint32)
	hmException      func(board.HMException) bool
}

// SimBoardOption configures a Board at construction time.
type SimBoardOption interface {
	applySimBoard(*simOptions)
}

type simBoardOptionFunc func(*simOptions)

func (f simBoardOptionFunc) applySimBoard(o *simOptions) { f(o) }

// WithCPUCount sets the number of simulated CPUs (default 1).
func WithCPUCount(n int) SimBoardOption {
	return simBoardOptionFunc(func(o *simOptions) { o.numCPU = n })
}

// WithTimerResolution sets the nanosecond period TimerResolution reports
// (default 1,000,000, i.e. 1kHz).
func WithTimerResolution(ns uint32) SimBoardOption {
	return simBoardOptionFunc(func(o *simOptions) { o.timerResolution = ns })
}

// WithPutc sets the sink Putc writes characters to; the default discards
// everything and reports ok=false (NOFUNC, no console configured).
func WithPutc(sink func(byte)) SimBoardOption {
	return simBoardOptionFunc(func(o *simOptions) { o.putc = sink })
}

// WithUnhandledIRQHandler overrides the default UnhandledIRQ behavior
// (a no-op) with fn, e.g. to fail a test loudly on an unclaimed vector.
func WithUnhandledIRQHandler(fn func(uint32)) SimBoardOption {
	return simBoardOptionFunc(func(o *simOptions) { o.unhandledIRQ = fn })
}

// WithHMExceptionHandler overrides the default HMException behavior
// (handled=false, always defer to the kernel's health monitor) with fn.
func WithHMExceptionHandler(fn func(board.HMException) bool) SimBoardOption {
	return simBoardOptionFunc(func(o *simOptions) { o.hmException = fn })
}

func resolveSimOptions(opts []SimBoardOption) *simOptions {
	o := &simOptions{
		numCPU:          1,
		timerResolution: 1_000_000,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applySimBoard(o)
	}
	return o
}

// irqState tracks one simulated interrupt line's mask state and fan-out
// handler, registered via RegisterIRQ.
type irqState struct {
	enabled bool
	handler func(hv.CPUID)
}

// ipiRecord is one observed IPIBroadcast call, kept for tests asserting on
// cross-core notification behavior.
type ipiRecord struct {
	mask uint64
}

// Board is a host-process board.Board: time advances only when Advance is
// called, console output goes to an optional sink, and MPU/IRQ/IPI calls
// are recorded rather than touching real hardware.
type Board struct {
	opts *simOptions

	mu       sync.Mutex
	now      uint64
	halted   bool
	haltMode hv.HaltMode

	irqs map[uint32]*irqState
	ipis []ipiRecord

	mpuInitCount  int
	partSwitches  []any
	taskSwitches  []any
	cpu0UpCalled  bool
	secondaryUp   []hv.CPUID
	startupDone   bool
}

var _ board.Board = (*Board)(nil)

// New constructs a Board from opts.
func New(opts ...SimBoardOption) *Board {
	return &Board{
		opts: resolveSimOptions(opts),
		irqs: make(map[uint32]*irqState),
	}
}

// Advance moves the simulated clock forward by deltaNS and returns the new
// time, the only way time passes in this board (there is no free-running
// hardware timer to simulate against).
func (b *Board) Advance(deltaNS uint64) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now += deltaNS
	return b.now
}

// RegisterIRQ binds a fan-out handler to vector id, invoked by Fire while
// the line is enabled, standing in for a real interrupt controller's
// vector table. Nothing in the kernel package calls it.
func (b *Board) RegisterIRQ(id uint32, handler func(cpu hv.CPUID)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.irqs[id] = &irqState{enabled: true, handler: handler}
}

// Fire simulates an interrupt on vector id targeting cpu: if a handler is
// registered and the line is enabled, it runs; otherwise UnhandledIRQ is
// invoked, mirroring what a real interrupt controller does for an
// unclaimed vector.
func (b *Board) Fire(id uint32, cpu hv.CPUID) {
	b.mu.Lock()
	st, ok := b.irqs[id]
	enabled := ok && st.enabled
	b.mu.Unlock()

	if !enabled {
		b.UnhandledIRQ(id)
		return
	}
	st.handler(cpu)
}

// NumCPU returns the number of CPUs this Board was configured to
// simulate (WithCPUCount), informational only: the board does not spawn
// goroutines per CPU, and neither does the kernel package.
func (b *Board) NumCPU() int { return b.opts.numCPU }

// Halted reports whether Halt has been called, and with which mode.
func (b *Board) Halted() (bool, hv.HaltMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.halted, b.haltMode
}

// IPICalls returns every IPIBroadcast call observed so far, for tests
// asserting cross-core notification behavior.
func (b *Board) IPICalls() []ipiRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ipiRecord, len(b.ipis))
	copy(out, b.ipis)
	return out
}

// MPUInitCount returns how many times MPUInit has been called.
func (b *Board) MPUInitCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mpuInitCount
}

// PartSwitchCount returns how many MPUPartSwitch calls have been observed.
func (b *Board) PartSwitchCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.partSwitches)
}

// TaskSwitchCount returns how many MPUTaskSwitch calls have been observed.
func (b *Board) TaskSwitchCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.taskSwitches)
}

// CPU0UpCalled reports whether CPU0Up has run.
func (b *Board) CPU0UpCalled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cpu0UpCalled
}

// SecondaryCPUsUp returns every CPU id SecondaryCPUUp has been called with,
// in call order.
func (b *Board) SecondaryCPUsUp() []hv.CPUID {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]hv.CPUID, len(b.secondaryUp))
	copy(out, b.secondaryUp)
	return out
}

// StartupCompleted reports whether StartupComplete has run.
func (b *Board) StartupCompleted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.startupDone
}

// --- board.Board ---

func (b *Board) GetTime() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now
}

func (b *Board) TimerResolution() uint32 { return b.opts.timerResolution }

func (b *Board) Putc(c byte) bool {
	if b.opts.putc == nil {
		return false
	}
	b.opts.putc(c)
	return true
}

func (b *Board) MPUInit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mpuInitCount++
}

func (b *Board) MPUPartSwitch(regionSet any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.partSwitches = append(b.partSwitches, regionSet)
}

func (b *Board) MPUTaskSwitch(regionSet any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.taskSwitches = append(b.taskSwitches, regionSet)
}

func (b *Board) IRQEnable(id uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st, ok := b.irqs[id]; ok {
		st.enabled = true
	}
}

func (b *Board) IRQDisable(id uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st, ok := b.irqs[id]; ok {
		st.enabled = false
	}
}

func (b *Board) UnhandledIRQ(id uint32) {
	if b.opts.unhandledIRQ != nil {
		b.opts.unhandledIRQ(id)
	}
}

func (b *Board) IPIBroadcast(mask uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ipis = append(b.ipis, ipiRecord{mask: mask})
}

func (b *Board) Halt(mode hv.HaltMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.halted = true
	b.haltMode = mode
}

func (b *Board) HMException(e board.HMException) bool {
	if b.opts.hmException != nil {
		return b.opts.hmException(e)
	}
	return false
}

func (b *Board) TPSwitch(prevTP, nextTP hv.TimePartitionID, flags uint32) {}

func (b *Board) CPU0Up() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cpu0UpCalled = true
}

func (b *Board) StartSecondaryCPUs() {}

func (b *Board) SecondaryCPUUp(cpu hv.CPUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.secondaryUp = append(b.secondaryUp, cpu)
}

func (b *Board) StartupComplete() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.startupDone = true
}
