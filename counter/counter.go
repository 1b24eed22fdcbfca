// Package counter implements the counter engine (spec §4.3): a modular
// tick source, software or hardware-backed, that the alarm engine (package
// alarm) drives to expire alarms in order.
package counter

import "github.com/icinar-hv/hvcore/hv"

// Kind distinguishes a software-driven counter (advanced only by explicit
// Increment calls) from a hardware-backed one (whose current value is read
// from a device and whose match register is reprogrammed on demand).
type Kind int

const (
	Software Kind = iota
	Hardware
)

// Device is the hardware counter's interface to its backing timer/compare
// peripheral, analogous to a board.Board method pair but scoped to one
// counter instance.
type Device interface {
	// Read returns the device's current raw count.
	Read() uint64
	// Register is invoked once at boot, before any Increment/Query call.
	Register()
	// Reprogram is invoked whenever the head alarm on this counter changes,
	// so the device can re-arm its match register for headExpiry.
	Reprogram(headExpiry uint64)
}

// SweepFunc is invoked by Increment after advancing current, with the
// pre-increment value and the increment size; the alarm engine registers
// one of these via SetSweep to expire and re-insert alarms on this counter.
type SweepFunc func(currentBefore, n uint64)

// Distance computes the forward modular distance from a to b in a counter
// space of size max+1, per spec §4.3: distance(a,b,max) = b>=a ? b-a :
// b+(max+1)-a.
func Distance(a, b, max uint64) uint64 {
	if b >= a {
		return b - a
	}
	return b + (max + 1) - a
}

// Counter is a single modular tick source (spec §4.3). The zero value is
// not usable; construct with New.
type Counter struct {
	id      hv.CounterID
	max     uint64
	kind    Kind
	device  Device
	current uint64
	sweep   SweepFunc
}

// New constructs a software counter with the given id and maximum value
// (the counter's domain is [0, max]).
func New(id hv.CounterID, max uint64) *Counter {
	return &Counter{id: id, max: max, kind: Software}
}

// NewHardware constructs a hardware-backed counter driven by dev.
func NewHardware(id hv.CounterID, max uint64, dev Device) *Counter {
	return &Counter{id: id, max: max, kind: Hardware, device: dev}
}

func (c *Counter) ID() hv.CounterID { return c.id }
func (c *Counter) Max() uint64      { return c.max }
func (c *Counter) Kind() Kind       { return c.kind }

// SetSweep installs the callback invoked on every Increment; the alarm
// engine calls this once per counter it drives.
func (c *Counter) SetSweep(fn SweepFunc) { c.sweep = fn }

// Register performs the counter's one-time boot hook (hardware counters
// only; a no-op for software counters).
func (c *Counter) Register() {
	if c.kind == Hardware && c.device != nil {
		c.device.Register()
	}
}

// Change notifies a hardware counter's device that the driven alarm
// engine's head alarm changed, so the device can re-arm for headExpiry.
// A no-op for software counters.
func (c *Counter) Change(headExpiry uint64) {
	if c.kind == Hardware && c.device != nil {
		c.device.Reprogram(headExpiry)
	}
}

// Query returns the counter's current value, refreshing it from the
// device first for hardware counters.
func (c *Counter) Query() uint64 {
	if c.kind == Hardware && c.device != nil {
		c.current = c.device.Read()
	}
	return c.current
}

// Increment advances current by n modulo max+1 and invokes the registered
// sweep callback with the pre-increment value, per spec §4.3. Callers are
// responsible for rejecting n beyond any configured max_allowed-per-call
// bound before calling Increment.
func (c *Counter) Increment(n uint64) {
	before := c.current
	c.current = (c.current + n) % (c.max + 1)
	if c.sweep != nil {
		c.sweep(before, n)
	}
}
