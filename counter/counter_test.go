package counter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	require.Equal(t, uint64(5), Distance(10, 15, 99))
	require.Equal(t, uint64(95), Distance(10, 5, 99)) // wraps: 5+(99+1)-10
	require.Equal(t, uint64(0), Distance(10, 10, 99))
}

func TestIncrementWraps(t *testing.T) {
	c := New(1, 9) // domain [0,9]
	c.Increment(7)
	require.Equal(t, uint64(7), c.Query())
	c.Increment(5) // 7+5=12 mod 10 = 2
	require.Equal(t, uint64(2), c.Query())
}

func TestSweepCalledWithPreIncrementValue(t *testing.T) {
	c := New(1, 255)
	var gotBefore, gotN uint64
	calls := 0
	c.SetSweep(func(before, n uint64) {
		calls++
		gotBefore, gotN = before, n
	})
	c.Increment(3)
	require.Equal(t, 1, calls)
	require.Equal(t, uint64(0), gotBefore)
	require.Equal(t, uint64(3), gotN)
}

type fakeDevice struct {
	value       uint64
	registered  bool
	reprogramed uint64
}

func (d *fakeDevice) Read() uint64            { return d.value }
func (d *fakeDevice) Register()               { d.registered = true }
func (d *fakeDevice) Reprogram(expiry uint64)  { d.reprogramed = expiry }

func TestHardwareCounterQueriesDevice(t *testing.T) {
	dev := &fakeDevice{value: 42}
	c := NewHardware(2, 1000, dev)
	c.Register()
	require.True(t, dev.registered)
	require.Equal(t, uint64(42), c.Query())

	dev.value = 99
	require.Equal(t, uint64(99), c.Query())

	c.Change(77)
	require.Equal(t, uint64(77), dev.reprogramed)
}
