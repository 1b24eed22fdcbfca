package cpu

import (
	"sync"
	"testing"

	"github.com/icinar-hv/hvcore/hv"
	"github.com/stretchr/testify/require"
)

func TestBindAndCurrent(t *testing.T) {
	var r Registry
	r.Bind(0)
	require.True(t, r.Current(0))
	require.False(t, r.Current(1))
}

func TestAssertCurrentPanicsOnForeignGoroutine(t *testing.T) {
	var r Registry
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.Bind(0)
	}()
	wg.Wait()

	require.Panics(t, func() { r.AssertCurrent(0) })
}

func TestUnbindClearsOwnership(t *testing.T) {
	var r Registry
	r.Bind(2)
	require.True(t, r.Current(2))
	r.Unbind(2)
	require.False(t, r.Current(2))
}
