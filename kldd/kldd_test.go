package kldd

import (
	"errors"
	"testing"

	"github.com/icinar-hv/hvcore/hv"
	"github.com/stretchr/testify/require"
)

func TestCallInvokesRegisteredTrampoline(t *testing.T) {
	tbl := New()
	tbl.Register(1, 10, func(a1, a2, a3 uint32) (uint32, error) {
		return a1 + a2 + a3, nil
	})

	result, status := tbl.Call(1, 10, 1, 2, 3)
	require.Equal(t, hv.OK, status)
	require.Equal(t, uint32(6), result)
}

func TestCallUnregisteredPartitionIsAccessError(t *testing.T) {
	tbl := New()
	_, status := tbl.Call(5, 10, 0, 0, 0)
	require.Equal(t, hv.StatusAccess, status)
}

func TestCallUnregisteredSlotIsIDError(t *testing.T) {
	tbl := New()
	tbl.Register(1, 10, func(uint32, uint32, uint32) (uint32, error) { return 0, nil })

	_, status := tbl.Call(1, 99, 0, 0, 0)
	require.Equal(t, hv.StatusID, status)
}

func TestCallTrampolineErrorIsValueError(t *testing.T) {
	tbl := New()
	tbl.Register(1, 10, func(uint32, uint32, uint32) (uint32, error) {
		return 0, errors.New("device fault")
	})

	_, status := tbl.Call(1, 10, 0, 0, 0)
	require.Equal(t, hv.StatusValue, status)
}
