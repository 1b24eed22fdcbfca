package shm

import (
	"testing"

	"github.com/icinar-hv/hvcore/hv"
	"github.com/stretchr/testify/require"
)

func TestIterateReturnsConfiguredWindow(t *testing.T) {
	tbl := New()
	tbl.Configure(1, 3, Window{Base: 0x2000, Size: 0x1000})

	w, status := tbl.Iterate(1, 3)
	require.Equal(t, hv.OK, status)
	require.Equal(t, Window{Base: 0x2000, Size: 0x1000}, w)
}

func TestIterateUnconfiguredPartitionIsAccessError(t *testing.T) {
	tbl := New()
	_, status := tbl.Iterate(9, 3)
	require.Equal(t, hv.StatusAccess, status)
}

func TestIterateUnconfiguredWindowIsIDError(t *testing.T) {
	tbl := New()
	tbl.Configure(1, 3, Window{Base: 0x2000, Size: 0x1000})

	_, status := tbl.Iterate(1, 99)
	require.Equal(t, hv.StatusID, status)
}
