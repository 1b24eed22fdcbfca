package prio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmptyHighest(t *testing.T) {
	var b Bitmap
	require.Equal(t, -1, b.Highest())
	require.True(t, b.Empty())
}

func TestSetClearHighest(t *testing.T) {
	var b Bitmap
	b.Set(10)
	b.Set(200)
	b.Set(0)
	require.Equal(t, 200, b.Highest())

	b.Clear(200)
	require.Equal(t, 10, b.Highest())

	b.Clear(10)
	require.Equal(t, 0, b.Highest())

	b.Clear(0)
	require.Equal(t, -1, b.Highest())
}

func TestBoundaryLevels(t *testing.T) {
	var b Bitmap
	b.Set(0)
	b.Set(255)
	require.Equal(t, 255, b.Highest())
	require.True(t, b.IsSet(0))
	require.True(t, b.IsSet(255))

	require.Panics(t, func() { b.Set(256) })
	require.Panics(t, func() { b.Set(-1) })
}

func TestClearIdempotent(t *testing.T) {
	var b Bitmap
	b.Clear(5) // clearing an already-clear bit is a no-op
	require.False(t, b.IsSet(5))
}
