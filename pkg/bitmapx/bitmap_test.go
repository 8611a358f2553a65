package bitmapx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetGet(t *testing.T) {
	bits := make([]byte, 2)

	Set(bits, 3, true)
	Set(bits, 9, true)
	require.True(t, Get(bits, 3))
	require.True(t, Get(bits, 9))
	require.False(t, Get(bits, 4))

	Set(bits, 3, false)
	require.False(t, Get(bits, 3))
	require.True(t, Get(bits, 9))
}

func TestFindFirst(t *testing.T) {
	bits := make([]byte, 2)
	n := 12

	// All clear: first set bit is "none", first clear bit is 0.
	require.Equal(t, n, FindFirst(bits, n, 0, true))
	require.Equal(t, 0, FindFirst(bits, n, 0, false))

	Set(bits, 0, true)
	Set(bits, 1, true)
	Set(bits, 5, true)
	require.Equal(t, 0, FindFirst(bits, n, 0, true))
	require.Equal(t, 5, FindFirst(bits, n, 2, true))
	require.Equal(t, 2, FindFirst(bits, n, 0, false))
	require.Equal(t, n, FindFirst(bits, n, 6, true))
}

func TestCountAndLen(t *testing.T) {
	bits := make([]byte, 2)
	Set(bits, 1, true)
	Set(bits, 8, true)
	Set(bits, 11, true)

	require.Equal(t, 3, Count(bits, 12))
	require.Equal(t, 2, Count(bits, 9))

	require.Equal(t, 1, Len(8))
	require.Equal(t, 2, Len(9))
	require.Equal(t, 0, Len(0))
}
