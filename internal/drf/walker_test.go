package drf

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildTwoBlockFile(t *testing.T) (Header, *bytes.Reader) {
	t.Helper()

	block0Flat := make([]int32, 0, 120)
	for tick := 0; tick < 60; tick++ {
		block0Flat = append(block0Flat, int32(tick*2), int32(tick*2+1))
	}
	block0 := buildNarrowBlock(t, 1700000000, block0Flat)
	block1 := buildNarrowBlock(t, 1700000060, []int32{0, 1, 2, 3})

	raw := rawHdrBlock{
		SampleRate:      1,
		NumSamples:      2,
		NumChannels:     2,
		NumBlocks:       2,
		LastBlockSize:   4,
		StartTime:       1700000000,
		LastTime:        1700000060,
		LastBlockOffset: 0,
	}
	file := buildDayFile(t, raw, []int64{1700000000, 1700000060}, [][]byte{block0, block1})

	hdr, err := ReadHeader(bytes.NewReader(file), 2)
	require.NoError(t, err)
	return hdr, bytes.NewReader(file)
}

// TestWalkerCrossesBlockBoundary confirms Next steps through every tick of
// block 0, then transparently loads block 1 and continues, in order
// (§4.2's tick-by-tick walk across a block boundary).
func TestWalkerCrossesBlockBoundary(t *testing.T) {
	t.Parallel()
	hdr, r := buildTwoBlockFile(t)

	w := NewWalker(r, hdr)
	require.NoError(t, w.SeekTo(0))

	for tick := 0; tick < 60; tick++ {
		values, ts, ok, err := w.Next()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, []int32{int32(tick * 2), int32(tick*2 + 1)}, values)
		require.Equal(t, float64(1700000000+tick), ts)
	}

	values, ts, ok, err := w.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []int32{0, 1}, values)
	require.Equal(t, float64(1700000060), ts)

	values, _, ok, err = w.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []int32{2, 3}, values)

	_, _, ok, err = w.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestWalkerSeekToOutOfRange(t *testing.T) {
	t.Parallel()
	hdr, r := buildTwoBlockFile(t)
	w := NewWalker(r, hdr)
	require.ErrorIs(t, w.SeekTo(5), io.EOF)
}
