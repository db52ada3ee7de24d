package drf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func blocksAt(starts ...int64) []BlockDescriptor {
	out := make([]BlockDescriptor, len(starts))
	for i, s := range starts {
		out[i] = BlockDescriptor{StartTime: s}
	}
	return out
}

// TestSeekWithinFirstBlockTolerance confirms a target inside the first
// block's ±60s window resolves to block 0 without backing off (§4.1, §8).
func TestSeekWithinFirstBlockTolerance(t *testing.T) {
	t.Parallel()
	index := blocksAt(1000, 1060, 1120)

	result, idx := Seek(index, 1030)
	require.Equal(t, SeekFound, result)
	require.Equal(t, 0, idx)
}

// TestSeekBacksOffByOne confirms a target within tolerance of a non-first
// block resolves to the block immediately before it, per §4.1's back-off
// rule.
func TestSeekBacksOffByOne(t *testing.T) {
	t.Parallel()
	index := blocksAt(1000, 1060, 1120)

	result, idx := Seek(index, 1061)
	require.Equal(t, SeekFound, result)
	require.Equal(t, 0, idx)
}

// TestSeekBeforeFirstBlock confirms a target preceding the first block,
// even by one second, reports SeekBeforeFirstBlock (§4.1, §8).
func TestSeekBeforeFirstBlock(t *testing.T) {
	t.Parallel()
	index := blocksAt(1000, 1060, 1120)

	result, idx := Seek(index, 999)
	require.Equal(t, SeekBeforeFirstBlock, result)
	require.Equal(t, 0, idx)
}

// TestSeekNotFound confirms a target well past the last block's tolerance
// window reports SeekNotFound rather than matching the wrong block (§8).
func TestSeekNotFound(t *testing.T) {
	t.Parallel()
	index := blocksAt(1000, 1060, 1120)

	result, _ := Seek(index, 1120+toleranceSeconds+1)
	require.Equal(t, SeekNotFound, result)
}

// TestSeekEmptyIndex confirms an empty index never panics and reports not found.
func TestSeekEmptyIndex(t *testing.T) {
	t.Parallel()
	result, idx := Seek(nil, 12345)
	require.Equal(t, SeekNotFound, result)
	require.Equal(t, 0, idx)
}
