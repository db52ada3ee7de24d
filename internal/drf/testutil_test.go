package drf

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildNarrowBlock encodes flat (already channel-interleaved) values as a
// 16-bit block whose bitmap is all-zero, i.e. every sample narrow
// (signed 8-bit). Values must fit in [-128, 127].
func buildNarrowBlock(t *testing.T, startTime int64, flat []int32) []byte {
	t.Helper()
	bmLen := (len(flat) + 7) / 8
	payload := make([]byte, bmLen+len(flat))
	for i, v := range flat {
		require.True(t, v >= -128 && v <= 127, "value %d out of narrow range", v)
		payload[bmLen+i] = byte(int8(v))
	}

	info := rawBlockInfo{
		Magic:     blockMagic,
		StartTime: uint32(startTime),
		BlockSize: uint32(blockInfoLen + len(payload)),
	}

	buf := &bytes.Buffer{}
	require.NoError(t, binary.Write(buf, binary.LittleEndian, info))
	buf.Write(payload)
	return buf.Bytes()
}

// buildDayFile assembles a full in-memory DRF file: the fixed header
// (raw hdr block + MaxBlocks worth of index entries) followed by the
// given already-encoded block byte strings, back-filling each block's
// FileOffset as it goes.
func buildDayFile(t *testing.T, raw rawHdrBlock, blockStarts []int64, blocks [][]byte) []byte {
	t.Helper()
	require.Equal(t, len(blockStarts), len(blocks))
	require.Equal(t, int(raw.NumBlocks), len(blocks))

	entries := make([]rawFileInfo, MaxBlocks)
	offset := uint32(fixedHeaderLen)
	for i := range blocks {
		entries[i] = rawFileInfo{
			StartTime: uint32(blockStarts[i]),
			FilePos:   offset,
			BlockSize: int32(len(blocks[i])),
		}
		offset += uint32(len(blocks[i]))
	}

	buf := &bytes.Buffer{}
	require.NoError(t, binary.Write(buf, binary.LittleEndian, raw))
	require.NoError(t, binary.Write(buf, binary.LittleEndian, entries))
	for _, b := range blocks {
		buf.Write(b)
	}
	return buf.Bytes()
}
