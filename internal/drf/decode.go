package drf

import (
	"errors"
	"fmt"

	"github.com/seismicdata/drf-fanout/internal/sample"
)

var ErrShortPayload = errors.New("drf: block payload shorter than expected")

// DecodeBlock decompresses one block's raw payload (as returned by
// ReadBlock) into a flat, channel-interleaved []int32 of length
// totalFlatSamples (§4.2). The result is already in the exact
// (second, tick, channel) order the de-interleaver expects — the original
// decompression loop consumes the bitmap/data stream linearly in that same
// order, so no reordering happens here.
func DecodeBlock(payload []byte, width sample.Width, totalFlatSamples int) ([]int32, error) {
	switch width {
	case sample.Width16:
		return decode16(payload, totalFlatSamples)
	case sample.Width24:
		return decode24(payload, totalFlatSamples)
	default:
		return nil, fmt.Errorf("drf: %w", ErrUnknownWidth)
	}
}

// decode16 implements §4.2's 16-bit decoder: a bitmap of
// ceil(totalFlatSamples/8) bytes, one bit per sample (0 = signed 8-bit,
// 1 = signed 16-bit little-endian), followed by the packed data stream.
func decode16(payload []byte, totalFlatSamples int) ([]int32, error) {
	bmLen := (totalFlatSamples + 7) / 8
	if len(payload) < bmLen {
		return nil, fmt.Errorf("%w: bitmap", ErrShortPayload)
	}
	bitmap := payload[:bmLen]
	data := payload[bmLen:]

	out := make([]int32, totalFlatSamples)
	pos := 0
	for k := 0; k < totalFlatSamples; k++ {
		wide := bitmap[k/8]&(1<<uint(k%8)) != 0
		if wide {
			if pos+2 > len(data) {
				return nil, fmt.Errorf("%w: data", ErrShortPayload)
			}
			v := int16(uint16(data[pos]) | uint16(data[pos+1])<<8)
			out[k] = int32(v)
			pos += 2
		} else {
			if pos+1 > len(data) {
				return nil, fmt.Errorf("%w: data", ErrShortPayload)
			}
			out[k] = int32(int8(data[pos]))
			pos++
		}
	}
	return out, nil
}

// decode24 implements §4.2's 24-bit decoder: a tightly packed stream of
// 3-byte big-endian signed integers, one per sample, no bitmap.
func decode24(payload []byte, totalFlatSamples int) ([]int32, error) {
	need := totalFlatSamples * 3
	if len(payload) < need {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrShortPayload, need, len(payload))
	}
	out := make([]int32, totalFlatSamples)
	for k := 0; k < totalFlatSamples; k++ {
		b0, b1, b2 := payload[k*3], payload[k*3+1], payload[k*3+2]
		v := int32(b0)<<16 | int32(b1)<<8 | int32(b2)
		if b0&0x80 != 0 {
			v |= -(1 << 24)
		}
		out[k] = v
	}
	return out, nil
}

// FlatSamplesInBlock returns the number of flat (channel-interleaved)
// samples expected in the block at index i of hdr's block index: a full
// 60-second block for every block but the last, and hdr.LastBlockSize for
// the last one.
func FlatSamplesInBlock(hdr Header, index int) int {
	if index == hdr.NumBlocks-1 {
		return hdr.LastBlockSize
	}
	return hdr.FlatSamplesPerSecond * 60
}
