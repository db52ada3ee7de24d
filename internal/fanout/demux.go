package fanout

import (
	"encoding/binary"
	"fmt"

	"github.com/seismicdata/drf-fanout/internal/sample"
)

// Demux splits a 'D' message's interleaved raw samples (immediately
// following the DataHeader) into one []int32 slice per channel, in
// chronological order, ready for codec.Pack (§4.6 item 1): "de-interleave
// from the ring payload (sample-rate·channels), feed Pack() per channel in
// index order". 16-bit boards (types 2/4) store each sample as a signed
// 16-bit little-endian word; 24-bit boards (types 3/5) store each sample
// pre-expanded to a signed 32-bit little-endian word (§3).
func Demux(raw []byte, numChannels int, width sample.Width) ([][]int32, error) {
	bytesPerSample := 2
	if width == sample.Width24 {
		bytesPerSample = 4
	}
	stride := bytesPerSample * numChannels
	if stride == 0 || len(raw)%stride != 0 {
		return nil, fmt.Errorf("fanout: sample payload of %d bytes does not divide evenly by %d channels at %d bytes/sample", len(raw), numChannels, bytesPerSample)
	}
	ticks := len(raw) / stride

	out := make([][]int32, numChannels)
	for c := range out {
		out[c] = make([]int32, ticks)
	}

	pos := 0
	for t := 0; t < ticks; t++ {
		for c := 0; c < numChannels; c++ {
			switch width {
			case sample.Width16:
				out[c][t] = int32(int16(binary.LittleEndian.Uint16(raw[pos : pos+2])))
				pos += 2
			case sample.Width24:
				out[c][t] = int32(binary.LittleEndian.Uint32(raw[pos : pos+4]))
				pos += 4
			}
		}
	}
	return out, nil
}
