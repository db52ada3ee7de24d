package drf

import (
	"io"

	"github.com/seismicdata/drf-fanout/internal/sample"
)

// Walker steps through a single day-file's blocks one tick (one sample per
// channel, 1/SampleRate seconds) at a time, decoding blocks lazily
// as it crosses their boundaries (§4.2-§4.3).
type Walker struct {
	r   io.ReadSeeker
	hdr Header

	blockIdx    int
	tickInBlock int

	curBlock      []int32
	curTicks      int
	curBlockStart int64
}

// NewWalker constructs a Walker positioned before the file's first block.
// Call SeekTo to position it at a specific block index before calling Next.
func NewWalker(r io.ReadSeeker, hdr Header) *Walker {
	return &Walker{r: r, hdr: hdr, blockIdx: -1}
}

// SeekTo loads the block at hdr.Index[i] as the walker's current block,
// positioned at that block's first tick. Callers combine this with Seek to
// jump directly to the block containing a target instant.
func (w *Walker) SeekTo(i int) error {
	if i < 0 || i >= w.hdr.NumBlocks {
		return io.EOF
	}
	if _, err := w.r.Seek(w.hdr.Index[i].FileOffset, io.SeekStart); err != nil {
		return err
	}
	info, payload, err := ReadBlock(w.r, w.hdr.Index[i])
	if err != nil {
		return err
	}
	flatLen := FlatSamplesInBlock(w.hdr, i)
	flat, err := DecodeBlock(payload, w.hdr.Width(), flatLen)
	if err != nil {
		return err
	}
	w.blockIdx = i
	w.tickInBlock = 0
	w.curBlock = flat
	w.curTicks = flatLen / w.hdr.NumChannels
	w.curBlockStart = info.StartTime
	return nil
}

// Next returns the next tick's channel-ordered values and its absolute unix
// timestamp (fractional seconds), advancing into the next block as needed.
// ok is false once the file's last block is exhausted.
func (w *Walker) Next() (values []int32, ts float64, ok bool, err error) {
	for w.blockIdx < 0 || w.tickInBlock >= w.curTicks {
		next := w.blockIdx + 1
		if next >= w.hdr.NumBlocks {
			return nil, 0, false, nil
		}
		if err := w.SeekTo(next); err != nil {
			if err == io.EOF {
				return nil, 0, false, nil
			}
			return nil, 0, false, err
		}
	}

	nc := w.hdr.NumChannels
	start := w.tickInBlock * nc
	values = w.curBlock[start : start+nc]
	ts = float64(w.curBlockStart) + float64(w.tickInBlock)/float64(w.hdr.SampleRate)
	w.tickInBlock++
	return values, ts, true, nil
}

// Deinterleave splits a flat, channel-interleaved sample buffer into one
// slice per channel, each in chronological order (used by callers that want
// whole-block access rather than tick-by-tick walking, e.g. tests).
func Deinterleave(flat []int32, numChannels int) [][]int32 {
	ticks := len(flat) / numChannels
	out := make([][]int32, numChannels)
	for c := range out {
		out[c] = make([]int32, ticks)
	}
	for t := 0; t < ticks; t++ {
		for c := 0; c < numChannels; c++ {
			out[c][t] = flat[t*numChannels+c]
		}
	}
	return out
}

// Width re-exports the walker's header width for callers that only hold a
// Walker, not the Header.
func (w *Walker) Width() sample.Width { return w.hdr.Width() }
