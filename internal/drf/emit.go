package drf

import (
	"fmt"
	"time"

	"github.com/seismicdata/drf-fanout/internal/textfmt"
)

// EmitOptions controls Program A's extraction window and text rendering
// (§4.3, §6 CLI flags -s/-m/-c/-n/-f/-p).
type EmitOptions struct {
	// StartTime is the requested UTC (or local, per the caller's earlier
	// parse) start instant.
	StartTime time.Time
	// Minutes is how many minutes of data to extract, mirroring the
	// original's -m flag. Zero means "until the data runs out".
	Minutes int
	// Channel selects a single 1-based channel index to extract (resolved
	// from the CLI's channel-name filter against the config channel
	// table); 0 means all channels (§4.3 item 5, §6 -c).
	Channel int
	// SaveNth downsamples by averaging every SaveNth tick into one output
	// row; 1 means no downsampling.
	SaveNth int
	FullHeader bool
	PSN        bool
	NoHeader   bool
	Timestamps textfmt.TimestampMode
	Separator  string
	// VoltsPerCount and ADCBits/PGAGain feed the full/PSN headers; see
	// internal/config's channel table for where these come from.
	VoltsPerCount []float64
	ADCBits       int
	PGAGain       float64
}

// Emitter accumulates ticks (optionally averaging SaveNth of them) and
// writes rows through a textfmt.RowWriter, grounded on drf2txt.cpp's
// downsampling loop ("savedSamples" divided by saveNth).
type Emitter struct {
	opts EmitOptions
	rw   *textfmt.RowWriter

	channelFilter int // -1 = all channels, else 0-based index
	width         int // number of output values per row

	accumSum   []int64
	accumCount int
	accumTS    float64

	rowsWritten int
	maxRows     int // 0 = unlimited
}

// NewEmitter builds an Emitter for the given channel count, deriving the
// 0-based channel filter from opts.Channel (1-based, 0 = all).
func NewEmitter(numChannels int, opts EmitOptions, rw *textfmt.RowWriter) *Emitter {
	filter := -1
	width := numChannels
	if opts.Channel > 0 {
		filter = opts.Channel - 1
		width = 1
	}
	saveNth := opts.SaveNth
	if saveNth < 1 {
		saveNth = 1
	}
	opts.SaveNth = saveNth

	e := &Emitter{
		opts:          opts,
		rw:            rw,
		channelFilter: filter,
		width:         width,
	}
	e.accumSum = make([]int64, width)
	return e
}

// SetMaxRows bounds the number of output rows Feed will write; 0 means
// unlimited (until the walker runs out of ticks).
func (e *Emitter) SetMaxRows(n int) { e.maxRows = n }

// Done reports whether the emitter has reached its row limit.
func (e *Emitter) Done() bool { return e.maxRows > 0 && e.rowsWritten >= e.maxRows }

// Feed consumes one tick of channel-ordered values at absolute timestamp
// ts, accumulating for downsampling and writing a row every SaveNth ticks.
func (e *Emitter) Feed(ts float64, values []int32) error {
	if e.accumCount == 0 {
		e.accumTS = ts
	}

	if e.channelFilter >= 0 {
		if e.channelFilter >= len(values) {
			return fmt.Errorf("drf: channel filter %d out of range for %d channels", e.channelFilter, len(values))
		}
		e.accumSum[0] += int64(values[e.channelFilter])
	} else {
		for i, v := range values {
			e.accumSum[i] += int64(v)
		}
	}
	e.accumCount++

	if e.accumCount < e.opts.SaveNth {
		return nil
	}

	row := make([]int32, e.width)
	for i, sum := range e.accumSum {
		row[i] = int32(sum / int64(e.accumCount))
		e.accumSum[i] = 0
	}
	e.accumCount = 0

	if err := e.rw.WriteRow(e.accumTS, row); err != nil {
		return err
	}
	e.rowsWritten++
	return nil
}

// RowsWritten returns how many output rows have been written so far.
func (e *Emitter) RowsWritten() int { return e.rowsWritten }
