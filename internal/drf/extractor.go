package drf

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/seismicdata/drf-fanout/internal/textfmt"
	"github.com/seismicdata/drf-fanout/internal/timeutil"
)

// DayFileOpener opens the day-file for the given UTC calendar day, used for
// the previous/next day spanning in §4.1. Returning (nil, Header{}, false, nil)
// means the file does not exist (a clean stop at EOF, not an error).
type DayFileOpener func(day time.Time) (r io.ReadSeeker, hdr Header, found bool, err error)

// Extractor drives Program A's end-to-end extraction: locate the start
// block (spanning to the previous day-file if needed), discard samples
// before the exact requested instant, walk ticks until the requested
// duration is exhausted or the data runs out (spanning to the next
// day-file at EOF), and feed each tick to an Emitter (§4.1, §4.3).
type Extractor struct {
	open DayFileOpener
	opts EmitOptions

	// Log, if set, receives a warning when the stream ends with fewer
	// samples than the header advertised (the header's expected count is
	// fixed at first-emit time, before the run is known to come up short;
	// rewriting it after the fact would need seekable output, which the
	// emitter's io.Writer contract does not guarantee).
	Log *slog.Logger
}

// NewExtractor builds an Extractor. opts.StartTime and opts.Minutes define
// the extraction window; open resolves day-file spans.
func NewExtractor(open DayFileOpener, opts EmitOptions) *Extractor {
	return &Extractor{open: open, opts: opts}
}

var ErrNoStartFile = errors.New("drf: no day-file covers the requested start time")

// Run performs the extraction, writing rows (and a leading header, unless
// opts.NoHeader) to w.
func (e *Extractor) Run(w io.Writer) error {
	day := e.opts.StartTime.UTC()
	target := day.Unix()

	r, hdr, found, err := e.open(day)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNoStartFile, timeutil.DayFileName(0, day))
	}

	walker := NewWalker(r, hdr)
	blockIdx, skipSamples, err := e.locateStart(walker, &hdr, &day, target)
	if err != nil {
		return err
	}
	if err := walker.SeekTo(blockIdx); err != nil {
		return fmt.Errorf("drf: seeking to start block: %w", err)
	}

	rw := &textfmt.RowWriter{
		W:          w,
		Separator:  e.opts.Separator,
		Timestamps: e.opts.Timestamps,
	}
	if rw.Separator == "" {
		rw.Separator = ","
	}
	emitter := NewEmitter(hdr.NumChannels, e.opts, rw)

	ticksRemaining := -1 // -1 means unbounded (until data runs out)
	expectedRows := 0
	if e.opts.Minutes > 0 {
		ticksRemaining = e.opts.Minutes * 60 * hdr.SampleRate
		expectedRows = ticksRemaining / e.opts.SaveNth
	}

	headerWritten := false
	skip := skipSamples

	for {
		values, ts, ok, err := walker.Next()
		if err != nil {
			return fmt.Errorf("drf: reading block: %w", err)
		}
		if !ok {
			nextDay := timeutil.NextDay(day)
			nr, nhdr, found, err := e.open(nextDay)
			if err != nil {
				return err
			}
			if !found {
				e.warnIfShort(expectedRows, emitter.RowsWritten())
				return nil
			}
			day = nextDay
			r = nr
			hdr = nhdr
			walker = NewWalker(r, hdr)
			if err := walker.SeekTo(0); err != nil {
				if err == io.EOF {
					e.warnIfShort(expectedRows, emitter.RowsWritten())
					return nil
				}
				return err
			}
			continue
		}

		if skip > 0 {
			skip--
			continue
		}
		if ticksRemaining == 0 {
			return nil
		}
		if ticksRemaining > 0 {
			ticksRemaining--
		}

		if !headerWritten && !e.opts.NoHeader {
			if err := e.writeHeader(rw, hdr, ts); err != nil {
				return err
			}
			headerWritten = true
		}

		if err := emitter.Feed(ts, values); err != nil {
			return err
		}
	}
}

// warnIfShort logs when the stream ran out of data before reaching the
// row count the header already advertised (decision 4 of the PSN header
// staleness question: warn rather than rewrite, since output is a
// streaming io.Writer).
func (e *Extractor) warnIfShort(expectedRows, gotRows int) {
	if e.Log == nil || expectedRows <= 0 || gotRows >= expectedRows {
		return
	}
	e.Log.Warn("extraction ended before the advertised sample count",
		"expected_rows", expectedRows, "got_rows", gotRows)
}

// locateStart seeks to target within hdr's index, spanning to the previous
// day-file on a before-first-block result, and computes how many leading
// ticks of the located block must be discarded so the first emitted sample
// lands exactly on target (§4.1, §4.3 invariant).
func (e *Extractor) locateStart(w *Walker, hdr *Header, day *time.Time, target int64) (blockIdx int, skipTicks int, err error) {
	for tries := 0; tries < 2; tries++ {
		result, idx := Seek(hdr.Index, target)
		switch result {
		case SeekFound:
			blockStart := hdr.Index[idx].StartTime
			delta := target - blockStart
			skip := 0
			if delta > 0 {
				skip = int(delta) * hdr.SampleRate
			}
			return idx, skip, nil
		case SeekBeforeFirstBlock:
			prevDay := timeutil.PreviousDay(*day)
			pr, phdr, found, oerr := e.open(prevDay)
			if oerr != nil {
				return 0, 0, oerr
			}
			if !found {
				return 0, 0, fmt.Errorf("%w: %s", ErrNoStartFile, timeutil.DayFileName(0, prevDay))
			}
			*w = *NewWalker(pr, phdr)
			*hdr = phdr
			*day = prevDay
			continue
		case SeekNotFound:
			return 0, 0, fmt.Errorf("drf: target time not found in block index")
		}
	}
	return 0, 0, fmt.Errorf("drf: target time not found after day-file span")
}

func (e *Extractor) writeHeader(rw *textfmt.RowWriter, hdr Header, firstTS float64) error {
	effRate := float64(hdr.SampleRate) / float64(e.opts.SaveNth)
	numChannels := hdr.NumChannels
	if e.opts.Channel > 0 {
		numChannels = 1
	}
	expected := 0
	if e.opts.Minutes > 0 {
		expected = (e.opts.Minutes * 60 * hdr.SampleRate) / e.opts.SaveNth
	}
	meta := textfmt.HeaderMeta{
		StartTime:                 time.Unix(int64(firstTS), 0).UTC(),
		SampleRate:                effRate,
		NumChannels:               numChannels,
		ExpectedSamplesPerChannel: expected,
		FullHeader:                e.opts.FullHeader,
		VoltsPerCount:             e.opts.VoltsPerCount,
		PSN:                       e.opts.PSN,
		ADCBits:                   e.opts.ADCBits,
		PGAGain:                   e.opts.PGAGain,
	}
	return textfmt.WriteHeader(rw.W, meta)
}
