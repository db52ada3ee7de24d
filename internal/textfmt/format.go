// Package textfmt renders decoded samples as the three text formats
// Program A supports: a compact header + CSV/space rows, or a PSN-style
// single-channel event file (§4.3 item 6).
package textfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// TimestampMode selects how (or whether) each row is prefixed with a time.
type TimestampMode int

const (
	TimestampNone TimestampMode = iota
	// TimestampOffset prepends seconds elapsed since the first emitted sample.
	TimestampOffset
	// TimestampEpoch prepends the absolute unix epoch second.
	TimestampEpoch
)

// RowWriter renders one row per call to WriteRow: an optional timestamp
// prefix, then values joined by Separator, then a newline. In
// single-channel mode callers simply pass a one-element slice, which
// naturally yields "every value is its own row" per §4.3.
type RowWriter struct {
	W          io.Writer
	Separator  string
	Timestamps TimestampMode
	firstTime  float64
	haveFirst  bool
}

// WriteRow writes one row. ts is the absolute sample time in seconds
// (unix epoch, fractional). For TimestampOffset, the first call's ts
// becomes the zero point, matching "the first-sample timestamp equals the
// user-requested start time exactly" (§4.3 invariant).
func (rw *RowWriter) WriteRow(ts float64, values []int32) error {
	if !rw.haveFirst {
		rw.firstTime = ts
		rw.haveFirst = true
	}

	var b strings.Builder
	switch rw.Timestamps {
	case TimestampOffset:
		fmt.Fprintf(&b, "%.3f%s", ts-rw.firstTime, rw.Separator)
	case TimestampEpoch:
		fmt.Fprintf(&b, "%.3f%s", ts, rw.Separator)
	}
	for i, v := range values {
		if i > 0 {
			b.WriteString(rw.Separator)
		}
		b.WriteString(strconv.Itoa(int(v)))
	}
	b.WriteByte('\n')
	_, err := io.WriteString(rw.W, b.String())
	return err
}

// HeaderMeta carries everything the compact and PSN headers need.
type HeaderMeta struct {
	StartTime                 time.Time
	SampleRate                float64 // after downsampling
	NumChannels                int
	ExpectedSamplesPerChannel  int
	FullHeader                 bool
	VoltsPerCount              []float64 // len == NumChannels, only used if FullHeader
	PSN                        bool
	ADCBits                    int
	PGAGain                    float64
}

// WriteHeader renders the compact header or, when meta.PSN is set, the PSN
// text header (§4.3 item 6). NoHeader is the caller's responsibility:
// simply don't call WriteHeader.
func WriteHeader(w io.Writer, meta HeaderMeta) error {
	if meta.PSN {
		return writePSNHeader(w, meta)
	}
	return writeCompactHeader(w, meta)
}

func writeCompactHeader(w io.Writer, meta HeaderMeta) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Start Time: %s\n", formatTimeCompact(meta.StartTime))
	fmt.Fprintf(&b, "Sample Rate: %g\n", meta.SampleRate)
	fmt.Fprintf(&b, "Number of Channels: %d\n", meta.NumChannels)
	if meta.FullHeader {
		for i, v := range meta.VoltsPerCount {
			fmt.Fprintf(&b, "Ch%d Volts Per Count: %.12f\n", i+1, v)
		}
	}
	fmt.Fprintf(&b, "Data Samples Per Channel: %d\n", meta.ExpectedSamplesPerChannel)
	_, err := io.WriteString(w, b.String())
	return err
}

func writePSNHeader(w io.Writer, meta HeaderMeta) error {
	var b strings.Builder
	b.WriteString("! PSN ASCII Event File Format 2.0\n")
	fmt.Fprintf(&b, "Start Time: %s\n", formatTimePSN(meta.StartTime))
	fmt.Fprintf(&b, "Number of Samples: %d\n", meta.ExpectedSamplesPerChannel)
	fmt.Fprintf(&b, "SPS: %g\n", meta.SampleRate)
	fmt.Fprintf(&b, "A/D Converter Bits: %d\n", meta.ADCBits)
	fmt.Fprintf(&b, "PGA Gain: %g\n", meta.PGAGain)
	b.WriteString("Data:\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func formatTimeCompact(t time.Time) string {
	return t.UTC().Format("01/02/2006 15:04:05.000")
}

func formatTimePSN(t time.Time) string {
	return t.UTC().Format("2006/01/02 15:04:05.000")
}
