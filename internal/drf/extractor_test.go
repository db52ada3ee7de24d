package drf

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func singleDayOpener(t *testing.T, day time.Time, file []byte, numChannels int) DayFileOpener {
	t.Helper()
	return func(d time.Time) (io.ReadSeeker, Header, bool, error) {
		if !d.Equal(day) {
			return nil, Header{}, false, nil
		}
		hdr, err := ReadHeader(bytes.NewReader(file), numChannels)
		if err != nil {
			return nil, Header{}, false, err
		}
		return bytes.NewReader(file), hdr, true, nil
	}
}

// TestExtractorRunEmitsExactWindow confirms a request starting exactly on
// a block boundary emits precisely minutes*60*sampleRate rows, each
// holding the channel-ordered tick values of block 0, and stops there
// without emitting any of block 1 (§4.1, §4.3's "first row equals the
// requested start exactly" invariant).
func TestExtractorRunEmitsExactWindow(t *testing.T) {
	t.Parallel()
	day := time.Unix(1700000000, 0).UTC()
	hdr, r := buildTwoBlockFile(t)
	full := make([]byte, r.Size())
	_, err := r.ReadAt(full, 0)
	require.NoError(t, err)

	opener := singleDayOpener(t, day, full, hdr.NumChannels)

	opts := EmitOptions{
		StartTime: day,
		Minutes:   1,
		SaveNth:   1,
		NoHeader:  true,
		Separator: ",",
	}
	ex := NewExtractor(opener, opts)

	var out bytes.Buffer
	require.NoError(t, ex.Run(&out))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 60)
	for tick, line := range lines {
		want := fmt.Sprintf("%d,%d", tick*2, tick*2+1)
		require.Equal(t, want, line)
	}
}

// TestExtractorRunWithHeader confirms a header is written once, before the
// first data row, when NoHeader is false.
func TestExtractorRunWithHeader(t *testing.T) {
	t.Parallel()
	day := time.Unix(1700000000, 0).UTC()
	hdr, r := buildTwoBlockFile(t)
	full := make([]byte, r.Size())
	_, err := r.ReadAt(full, 0)
	require.NoError(t, err)

	opener := singleDayOpener(t, day, full, hdr.NumChannels)

	opts := EmitOptions{
		StartTime: day,
		Minutes:   1,
		SaveNth:   1,
		Separator: ",",
	}
	ex := NewExtractor(opener, opts)

	var out bytes.Buffer
	require.NoError(t, ex.Run(&out))

	lines := strings.Split(out.String(), "\n")
	require.True(t, strings.HasPrefix(lines[0], "Start Time: "))
	require.Contains(t, lines[1], "Sample Rate:")
	require.Contains(t, lines[2], "Number of Channels: 2")
}

// TestExtractorDownsampleAveragesTruncated confirms SaveNth averages N
// ticks per output row using integer (truncating) division, matching the
// original's savedSamples/saveNth behavior.
func TestExtractorDownsampleAveragesTruncated(t *testing.T) {
	t.Parallel()
	day := time.Unix(1700000000, 0).UTC()
	hdr, r := buildTwoBlockFile(t)
	full := make([]byte, r.Size())
	_, err := r.ReadAt(full, 0)
	require.NoError(t, err)

	opener := singleDayOpener(t, day, full, hdr.NumChannels)

	opts := EmitOptions{
		StartTime: day,
		Minutes:   1,
		SaveNth:   3,
		NoHeader:  true,
		Separator: ",",
	}
	ex := NewExtractor(opener, opts)

	var out bytes.Buffer
	require.NoError(t, ex.Run(&out))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Equal(t, 20, len(lines))
	// ticks 0,1,2 -> channel0 values 0,2,4 average (0+2+4)/3 = 2 (truncated)
	require.Equal(t, fmt.Sprintf("%d,%d", 2, 3), lines[0])
}

// TestExtractorNoStartFile confirms a request whose day has no file at
// all surfaces ErrNoStartFile rather than silently producing no output.
func TestExtractorNoStartFile(t *testing.T) {
	t.Parallel()
	opener := func(d time.Time) (io.ReadSeeker, Header, bool, error) {
		return nil, Header{}, false, nil
	}
	opts := EmitOptions{StartTime: time.Unix(1700000000, 0).UTC(), Minutes: 1, SaveNth: 1}
	ex := NewExtractor(opener, opts)

	err := ex.Run(io.Discard)
	require.ErrorIs(t, err, ErrNoStartFile)
}

// TestExtractorLocateStartSpansPreviousDay confirms a target preceding the
// day-file's first block by more than the seek tolerance triggers a
// previous-day lookup, and that a missing previous day surfaces
// ErrNoStartFile (§4.1's spanning rule).
func TestExtractorLocateStartSpansPreviousDay(t *testing.T) {
	t.Parallel()
	day := time.Unix(1700000000, 0).UTC()
	// The file's first block starts well after the requested day-key
	// instant (recording began partway through the day), so the exact
	// target lies before the first block by more than the tolerance.
	block := buildNarrowBlock(t, 1700003000, []int32{1, 2})
	raw := rawHdrBlock{SampleRate: 1, NumSamples: 2, NumChannels: 2, NumBlocks: 1, LastBlockSize: 2}
	file := buildDayFile(t, raw, []int64{1700003000}, [][]byte{block})

	opener := singleDayOpener(t, day, file, 2)

	opts := EmitOptions{
		StartTime: day,
		Minutes:   1,
		SaveNth:   1,
	}
	ex := NewExtractor(opener, opts)
	err := ex.Run(io.Discard)
	require.ErrorIs(t, err, ErrNoStartFile)
}

// TestExtractorWarnsWhenStreamRunsShort confirms a request asking for more
// minutes than the available data covers logs a warning instead of
// rewriting an already-streamed header (OPEN QUESTIONS decision 4).
func TestExtractorWarnsWhenStreamRunsShort(t *testing.T) {
	t.Parallel()
	day := time.Unix(1700000000, 0).UTC()
	hdr, r := buildTwoBlockFile(t)
	full := make([]byte, r.Size())
	_, err := r.ReadAt(full, 0)
	require.NoError(t, err)

	opener := singleDayOpener(t, day, full, hdr.NumChannels)

	var logBuf bytes.Buffer
	opts := EmitOptions{
		StartTime: day,
		Minutes:   2, // only ~62 ticks of data exist; 120 requested
		SaveNth:   1,
		NoHeader:  true,
	}
	ex := NewExtractor(opener, opts)
	ex.Log = slog.New(slog.NewTextHandler(&logBuf, nil))

	require.NoError(t, ex.Run(io.Discard))
	require.Contains(t, logBuf.String(), "ended before the advertised sample count")
}
