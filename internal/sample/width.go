// Package sample holds the sample-width convention shared by the DRF
// decoder and the fan-out codec: every binary path in this module threads
// a Width value instead of re-deriving it from file-version flags or
// board-type bytes at each layer.
package sample

import "fmt"

// Width is the sum type standing in for the dual 16-bit/24-bit sample
// paths that the source selects via ad-hoc bit-twiddling on
// fileVersionFlags (DRF) or board_type (the ring mux header).
type Width int

const (
	Width16 Width = iota
	Width24
)

func (w Width) String() string {
	switch w {
	case Width16:
		return "16-bit"
	case Width24:
		return "24-bit"
	default:
		return fmt.Sprintf("Width(%d)", int(w))
	}
}

// Bytes returns the on-wire size of one packed 24-bit sample, or 0 for
// 16-bit samples (which are variably 1 or 2 bytes, tracked via a bitmap
// instead of a fixed width).
func (w Width) Bytes() int {
	if w == Width24 {
		return 3
	}
	return 0
}

// FeatureFlags mirrors the two relevant DRF header bits; their union means
// 24-bit samples (§3).
type FeatureFlags uint32

const (
	FlagSDR24Data FeatureFlags = 1 << 0
	FlagVMData    FeatureFlags = 1 << 1
)

// WidthFromFlags derives the sample width from the DRF header's
// feature-flag word.
func WidthFromFlags(flags FeatureFlags) Width {
	if flags&(FlagSDR24Data|FlagVMData) != 0 {
		return Width24
	}
	return Width16
}

// BoardType enumerates the ring mux header's board_type byte. Only the
// widths and wire flags in §4.4 are modeled; other board types fall back
// to the "other" row of that table.
type BoardType uint8

const (
	BoardType16A BoardType = 2
	BoardType24A BoardType = 3
	BoardType16B BoardType = 4
	BoardType24B BoardType = 5
)

// WidthFromBoardType implements the board_type column of §4.4's table.
func WidthFromBoardType(bt BoardType) Width {
	switch bt {
	case BoardType24A, BoardType24B:
		return Width24
	default:
		return Width16
	}
}

// WireFlags implements the flags column of §4.4's table.
func WireFlags(bt BoardType) uint8 {
	switch bt {
	case BoardType16A:
		return 0x80
	case BoardType24A:
		return 0x40
	case BoardType16B:
		return 0x81
	case BoardType24B:
		return 0xC0
	default:
		return 0x00
	}
}

// Buffer is a flat, channel-interleaved sample array: for each of 60
// seconds, for each tick in that second, one value per channel 0..C-1
// (§3). Values are always carried as int32 regardless of Width so that
// 16-bit and 24-bit samples share the same downstream pipeline.
type Buffer struct {
	Values   []int32
	Channels int
	Rate     int // samples/sec/channel
}

// NumSeconds returns how many seconds of data the buffer holds, given its
// configured channel count and rate.
func (b Buffer) NumSeconds() int {
	perSecond := b.Channels * b.Rate
	if perSecond == 0 {
		return 0
	}
	return len(b.Values) / perSecond
}
