// Package drf reads the day-indexed Daily Record File format: a fixed
// header with a block index, followed by up to MaxBlocks one-minute data
// blocks, each independently decompressible (§3-§4.2).
package drf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/seismicdata/drf-fanout/internal/sample"
)

// MaxBlocks is the block index's fixed capacity, grounded on the original
// drf2txt.cpp's MAX_FILE_INFO constant. numBlocks in the header tells the
// reader how many of these entries are valid; the rest are padding.
const MaxBlocks = 2000

var (
	ErrShortHeader          = errors.New("drf: file shorter than fixed header")
	ErrChannelCountMismatch = errors.New("drf: configured channel count does not match file header")
	ErrUnknownWidth         = errors.New("drf: header flags do not identify a known sample width")
)

// Header is the DRF file's fixed-size leading header (§3), grounded on
// drf2txt.h's packed HdrBlock struct.
type Header struct {
	Flags sample.FeatureFlags
	// SampleRate is samples/sec/channel.
	SampleRate int
	// FlatSamplesPerSecond is the total interleaved sample count per
	// second across all channels (SampleRate*NumChannels in a
	// well-formed file); stored verbatim in the file rather than derived,
	// since a corrupt file may disagree with its own channel count.
	FlatSamplesPerSecond int
	NumChannels          int
	NumBlocks            int
	LastBlockSize        int
	FirstBlockStart      int64 // seconds since epoch
	LastBlockStart       int64
	LastBlockOffset      int64
	Index                []BlockDescriptor
}

// Width derives the sample width from the header's feature-flag word.
func (h Header) Width() sample.Width {
	return sample.WidthFromFlags(h.Flags)
}

// BlockDescriptor is one entry of the block index (§3).
type BlockDescriptor struct {
	StartTime  int64
	FileOffset int64
	BlockSize  int32
	JulianDay  int32
}

type rawFileInfo struct {
	StartTime uint32
	FilePos   uint32
	BlockSize int32
	JulianDay int32
}

type rawHdrBlock struct {
	FileVersionFlags uint32
	SampleRate       int32
	NumSamples       int32
	NumChannels      int32
	NumBlocks        int32
	LastBlockSize    int32
	StartTime        uint32
	LastTime         uint32
	LastBlockOffset  uint32
}

const fixedHeaderLen = 4*9 + MaxBlocks*16

// ReadHeader reads and validates the fixed DRF header from r, checking
// that numChannels matches the configured channel count (§4.1 contract).
func ReadHeader(r io.Reader, configuredChannels int) (Header, error) {
	var raw rawHdrBlock
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrShortHeader, err)
	}

	entries := make([]rawFileInfo, MaxBlocks)
	if err := binary.Read(r, binary.LittleEndian, entries); err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrShortHeader, err)
	}

	if int(raw.NumChannels) != configuredChannels {
		return Header{}, fmt.Errorf("%w: file has %d, config has %d", ErrChannelCountMismatch, raw.NumChannels, configuredChannels)
	}

	flags := sample.FeatureFlags(raw.FileVersionFlags)
	hdr := Header{
		Flags:                flags,
		SampleRate:           int(raw.SampleRate),
		FlatSamplesPerSecond: int(raw.NumSamples),
		NumChannels:          int(raw.NumChannels),
		NumBlocks:            int(raw.NumBlocks),
		LastBlockSize:        int(raw.LastBlockSize),
		FirstBlockStart:      int64(raw.StartTime),
		LastBlockStart:       int64(raw.LastTime),
		LastBlockOffset:      int64(raw.LastBlockOffset),
	}

	if hdr.NumBlocks < 0 || hdr.NumBlocks > MaxBlocks {
		return Header{}, fmt.Errorf("%w: numBlocks %d out of range", ErrShortHeader, hdr.NumBlocks)
	}

	hdr.Index = make([]BlockDescriptor, hdr.NumBlocks)
	for i := 0; i < hdr.NumBlocks; i++ {
		hdr.Index[i] = BlockDescriptor{
			StartTime:  int64(entries[i].StartTime),
			FileOffset: int64(entries[i].FilePos),
			BlockSize:  entries[i].BlockSize,
			JulianDay:  entries[i].JulianDay,
		}
	}

	return hdr, nil
}
