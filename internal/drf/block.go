package drf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// blockMagic is the "good block" marker at the start of every data block.
const blockMagic = 0xA55A

var (
	ErrBadMagic         = errors.New("drf: bad block magic")
	ErrOffsetMismatch   = errors.New("drf: file offset does not match block index")
	ErrShortBlock       = errors.New("drf: truncated block")
)

// BlockInfo is the per-block info header (§3), grounded on drf2txt.h's
// packed InfoBlockNew struct.
type BlockInfo struct {
	Magic       uint16
	Flags       uint16
	AlarmBits   uint64
	StartTime   int64 // seconds since epoch
	StartTickMs uint32
	// BlockSize is the byte length of the whole block (info header +
	// payload), used to size the following read — not a sample count.
	BlockSize uint32
}

const blockInfoLen = 2 + 2 + 8 + 4 + 4 + 4

type rawBlockInfo struct {
	Magic       uint16
	Flags       uint16
	AlarmBits   uint64
	StartTime   uint32
	StartTickMs uint32
	BlockSize   uint32
}

// ReadBlock reads one data block at the file's current position, validates
// it against the expected descriptor (§3 invariants: file offset must
// match, magic must be 0xA55A), and returns the block's info header plus
// its raw payload bytes (bitmap+data for 16-bit, tightly packed samples
// for 24-bit).
func ReadBlock(r io.ReadSeeker, desc BlockDescriptor) (BlockInfo, []byte, error) {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return BlockInfo{}, nil, fmt.Errorf("drf: seek current position: %w", err)
	}
	if pos != desc.FileOffset {
		return BlockInfo{}, nil, fmt.Errorf("%w: at offset %d, index expects %d", ErrOffsetMismatch, pos, desc.FileOffset)
	}

	var raw rawBlockInfo
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		return BlockInfo{}, nil, fmt.Errorf("%w: %v", ErrShortBlock, err)
	}
	if raw.Magic != blockMagic {
		return BlockInfo{}, nil, fmt.Errorf("%w: got 0x%04X", ErrBadMagic, raw.Magic)
	}

	info := BlockInfo{
		Magic:       raw.Magic,
		Flags:       raw.Flags,
		AlarmBits:   raw.AlarmBits,
		StartTime:   int64(raw.StartTime),
		StartTickMs: raw.StartTickMs,
		BlockSize:   raw.BlockSize,
	}

	payloadLen := int(raw.BlockSize) - blockInfoLen
	if payloadLen < 0 {
		return BlockInfo{}, nil, fmt.Errorf("%w: blockSize %d smaller than info header", ErrShortBlock, raw.BlockSize)
	}
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return BlockInfo{}, nil, fmt.Errorf("%w: %v", ErrShortBlock, err)
	}

	return info, payload, nil
}
