package codec

import (
	"encoding/binary"
	"errors"
)

// FrameType distinguishes a data packet from a log packet on the wire.
type FrameType byte

const (
	FrameTypeData FrameType = 'D'
	FrameTypeLog  FrameType = 'L'
)

var preamble = [4]byte{0xAA, 0x55, 0x88, 0x44}

var (
	ErrBadPreamble   = errors.New("codec: bad frame preamble")
	ErrShortFrame    = errors.New("codec: frame shorter than declared length")
	ErrCRCMismatch   = errors.New("codec: frame CRC mismatch")
	ErrFrameTooShort = errors.New("codec: buffer too short to contain a frame")
)

// Frame builds a complete wire frame: {preamble}{len:u16}{type}{flags}{payload}{crc}.
// len counts the flags byte plus the payload (the type byte is not
// counted); the CRC is the XOR of every byte from the len field through
// the end of the payload.
func Frame(typ FrameType, flags byte, payload []byte) []byte {
	// Wire layout is {len:u16}{type:u8}{flags:u8}{payload[len-1]}, so
	// len = 1 (flags) + len(payload); the type byte is not counted.
	l := uint16(1 + len(payload))

	buf := make([]byte, 0, 4+2+1+1+len(payload)+1)
	buf = append(buf, preamble[:]...)
	var lb [2]byte
	binary.LittleEndian.PutUint16(lb[:], l)
	buf = append(buf, lb[:]...)
	buf = append(buf, byte(typ), flags)
	buf = append(buf, payload...)
	crc := xorRange(buf[4:])
	buf = append(buf, crc)
	return buf
}

// ParseFrame validates the preamble, length, and CRC of a wire frame and
// returns the type, flags, and payload. n is the number of bytes of buf
// consumed (the frame length), so callers streaming from a socket can
// advance past exactly one frame.
func ParseFrame(buf []byte) (typ FrameType, flags byte, payload []byte, n int, err error) {
	const minFrame = 4 + 2 + 1 + 1 + 1 // preamble + len + type + flags + crc
	if len(buf) < minFrame {
		return 0, 0, nil, 0, ErrFrameTooShort
	}
	if buf[0] != preamble[0] || buf[1] != preamble[1] || buf[2] != preamble[2] || buf[3] != preamble[3] {
		return 0, 0, nil, 0, ErrBadPreamble
	}
	l := binary.LittleEndian.Uint16(buf[4:6])
	total := 8 + int(l) // preamble(4) + len-field(2) + type(1) + flags(1) + payload(l-1) + crc(1)
	if len(buf) < total {
		return 0, 0, nil, 0, ErrShortFrame
	}
	typ = FrameType(buf[6])
	flags = buf[7]
	payload = buf[8 : total-1]

	gotCRC := buf[total-1]
	wantCRC := xorRange(buf[4 : total-1])
	if gotCRC != wantCRC {
		return 0, 0, nil, 0, ErrCRCMismatch
	}
	return typ, flags, payload, total, nil
}

// xorRange is the single-byte XOR CRC of §4.4: XOR of every byte from the
// len field (inclusive) through the last payload byte.
func xorRange(b []byte) byte {
	var crc byte
	for _, v := range b {
		crc ^= v
	}
	return crc
}
