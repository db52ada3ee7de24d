// Package fanout implements Program B: a single ring-buffer reader fans
// out messages to one bounded queue per subscriber, each drained by its
// own transmit task (§4.5-§4.8), grounded on Ew2Ws.c/Ew2WsUtils.c.
package fanout

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// muxHdrLen is MuxHdr{boardType:1, numChannels:1, msgType:1, unused:1,
// sampleRate:2} packed, matching Ew2Ws.h's #pragma pack(1) layout.
const muxHdrLen = 6

// MsgType is MuxHdr.msgType (§3 "Ring message").
type MsgType byte

const (
	MsgTypeData MsgType = 'D'
	MsgTypeLog  MsgType = 'L'
)

// MuxHdr is the ring message's fixed leading header (§3).
type MuxHdr struct {
	BoardType   byte
	NumChannels byte
	MsgType     MsgType
	SampleRate  uint16
}

var ErrShortRingMessage = errors.New("fanout: ring message shorter than MuxHdr")

// ParseRingMessage splits a raw ring message into its MuxHdr and payload.
func ParseRingMessage(buf []byte) (MuxHdr, []byte, error) {
	if len(buf) < muxHdrLen {
		return MuxHdr{}, nil, fmt.Errorf("%w: got %d bytes", ErrShortRingMessage, len(buf))
	}
	hdr := MuxHdr{
		BoardType:   buf[0],
		NumChannels: buf[1],
		MsgType:     MsgType(buf[2]),
		// buf[3] is MuxHdr.unused/padding.
		SampleRate: binary.LittleEndian.Uint16(buf[4:6]),
	}
	return hdr, buf[muxHdrLen:], nil
}

// dataHeaderLen is DataHeader{packetTime: 8×WORD, packetID: ULONG,
// timeRefStatus: BYTE, flags: BYTE} packed = 16 + 4 + 1 + 1.
const dataHeaderLen = 22

// TimeRefStatus is DataHeader.timeRefStatus.
type TimeRefStatus byte

const (
	TimeRefNotLocked TimeRefStatus = 0
	TimeRefWasLocked TimeRefStatus = 1
	TimeRefLocked    TimeRefStatus = 2
)

// DataHeader is the leading struct of a 'D' message's payload, preceding
// the interleaved samples (§3).
type DataHeader struct {
	PacketID      uint32
	TimeRefStatus TimeRefStatus
	Flags         byte
}

var ErrShortDataHeader = errors.New("fanout: data payload shorter than DataHeader")

// SplitDataPayload separates a 'D' message's payload (as returned by
// ParseRingMessage) into its DataHeader and the interleaved sample bytes
// that follow it.
func SplitDataPayload(payload []byte) (DataHeader, []byte, error) {
	if len(payload) < dataHeaderLen {
		return DataHeader{}, nil, fmt.Errorf("%w: got %d bytes", ErrShortDataHeader, len(payload))
	}
	// packetTime (SYSTEMTIME, 8 WORDs) occupies payload[0:16]; this
	// module has no use for the wall-clock breakdown it carries.
	hdr := DataHeader{
		PacketID:      binary.LittleEndian.Uint32(payload[16:20]),
		TimeRefStatus: TimeRefStatus(payload[20]),
		Flags:         payload[21],
	}
	return hdr, payload[dataHeaderLen:], nil
}
