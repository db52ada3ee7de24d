package fanout

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/seismicdata/drf-fanout/internal/codec"
	"github.com/seismicdata/drf-fanout/internal/config"
	"github.com/seismicdata/drf-fanout/internal/metrics"
	"github.com/seismicdata/drf-fanout/internal/sample"
)

// drainReadDeadline bounds the non-blocking read of inbound client bytes
// between outgoing messages (§4.6 item 3: clients never send anything
// meaningful, so whatever they send is read and discarded).
const drainReadDeadline = 10 * time.Millisecond

// writeRetryDelay is how long TransmitTask waits before retrying a send
// that timed out, mirroring the original's EAGAIN/sleep_ew(100) retry.
const writeRetryDelay = 100 * time.Millisecond

// TransmitTask drains one subscriber's queue and writes framed messages to
// its socket (§4.6): an info line built from the first dequeued message's
// header, then every subsequent ring message demuxed/packed (data) or
// copied verbatim (log) and framed.
type TransmitTask struct {
	Sub      *Subscriber
	NumChans int
	Channels []config.ChannelSpec

	// Registry, when set, is updated with per-channel liveness counters
	// as each data message is demuxed (§9's channel-name→topic registry).
	Registry *ChannelRegistry

	Log    *slog.Logger
	Metric *metrics.Metrics
}

// Run loops sending queued messages until ctx is cancelled, the subscriber
// is told to exit, or a send fails. The very first message dequeued is
// consumed to build and send the info line (§4.6 item 1); it carries the
// sample rate, channel count, and board type this connection will see, so
// every message after it is dispatched by MuxHdr.msg_type as usual.
func (t *TransmitTask) Run(ctx context.Context) error {
	first := true
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.Sub.Done():
			return nil
		case msg, ok := <-t.Sub.Queue:
			if !ok {
				return nil
			}
			if first {
				first = false
				if err := t.sendInfoLine(msg); err != nil {
					return err
				}
				t.drainInbound()
				continue
			}
			if err := t.handle(msg); err != nil {
				return err
			}
		}
		t.drainInbound()
	}
}

func (t *TransmitTask) sendInfoLine(firstMsg []byte) error {
	hdr, _, err := ParseRingMessage(firstMsg)
	if err != nil {
		if t.Log != nil {
			t.Log.Warn("dropping malformed ring message", "error", err)
		}
		hdr = MuxHdr{}
	}
	// The info line is the only message on the wire that is not a binary
	// framed packet: a NUL-terminated text string of size strlen+1 (§4.6
	// item 1, §8 scenario 3), sent raw rather than through codec.Frame.
	line := BuildInfoLine(int(hdr.SampleRate), t.Channels, int(hdr.BoardType))
	buf := append([]byte(line), 0)
	return t.writeWithRetry(buf)
}

func (t *TransmitTask) handle(msg []byte) error {
	hdr, payload, err := ParseRingMessage(msg)
	if err != nil {
		if t.Log != nil {
			t.Log.Warn("dropping malformed ring message", "error", err)
		}
		return nil
	}

	switch hdr.MsgType {
	case MsgTypeLog:
		frame := codec.Frame(codec.FrameTypeLog, 0, payload)
		return t.writeWithRetry(frame)
	case MsgTypeData:
		return t.handleData(hdr, payload)
	default:
		return nil
	}
}

// handleData demuxes and re-packs a 'D' message. Width and wire flags are
// derived from the message's own MuxHdr.board_type (§4.4's table), not a
// fixed per-connection setting, since the ring can carry more than one
// board type over its lifetime.
func (t *TransmitTask) handleData(hdr MuxHdr, payload []byte) error {
	_, raw, err := SplitDataPayload(payload)
	if err != nil {
		if t.Log != nil {
			t.Log.Warn("dropping short data payload", "error", err)
		}
		return nil
	}

	width := sample.WidthFromBoardType(sample.BoardType(hdr.BoardType))
	numChans := int(hdr.NumChannels)
	if numChans == 0 {
		numChans = t.NumChans
	}

	channels, err := Demux(raw, numChans, width)
	if err != nil {
		if t.Log != nil {
			t.Log.Warn("dropping undecodable data payload", "error", err)
		}
		return nil
	}

	if t.Registry != nil {
		now := time.Now()
		for i, ch := range channels {
			if i >= len(t.Channels) {
				break
			}
			t.Registry.Observe(t.Channels[i].Station+":"+t.Channels[i].Component, len(ch), now)
		}
	}

	var packed []byte
	if width == sample.Width24 {
		packed = codec.Pack24(channels)
	} else {
		packed = codec.Pack16(channels)
	}

	flags := sample.WireFlags(sample.BoardType(hdr.BoardType))
	frame := codec.Frame(codec.FrameTypeData, flags, packed)
	return t.writeWithRetry(frame)
}

func (t *TransmitTask) writeWithRetry(frame []byte) error {
	for {
		_, err := t.Sub.Conn.Write(frame)
		if err == nil {
			t.Sub.PacketsSent++
			t.Sub.touch()
			if t.Metric != nil {
				t.Metric.RecordBytesSent(t.Sub.RemoteIP, len(frame))
			}
			return nil
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			time.Sleep(writeRetryDelay)
			continue
		}
		return err
	}
}

// drainInbound discards any bytes the client has sent without blocking
// the send loop (§4.6 item 3). Any read error, including EOF from a closed
// peer, just ends the drain; a dead connection surfaces on the next write.
func (t *TransmitTask) drainInbound() {
	conn := t.Sub.Conn
	_ = conn.SetReadDeadline(time.Now().Add(drainReadDeadline))
	buf := make([]byte, 256)
	for {
		n, err := conn.Read(buf)
		if n == 0 || err != nil {
			break
		}
	}
	_ = conn.SetReadDeadline(time.Time{})
}
