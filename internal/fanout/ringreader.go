package fanout

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/seismicdata/drf-fanout/internal/metrics"
	"github.com/seismicdata/drf-fanout/internal/ring"
)

// pollIdleSleep is how long RingReader waits after an empty poll before
// trying again (Ew2Ws.c's ReceiveLoop: "GET_NONE -> sleep_ew(100)").
const pollIdleSleep = 100 * time.Millisecond

// RingReader is the single task that owns the ring buffer connection: it
// drains stale messages on startup, then polls the ring in a loop and
// fans each message out to every in-use subscriber's queue (§4.5).
type RingReader struct {
	Ring   ring.Ring
	Pool   *SlotPool
	Log    *slog.Logger
	Metric *metrics.Metrics

	// MyPID is not read by Run: Run exits on any FlagTerminate from Poll,
	// and the ring contract carries no process id to compare it against.
	MyPID int
}

// Run drains stale messages then polls and fans out until ctx is
// cancelled or the ring reports FlagTerminate.
func (r *RingReader) Run(ctx context.Context) error {
	if n, err := r.Ring.Drain(); err != nil {
		return err
	} else if n > 0 && r.Log != nil {
		r.Log.Info("drained stale ring messages", "count", n)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		flag, err := r.Ring.Poll()
		if err != nil {
			return err
		}

		switch flag {
		case ring.FlagTerminate:
			if r.Log != nil {
				r.Log.Info("ring reported terminate", "pid", os.Getpid())
			}
			return nil
		case ring.FlagNone:
			time.Sleep(pollIdleSleep)
			continue
		}

		start := time.Now()
		msg, err := r.Ring.CopyFrom()
		if r.Metric != nil {
			r.Metric.RecordRingPoll(time.Since(start).Seconds())
		}
		if err != nil {
			if err == ring.ErrEmpty {
				continue
			}
			return err
		}

		r.fanOut(msg)
	}
}

// fanOut hands msg to every in-use subscriber's queue, dropping and
// logging on a full queue rather than blocking the reader for one slow
// client (§4.5 item 4, §5's "never block the ring reader on a subscriber").
func (r *RingReader) fanOut(msg []byte) {
	r.Pool.ForEach(func(s *Subscriber) {
		if !s.Enqueue(msg) {
			if r.Metric != nil {
				r.Metric.RecordDrop(s.RemoteIP)
			}
			if r.Log != nil {
				r.Log.Warn("subscriber queue full, dropping message", "slot", s.SlotIndex, "conn", s.ConnID, "remote", s.RemoteIP)
			}
			if r.Metric != nil {
				r.Metric.RecordOverflow()
			}
		}
	})
}
