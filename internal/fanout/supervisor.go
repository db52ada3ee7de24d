package fanout

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/seismicdata/drf-fanout/internal/metrics"
	"github.com/seismicdata/drf-fanout/internal/ring"
)

// heartbeatInterval is the default once-a-second status tick (§4.8
// "heartbeat"), overridable via Supervisor.HeartbeatInterval.
const heartbeatInterval = time.Second

// shutdownGrace bounds how long Shutdown waits for the Exit signals to
// every subscriber to be delivered before it goes on to detach the ring.
const shutdownGrace = 5 * time.Second

// Supervisor runs the RingReader, runs a heartbeat scheduler, and
// coordinates shutdown (§4.8). It holds no Listener; the caller stops the
// listener separately.
type Supervisor struct {
	Ring       ring.Ring
	Reader     *RingReader
	Pool       *SlotPool
	Registry   *ChannelRegistry
	Log        *slog.Logger
	Metric     *metrics.Metrics

	HeartbeatInterval time.Duration

	scheduler gocron.Scheduler
}

// Start schedules the heartbeat job. Call Run afterward to begin the
// RingReader loop; cancel the supervisor's context and call Shutdown to
// stop cleanly.
func (s *Supervisor) Start() error {
	interval := s.HeartbeatInterval
	if interval <= 0 {
		interval = heartbeatInterval
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	s.scheduler = sched

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.heartbeat),
	)
	if err != nil {
		return err
	}

	sched.Start()
	return nil
}

// heartbeat renders a one-line status log and counts the heartbeat
// metric. It does not poll the ring; FlagTerminate is observed only by
// RingReader's own poll loop.
func (s *Supervisor) heartbeat() {
	if s.Log != nil {
		s.Log.Info("heartbeat", "subscribers", s.Pool.Count(), "channels", s.channelCount())
	}
	if s.Metric != nil {
		s.Metric.RecordHeartbeat()
	}
}

// channelCount reports how many distinct channels the registry has seen
// data for since startup, for the heartbeat line.
func (s *Supervisor) channelCount() int {
	if s.Registry == nil {
		return 0
	}
	return len(s.Registry.Snapshot())
}

// Run blocks running the RingReader until ctx is cancelled or the ring
// signals termination.
func (s *Supervisor) Run(ctx context.Context) error {
	return s.Reader.Run(ctx)
}

// Shutdown cancels the context, stops the heartbeat scheduler, signals
// Exit on every subscriber, and detaches the ring. It waits (up to
// shutdownGrace) only for those Exit signals to be sent; it does not wait
// for the transmit tasks or the RingReader to return.
func (s *Supervisor) Shutdown(cancel context.CancelFunc) {
	cancel()

	if s.scheduler != nil {
		_ = s.scheduler.Shutdown()
	}

	var wg sync.WaitGroup
	s.Pool.ForEach(func(sub *Subscriber) {
		wg.Add(1)
		go func(sub *Subscriber) {
			defer wg.Done()
			sub.Exit()
		}(sub)
	})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(shutdownGrace):
		if s.Log != nil {
			s.Log.Warn("shutdown grace period elapsed, forcing exit")
		}
	}

	if err := s.Ring.Detach(); err != nil && s.Log != nil {
		s.Log.Warn("failed to detach ring", "error", err)
	}
}
