package fanout

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/seismicdata/drf-fanout/internal/config"
	"github.com/seismicdata/drf-fanout/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// acceptTimeout bounds each Accept call so Run can periodically notice
// ctx cancellation rather than blocking forever in accept() (§4.7's
// "select with a 2-second timeout" around the listening socket).
const acceptTimeout = 2 * time.Second

// Listener accepts subscriber connections and spawns a TransmitTask for
// each, rejecting new connections once the slot table is full (§4.7).
type Listener struct {
	Pool     *SlotPool
	NumChans int
	Channels []config.ChannelSpec
	Registry *ChannelRegistry

	Log    *slog.Logger
	Metric *metrics.Metrics

	group *errgroup.Group
}

// Run accepts connections on ln until ctx is cancelled.
func (l *Listener) Run(ctx context.Context, ln *net.TCPListener) error {
	l.group, _ = errgroup.WithContext(context.Background())

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		_ = ln.SetDeadline(time.Now().Add(acceptTimeout))
		conn, err := ln.Accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				select {
				case <-ctx.Done():
					return l.group.Wait()
				default:
					continue
				}
			}
			select {
			case <-ctx.Done():
				return l.group.Wait()
			default:
				return err
			}
		}
		l.accept(ctx, conn)
	}
}

func (l *Listener) accept(ctx context.Context, conn net.Conn) {
	sub, ok := l.Pool.Allocate()
	if !ok {
		if l.Log != nil {
			l.Log.Warn("subscriber table full, rejecting connection", "remote", conn.RemoteAddr())
		}
		if l.Metric != nil {
			l.Metric.RecordOverflow()
		}
		_ = conn.Close()
		return
	}

	sub.Conn = conn
	host, portStr, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err == nil {
		sub.RemoteIP = host
		if p, err := strconv.Atoi(portStr); err == nil {
			sub.RemotePort = p
		}
	}

	if l.Metric != nil {
		l.Metric.SubscriberConnected()
	}
	if l.Log != nil {
		l.Log.Info("subscriber connected", "slot", sub.SlotIndex, "conn", sub.ConnID, "remote", sub.RemoteIP)
	}

	task := &TransmitTask{
		Sub:      sub,
		NumChans: l.NumChans,
		Channels: l.Channels,
		Registry: l.Registry,
		Log:      l.Log,
		Metric:   l.Metric,
	}

	l.group.Go(func() error {
		defer func() {
			_ = sub.Conn.Close()
			l.Pool.Release(sub)
			if l.Metric != nil {
				l.Metric.SubscriberDisconnected()
			}
			if l.Log != nil {
				l.Log.Info("subscriber disconnected", "slot", sub.SlotIndex, "conn", sub.ConnID, "remote", sub.RemoteIP)
			}
		}()
		if err := task.Run(ctx); err != nil && l.Log != nil {
			l.Log.Warn("transmit task ended", "slot", sub.SlotIndex, "error", err)
		}
		return nil
	})
}
