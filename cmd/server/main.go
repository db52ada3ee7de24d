// Program server implements Program B: it reads multiplexed waveform
// messages from a ring buffer and fans them out, repacked, to TCP
// subscribers until shut down (§2, §4.5-§4.8).
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/seismicdata/drf-fanout/internal/config"
	"github.com/seismicdata/drf-fanout/internal/fanout"
	"github.com/seismicdata/drf-fanout/internal/logging"
	"github.com/seismicdata/drf-fanout/internal/metrics"
	"github.com/seismicdata/drf-fanout/internal/ring"
	"github.com/spf13/cobra"
	"github.com/ztrue/shutdown"
	"golang.org/x/sync/errgroup"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "server <config-file>",
		Short:             "Fan out ring-buffer waveform messages to TCP subscribers",
		Version:           fmt.Sprintf("%s (%s)", version, commit),
		Args:              cobra.ExactArgs(1),
		RunE:              runServer,
		SilenceUsage:      true,
		DisableAutoGenTag: true,
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadServerConfig(args[0])
	if err != nil {
		return fmt.Errorf("server: load config: %w", err)
	}

	overlay, err := config.LoadEnvOverlay()
	if err != nil {
		return fmt.Errorf("server: load env overlay: %w", err)
	}
	if err := overlay.Validate(); err != nil {
		return fmt.Errorf("server: env overlay: %w", err)
	}

	log := logging.New(overlay.LogLevel)
	log.Info("starting fan-out server", "module", cfg.ModuleID, "ring", cfg.InRing, "port", cfg.Port)

	met := metrics.NewMetrics()
	go func() {
		if err := metrics.CreateMetricsServer(overlay.Metrics); err != nil {
			log.Warn("metrics server exited", "error", err)
		}
	}()

	// The shared-memory ring buffer itself is an external collaborator
	// (spec §1 non-goal); a real deployment plugs a ring.Ring that
	// attaches to cfg.InRing here. The in-memory Fake stands in as the
	// seam until such an adapter exists.
	r := ring.NewFake(0)

	pool := fanout.NewSlotPool()
	registry := fanout.NewChannelRegistry()

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
	if err != nil {
		return fmt.Errorf("server: listen on %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		return fmt.Errorf("server: expected *net.TCPListener, got %T", ln)
	}

	listener := &fanout.Listener{
		Pool:     pool,
		NumChans: len(cfg.Channels),
		Channels: cfg.Channels,
		Registry: registry,
		Log:      log,
		Metric:   met,
	}

	reader := &fanout.RingReader{
		Ring:   r,
		Pool:   pool,
		Log:    log,
		Metric: met,
	}

	supervisor := &fanout.Supervisor{
		Ring:              r,
		Reader:            reader,
		Pool:              pool,
		Registry:          registry,
		Log:               log,
		Metric:            met,
		HeartbeatInterval: time.Duration(cfg.HeartbeatInt) * time.Second,
	}

	if err := supervisor.Start(); err != nil {
		return fmt.Errorf("server: start heartbeat scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return supervisor.Run(gctx)
	})
	g.Go(func() error {
		return listener.Run(gctx, tcpLn)
	})

	var stopOnce sync.Once
	stop := func(sig os.Signal) {
		stopOnce.Do(func() {
			log.Warn("shutting down", "signal", sig)
			_ = tcpLn.Close()
			supervisor.Shutdown(cancel)
			if err := g.Wait(); err != nil {
				log.Error("server exited with error", "error", err)
				os.Exit(1)
			}
			os.Exit(0)
		})
	}
	defer stop(syscall.SIGINT)

	// If the listener or supervisor dies on its own (not via a signal),
	// drive the same shutdown path rather than leaving the process half-torn-down.
	go func() {
		<-gctx.Done()
		stop(syscall.SIGTERM)
	}()

	shutdown.AddWithParam(stop)
	shutdown.Listen(syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	return nil
}
