// Package metrics exposes Program B's operational counters: subscriber
// count, bytes sent, drops, ring-poll latency, table overflows, and
// heartbeats.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	ActiveSubscribers   prometheus.Gauge
	BytesTransmitted    *prometheus.CounterVec
	MessagesDropped     *prometheus.CounterVec
	RingPollDuration    prometheus.Histogram
	OverflowEventsTotal prometheus.Counter
	HeartbeatsTotal     prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		ActiveSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fanout_active_subscribers",
			Help: "Number of currently connected subscribers",
		}),
		BytesTransmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fanout_bytes_transmitted_total",
			Help: "Total bytes written to subscriber sockets",
		}, []string{"subscriber"}),
		MessagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fanout_messages_dropped_total",
			Help: "Total messages dropped due to a full subscriber queue",
		}, []string{"subscriber"}),
		RingPollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fanout_ring_poll_duration_seconds",
			Help:    "Duration of each ring-buffer poll/copy cycle",
			Buckets: prometheus.DefBuckets,
		}),
		OverflowEventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fanout_subscriber_table_overflow_total",
			Help: "Total connection attempts rejected because the subscriber table was full",
		}),
		HeartbeatsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fanout_heartbeats_total",
			Help: "Total supervisor heartbeats emitted",
		}),
	}
	m.register()
	return m
}

func (m *Metrics) register() {
	prometheus.MustRegister(m.ActiveSubscribers)
	prometheus.MustRegister(m.BytesTransmitted)
	prometheus.MustRegister(m.MessagesDropped)
	prometheus.MustRegister(m.RingPollDuration)
	prometheus.MustRegister(m.OverflowEventsTotal)
	prometheus.MustRegister(m.HeartbeatsTotal)
}

func (m *Metrics) SubscriberConnected()    { m.ActiveSubscribers.Inc() }
func (m *Metrics) SubscriberDisconnected() { m.ActiveSubscribers.Dec() }

func (m *Metrics) RecordBytesSent(subscriber string, n int) {
	m.BytesTransmitted.WithLabelValues(subscriber).Add(float64(n))
}

func (m *Metrics) RecordDrop(subscriber string) {
	m.MessagesDropped.WithLabelValues(subscriber).Inc()
}

func (m *Metrics) RecordRingPoll(seconds float64) {
	m.RingPollDuration.Observe(seconds)
}

func (m *Metrics) RecordOverflow()  { m.OverflowEventsTotal.Inc() }
func (m *Metrics) RecordHeartbeat() { m.HeartbeatsTotal.Inc() }
