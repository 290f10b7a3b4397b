// Package obs wires up the sink's structured logging and Prometheus
// metrics.
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// NewLogger returns a logrus logger configured with a text formatter and
// the given level, tagged with component="sink" on every entry.
func NewLogger(level logrus.Level) *logrus.Entry {
	l := logrus.New()
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l.WithField("component", "sink")
}

// Metrics holds the counters/gauges the sink updates as it drains a
// trace.
type Metrics struct {
	EventsWritten   prometheus.Counter
	PacketsWritten  prometheus.Counter
	StreamsOpen     prometheus.Gauge
	DiscardedEvents prometheus.Counter
}

// NewMetrics registers and returns a fresh Metrics set on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ctf_fs_sink",
			Name:      "events_written_total",
			Help:      "Number of events serialized to a stream file.",
		}),
		PacketsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ctf_fs_sink",
			Name:      "packets_written_total",
			Help:      "Number of packets flushed to a stream file.",
		}),
		StreamsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ctf_fs_sink",
			Name:      "streams_open",
			Help:      "Number of stream instances currently open.",
		}),
		DiscardedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ctf_fs_sink",
			Name:      "discarded_events_total",
			Help:      "Number of events folded into a discarded-events range.",
		}),
	}
	reg.MustRegister(m.EventsWritten, m.PacketsWritten, m.StreamsOpen, m.DiscardedEvents)
	return m
}
