package promexporter

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pior/heapd/registry"
	"github.com/pior/heapd/server"
)

// StatsSource is the part of *server.Server read by ServerMetrics.
type StatsSource interface {
	Stats() server.Stats
	Registry() *registry.Registry
}

// ServerMetrics exports the server and registry counters. Values are read
// from the source on every scrape.
type ServerMetrics struct {
	source StatsSource

	sessions       *prometheus.Desc
	activeSessions *prometheus.Desc
	commands       *prometheus.Desc
	errors         *prometheus.Desc

	operations  *prometheus.Desc
	failures    *prometheus.Desc
	bytesCopied *prometheus.Desc
	liveAllocs  *prometheus.Desc
	liveBytes   *prometheus.Desc
}

var _ prometheus.Collector = (*ServerMetrics)(nil)

// NewServerMetrics creates and registers the server collector.
func NewServerMetrics(reg prometheus.Registerer, source StatsSource) *ServerMetrics {
	m := &ServerMetrics{
		source: source,

		sessions: prometheus.NewDesc(
			"heapd_sessions_total",
			"Total number of client sessions served",
			nil, nil,
		),
		activeSessions: prometheus.NewDesc(
			"heapd_active_sessions",
			"Sessions in progress (0 or 1)",
			nil, nil,
		),
		commands: prometheus.NewDesc(
			"heapd_commands_total",
			"Total number of requests by command",
			[]string{"command"}, nil,
		),
		errors: prometheus.NewDesc(
			"heapd_errors_total",
			"Total number of ERR replies by reason",
			[]string{"reason"}, nil,
		),
		operations: prometheus.NewDesc(
			"heapd_registry_operations_total",
			"Successful registry operations",
			[]string{"op"}, // create, free, write, read
			nil,
		),
		failures: prometheus.NewDesc(
			"heapd_registry_failures_total",
			"Registry operations rejected with an error",
			nil, nil,
		),
		bytesCopied: prometheus.NewDesc(
			"heapd_registry_bytes_total",
			"Bytes copied in and out of allocations",
			[]string{"direction"}, // in, out
			nil,
		),
		liveAllocs: prometheus.NewDesc(
			"heapd_allocations",
			"Current number of allocations",
			nil, nil,
		),
		liveBytes: prometheus.NewDesc(
			"heapd_allocated_bytes",
			"Current sum of allocation sizes",
			nil, nil,
		),
	}

	reg.MustRegister(m)
	return m
}

// Describe implements prometheus.Collector.
func (m *ServerMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.sessions
	ch <- m.activeSessions
	ch <- m.commands
	ch <- m.errors
	ch <- m.operations
	ch <- m.failures
	ch <- m.bytesCopied
	ch <- m.liveAllocs
	ch <- m.liveBytes
}

// Collect implements prometheus.Collector.
func (m *ServerMetrics) Collect(ch chan<- prometheus.Metric) {
	s := m.source.Stats()

	ch <- prometheus.MustNewConstMetric(m.sessions, prometheus.CounterValue, float64(s.Sessions))
	ch <- prometheus.MustNewConstMetric(m.activeSessions, prometheus.GaugeValue, float64(s.ActiveSessions))
	for cmd, n := range s.Commands {
		ch <- prometheus.MustNewConstMetric(m.commands, prometheus.CounterValue, float64(n), string(cmd))
	}
	for reason, n := range s.Errors {
		ch <- prometheus.MustNewConstMetric(m.errors, prometheus.CounterValue, float64(n), reason)
	}

	r := m.source.Registry().Stats()
	ch <- prometheus.MustNewConstMetric(m.operations, prometheus.CounterValue, float64(r.Creates), "create")
	ch <- prometheus.MustNewConstMetric(m.operations, prometheus.CounterValue, float64(r.Frees), "free")
	ch <- prometheus.MustNewConstMetric(m.operations, prometheus.CounterValue, float64(r.Writes), "write")
	ch <- prometheus.MustNewConstMetric(m.operations, prometheus.CounterValue, float64(r.Reads), "read")
	ch <- prometheus.MustNewConstMetric(m.failures, prometheus.CounterValue, float64(r.Failures))
	ch <- prometheus.MustNewConstMetric(m.bytesCopied, prometheus.CounterValue, float64(r.BytesWritten), "in")
	ch <- prometheus.MustNewConstMetric(m.bytesCopied, prometheus.CounterValue, float64(r.BytesRead), "out")
	ch <- prometheus.MustNewConstMetric(m.liveAllocs, prometheus.GaugeValue, float64(r.LiveAllocs))
	ch <- prometheus.MustNewConstMetric(m.liveBytes, prometheus.GaugeValue, float64(r.LiveBytes))
}
