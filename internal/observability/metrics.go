// Package observability holds the Prometheus collectors of the ledger tools.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for ledger commands and changes.
type Metrics struct {
	registry *prometheus.Registry
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	changes  *prometheus.CounterVec
}

// NewMetrics builds a private registry with the ledger collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_ledger_commands_total",
		Help: "Ledger command executions partitioned by command and status.",
	}, []string{"command", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_ledger_command_duration_seconds",
		Help:    "Duration in seconds of ledger command executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"command"})
	changes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_ledger_changes_total",
		Help: "Committed journal changes by kind.",
	}, []string{"kind"})
	registry.MustRegister(runs, duration, changes)
	return &Metrics{registry: registry, runs: runs, duration: duration, changes: changes}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveChange counts one committed journal change.
func (m *Metrics) ObserveChange(kind string) {
	if m == nil {
		return
	}
	m.changes.WithLabelValues(kind).Inc()
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

// Tracker instruments a single command run.
type Tracker struct {
	metrics *Metrics
	command string
	start   time.Time
}

// Track starts a tracker for the given command.
func (m *Metrics) Track(command string) *Tracker {
	return &Tracker{metrics: m, command: command, start: time.Now()}
}

// End records duration and status, returning err untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.command == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	t.metrics.runs.WithLabelValues(t.command, status).Inc()
	t.metrics.duration.WithLabelValues(t.command).Observe(time.Since(t.start).Seconds())
	return err
}
