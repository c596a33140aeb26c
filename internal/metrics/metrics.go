// Package metrics provides a small, backend-agnostic abstraction for
// recording operational metrics from the aggregation wranglers.
//
// The package exposes a narrow Backend interface (counters plus duration
// observations) behind a global, pluggable backend that defaults to a no-op
// implementation, so instrumentation is always safe to call even when no
// metrics system is configured. Concrete systems (Prometheus Pushgateway,
// Datadog) live in subpackages and are selected at process start; the
// wranglers depend only on this package.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveDuration records a duration-style observation in seconds.
	ObserveDuration(name string, seconds float64, labels Labels)
	// Flush pushes buffered metrics if the backend needs it.
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)        {}
func (nopBackend) ObserveDuration(name string, seconds float64, labels Labels) {}
func (nopBackend) Flush() error                                                { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing one.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep measures one wrangler step: a latency observation plus a
// success/failure count. Steps mirror the run phases: validate, read,
// invoke, persist, notify.
func RecordStep(module, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{
		"module": module,
		"step":   step,
		"status": status,
	}
	backend.IncCounter("agg_step_total", 1, lbls)
	backend.ObserveDuration("agg_step_duration_seconds", d.Seconds(), lbls)
}

// RecordRows increments a row-level counter for the module and kind.
//
// Typical kinds:
//   - "received"   rows decoded from the input payload
//   - "pruned"     all-zero rows dropped by the brick consolidation
//   - "aggregated" rows in a produced output table
func RecordRows(module, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("agg_rows_total", float64(delta), Labels{
		"module": module,
		"kind":   kind,
	})
}

// RecordRun counts one completed wrangler invocation by outcome.
func RecordRun(module string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	backend.IncCounter("agg_runs_total", 1, Labels{
		"module": module,
		"status": status,
	})
}
