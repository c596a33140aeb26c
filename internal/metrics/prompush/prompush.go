// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// It adapts the generic metrics.Backend interface to Prometheus by mapping
// the wrangler labels (module, step, status, kind) onto client_golang
// collectors and pushing the registry to a Pushgateway at flush time, which
// suits the run-and-exit lifecycle of a wrangler invocation better than a
// scrape endpoint would.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"surveyagg/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	stepCounter  *prometheus.CounterVec // agg_step_total
	stepDuration *prometheus.SummaryVec // agg_step_duration_seconds
	rowCounter   *prometheus.CounterVec // agg_rows_total
	runCounter   *prometheus.CounterVec // agg_runs_total
}

// NewBackend constructs a Pushgateway backend. jobName becomes the
// Pushgateway "job" grouping; gatewayURL is the base URL of the gateway.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "aggregation"
	}

	reg := prometheus.NewRegistry()

	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agg_step_total",
			Help: "Total wrangler step executions, partitioned by module, step, and status.",
		},
		[]string{"module", "step", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "agg_step_duration_seconds",
			Help:       "Duration of wrangler steps in seconds.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"module", "step", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agg_rows_total",
			Help: "Row-level counts per module and kind (received, pruned, aggregated).",
		},
		[]string{"module", "kind"},
	)
	runCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agg_runs_total",
			Help: "Completed wrangler invocations by module and status.",
		},
		[]string{"module", "status"},
	)

	for _, c := range []prometheus.Collector{stepCounter, stepDuration, rowCounter, runCounter} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}

	return &Backend{
		gatewayURL:   gatewayURL,
		jobName:      jobName,
		reg:          reg,
		stepCounter:  stepCounter,
		stepDuration: stepDuration,
		rowCounter:   rowCounter,
		runCounter:   runCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "agg_step_total":
		b.stepCounter.WithLabelValues(labels["module"], labels["step"], labels["status"]).Add(delta)
	case "agg_rows_total":
		b.rowCounter.WithLabelValues(labels["module"], labels["kind"]).Add(delta)
	case "agg_runs_total":
		b.runCounter.WithLabelValues(labels["module"], labels["status"]).Add(delta)
	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveDuration(name string, seconds float64, labels metrics.Labels) {
	if name != "agg_step_duration_seconds" {
		return
	}
	b.stepDuration.WithLabelValues(labels["module"], labels["step"], labels["status"]).Observe(seconds)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
