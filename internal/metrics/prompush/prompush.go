// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// This package adapts the generic metrics.Backend interface to Prometheus by:
//
//   - Using client_golang CounterVec and SummaryVec collectors.
//   - Mapping the common labels (job, step, status, kind, outcome) onto
//     Prometheus labels.
//   - Pushing collected metrics to a Prometheus Pushgateway instance instead
//     of exposing an HTTP scrape endpoint; a cleaning run is a batch job, not
//     a long-lived scrape target.
//
// The package intentionally contains all Prometheus-specific dependencies so
// the rest of the project stays decoupled from Prometheus.
package prompush

import (
	"fmt"

	"tabclean/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	stepCounter  *prometheus.CounterVec // "tabclean_step_total"
	stepDuration *prometheus.SummaryVec // "tabclean_step_duration_seconds"

	rowCounter   *prometheus.CounterVec // "tabclean_rows_total"
	batchCounter prometheus.Counter     // "tabclean_batches_total"
	taskCounter  *prometheus.CounterVec // "tabclean_tasks_total"
}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName: the Pushgateway "job" name (usually the cleaning job's name).
// gatewayURL: base URL of the Pushgateway server.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "tabclean"
	}

	reg := prometheus.NewRegistry()

	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabclean_step_total",
			Help: "Total number of pipeline executions, partitioned by step and status.",
		},
		[]string{"step", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "tabclean_step_duration_seconds",
			Help:       "Duration of pipeline executions in seconds, partitioned by step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabclean_rows_total",
			Help: "Row-level counts per kind (read, kept, dropped).",
		},
		[]string{"kind"},
	)
	batchCounter := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tabclean_batches_total",
			Help: "Total number of row batches appended to output files.",
		},
	)
	taskCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabclean_tasks_total",
			Help: "Terminal task outcomes (completed, failed, cancelled).",
		},
		[]string{"outcome"},
	)

	for _, c := range []prometheus.Collector{
		stepCounter, stepDuration, rowCounter, batchCounter, taskCounter,
	} {
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
		batchCounter: batchCounter,
		taskCounter:  taskCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "tabclean_step_total":
		if b.stepCounter != nil {
			b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)
		}

	case "tabclean_rows_total":
		if b.rowCounter != nil {
			b.rowCounter.WithLabelValues(labels["kind"]).Add(delta)
		}

	case "tabclean_batches_total":
		if b.batchCounter != nil {
			b.batchCounter.Add(delta)
		}

	case "tabclean_tasks_total":
		if b.taskCounter != nil {
			b.taskCounter.WithLabelValues(labels["outcome"]).Add(delta)
		}

	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != "tabclean_step_duration_seconds" || b.stepDuration == nil {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
