// Package metrics provides Prometheus metrics for run activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder records model and operation metrics for runs.
type Recorder struct {
	modelRequests   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	operationsTotal *prometheus.CounterVec
	runsTotal       *prometheus.CounterVec
	turnsPerRun     prometheus.Histogram
}

// NewRecorder registers the gantry metrics on the default registry.
func NewRecorder() *Recorder {
	return &Recorder{
		modelRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gantry_model_requests_total",
				Help: "Model completion requests by role and status",
			},
			[]string{"role", "status"},
		),
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gantry_model_request_duration_seconds",
				Help:    "Duration of model completion requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"role"},
		),
		operationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gantry_operations_total",
				Help: "Workspace operations dispatched by kind and status",
			},
			[]string{"op", "status"},
		),
		runsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gantry_runs_total",
				Help: "Completed runs by final status",
			},
			[]string{"status"},
		),
		turnsPerRun: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gantry_turns_per_run",
				Help:    "Coder conversation turns consumed per run",
				Buckets: []float64{1, 2, 3, 5, 8, 12, 16, 20},
			},
		),
	}
}

// ObserveModelRequest records one model call.
func (r *Recorder) ObserveModelRequest(role string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.modelRequests.WithLabelValues(role, status).Inc()
	r.requestDuration.WithLabelValues(role).Observe(duration.Seconds())
}

// ObserveOperation records one dispatched workspace operation.
func (r *Recorder) ObserveOperation(op string, ok bool) {
	status := "ok"
	if !ok {
		status = "failed"
	}
	r.operationsTotal.WithLabelValues(op, status).Inc()
}

// ObserveRun records a finished run.
func (r *Recorder) ObserveRun(status string, turns int) {
	r.runsTotal.WithLabelValues(status).Inc()
	r.turnsPerRun.Observe(float64(turns))
}
