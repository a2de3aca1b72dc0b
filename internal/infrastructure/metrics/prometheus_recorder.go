package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	model "github.com/tigerroll/swell/internal/core/domain/model"
	metrics "github.com/tigerroll/swell/internal/core/metrics"
	logger "github.com/tigerroll/swell/internal/support/logger"
)

// PrometheusRecorder is a Prometheus implementation of the metrics.MetricRecorder interface.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	executionDurationSeconds *prometheus.HistogramVec
	executionStatusCounter   *prometheus.CounterVec
	recordsProcessedCounter  *prometheus.CounterVec
	generationSeconds        *prometheus.HistogramVec
	operationSeconds         *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	// Register Go standard metrics and process/OS metrics.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		executionDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "swell_execution_duration_seconds",
			Help:    "Duration of batch executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"batch_id", "phase"}),
		executionStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swell_execution_status_total",
			Help: "Total number of batch executions by terminal phase.",
		}, []string{"batch_id", "phase"}),
		recordsProcessedCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swell_records_processed_total",
			Help: "Total records processed by batch and outcome.",
		}, []string{"batch_id", "outcome"}),
		generationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "swell_generation_duration_seconds",
			Help:    "Latency of generation backend calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		operationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "swell_operation_duration_seconds",
			Help:    "Duration of named internal operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"name"}),
	}

	registry.MustRegister(r.executionDurationSeconds)
	registry.MustRegister(r.executionStatusCounter)
	registry.MustRegister(r.recordsProcessedCounter)
	registry.MustRegister(r.generationSeconds)
	registry.MustRegister(r.operationSeconds)

	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// RecordExecutionStart records the start of an Execution.
func (r *PrometheusRecorder) RecordExecutionStart(ctx context.Context, execution *model.Execution) {
	r.executionStatusCounter.WithLabelValues(execution.BatchID, execution.Phase.String()).Inc()
	logger.Debugf("Metrics: Execution '%s' started.", execution.ID)
}

// RecordExecutionEnd records the end of an Execution.
func (r *PrometheusRecorder) RecordExecutionEnd(ctx context.Context, execution *model.Execution) {
	duration := execution.UpdatedAt.Sub(execution.StartedAt).Seconds()

	r.executionDurationSeconds.WithLabelValues(execution.BatchID, execution.Phase.String()).Observe(duration)
	r.executionStatusCounter.WithLabelValues(execution.BatchID, execution.Phase.String()).Inc()

	logger.Debugf("Metrics: Execution '%s' ended. Duration: %.3fs", execution.ID, duration)
}

// RecordRecordProcessed records the outcome of a single record's generation call.
func (r *PrometheusRecorder) RecordRecordProcessed(ctx context.Context, batchID string, outcome string) {
	r.recordsProcessedCounter.WithLabelValues(batchID, outcome).Inc()
}

// RecordGenerationDuration records the latency of a single generation call.
func (r *PrometheusRecorder) RecordGenerationDuration(ctx context.Context, provider string, duration time.Duration) {
	r.generationSeconds.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordDuration records the execution time of a named operation.
func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.operationSeconds.WithLabelValues(name).Observe(duration.Seconds())
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
