// Package metrics provides the Prometheus and OpenTelemetry implementations of the session metric hooks.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"
	metrics "github.com/hjyangBig2/lighter/pkg/session/core/metrics"
	"github.com/hjyangBig2/lighter/pkg/session/support/util/logger"
)

// PrometheusRecorder is a Prometheus implementation of the metrics.MetricRecorder interface.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	// Session metrics
	sessionsCreated *prometheus.CounterVec
	sessionsKilled  *prometheus.CounterVec
	sessionsDeleted *prometheus.CounterVec
	reconciliations *prometheus.CounterVec
	orphansKilled   prometheus.Counter

	// Statement metrics
	executions        *prometheus.CounterVec
	executionAttempts *prometheus.HistogramVec
	executionSeconds  *prometheus.HistogramVec

	operationSeconds *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder with its own registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	// Register Go standard metrics and process/OS metrics.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		sessionsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lighter_sessions_created_total",
			Help: "Total number of created session records by type.",
		}, []string{"type"}),
		sessionsKilled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lighter_sessions_killed_total",
			Help: "Total number of kills issued to the backend by type.",
		}, []string{"type"}),
		sessionsDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lighter_sessions_deleted_total",
			Help: "Total number of deleted session records by type.",
		}, []string{"type"}),
		reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lighter_live_reconciliations_total",
			Help: "Total number of live state lookups by outcome.",
		}, []string{"outcome"}),
		orphansKilled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lighter_orphan_sessions_killed_total",
			Help: "Total number of live sessions without a record killed by the sweeper.",
		}),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lighter_statement_executions_total",
			Help: "Total number of synchronous statement executions by outcome.",
		}, []string{"outcome"}),
		executionAttempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lighter_statement_execution_checks",
			Help:    "Number of status checks per synchronous statement execution.",
			Buckets: prometheus.LinearBuckets(1, 2, 8),
		}, []string{"outcome"}),
		executionSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lighter_statement_execution_duration_seconds",
			Help:    "Duration of synchronous statement executions, including the wait for the execution lock.",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		operationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lighter_operation_duration_seconds",
			Help:    "Duration of named background operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"name", "status"}),
	}

	registry.MustRegister(
		r.sessionsCreated,
		r.sessionsKilled,
		r.sessionsDeleted,
		r.reconciliations,
		r.orphansKilled,
		r.executions,
		r.executionAttempts,
		r.executionSeconds,
		r.operationSeconds,
	)
	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

func (r *PrometheusRecorder) RecordSessionCreated(ctx context.Context, typ model.ApplicationType) {
	r.sessionsCreated.WithLabelValues(typ.String()).Inc()
}

func (r *PrometheusRecorder) RecordSessionKilled(ctx context.Context, typ model.ApplicationType) {
	r.sessionsKilled.WithLabelValues(typ.String()).Inc()
}

func (r *PrometheusRecorder) RecordSessionDeleted(ctx context.Context, typ model.ApplicationType) {
	r.sessionsDeleted.WithLabelValues(typ.String()).Inc()
}

func (r *PrometheusRecorder) RecordLiveReconciliation(ctx context.Context, outcome string) {
	r.reconciliations.WithLabelValues(outcome).Inc()
}

// RecordStatementExecution records the outcome, the number of checks and the duration of one execution.
func (r *PrometheusRecorder) RecordStatementExecution(ctx context.Context, outcome string, attempts int, duration time.Duration) {
	r.executions.WithLabelValues(outcome).Inc()
	r.executionAttempts.WithLabelValues(outcome).Observe(float64(attempts))
	r.executionSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
	logger.Debugf("Metrics: statement execution %s after %d checks in %.3fs", outcome, attempts, duration.Seconds())
}

func (r *PrometheusRecorder) RecordOrphansKilled(ctx context.Context, count int) {
	r.orphansKilled.Add(float64(count))
}

// RecordDuration records the duration of a named operation. Only the "status" tag becomes a label.
func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.operationSeconds.WithLabelValues(name, tags["status"]).Observe(duration.Seconds())
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
