package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"
	metrics "github.com/hjyangBig2/lighter/pkg/session/core/metrics"
)

const instrumentationName = "github.com/hjyangBig2/lighter/pkg/session"

// OTelRecorder records session metrics through an OpenTelemetry MeterProvider.
type OTelRecorder struct {
	sessionsCreated   metric.Int64Counter
	sessionsKilled    metric.Int64Counter
	sessionsDeleted   metric.Int64Counter
	reconciliations   metric.Int64Counter
	orphansKilled     metric.Int64Counter
	executions        metric.Int64Counter
	executionAttempts metric.Int64Histogram
	executionSeconds  metric.Float64Histogram
	operationSeconds  metric.Float64Histogram
}

// NewOTelRecorder creates the instruments of an OTelRecorder on the given provider.
func NewOTelRecorder(provider metric.MeterProvider) (*OTelRecorder, error) {
	meter := provider.Meter(instrumentationName)
	r := &OTelRecorder{}

	var err error
	if r.sessionsCreated, err = meter.Int64Counter("lighter.sessions.created",
		metric.WithDescription("Created session records by type.")); err != nil {
		return nil, err
	}
	if r.sessionsKilled, err = meter.Int64Counter("lighter.sessions.killed",
		metric.WithDescription("Kills issued to the backend by type.")); err != nil {
		return nil, err
	}
	if r.sessionsDeleted, err = meter.Int64Counter("lighter.sessions.deleted",
		metric.WithDescription("Deleted session records by type.")); err != nil {
		return nil, err
	}
	if r.reconciliations, err = meter.Int64Counter("lighter.live_reconciliations",
		metric.WithDescription("Live state lookups by outcome.")); err != nil {
		return nil, err
	}
	if r.orphansKilled, err = meter.Int64Counter("lighter.orphan_sessions.killed",
		metric.WithDescription("Live sessions without a record killed by the sweeper.")); err != nil {
		return nil, err
	}
	if r.executions, err = meter.Int64Counter("lighter.statement.executions",
		metric.WithDescription("Synchronous statement executions by outcome.")); err != nil {
		return nil, err
	}
	if r.executionAttempts, err = meter.Int64Histogram("lighter.statement.execution.checks",
		metric.WithDescription("Status checks per synchronous statement execution.")); err != nil {
		return nil, err
	}
	if r.executionSeconds, err = meter.Float64Histogram("lighter.statement.execution.duration",
		metric.WithDescription("Duration of synchronous statement executions."), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if r.operationSeconds, err = meter.Float64Histogram("lighter.operation.duration",
		metric.WithDescription("Duration of named background operations."), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return r, nil
}

func typeAttr(typ model.ApplicationType) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("type", typ.String()))
}

func outcomeAttr(outcome string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("outcome", outcome))
}

func (r *OTelRecorder) RecordSessionCreated(ctx context.Context, typ model.ApplicationType) {
	r.sessionsCreated.Add(ctx, 1, typeAttr(typ))
}

func (r *OTelRecorder) RecordSessionKilled(ctx context.Context, typ model.ApplicationType) {
	r.sessionsKilled.Add(ctx, 1, typeAttr(typ))
}

func (r *OTelRecorder) RecordSessionDeleted(ctx context.Context, typ model.ApplicationType) {
	r.sessionsDeleted.Add(ctx, 1, typeAttr(typ))
}

func (r *OTelRecorder) RecordLiveReconciliation(ctx context.Context, outcome string) {
	r.reconciliations.Add(ctx, 1, outcomeAttr(outcome))
}

func (r *OTelRecorder) RecordStatementExecution(ctx context.Context, outcome string, attempts int, duration time.Duration) {
	r.executions.Add(ctx, 1, outcomeAttr(outcome))
	r.executionAttempts.Record(ctx, int64(attempts), outcomeAttr(outcome))
	r.executionSeconds.Record(ctx, duration.Seconds(), outcomeAttr(outcome))
}

func (r *OTelRecorder) RecordOrphansKilled(ctx context.Context, count int) {
	r.orphansKilled.Add(ctx, int64(count))
}

// RecordDuration records the duration of a named operation with every tag as an attribute.
func (r *OTelRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	attrs := make([]attribute.KeyValue, 0, len(tags)+1)
	attrs = append(attrs, attribute.String("name", name))
	for k, v := range tags {
		attrs = append(attrs, attribute.String(k, v))
	}
	r.operationSeconds.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

var _ metrics.MetricRecorder = (*OTelRecorder)(nil)
