package metrics

import (
	"context"
	"time"

	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"
)

// NoOpMetricRecorder discards all metrics.
type NoOpMetricRecorder struct{}

// NewNoOpMetricRecorder creates a NoOpMetricRecorder.
func NewNoOpMetricRecorder() MetricRecorder {
	return &NoOpMetricRecorder{}
}

func (r *NoOpMetricRecorder) RecordSessionCreated(ctx context.Context, typ model.ApplicationType) {}
func (r *NoOpMetricRecorder) RecordSessionKilled(ctx context.Context, typ model.ApplicationType)  {}
func (r *NoOpMetricRecorder) RecordSessionDeleted(ctx context.Context, typ model.ApplicationType) {}
func (r *NoOpMetricRecorder) RecordLiveReconciliation(ctx context.Context, outcome string)        {}
func (r *NoOpMetricRecorder) RecordStatementExecution(ctx context.Context, outcome string, attempts int, duration time.Duration) {
}
func (r *NoOpMetricRecorder) RecordOrphansKilled(ctx context.Context, count int) {}
func (r *NoOpMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
}

var _ MetricRecorder = (*NoOpMetricRecorder)(nil)

// NoOpTracer creates no spans.
type NoOpTracer struct{}

// NewNoOpTracer creates a NoOpTracer.
func NewNoOpTracer() Tracer {
	return &NoOpTracer{}
}

func (t *NoOpTracer) StartSpan(ctx context.Context, operation string, sessionID string) (context.Context, func()) {
	return ctx, func() {}
}
func (t *NoOpTracer) RecordError(ctx context.Context, module string, err error) {}
func (t *NoOpTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
}

var _ Tracer = (*NoOpTracer)(nil)
