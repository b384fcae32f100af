// Package metrics declares the observability hooks of the session service.
package metrics

import (
	"context"
	"time"

	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"
)

// Outcomes of a live state reconciliation.
const (
	ReconcileOutcomeReconciled       = "reconciled"
	ReconcileOutcomeNoInfo           = "no_info"
	ReconcileOutcomePendingStatement = "pending_statement"
)

// Outcomes of a synchronous statement execution.
const (
	ExecutionOutcomeAvailable = "available"
	ExecutionOutcomeCancelled = "cancelled"
	ExecutionOutcomeFailed    = "failed"
)

// MetricRecorder records session lifecycle metrics. Implementations exist for Prometheus and
// OpenTelemetry metrics.
type MetricRecorder interface {
	// RecordSessionCreated counts a created application record.
	RecordSessionCreated(ctx context.Context, typ model.ApplicationType)

	// RecordSessionKilled counts a kill issued to the backend.
	RecordSessionKilled(ctx context.Context, typ model.ApplicationType)

	// RecordSessionDeleted counts a deleted application record.
	RecordSessionDeleted(ctx context.Context, typ model.ApplicationType)

	// RecordLiveReconciliation counts a live-state lookup by outcome (see ReconcileOutcome*).
	RecordLiveReconciliation(ctx context.Context, outcome string)

	// RecordStatementExecution records a finished synchronous execution: its outcome
	// (see ExecutionOutcome*), the number of status checks, and the wall time including lock wait.
	RecordStatementExecution(ctx context.Context, outcome string, attempts int, duration time.Duration)

	// RecordOrphansKilled counts live backend sessions killed by a sweep.
	RecordOrphansKilled(ctx context.Context, count int)

	// RecordDuration records the duration of a named operation.
	//
	//	RecordDuration(ctx, "archive_export", d, map[string]string{"status": "success"})
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}
