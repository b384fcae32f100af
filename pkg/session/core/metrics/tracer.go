package metrics

import "context"

// Tracer creates spans around coordinator operations.
type Tracer interface {
	// StartSpan starts a span named after the operation. sessionID may be empty.
	// The returned function ends the span.
	StartSpan(ctx context.Context, operation string, sessionID string) (context.Context, func())

	// RecordError records err on the current span.
	RecordError(ctx context.Context, module string, err error)

	// RecordEvent adds an event to the current span.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
