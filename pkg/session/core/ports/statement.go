package ports

import (
	"context"

	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"
)

// StatementHandler submits statements to live sessions and tracks their completion.
type StatementHandler interface {
	// ProcessStatement submits the statement and returns it with its assigned id.
	ProcessStatement(ctx context.Context, sessionID string, stmt *model.Statement) (*model.Statement, error)

	// GetStatement returns the statement, or nil if the session has no such statement.
	GetStatement(ctx context.Context, sessionID, statementID string) (*model.Statement, error)

	// CancelStatement cancels the statement and returns its final state.
	CancelStatement(ctx context.Context, sessionID, statementID string) (*model.Statement, error)

	// HasWaitingStatement reports whether any statement of the application is still waiting for output.
	HasWaitingStatement(ctx context.Context, app *model.Application) (bool, error)
}
