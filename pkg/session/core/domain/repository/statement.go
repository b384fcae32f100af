package repository

import (
	"context"
	"errors"

	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"
)

// ErrStatementNotFound is returned when a statement does not exist in the given session.
var ErrStatementNotFound = errors.New("statement not found")

// StatementStorage persists statements, scoped by the owning session id.
type StatementStorage interface {
	// CreateStatement stores a new statement for the session.
	CreateStatement(ctx context.Context, sessionID string, stmt *model.Statement) (*model.Statement, error)

	// FindStatement returns the statement, or ErrStatementNotFound.
	FindStatement(ctx context.Context, sessionID, statementID string) (*model.Statement, error)

	// TransitionStatement overwrites state and output of the statement if its stored state is still from.
	// It reports false when the stored state has moved on, and ErrStatementNotFound for an unknown statement.
	TransitionStatement(ctx context.Context, sessionID string, from model.StatementState, stmt *model.Statement) (bool, error)

	// FindStatementsByState returns the session's statements in the given state, oldest first.
	FindStatementsByState(ctx context.Context, sessionID string, state model.StatementState) ([]*model.Statement, error)
}
