// Package statement implements ports.StatementHandler on top of the statement storage.
// The session process picks up waiting statements and reports their results through ReportResult.
package statement

import (
	"context"
	"errors"

	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"
	"github.com/hjyangBig2/lighter/pkg/session/core/domain/repository"
	"github.com/hjyangBig2/lighter/pkg/session/core/ports"
	"github.com/hjyangBig2/lighter/pkg/session/support/util/exception"
	"github.com/hjyangBig2/lighter/pkg/session/support/util/logger"
)

const moduleName = "statement"

// OutputStatusError is the output status the session process reports for a failed statement.
const OutputStatusError = "error"

// StorageStatementHandler stores statements and serves their state from storage.
type StorageStatementHandler struct {
	storage repository.StatementStorage
	clock   ports.Clock
}

var _ ports.StatementHandler = (*StorageStatementHandler)(nil)

// NewStorageStatementHandler creates a new StorageStatementHandler.
func NewStorageStatementHandler(storage repository.StatementStorage, clock ports.Clock) *StorageStatementHandler {
	return &StorageStatementHandler{storage: storage, clock: clock}
}

// ProcessStatement stores a copy of stmt as waiting under a new id. Caller supplied id, state and output are ignored.
func (h *StorageStatementHandler) ProcessStatement(ctx context.Context, sessionID string, stmt *model.Statement) (*model.Statement, error) {
	submitted := &model.Statement{
		ID:        model.NewID(),
		Code:      stmt.Code,
		State:     model.StatementStateWaiting,
		CreatedAt: h.clock.Now(),
	}
	created, err := h.storage.CreateStatement(ctx, sessionID, submitted)
	if err != nil {
		return nil, exception.NewServiceErrorf(moduleName, "failed to submit statement to session %s", sessionID, err)
	}
	logger.Debugf("Statement %s submitted to session %s.", created.ID, sessionID)
	return created, nil
}

// GetStatement implements ports.StatementHandler.
func (h *StorageStatementHandler) GetStatement(ctx context.Context, sessionID, statementID string) (*model.Statement, error) {
	stmt, err := h.storage.FindStatement(ctx, sessionID, statementID)
	if errors.Is(err, repository.ErrStatementNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, exception.NewServiceErrorf(moduleName, "failed to get statement %s of session %s", statementID, sessionID, err)
	}
	return stmt, nil
}

// CancelStatement marks a waiting statement as canceled. A statement that already has output is
// returned unchanged, and an unknown statement yields nil.
func (h *StorageStatementHandler) CancelStatement(ctx context.Context, sessionID, statementID string) (*model.Statement, error) {
	stmt, err := h.GetStatement(ctx, sessionID, statementID)
	if err != nil || stmt == nil {
		return stmt, err
	}
	if !stmt.State.IsWaiting() {
		return stmt, nil
	}

	stmt.State = model.StatementStateCanceled
	updated, err := h.transition(ctx, sessionID, stmt)
	if err != nil {
		return nil, exception.NewServiceErrorf(moduleName, "failed to cancel statement %s of session %s", statementID, sessionID, err)
	}
	if !updated {
		// A result arrived between the read and the update.
		return h.GetStatement(ctx, sessionID, statementID)
	}
	logger.Infof("Statement %s of session %s canceled.", statementID, sessionID)
	return stmt, nil
}

// transition moves a waiting statement to stmt's state and output. A statement deleted in between counts as not updated.
func (h *StorageStatementHandler) transition(ctx context.Context, sessionID string, stmt *model.Statement) (bool, error) {
	updated, err := h.storage.TransitionStatement(ctx, sessionID, model.StatementStateWaiting, stmt)
	if errors.Is(err, repository.ErrStatementNotFound) {
		return false, nil
	}
	return updated, err
}

// HasWaitingStatement implements ports.StatementHandler.
func (h *StorageStatementHandler) HasWaitingStatement(ctx context.Context, app *model.Application) (bool, error) {
	waiting, err := h.storage.FindStatementsByState(ctx, app.ID, model.StatementStateWaiting)
	if err != nil {
		return false, exception.NewServiceErrorf(moduleName, "failed to look up waiting statements of session %s", app.ID, err)
	}
	return len(waiting) > 0, nil
}

// ReportResult records the output of a waiting statement. An output with status "error" moves the
// statement to error, any other to available. Results for canceled or finished statements are
// discarded and the stored statement is returned. An unknown statement yields nil.
func (h *StorageStatementHandler) ReportResult(ctx context.Context, sessionID, statementID string, output model.StatementOutput) (*model.Statement, error) {
	stmt, err := h.GetStatement(ctx, sessionID, statementID)
	if err != nil || stmt == nil {
		return stmt, err
	}
	if !stmt.State.IsWaiting() {
		logger.Warnf("Result for statement %s of session %s discarded: statement is %s.", statementID, sessionID, stmt.State)
		return stmt, nil
	}

	stmt.Output = &output
	stmt.State = model.StatementStateAvailable
	if output.Status == OutputStatusError {
		stmt.State = model.StatementStateError
	}
	updated, err := h.transition(ctx, sessionID, stmt)
	if err != nil {
		return nil, exception.NewServiceErrorf(moduleName, "failed to store result of statement %s of session %s", statementID, sessionID, err)
	}
	if !updated {
		logger.Warnf("Result for statement %s of session %s discarded: statement left waiting before the result was stored.", statementID, sessionID)
		return h.GetStatement(ctx, sessionID, statementID)
	}
	return stmt, nil
}
