// Package usecase implements the session and statement lifecycle coordinator.
package usecase

import (
	"context"

	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"
)

// SessionService creates and tracks sessions and drives statements through them.
type SessionService interface {
	// CreateSession stores a new NOT_STARTED application of the given type. The backend is not contacted;
	// it materializes the session asynchronously. Creating a PERMANENT_SESSION while one exists returns
	// *exception.SessionAlreadyExistsError.
	CreateSession(ctx context.Context, params model.SubmitParams, typ model.ApplicationType) (*model.Application, error)

	// Fetch returns a page of SESSION applications.
	Fetch(ctx context.Context, from, size int) ([]*model.Application, error)

	// FetchPermanent returns the permanent session, or nil if there is none.
	FetchPermanent(ctx context.Context) (*model.Application, error)

	// FetchRunning returns every SESSION application in a running state.
	FetchRunning(ctx context.Context) ([]*model.Application, error)

	// FetchByState returns at most limit SESSION applications in the given state.
	FetchByState(ctx context.Context, state model.ApplicationState, limit int) ([]*model.Application, error)

	// Update saves the application as given.
	Update(ctx context.Context, app *model.Application) (*model.Application, error)

	// FetchOne returns the application, or nil if it does not exist. With liveStatus set and a complete
	// stored state, the backend is asked for the live state and the result may carry a reconciled state
	// that is not saved.
	FetchOne(ctx context.Context, id string, liveStatus bool) (*model.ApplicationView, error)

	// DeleteOne kills the application on the backend and then deletes its record.
	// A missing record is not an error.
	DeleteOne(ctx context.Context, id string) error

	// KillOne kills the application on the backend and saves it as KILLED.
	KillOne(ctx context.Context, app *model.Application) error

	CreateStatement(ctx context.Context, sessionID string, stmt *model.Statement) (*model.Statement, error)
	GetStatement(ctx context.Context, sessionID, statementID string) (*model.Statement, error)
	CancelStatement(ctx context.Context, sessionID, statementID string) (*model.Statement, error)

	// ExecuteStatement runs the statement on the permanent session and waits for its output.
	// Only one execution runs at a time in the process. If no output arrives within the configured
	// number of checks, the statement is cancelled and the cancelled statement is returned.
	ExecuteStatement(ctx context.Context, stmt *model.Statement) (*model.Statement, error)
}
