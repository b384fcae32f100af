// Package sql implements the session repository on a relational database through the database adapter.
package sql

import (
	"context"
	"fmt"
	"time"

	"github.com/hjyangBig2/lighter/pkg/session/adapter/database"
	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"
	"github.com/hjyangBig2/lighter/pkg/session/core/domain/repository"
	"github.com/hjyangBig2/lighter/pkg/session/support/util/exception"
	"github.com/hjyangBig2/lighter/pkg/session/support/util/logger"
)

const storageModule = "storage"

var applicationUpdateColumns = []string{"type", "state", "app_id", "app_info", "submit_params", "contacted_at"}

// SQLSessionRepository implements repository.SessionRepository.
type SQLSessionRepository struct {
	dbResolver database.DBConnectionResolver
	// dbName is the name of the database connection (e.g., "lighter").
	dbName string
}

// Verify that SQLSessionRepository implements all embedded interfaces of repository.SessionRepository.
var _ repository.SessionRepository = (*SQLSessionRepository)(nil)

// NewSQLSessionRepository creates a new instance of SQLSessionRepository.
func NewSQLSessionRepository(dbResolver database.DBConnectionResolver, dbName string) *SQLSessionRepository {
	return &SQLSessionRepository{
		dbResolver: dbResolver,
		dbName:     dbName,
	}
}

func (r *SQLSessionRepository) getDBConnection(ctx context.Context) (database.DBConnection, error) {
	conn, err := r.dbResolver.ResolveDBConnection(ctx, r.dbName)
	if err != nil {
		return nil, exception.NewServiceError(storageModule, fmt.Sprintf("failed to resolve DB connection '%s'", r.dbName), err, true)
	}
	return conn, nil
}

func storageError(message string, err error) error {
	return exception.NewServiceError(storageModule, message, err, exception.IsTemporary(err))
}

// --- Applications ---

// FindApplications implements repository.ApplicationStorage.
func (r *SQLSessionRepository) FindApplications(ctx context.Context, typ model.ApplicationType, offset, limit int) ([]*model.Application, error) {
	return r.findApplications(ctx, map[string]interface{}{"type": string(typ)}, offset, limit)
}

// FindApplicationsByStates implements repository.ApplicationStorage.
func (r *SQLSessionRepository) FindApplicationsByStates(ctx context.Context, typ model.ApplicationType, states []model.ApplicationState, limit int) ([]*model.Application, error) {
	if len(states) == 0 {
		return []*model.Application{}, nil
	}
	return r.findApplications(ctx, statesQuery(typ, states), 0, limit)
}

// FindUnarchivedApplications implements repository.ApplicationStorage.
func (r *SQLSessionRepository) FindUnarchivedApplications(ctx context.Context, typ model.ApplicationType, states []model.ApplicationState, limit int) ([]*model.Application, error) {
	if len(states) == 0 {
		return []*model.Application{}, nil
	}
	query := statesQuery(typ, states)
	query["archived_at"] = nil
	return r.findApplications(ctx, query, 0, limit)
}

func statesQuery(typ model.ApplicationType, states []model.ApplicationState) map[string]interface{} {
	names := make([]string, 0, len(states))
	for _, s := range states {
		names = append(names, string(s))
	}
	return map[string]interface{}{"type": string(typ), "state": names}
}

// MarkApplicationsArchived implements repository.ApplicationStorage.
func (r *SQLSessionRepository) MarkApplicationsArchived(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return err
	}

	archivedAt := at
	if _, err := conn.ExecuteUpdate(ctx, &ApplicationEntity{ArchivedAt: &archivedAt}, "UPDATE", applicationTable, map[string]interface{}{"id": ids}); err != nil {
		return storageError(fmt.Sprintf("failed to mark %d applications as archived", len(ids)), err)
	}
	return nil
}

func (r *SQLSessionRepository) findApplications(ctx context.Context, query map[string]interface{}, offset, limit int) ([]*model.Application, error) {
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}

	var entities []ApplicationEntity
	if err := conn.ExecuteQueryAdvanced(ctx, &entities, query, insertionOrder, offset, limit); err != nil {
		if conn.IsTableNotExistError(err) {
			logger.Warnf("Table %s does not exist yet; returning no applications.", applicationTable)
			return []*model.Application{}, nil
		}
		return nil, storageError("failed to query applications", err)
	}

	apps := make([]*model.Application, 0, len(entities))
	for i := range entities {
		apps = append(apps, toDomainApplication(&entities[i]))
	}
	return apps, nil
}

// FindApplication implements repository.ApplicationStorage.
func (r *SQLSessionRepository) FindApplication(ctx context.Context, id string) (*model.Application, error) {
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}

	var entities []ApplicationEntity
	if err := conn.ExecuteQuery(ctx, &entities, map[string]interface{}{"id": id}); err != nil {
		if conn.IsTableNotExistError(err) {
			return nil, repository.ErrApplicationNotFound
		}
		return nil, storageError(fmt.Sprintf("failed to find application %s", id), err)
	}
	if len(entities) == 0 {
		return nil, repository.ErrApplicationNotFound
	}
	return toDomainApplication(&entities[0]), nil
}

// SaveApplication implements repository.ApplicationStorage. CreatedAt and ArchivedAt are kept from the first save.
func (r *SQLSessionRepository) SaveApplication(ctx context.Context, app *model.Application) (*model.Application, error) {
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}

	entity := fromDomainApplication(app)
	if _, err := conn.ExecuteUpsert(ctx, entity, applicationTable, []string{"id"}, applicationUpdateColumns); err != nil {
		return nil, storageError(fmt.Sprintf("failed to save application %s", app.ID), err)
	}
	return app.Clone(), nil
}

// DeleteApplication implements repository.ApplicationStorage. The application's statements are deleted with it.
func (r *SQLSessionRepository) DeleteApplication(ctx context.Context, id string) error {
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return err
	}

	if _, err := conn.ExecuteUpdate(ctx, &StatementEntity{}, "DELETE", statementTable, map[string]interface{}{"session_id": id}); err != nil && !conn.IsTableNotExistError(err) {
		return storageError(fmt.Sprintf("failed to delete statements of application %s", id), err)
	}
	if _, err := conn.ExecuteUpdate(ctx, &ApplicationEntity{}, "DELETE", applicationTable, map[string]interface{}{"id": id}); err != nil && !conn.IsTableNotExistError(err) {
		return storageError(fmt.Sprintf("failed to delete application %s", id), err)
	}
	return nil
}

// --- Statements ---

// CreateStatement implements repository.StatementStorage.
func (r *SQLSessionRepository) CreateStatement(ctx context.Context, sessionID string, stmt *model.Statement) (*model.Statement, error) {
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}

	entity, err := fromDomainStatement(sessionID, stmt)
	if err != nil {
		return nil, exception.NewServiceError(storageModule, "invalid statement", err, false)
	}
	if _, err := conn.ExecuteUpdate(ctx, entity, "CREATE", statementTable, nil); err != nil {
		return nil, storageError(fmt.Sprintf("failed to create statement %s in session %s", stmt.ID, sessionID), err)
	}
	return toDomainStatement(entity)
}

// FindStatement implements repository.StatementStorage.
func (r *SQLSessionRepository) FindStatement(ctx context.Context, sessionID, statementID string) (*model.Statement, error) {
	statements, err := r.findStatements(ctx, map[string]interface{}{"session_id": sessionID, "id": statementID})
	if err != nil {
		return nil, err
	}
	if len(statements) == 0 {
		return nil, repository.ErrStatementNotFound
	}
	return statements[0], nil
}

// TransitionStatement implements repository.StatementStorage with a conditional UPDATE on the stored state.
func (r *SQLSessionRepository) TransitionStatement(ctx context.Context, sessionID string, from model.StatementState, stmt *model.Statement) (bool, error) {
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return false, err
	}

	entity, err := fromDomainStatement(sessionID, stmt)
	if err != nil {
		return false, exception.NewServiceError(storageModule, "invalid statement", err, false)
	}
	where := map[string]interface{}{"session_id": sessionID, "state": string(from)}
	affected, err := conn.ExecuteUpdate(ctx, entity, "UPDATE", statementTable, where)
	if err != nil {
		if conn.IsTableNotExistError(err) {
			return false, repository.ErrStatementNotFound
		}
		return false, storageError(fmt.Sprintf("failed to update statement %s in session %s", stmt.ID, sessionID), err)
	}
	if affected > 0 {
		return true, nil
	}
	if _, err := r.FindStatement(ctx, sessionID, stmt.ID); err != nil {
		return false, err
	}
	return false, nil
}

// FindStatementsByState implements repository.StatementStorage.
func (r *SQLSessionRepository) FindStatementsByState(ctx context.Context, sessionID string, state model.StatementState) ([]*model.Statement, error) {
	return r.findStatements(ctx, map[string]interface{}{"session_id": sessionID, "state": string(state)})
}

func (r *SQLSessionRepository) findStatements(ctx context.Context, query map[string]interface{}) ([]*model.Statement, error) {
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}

	var entities []StatementEntity
	if err := conn.ExecuteQueryAdvanced(ctx, &entities, query, insertionOrder, 0, 0); err != nil {
		if conn.IsTableNotExistError(err) {
			return []*model.Statement{}, nil
		}
		return nil, storageError("failed to query statements", err)
	}

	statements := make([]*model.Statement, 0, len(entities))
	for i := range entities {
		stmt, err := toDomainStatement(&entities[i])
		if err != nil {
			return nil, exception.NewServiceError(storageModule, "corrupt statement record", err, false)
		}
		statements = append(statements, stmt)
	}
	return statements, nil
}

// Close implements repository.SessionRepository.
// The underlying DBConnection is owned by its DBProvider, so it is not closed here.
func (r *SQLSessionRepository) Close() error {
	return nil
}
