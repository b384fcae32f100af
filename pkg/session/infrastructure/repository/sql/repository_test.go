package sql_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	dbconfig "github.com/hjyangBig2/lighter/pkg/session/adapter/database/config"
	gormadapter "github.com/hjyangBig2/lighter/pkg/session/adapter/database/gorm"
	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"
	"github.com/hjyangBig2/lighter/pkg/session/core/domain/repository"
	sqlrepo "github.com/hjyangBig2/lighter/pkg/session/infrastructure/repository/sql"
	"github.com/hjyangBig2/lighter/pkg/session/support/util/exception"
	testutil "github.com/hjyangBig2/lighter/pkg/session/test"
)

func setupMockConnection() (*testutil.MockDBConnection, *sqlrepo.SQLSessionRepository) {
	conn := new(testutil.MockDBConnection)
	repo := sqlrepo.NewSQLSessionRepository(testutil.NewTestSingleConnectionResolver(conn), "mock_db")
	return conn, repo
}

func TestSQLSessionRepository_SaveApplicationUpsertsMutableColumns(t *testing.T) {
	conn, repo := setupMockConnection()
	ctx := context.Background()
	app := newApplication("a1", model.ApplicationTypeSession, model.ApplicationStateStarting, time.Now().UTC())

	conn.On("ExecuteUpsert", ctx, testifymock.MatchedBy(func(e *sqlrepo.ApplicationEntity) bool {
		return e.ID == "a1" && e.State == "STARTING" && e.Type == "SESSION"
	}), "session_application", []string{"id"},
		[]string{"type", "state", "app_id", "app_info", "submit_params", "contacted_at"}).Return(int64(1), nil)

	saved, err := repo.SaveApplication(ctx, app)
	require.NoError(t, err)
	assert.Equal(t, app, saved)
	assert.NotSame(t, app, saved)
	conn.AssertExpectations(t)
}

func TestSQLSessionRepository_FindApplicationsByStatesUsesInQuery(t *testing.T) {
	conn, repo := setupMockConnection()
	ctx := context.Background()

	query := map[string]interface{}{"type": "SESSION", "state": []string{"STARTING", "IDLE", "BUSY"}}
	conn.On("ExecuteQueryAdvanced", ctx, testifymock.Anything, query, "seq ASC", 0, 5).
		Run(func(args testifymock.Arguments) {
			target := args.Get(1).(*[]sqlrepo.ApplicationEntity)
			*target = []sqlrepo.ApplicationEntity{{ID: "s1", Type: "SESSION", State: "IDLE"}}
		}).Return(nil)

	apps, err := repo.FindApplicationsByStates(ctx, model.ApplicationTypeSession, model.RunningStates(), 5)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, model.ApplicationStateIdle, apps[0].State)
	conn.AssertExpectations(t)
}

func TestSQLSessionRepository_QueryErrorsAreWrapped(t *testing.T) {
	conn, repo := setupMockConnection()
	ctx := context.Background()
	dbErr := errors.New("dial tcp: connection refused")

	conn.On("ExecuteQuery", ctx, testifymock.Anything, map[string]interface{}{"id": "a1"}).Return(dbErr)

	_, err := repo.FindApplication(ctx, "a1")
	require.Error(t, err)
	assert.ErrorIs(t, err, dbErr)
	var se *exception.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "storage", se.Module)
	assert.True(t, exception.IsTemporary(err))
}

func TestSQLSessionRepository_MissingTableOnRead(t *testing.T) {
	conn, repo := setupMockConnection()
	ctx := context.Background()

	conn.On("ExecuteQueryAdvanced", ctx, testifymock.Anything, testifymock.Anything, testifymock.Anything, testifymock.Anything, testifymock.Anything).
		Return(testutil.ErrTableMissing)
	conn.On("ExecuteQuery", ctx, testifymock.Anything, testifymock.Anything).Return(testutil.ErrTableMissing)
	conn.On("ExecuteUpdate", ctx, testifymock.Anything, "DELETE", testifymock.Anything, testifymock.Anything).
		Return(int64(0), testutil.ErrTableMissing)

	apps, err := repo.FindApplications(ctx, model.ApplicationTypeSession, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, apps)

	_, err = repo.FindApplication(ctx, "a1")
	assert.ErrorIs(t, err, repository.ErrApplicationNotFound)

	assert.NoError(t, repo.DeleteApplication(ctx, "a1"))
}

func TestSQLSessionRepository_DeleteRemovesStatementsFirst(t *testing.T) {
	conn, repo := setupMockConnection()
	ctx := context.Background()

	var order []string
	conn.On("ExecuteUpdate", ctx, testifymock.Anything, "DELETE", "session_statement", map[string]interface{}{"session_id": "a1"}).
		Run(func(testifymock.Arguments) { order = append(order, "statements") }).Return(int64(2), nil)
	conn.On("ExecuteUpdate", ctx, testifymock.Anything, "DELETE", "session_application", map[string]interface{}{"id": "a1"}).
		Run(func(testifymock.Arguments) { order = append(order, "application") }).Return(int64(1), nil)

	require.NoError(t, repo.DeleteApplication(ctx, "a1"))
	assert.Equal(t, []string{"statements", "application"}, order)
}

func TestSQLSessionRepository_FindUnarchivedApplicationsFiltersArchivedAt(t *testing.T) {
	conn, repo := setupMockConnection()
	ctx := context.Background()

	query := map[string]interface{}{"type": "SESSION", "state": []string{"SUCCESS", "ERROR", "KILLED", "DEAD"}, "archived_at": nil}
	conn.On("ExecuteQueryAdvanced", ctx, testifymock.Anything, query, "seq ASC", 0, 50).Return(nil)

	apps, err := repo.FindUnarchivedApplications(ctx, model.ApplicationTypeSession, model.CompleteStates(), 50)
	require.NoError(t, err)
	assert.Empty(t, apps)
	conn.AssertExpectations(t)
}

func TestSQLSessionRepository_MarkApplicationsArchived(t *testing.T) {
	conn, repo := setupMockConnection()
	ctx := context.Background()
	at := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

	conn.On("ExecuteUpdate", ctx, testifymock.MatchedBy(func(e *sqlrepo.ApplicationEntity) bool {
		return e.ID == "" && e.ArchivedAt != nil && e.ArchivedAt.Equal(at)
	}), "UPDATE", "session_application", map[string]interface{}{"id": []string{"s1", "s2"}}).Return(int64(2), nil)

	require.NoError(t, repo.MarkApplicationsArchived(ctx, []string{"s1", "s2"}, at))
	require.NoError(t, repo.MarkApplicationsArchived(ctx, nil, at))
	conn.AssertExpectations(t)
	conn.AssertNumberOfCalls(t, "ExecuteUpdate", 1)
}

func TestSQLSessionRepository_CorruptStatementOutput(t *testing.T) {
	conn, repo := setupMockConnection()
	ctx := context.Background()

	broken := "{not json"
	conn.On("ExecuteQueryAdvanced", ctx, testifymock.Anything, testifymock.Anything, testifymock.Anything, 0, 0).
		Run(func(args testifymock.Arguments) {
			target := args.Get(1).(*[]sqlrepo.StatementEntity)
			*target = []sqlrepo.StatementEntity{{ID: "st1", SessionID: "s1", State: "available", Output: &broken}}
		}).Return(nil)

	_, err := repo.FindStatement(ctx, "s1", "st1")
	require.Error(t, err)
	assert.False(t, exception.IsTemporary(err))
}

// setupGormMock wires the repository to a GORM connection backed by sqlmock.
func setupGormMock(t *testing.T) (sqlmock.Sqlmock, *sqlrepo.SQLSessionRepository) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	dbConn, err := gormadapter.NewGormDBAdapter(gormDB, dbconfig.DatabaseConfig{Type: "mysql"}, "mock_db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return mock, sqlrepo.NewSQLSessionRepository(testutil.NewTestSingleConnectionResolver(dbConn), "mock_db")
}

func TestGormSessionRepository_SaveApplicationOnDuplicateKey(t *testing.T) {
	mock, repo := setupGormMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `session_application`") + ".*ON DUPLICATE KEY UPDATE").
		WillReturnResult(sqlmock.NewResult(1, 1))

	_, err := repo.SaveApplication(context.Background(), newApplication("a1", model.ApplicationTypeSession, model.ApplicationStateNotStarted, time.Now().UTC()))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormSessionRepository_FindApplication(t *testing.T) {
	mock, repo := setupGormMock(t)
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "type", "state", "app_id", "app_info", "submit_params", "created_at", "contacted_at"}).
		AddRow("a1", "PERMANENT_SESSION", "IDLE", "app-1", "", `{"name":"permanent_session_a1","conf":{"k":"v"}}`, created, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `session_application` WHERE `id` = ?")).
		WillReturnRows(rows)

	app, err := repo.FindApplication(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationTypePermanentSession, app.Type)
	assert.Equal(t, "permanent_session_a1", app.SubmitParams.Name)
	assert.Equal(t, "v", app.SubmitParams.Conf["k"])
	assert.True(t, created.Equal(app.CreatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormSessionRepository_FindApplicationNotFound(t *testing.T) {
	mock, repo := setupGormMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `session_application` WHERE `id` = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindApplication(context.Background(), "nope")
	assert.ErrorIs(t, err, repository.ErrApplicationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
