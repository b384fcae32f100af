package sql_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hjyangBig2/lighter/pkg/session/adapter/database"
	gormadapter "github.com/hjyangBig2/lighter/pkg/session/adapter/database/gorm"
	"github.com/hjyangBig2/lighter/pkg/session/adapter/database/gorm/sqlite"
	"github.com/hjyangBig2/lighter/pkg/session/adapter/database/migration"
	"github.com/hjyangBig2/lighter/pkg/session/core/config"
	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"
	"github.com/hjyangBig2/lighter/pkg/session/core/domain/repository"
	sqlrepo "github.com/hjyangBig2/lighter/pkg/session/infrastructure/repository/sql"
)

const testDBName = "lighter"

// setupSQLiteRepository opens a private in-memory database. A single pooled
// connection keeps the database alive for the duration of the test.
func setupSQLiteRepository(t *testing.T, migrate bool) *sqlrepo.SQLSessionRepository {
	t.Helper()

	cfg := config.NewConfig()
	cfg.Lighter.DatabaseConfigs[testDBName] = map[string]interface{}{
		"type":     "sqlite",
		"database": ":memory:",
		"pool": map[string]interface{}{
			"max_open_conns": 1,
			"max_idle_conns": 1,
		},
	}

	resolver := gormadapter.NewGormDBConnectionResolver(gormadapter.ResolverParams{
		DBProviders: []database.DBProvider{sqlite.NewProvider(cfg)},
		Cfg:         cfg,
	})
	t.Cleanup(func() { _ = resolver.CloseAll() })

	if migrate {
		conn, err := resolver.ResolveDBConnection(context.Background(), testDBName)
		require.NoError(t, err)
		require.NoError(t, migration.NewMigrator(conn).Up(context.Background()))
	}
	return sqlrepo.NewSQLSessionRepository(resolver, testDBName)
}

func newApplication(id string, typ model.ApplicationType, state model.ApplicationState, createdAt time.Time) *model.Application {
	return &model.Application{
		ID:    id,
		Type:  typ,
		State: state,
		SubmitParams: model.SubmitParams{
			Name:         "session_" + id,
			File:         "shell_wrapper.py",
			DriverMemory: "1000M",
			Conf:         map[string]string{"spark.executor.instances": "2"},
		},
		CreatedAt: createdAt,
	}
}

func TestSQLiteSessionRepository_ApplicationLifecycle(t *testing.T) {
	repo := setupSQLiteRepository(t, true)
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	app := newApplication("a1", model.ApplicationTypeSession, model.ApplicationStateNotStarted, created)
	saved, err := repo.SaveApplication(ctx, app)
	require.NoError(t, err)
	assert.Equal(t, "a1", saved.ID)

	found, err := repo.FindApplication(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationTypeSession, found.Type)
	assert.Equal(t, model.ApplicationStateNotStarted, found.State)
	assert.Equal(t, app.SubmitParams, found.SubmitParams)
	assert.True(t, created.Equal(found.CreatedAt), "created_at round trip: %v", found.CreatedAt)
	assert.Nil(t, found.ContactedAt)

	contacted := created.Add(time.Minute)
	update := found.WithState(model.ApplicationStateIdle)
	update.AppID = "app-123"
	update.ContactedAt = &contacted
	update.CreatedAt = created.Add(time.Hour)
	_, err = repo.SaveApplication(ctx, update)
	require.NoError(t, err)

	found, err = repo.FindApplication(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStateIdle, found.State)
	assert.Equal(t, "app-123", found.AppID)
	require.NotNil(t, found.ContactedAt)
	assert.True(t, contacted.Equal(*found.ContactedAt))
	assert.True(t, created.Equal(found.CreatedAt), "created_at must not change on update")

	require.NoError(t, repo.DeleteApplication(ctx, "a1"))
	_, err = repo.FindApplication(ctx, "a1")
	assert.ErrorIs(t, err, repository.ErrApplicationNotFound)

	// Deleting again is a no-op.
	assert.NoError(t, repo.DeleteApplication(ctx, "a1"))
}

func TestSQLiteSessionRepository_FindApplications(t *testing.T) {
	repo := setupSQLiteRepository(t, true)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	seed := []*model.Application{
		newApplication("s1", model.ApplicationTypeSession, model.ApplicationStateIdle, base),
		newApplication("s2", model.ApplicationTypeSession, model.ApplicationStateKilled, base.Add(time.Second)),
		newApplication("s3", model.ApplicationTypeSession, model.ApplicationStateBusy, base.Add(2*time.Second)),
		newApplication("p1", model.ApplicationTypePermanentSession, model.ApplicationStateIdle, base.Add(3*time.Second)),
	}
	for _, app := range seed {
		_, err := repo.SaveApplication(ctx, app)
		require.NoError(t, err)
	}

	t.Run("by type in creation order", func(t *testing.T) {
		apps, err := repo.FindApplications(ctx, model.ApplicationTypeSession, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"s1", "s2", "s3"}, ids(apps))
	})

	t.Run("offset and limit", func(t *testing.T) {
		apps, err := repo.FindApplications(ctx, model.ApplicationTypeSession, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"s2"}, ids(apps))
	})

	t.Run("by states", func(t *testing.T) {
		apps, err := repo.FindApplicationsByStates(ctx, model.ApplicationTypeSession, model.RunningStates(), 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"s1", "s3"}, ids(apps))
	})

	t.Run("no states", func(t *testing.T) {
		apps, err := repo.FindApplicationsByStates(ctx, model.ApplicationTypeSession, nil, 10)
		require.NoError(t, err)
		assert.Empty(t, apps)
	})

	t.Run("permanent", func(t *testing.T) {
		apps, err := repo.FindApplications(ctx, model.ApplicationTypePermanentSession, 0, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"p1"}, ids(apps))
	})
}

func TestSQLiteSessionRepository_InsertionOrderWithEqualTimestamps(t *testing.T) {
	repo := setupSQLiteRepository(t, true)
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	for _, id := range []string{"zz", "aa", "mm"} {
		_, err := repo.SaveApplication(ctx, newApplication(id, model.ApplicationTypeSession, model.ApplicationStateSuccess, created))
		require.NoError(t, err)
	}
	// Updating a record does not move it.
	_, err := repo.SaveApplication(ctx, newApplication("zz", model.ApplicationTypeSession, model.ApplicationStateDead, created))
	require.NoError(t, err)

	apps, err := repo.FindApplications(ctx, model.ApplicationTypeSession, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"zz", "aa", "mm"}, ids(apps))

	apps, err = repo.FindApplicationsByStates(ctx, model.ApplicationTypeSession, model.CompleteStates(), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"zz", "aa"}, ids(apps))
}

func TestSQLiteSessionRepository_ArchiveMarker(t *testing.T) {
	repo := setupSQLiteRepository(t, true)
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	archivedAt := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

	for _, id := range []string{"s1", "s2", "s3"} {
		_, err := repo.SaveApplication(ctx, newApplication(id, model.ApplicationTypeSession, model.ApplicationStateSuccess, created))
		require.NoError(t, err)
	}
	require.NoError(t, repo.MarkApplicationsArchived(ctx, []string{"s1", "s2", "unknown"}, archivedAt))

	apps, err := repo.FindUnarchivedApplications(ctx, model.ApplicationTypeSession, model.CompleteStates(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"s3"}, ids(apps))

	found, err := repo.FindApplication(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, found.ArchivedAt)
	assert.True(t, archivedAt.Equal(*found.ArchivedAt))

	// A later save of the record keeps the marker.
	_, err = repo.SaveApplication(ctx, newApplication("s1", model.ApplicationTypeSession, model.ApplicationStateKilled, created))
	require.NoError(t, err)
	found, err = repo.FindApplication(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStateKilled, found.State)
	assert.NotNil(t, found.ArchivedAt)

	all, err := repo.FindApplicationsByStates(ctx, model.ApplicationTypeSession, model.CompleteStates(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLiteSessionRepository_Statements(t *testing.T) {
	repo := setupSQLiteRepository(t, true)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := repo.SaveApplication(ctx, newApplication("s1", model.ApplicationTypeSession, model.ApplicationStateIdle, base))
	require.NoError(t, err)

	first, err := repo.CreateStatement(ctx, "s1", &model.Statement{ID: "st1", Code: "1 + 1", State: model.StatementStateWaiting, CreatedAt: base})
	require.NoError(t, err)
	assert.Nil(t, first.Output)
	_, err = repo.CreateStatement(ctx, "s1", &model.Statement{ID: "st2", Code: "2 + 2", State: model.StatementStateWaiting, CreatedAt: base.Add(time.Second)})
	require.NoError(t, err)

	waiting, err := repo.FindStatementsByState(ctx, "s1", model.StatementStateWaiting)
	require.NoError(t, err)
	assert.Equal(t, []string{"st1", "st2"}, statementIDs(waiting))

	done := &model.Statement{
		ID:        "st1",
		Code:      "1 + 1",
		State:     model.StatementStateAvailable,
		Output:    &model.StatementOutput{Status: "ok", Data: map[string]interface{}{"text/plain": "2"}},
		CreatedAt: base,
	}
	updated, err := repo.TransitionStatement(ctx, "s1", model.StatementStateWaiting, done)
	require.NoError(t, err)
	assert.True(t, updated)

	found, err := repo.FindStatement(ctx, "s1", "st1")
	require.NoError(t, err)
	assert.Equal(t, model.StatementStateAvailable, found.State)
	require.True(t, found.HasOutput())
	assert.Equal(t, "ok", found.Output.Status)
	assert.Equal(t, "2", found.Output.Data["text/plain"])

	waiting, err = repo.FindStatementsByState(ctx, "s1", model.StatementStateWaiting)
	require.NoError(t, err)
	assert.Equal(t, []string{"st2"}, statementIDs(waiting))

	_, err = repo.FindStatement(ctx, "s2", "st1")
	assert.ErrorIs(t, err, repository.ErrStatementNotFound)

	// st1 has left waiting; a late cancel must not overwrite the stored output.
	updated, err = repo.TransitionStatement(ctx, "s1", model.StatementStateWaiting, &model.Statement{ID: "st1", Code: "1 + 1", State: model.StatementStateCanceled, CreatedAt: base})
	require.NoError(t, err)
	assert.False(t, updated)
	found, err = repo.FindStatement(ctx, "s1", "st1")
	require.NoError(t, err)
	assert.Equal(t, model.StatementStateAvailable, found.State)
	assert.True(t, found.HasOutput())

	_, err = repo.TransitionStatement(ctx, "s1", model.StatementStateWaiting, &model.Statement{ID: "missing", State: model.StatementStateCanceled, CreatedAt: base})
	assert.ErrorIs(t, err, repository.ErrStatementNotFound)

	require.NoError(t, repo.DeleteApplication(ctx, "s1"))
	_, err = repo.FindStatement(ctx, "s1", "st2")
	assert.ErrorIs(t, err, repository.ErrStatementNotFound)
}

func TestSQLiteSessionRepository_MissingTables(t *testing.T) {
	repo := setupSQLiteRepository(t, false)
	ctx := context.Background()

	apps, err := repo.FindApplications(ctx, model.ApplicationTypeSession, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, apps)

	_, err = repo.FindApplication(ctx, "a1")
	assert.ErrorIs(t, err, repository.ErrApplicationNotFound)

	statements, err := repo.FindStatementsByState(ctx, "a1", model.StatementStateWaiting)
	require.NoError(t, err)
	assert.Empty(t, statements)

	_, err = repo.SaveApplication(ctx, newApplication("a1", model.ApplicationTypeSession, model.ApplicationStateNotStarted, time.Now().UTC()))
	assert.Error(t, err)
}

func TestSQLiteSessionRepository_MigrationIsIdempotent(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Lighter.DatabaseConfigs[testDBName] = map[string]interface{}{
		"type":     "sqlite",
		"database": ":memory:",
		"pool":     map[string]interface{}{"max_open_conns": 1, "max_idle_conns": 1},
	}
	resolver := gormadapter.NewGormDBConnectionResolver(gormadapter.ResolverParams{
		DBProviders: []database.DBProvider{sqlite.NewProvider(cfg)},
		Cfg:         cfg,
	})
	defer resolver.CloseAll()

	conn, err := resolver.ResolveDBConnection(context.Background(), testDBName)
	require.NoError(t, err)
	require.NoError(t, migration.NewMigrator(conn).Up(context.Background()))
	assert.NoError(t, migration.NewMigrator(conn).Up(context.Background()))
}

func ids(apps []*model.Application) []string {
	out := make([]string, 0, len(apps))
	for _, a := range apps {
		out = append(out, a.ID)
	}
	return out
}

func statementIDs(statements []*model.Statement) []string {
	out := make([]string, 0, len(statements))
	for _, s := range statements {
		out = append(out, s.ID)
	}
	return out
}
