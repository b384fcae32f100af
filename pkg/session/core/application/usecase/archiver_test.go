package usecase_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hjyangBig2/lighter/pkg/session/adapter/storage"
	"github.com/hjyangBig2/lighter/pkg/session/adapter/storage/local"
	"github.com/hjyangBig2/lighter/pkg/session/core/application/usecase"
	"github.com/hjyangBig2/lighter/pkg/session/core/config"
	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"
	"github.com/hjyangBig2/lighter/pkg/session/core/metrics"
	"github.com/hjyangBig2/lighter/pkg/session/infrastructure/repository/inmemory"
	"github.com/hjyangBig2/lighter/pkg/session/test"
)

type durationRecorder struct {
	metrics.NoOpMetricRecorder
	names    []string
	statuses []string
}

func (r *durationRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.names = append(r.names, name)
	r.statuses = append(r.statuses, tags["status"])
}

type archiveFixture struct {
	repo     *inmemory.InMemorySessionRepository
	archiver *usecase.Archiver
	recorder *durationRecorder
	baseDir  string
}

func newArchiveFixture(t *testing.T, deleteArchived bool) *archiveFixture {
	t.Helper()
	return newArchiveFixtureWith(t, config.ArchiveConfig{StorageRef: "archive", Prefix: "sessions", BatchSize: 10, DeleteArchived: deleteArchived})
}

func newArchiveFixtureWith(t *testing.T, archiveCfg config.ArchiveConfig) *archiveFixture {
	t.Helper()
	baseDir := t.TempDir()
	cfg := config.NewConfig()
	cfg.Lighter.Archive = archiveCfg
	cfg.Lighter.StorageConfigs["archive"] = map[string]interface{}{"type": "local", "base_dir": baseDir}

	resolver := storage.NewConnectionResolver(storage.ResolverParams{
		Providers: []storage.StorageProvider{local.NewLocalProvider(cfg)},
		Cfg:       cfg,
	})
	t.Cleanup(func() { resolver.CloseAll() })

	repo := inmemory.NewInMemorySessionRepository()
	recorder := &durationRecorder{}
	archiver := usecase.NewArchiver(usecase.ArchiverParams{
		Cfg:      cfg,
		Storage:  repo,
		Resolver: resolver,
		Recorder: recorder,
		Clock:    test.NewFakeClock(time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)),
	})
	return &archiveFixture{repo: repo, archiver: archiver, recorder: recorder, baseDir: baseDir}
}

func (f *archiveFixture) save(t *testing.T, id string, state model.ApplicationState, createdAt time.Time) {
	t.Helper()
	_, err := f.repo.SaveApplication(context.Background(), &model.Application{
		ID:    id,
		Type:  model.ApplicationTypeSession,
		State: state,
		SubmitParams: model.SubmitParams{
			Name: id,
			Conf: map[string]string{"spark.db.password": "hunter2"},
		},
		CreatedAt: createdAt,
	})
	require.NoError(t, err)
}

func TestArchiver_ExportsFinishedSessionsByDay(t *testing.T) {
	f := newArchiveFixture(t, false)
	day1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	f.save(t, "s1", model.ApplicationStateSuccess, day1)
	f.save(t, "s2", model.ApplicationStateKilled, day1)
	f.save(t, "s3", model.ApplicationStateDead, day2)
	f.save(t, "s4", model.ApplicationStateIdle, day2)

	result, err := f.archiver.Archive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Archived)
	assert.Zero(t, result.Deleted)
	require.Len(t, result.Objects, 2)
	assert.True(t, strings.HasPrefix(result.Objects[0], "sessions/dt=2024-03-01/sessions_20240305120000_"))
	assert.True(t, strings.HasPrefix(result.Objects[1], "sessions/dt=2024-03-02/sessions_20240305120000_"))

	for _, object := range result.Objects {
		data, err := os.ReadFile(filepath.Join(f.baseDir, filepath.FromSlash(object)))
		require.NoError(t, err)
		require.Greater(t, len(data), 8)
		assert.Equal(t, "PAR1", string(data[:4]))
		assert.Equal(t, "PAR1", string(data[len(data)-4:]))
		assert.NotContains(t, string(data), "hunter2")
	}

	archived, err := f.repo.FindApplication(context.Background(), "s1")
	require.NoError(t, err, "records are kept unless delete_archived is set")
	require.NotNil(t, archived.ArchivedAt)
	assert.True(t, archived.ArchivedAt.Equal(time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)))
	running, err := f.repo.FindApplication(context.Background(), "s4")
	require.NoError(t, err)
	assert.Nil(t, running.ArchivedAt)
	assert.Equal(t, []string{"archive_export"}, f.recorder.names)
	assert.Equal(t, []string{"success"}, f.recorder.statuses)
}

func TestArchiver_DeletesArchivedSessions(t *testing.T) {
	f := newArchiveFixture(t, true)
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	f.save(t, "done", model.ApplicationStateError, created)
	f.save(t, "busy", model.ApplicationStateBusy, created)

	result, err := f.archiver.Archive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Archived)
	assert.Equal(t, 1, result.Deleted)

	_, err = f.repo.FindApplication(context.Background(), "done")
	assert.Error(t, err)
	_, err = f.repo.FindApplication(context.Background(), "busy")
	assert.NoError(t, err)
}

func TestArchiver_NothingToArchive(t *testing.T) {
	f := newArchiveFixture(t, true)
	f.save(t, "running", model.ApplicationStateIdle, time.Now())

	result, err := f.archiver.Archive(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Archived)
	assert.Empty(t, result.Objects)
	assert.Equal(t, []string{"success"}, f.recorder.statuses)
}

func TestArchiver_UnknownStorage(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Lighter.Archive.StorageRef = "missing"
	repo := inmemory.NewInMemorySessionRepository()
	_, err := repo.SaveApplication(context.Background(), &model.Application{ID: "done", Type: model.ApplicationTypeSession, State: model.ApplicationStateSuccess})
	require.NoError(t, err)

	recorder := &durationRecorder{}
	archiver := usecase.NewArchiver(usecase.ArchiverParams{
		Cfg:      cfg,
		Storage:  repo,
		Resolver: storage.NewConnectionResolver(storage.ResolverParams{Cfg: cfg}),
		Recorder: recorder,
		Clock:    test.NewFakeClock(time.Now()),
	})

	_, err = archiver.Archive(context.Background())
	assert.ErrorContains(t, err, "missing")
	assert.Equal(t, []string{"failure"}, recorder.statuses)

	_, err = repo.FindApplication(context.Background(), "done")
	assert.NoError(t, err)
}

func TestArchiver_KeptSessionsAreExportedOnce(t *testing.T) {
	f := newArchiveFixture(t, false)
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		f.save(t, fmt.Sprintf("s%02d", i), model.ApplicationStateSuccess, created)
	}

	first, err := f.archiver.Archive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, first.Archived)

	second, err := f.archiver.Archive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, second.Archived)

	third, err := f.archiver.Archive(context.Background())
	require.NoError(t, err)
	assert.Zero(t, third.Archived)
	assert.Empty(t, third.Objects)

	for i := 0; i < 12; i++ {
		app, err := f.repo.FindApplication(context.Background(), fmt.Sprintf("s%02d", i))
		require.NoError(t, err)
		assert.NotNil(t, app.ArchivedAt, app.ID)
	}
	names, err := f.archiver.ListArchives(context.Background())
	require.NoError(t, err)
	assert.Len(t, names, 2)
}

func (f *archiveFixture) writeObject(t *testing.T, objectName string) {
	t.Helper()
	fullPath := filepath.Join(f.baseDir, filepath.FromSlash(objectName))
	require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0o755))
	require.NoError(t, os.WriteFile(fullPath, []byte("PAR1"), 0o644))
}

func TestArchiver_PrunesObjectsPastRetention(t *testing.T) {
	f := newArchiveFixtureWith(t, config.ArchiveConfig{StorageRef: "archive", Prefix: "sessions", BatchSize: 10, RetentionDays: 2})
	f.writeObject(t, "sessions/dt=2024-02-20/sessions_20240301000000_aaaaaaaa.parquet")
	f.writeObject(t, "sessions/dt=2024-02-20/sessions_20240303115959_bbbbbbbb.parquet")
	f.writeObject(t, "sessions/dt=2024-02-20/sessions_20240303120000_cccccccc.parquet")
	f.writeObject(t, "sessions/dt=2024-02-20/notes.txt")
	f.save(t, "old", model.ApplicationStateSuccess, time.Date(2024, 2, 20, 10, 0, 0, 0, time.UTC))

	result, err := f.archiver.Archive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Archived)
	assert.Equal(t, 2, result.Pruned)

	names, err := f.archiver.ListArchives(context.Background())
	require.NoError(t, err)
	require.Len(t, names, 2)
	assert.Equal(t, "sessions/dt=2024-02-20/sessions_20240303120000_cccccccc.parquet", names[0])
	assert.Equal(t, result.Objects[0], names[1])
	assert.FileExists(t, filepath.Join(f.baseDir, "sessions", "dt=2024-02-20", "notes.txt"))
}

func TestArchiver_OpenArchive(t *testing.T) {
	f := newArchiveFixture(t, false)
	f.save(t, "s1", model.ApplicationStateSuccess, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	result, err := f.archiver.Archive(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Objects, 1)

	r, err := f.archiver.OpenArchive(context.Background(), result.Objects[0])
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, r.Close())
	require.NoError(t, err)
	assert.Equal(t, "PAR1", string(data[:4]))

	for _, name := range []string{
		"sessions/dt=2024-03-01/missing.parquet",
		"sessions/../secrets.parquet",
		"other/dt=2024-03-01/a.parquet",
		"sessions/dt=2024-03-01/notes.txt",
	} {
		_, err := f.archiver.OpenArchive(context.Background(), name)
		assert.ErrorIs(t, err, usecase.ErrArchiveNotFound, name)
	}
}
