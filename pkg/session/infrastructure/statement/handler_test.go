package statement_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"
	"github.com/hjyangBig2/lighter/pkg/session/infrastructure/repository/inmemory"
	"github.com/hjyangBig2/lighter/pkg/session/infrastructure/statement"
	"github.com/hjyangBig2/lighter/pkg/session/support/util/exception"
	testutil "github.com/hjyangBig2/lighter/pkg/session/test"
)

var start = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newHandler() *statement.StorageStatementHandler {
	return statement.NewStorageStatementHandler(inmemory.NewInMemorySessionRepository(), testutil.NewFakeClock(start))
}

func TestStorageStatementHandler_ProcessStatement(t *testing.T) {
	h := newHandler()
	ctx := context.Background()

	submitted, err := h.ProcessStatement(ctx, "s1", &model.Statement{ID: "caller-id", Code: "1 + 1", State: model.StatementStateAvailable})
	require.NoError(t, err)
	assert.NotEqual(t, "caller-id", submitted.ID)
	assert.NotEmpty(t, submitted.ID)
	assert.Equal(t, "1 + 1", submitted.Code)
	assert.Equal(t, model.StatementStateWaiting, submitted.State)
	assert.Equal(t, start, submitted.CreatedAt)
	assert.False(t, submitted.HasOutput())

	found, err := h.GetStatement(ctx, "s1", submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, submitted, found)

	waiting, err := h.HasWaitingStatement(ctx, &model.Application{ID: "s1"})
	require.NoError(t, err)
	assert.True(t, waiting)

	waiting, err = h.HasWaitingStatement(ctx, &model.Application{ID: "s2"})
	require.NoError(t, err)
	assert.False(t, waiting)
}

func TestStorageStatementHandler_GetStatementUnknown(t *testing.T) {
	h := newHandler()

	stmt, err := h.GetStatement(context.Background(), "s1", "nope")
	assert.NoError(t, err)
	assert.Nil(t, stmt)

	stmt, err = h.CancelStatement(context.Background(), "s1", "nope")
	assert.NoError(t, err)
	assert.Nil(t, stmt)

	stmt, err = h.ReportResult(context.Background(), "s1", "nope", model.StatementOutput{Status: "ok"})
	assert.NoError(t, err)
	assert.Nil(t, stmt)
}

func TestStorageStatementHandler_ReportResult(t *testing.T) {
	tests := []struct {
		name   string
		status string
		want   model.StatementState
	}{
		{"ok", "ok", model.StatementStateAvailable},
		{"error", statement.OutputStatusError, model.StatementStateError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandler()
			ctx := context.Background()
			submitted, err := h.ProcessStatement(ctx, "s1", &model.Statement{Code: "x"})
			require.NoError(t, err)

			done, err := h.ReportResult(ctx, "s1", submitted.ID, model.StatementOutput{Status: tt.status, Data: map[string]interface{}{"text/plain": "42"}})
			require.NoError(t, err)
			assert.Equal(t, tt.want, done.State)
			require.True(t, done.HasOutput())

			found, err := h.GetStatement(ctx, "s1", submitted.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, found.State)
			assert.Equal(t, "42", found.Output.Data["text/plain"])

			waiting, err := h.HasWaitingStatement(ctx, &model.Application{ID: "s1"})
			require.NoError(t, err)
			assert.False(t, waiting)
		})
	}
}

func TestStorageStatementHandler_Cancel(t *testing.T) {
	h := newHandler()
	ctx := context.Background()
	submitted, err := h.ProcessStatement(ctx, "s1", &model.Statement{Code: "sleep(100)"})
	require.NoError(t, err)

	canceled, err := h.CancelStatement(ctx, "s1", submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatementStateCanceled, canceled.State)
	assert.False(t, canceled.HasOutput())

	late, err := h.ReportResult(ctx, "s1", submitted.ID, model.StatementOutput{Status: "ok"})
	require.NoError(t, err)
	assert.Equal(t, model.StatementStateCanceled, late.State, "results after cancel are discarded")
	assert.False(t, late.HasOutput())

	again, err := h.CancelStatement(ctx, "s1", submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatementStateCanceled, again.State)
}

func TestStorageStatementHandler_CancelFinishedKeepsOutput(t *testing.T) {
	h := newHandler()
	ctx := context.Background()
	submitted, err := h.ProcessStatement(ctx, "s1", &model.Statement{Code: "1"})
	require.NoError(t, err)
	_, err = h.ReportResult(ctx, "s1", submitted.ID, model.StatementOutput{Status: "ok"})
	require.NoError(t, err)

	stmt, err := h.CancelStatement(ctx, "s1", submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatementStateAvailable, stmt.State)
	assert.True(t, stmt.HasOutput())
}

func TestStorageStatementHandler_StorageErrors(t *testing.T) {
	storage := new(testutil.MockStatementStorage)
	h := statement.NewStorageStatementHandler(storage, testutil.NewFakeClock(start))
	ctx := context.Background()
	dbErr := errors.New("connection reset by peer")

	storage.On("CreateStatement", ctx, "s1", testifymock.Anything).Return(nil, dbErr)
	storage.On("FindStatement", ctx, "s1", "st1").Return(nil, dbErr)
	storage.On("FindStatementsByState", ctx, "s1", model.StatementStateWaiting).Return(nil, dbErr)

	_, err := h.ProcessStatement(ctx, "s1", &model.Statement{Code: "x"})
	assertStatementError(t, err, dbErr)

	_, err = h.GetStatement(ctx, "s1", "st1")
	assertStatementError(t, err, dbErr)

	_, err = h.CancelStatement(ctx, "s1", "st1")
	assertStatementError(t, err, dbErr)

	_, err = h.HasWaitingStatement(ctx, &model.Application{ID: "s1"})
	assertStatementError(t, err, dbErr)
}

func assertStatementError(t *testing.T, err, cause error) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	var se *exception.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "statement", se.Module)
}

// interleavingStorage runs afterFind once, right after the next FindStatement read,
// so a competing call lands between a handler's read and its write.
type interleavingStorage struct {
	*inmemory.InMemorySessionRepository
	afterFind func()
}

func (s *interleavingStorage) FindStatement(ctx context.Context, sessionID, statementID string) (*model.Statement, error) {
	stmt, err := s.InMemorySessionRepository.FindStatement(ctx, sessionID, statementID)
	if hook := s.afterFind; hook != nil {
		s.afterFind = nil
		hook()
	}
	return stmt, err
}

func TestStorageStatementHandler_CancelRacingResultKeepsResult(t *testing.T) {
	storage := &interleavingStorage{InMemorySessionRepository: inmemory.NewInMemorySessionRepository()}
	h := statement.NewStorageStatementHandler(storage, testutil.NewFakeClock(start))
	ctx := context.Background()
	submitted, err := h.ProcessStatement(ctx, "s1", &model.Statement{Code: "1 + 1"})
	require.NoError(t, err)

	var reported *model.Statement
	var reportErr error
	storage.afterFind = func() {
		reported, reportErr = h.ReportResult(ctx, "s1", submitted.ID, model.StatementOutput{Status: "ok"})
	}

	canceled, err := h.CancelStatement(ctx, "s1", submitted.ID)
	require.NoError(t, err)
	require.NoError(t, reportErr)
	require.NotNil(t, reported)
	assert.Equal(t, model.StatementStateAvailable, reported.State)
	assert.Equal(t, model.StatementStateAvailable, canceled.State)
	assert.True(t, canceled.HasOutput())

	stored, err := h.GetStatement(ctx, "s1", submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatementStateAvailable, stored.State)
	require.True(t, stored.HasOutput())
	assert.Equal(t, "ok", stored.Output.Status)
}

func TestStorageStatementHandler_ResultRacingCancelIsDiscarded(t *testing.T) {
	storage := &interleavingStorage{InMemorySessionRepository: inmemory.NewInMemorySessionRepository()}
	h := statement.NewStorageStatementHandler(storage, testutil.NewFakeClock(start))
	ctx := context.Background()
	submitted, err := h.ProcessStatement(ctx, "s1", &model.Statement{Code: "sleep(100)"})
	require.NoError(t, err)

	storage.afterFind = func() {
		_, err := h.CancelStatement(ctx, "s1", submitted.ID)
		require.NoError(t, err)
	}

	late, err := h.ReportResult(ctx, "s1", submitted.ID, model.StatementOutput{Status: "ok"})
	require.NoError(t, err)
	assert.Equal(t, model.StatementStateCanceled, late.State)
	assert.False(t, late.HasOutput())

	stored, err := h.GetStatement(ctx, "s1", submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatementStateCanceled, stored.State)
	assert.False(t, stored.HasOutput())
}
