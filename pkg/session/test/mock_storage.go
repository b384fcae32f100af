package test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"
	"github.com/hjyangBig2/lighter/pkg/session/core/domain/repository"
)

// MockApplicationStorage is a testify mock of repository.ApplicationStorage.
type MockApplicationStorage struct {
	mock.Mock
}

var _ repository.ApplicationStorage = (*MockApplicationStorage)(nil)

// FindApplications mocks the FindApplications method.
func (m *MockApplicationStorage) FindApplications(ctx context.Context, typ model.ApplicationType, offset, limit int) ([]*model.Application, error) {
	args := m.Called(ctx, typ, offset, limit)
	apps, _ := args.Get(0).([]*model.Application)
	return apps, args.Error(1)
}

// FindApplicationsByStates mocks the FindApplicationsByStates method.
func (m *MockApplicationStorage) FindApplicationsByStates(ctx context.Context, typ model.ApplicationType, states []model.ApplicationState, limit int) ([]*model.Application, error) {
	args := m.Called(ctx, typ, states, limit)
	apps, _ := args.Get(0).([]*model.Application)
	return apps, args.Error(1)
}

// FindUnarchivedApplications mocks the FindUnarchivedApplications method.
func (m *MockApplicationStorage) FindUnarchivedApplications(ctx context.Context, typ model.ApplicationType, states []model.ApplicationState, limit int) ([]*model.Application, error) {
	args := m.Called(ctx, typ, states, limit)
	apps, _ := args.Get(0).([]*model.Application)
	return apps, args.Error(1)
}

// MarkApplicationsArchived mocks the MarkApplicationsArchived method.
func (m *MockApplicationStorage) MarkApplicationsArchived(ctx context.Context, ids []string, at time.Time) error {
	args := m.Called(ctx, ids, at)
	return args.Error(0)
}

// FindApplication mocks the FindApplication method.
func (m *MockApplicationStorage) FindApplication(ctx context.Context, id string) (*model.Application, error) {
	args := m.Called(ctx, id)
	app, _ := args.Get(0).(*model.Application)
	return app, args.Error(1)
}

// SaveApplication mocks the SaveApplication method.
func (m *MockApplicationStorage) SaveApplication(ctx context.Context, app *model.Application) (*model.Application, error) {
	args := m.Called(ctx, app)
	saved, _ := args.Get(0).(*model.Application)
	return saved, args.Error(1)
}

// DeleteApplication mocks the DeleteApplication method.
func (m *MockApplicationStorage) DeleteApplication(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockStatementStorage is a testify mock of repository.StatementStorage.
type MockStatementStorage struct {
	mock.Mock
}

var _ repository.StatementStorage = (*MockStatementStorage)(nil)

// CreateStatement mocks the CreateStatement method.
func (m *MockStatementStorage) CreateStatement(ctx context.Context, sessionID string, stmt *model.Statement) (*model.Statement, error) {
	args := m.Called(ctx, sessionID, stmt)
	created, _ := args.Get(0).(*model.Statement)
	return created, args.Error(1)
}

// FindStatement mocks the FindStatement method.
func (m *MockStatementStorage) FindStatement(ctx context.Context, sessionID, statementID string) (*model.Statement, error) {
	args := m.Called(ctx, sessionID, statementID)
	stmt, _ := args.Get(0).(*model.Statement)
	return stmt, args.Error(1)
}

// TransitionStatement mocks the TransitionStatement method.
func (m *MockStatementStorage) TransitionStatement(ctx context.Context, sessionID string, from model.StatementState, stmt *model.Statement) (bool, error) {
	args := m.Called(ctx, sessionID, from, stmt)
	return args.Bool(0), args.Error(1)
}

// FindStatementsByState mocks the FindStatementsByState method.
func (m *MockStatementStorage) FindStatementsByState(ctx context.Context, sessionID string, state model.StatementState) ([]*model.Statement, error) {
	args := m.Called(ctx, sessionID, state)
	statements, _ := args.Get(0).([]*model.Statement)
	return statements, args.Error(1)
}
