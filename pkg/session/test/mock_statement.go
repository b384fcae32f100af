package test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/hjyangBig2/lighter/pkg/session/core/domain/model"
	"github.com/hjyangBig2/lighter/pkg/session/core/ports"
)

// MockStatementHandler is a testify mock of ports.StatementHandler.
type MockStatementHandler struct {
	mock.Mock
}

var _ ports.StatementHandler = (*MockStatementHandler)(nil)

// ProcessStatement mocks the ProcessStatement method.
func (m *MockStatementHandler) ProcessStatement(ctx context.Context, sessionID string, stmt *model.Statement) (*model.Statement, error) {
	args := m.Called(ctx, sessionID, stmt)
	s, _ := args.Get(0).(*model.Statement)
	return s, args.Error(1)
}

// GetStatement mocks the GetStatement method.
func (m *MockStatementHandler) GetStatement(ctx context.Context, sessionID, statementID string) (*model.Statement, error) {
	args := m.Called(ctx, sessionID, statementID)
	s, _ := args.Get(0).(*model.Statement)
	return s, args.Error(1)
}

// CancelStatement mocks the CancelStatement method.
func (m *MockStatementHandler) CancelStatement(ctx context.Context, sessionID, statementID string) (*model.Statement, error) {
	args := m.Called(ctx, sessionID, statementID)
	s, _ := args.Get(0).(*model.Statement)
	return s, args.Error(1)
}

// HasWaitingStatement mocks the HasWaitingStatement method.
func (m *MockStatementHandler) HasWaitingStatement(ctx context.Context, app *model.Application) (bool, error) {
	args := m.Called(ctx, app)
	return args.Bool(0), args.Error(1)
}
