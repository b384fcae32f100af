package test

import (
	"context"
	"database/sql"
	"errors"

	"github.com/stretchr/testify/mock"

	"github.com/hjyangBig2/lighter/pkg/session/adapter/database"
)

// MockDBConnection is a testify mock of database.DBConnection.
type MockDBConnection struct {
	mock.Mock
}

var _ database.DBConnection = (*MockDBConnection)(nil)

func (m *MockDBConnection) ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (int64, error) {
	args := m.Called(ctx, model, operation, tableName, query)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDBConnection) ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (int64, error) {
	args := m.Called(ctx, model, tableName, conflictColumns, updateColumns)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDBConnection) ExecuteQuery(ctx context.Context, target interface{}, query map[string]interface{}) error {
	args := m.Called(ctx, target, query)
	return args.Error(0)
}

func (m *MockDBConnection) ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, offset, limit int) error {
	args := m.Called(ctx, target, query, orderBy, offset, limit)
	return args.Error(0)
}

func (m *MockDBConnection) Type() string {
	return "mock_db"
}

func (m *MockDBConnection) Name() string {
	return "mock_db"
}

func (m *MockDBConnection) Close() error {
	return nil
}

// IsTableNotExistError reports whether err wraps ErrTableMissing.
func (m *MockDBConnection) IsTableNotExistError(err error) bool {
	return errors.Is(err, ErrTableMissing)
}

func (m *MockDBConnection) RefreshConnection(ctx context.Context) error {
	return nil
}

func (m *MockDBConnection) GetSQLDB() (*sql.DB, error) {
	return nil, nil
}

// ErrTableMissing is the error MockDBConnection treats as a missing table.
var ErrTableMissing = errors.New("no such table: session_application")

// testSingleConnectionResolver always resolves the same connection.
type testSingleConnectionResolver struct {
	conn database.DBConnection
}

func (r *testSingleConnectionResolver) ResolveDBConnection(ctx context.Context, name string) (database.DBConnection, error) {
	return r.conn, nil
}

// NewTestSingleConnectionResolver creates a database.DBConnectionResolver that always returns conn.
func NewTestSingleConnectionResolver(conn database.DBConnection) database.DBConnectionResolver {
	return &testSingleConnectionResolver{conn: conn}
}
