// Package database defines the connection abstraction the SQL session repository is built on.
package database

import (
	"context"
	"database/sql"
)

// DBExecutor defines the write and read operations of a database connection.
type DBExecutor interface {
	// ExecuteUpdate performs a write operation ("CREATE", "UPDATE", "DELETE").
	// UPDATE writes the non-zero fields of model to the rows matching query and model's primary key, if set.
	ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (rowsAffected int64, err error)

	// ExecuteUpsert inserts the model or, on a conflict on conflictColumns, updates updateColumns.
	ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (rowsAffected int64, err error)

	// ExecuteQuery executes a read operation (SELECT) without ordering or paging.
	ExecuteQuery(ctx context.Context, target interface{}, query map[string]interface{}) error

	// ExecuteQueryAdvanced executes a read operation with optional sorting and paging.
	// A limit <= 0 means no limit.
	ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, offset, limit int) error
}

// DBConnection represents a named database connection.
type DBConnection interface {
	DBExecutor

	// Type returns the database type (e.g., "postgres").
	Type() string
	// Name returns the configured connection name.
	Name() string
	// Close closes the connection pool.
	Close() error

	// IsTableNotExistError checks if the given error indicates that a table does not exist.
	IsTableNotExistError(err error) bool
	// RefreshConnection pings the database.
	RefreshConnection(ctx context.Context) error
	// GetSQLDB returns the underlying *sql.DB connection.
	GetSQLDB() (*sql.DB, error)
}

// DBConnectionResolver resolves a healthy connection by name.
type DBConnectionResolver interface {
	// ResolveDBConnection returns the named connection, re-establishing it if the ping fails.
	ResolveDBConnection(ctx context.Context, name string) (DBConnection, error)
}

// DBProvider provides the connections of one database type.
type DBProvider interface {
	// GetConnection retrieves a database connection with the specified name.
	GetConnection(name string) (DBConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the database type handled by this provider.
	Type() string
	// ForceReconnect closes and re-establishes the named connection.
	ForceReconnect(name string) (DBConnection, error)
}

// DBProviderGroup is the Fx group name of all DBProvider implementations.
const DBProviderGroup = "db_providers"
