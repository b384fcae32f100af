// Package migration applies the schema of the SQL session repository with golang-migrate.
package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/hjyangBig2/lighter/pkg/session/adapter/database"
	"github.com/hjyangBig2/lighter/pkg/session/support/util/logger"
)

// MigrationsTable is the version table golang-migrate keeps.
const MigrationsTable = "lighter_schema_migrations"

//go:embed sql
var migrationFS embed.FS

// Migrator applies the embedded migrations of the connection's dialect.
type Migrator struct {
	conn database.DBConnection
}

// NewMigrator creates a Migrator for conn.
func NewMigrator(conn database.DBConnection) *Migrator {
	return &Migrator{conn: conn}
}

func databaseDriver(dbType string, sqlDB *sql.DB) (migratedb.Driver, error) {
	switch dbType {
	case "postgres":
		return postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: MigrationsTable})
	case "mysql":
		return mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: MigrationsTable})
	case "sqlite":
		return sqlite.WithInstance(sqlDB, &sqlite.Config{MigrationsTable: MigrationsTable})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", dbType)
	}
}

// Up applies all pending migrations. An up-to-date schema is not an error.
func (m *Migrator) Up(ctx context.Context) error {
	dbType := m.conn.Type()
	sqlDB, err := m.conn.GetSQLDB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	path := "sql/" + dbType
	sourceDriver, err := iofs.New(migrationFS, path)
	if err != nil {
		return fmt.Errorf("failed to create iofs source driver for path %s: %w", path, err)
	}
	// The migrate instance is not closed: closing it would close the shared connection pool.
	defer sourceDriver.Close()

	dbDriver, err := databaseDriver(dbType, sqlDB)
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}
	instance, err := migrate.NewWithInstance("iofs", sourceDriver, dbType, dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	logger.Infof("Applying migrations to '%s' (%s).", m.conn.Name(), dbType)
	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		if version, dirty, verr := instance.Version(); verr == nil {
			logger.Errorf("Migration of '%s' failed at version %d (dirty: %t).", m.conn.Name(), version, dirty)
		}
		return fmt.Errorf("migration failed for '%s': %w", m.conn.Name(), err)
	}

	version, _, err := instance.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return err
	}
	logger.Infof("Schema of '%s' is at version %d.", m.conn.Name(), version)
	return nil
}
