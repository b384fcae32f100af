package sql

import (
	"context"

	"go.uber.org/fx"

	"github.com/hjyangBig2/lighter/pkg/session/adapter/database"
	"github.com/hjyangBig2/lighter/pkg/session/adapter/database/migration"
	"github.com/hjyangBig2/lighter/pkg/session/core/config"
	"github.com/hjyangBig2/lighter/pkg/session/core/domain/repository"
)

// RepositoryParams defines the dependencies of NewSessionRepository.
type RepositoryParams struct {
	fx.In
	DBResolver database.DBConnectionResolver
	Cfg        *config.Config
}

// NewSessionRepository creates the repository on lighter.infrastructure.storage_db_ref, defaulting to "lighter".
func NewSessionRepository(p RepositoryParams) *SQLSessionRepository {
	dbName := p.Cfg.Lighter.Infrastructure.StorageDBRef
	if dbName == "" {
		dbName = "lighter"
	}
	return NewSQLSessionRepository(p.DBResolver, dbName)
}

// RegisterMigrations applies the schema at start-up when lighter.infrastructure.migrate_on_start is set.
func RegisterMigrations(lc fx.Lifecycle, cfg *config.Config, resolver database.DBConnectionResolver, repo *SQLSessionRepository) {
	if !cfg.Lighter.Infrastructure.MigrateOnStart {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			conn, err := resolver.ResolveDBConnection(ctx, repo.dbName)
			if err != nil {
				return err
			}
			return migration.NewMigrator(conn).Up(ctx)
		},
	})
}

// Module provides SQLSessionRepository as the application, statement and combined repository.
var Module = fx.Options(
	fx.Provide(NewSessionRepository),
	fx.Provide(func(r *SQLSessionRepository) (repository.SessionRepository, repository.ApplicationStorage, repository.StatementStorage) {
		return r, r, r
	}),
	fx.Invoke(RegisterMigrations),
)
