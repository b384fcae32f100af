// Package app assembles the Lighter session service from its Fx modules.
package app

import (
	"context"
	"strings"

	"go.uber.org/fx"

	"github.com/hjyangBig2/lighter/pkg/session/adapter/database/gorm"
	"github.com/hjyangBig2/lighter/pkg/session/adapter/database/gorm/mysql"
	"github.com/hjyangBig2/lighter/pkg/session/adapter/database/gorm/postgres"
	"github.com/hjyangBig2/lighter/pkg/session/adapter/database/gorm/sqlite"
	"github.com/hjyangBig2/lighter/pkg/session/adapter/storage"
	"github.com/hjyangBig2/lighter/pkg/session/adapter/storage/gcs"
	"github.com/hjyangBig2/lighter/pkg/session/adapter/storage/local"
	"github.com/hjyangBig2/lighter/pkg/session/core/application/usecase"
	"github.com/hjyangBig2/lighter/pkg/session/core/config"
	"github.com/hjyangBig2/lighter/pkg/session/infrastructure/backend/dummy"
	"github.com/hjyangBig2/lighter/pkg/session/infrastructure/metrics"
	"github.com/hjyangBig2/lighter/pkg/session/infrastructure/repository/inmemory"
	"github.com/hjyangBig2/lighter/pkg/session/infrastructure/repository/sql"
	"github.com/hjyangBig2/lighter/pkg/session/infrastructure/statement"
	"github.com/hjyangBig2/lighter/pkg/session/infrastructure/telemetry"
	"github.com/hjyangBig2/lighter/pkg/session/rest"
	"github.com/hjyangBig2/lighter/pkg/session/support/util/logger"
)

// DBProviderModules maps a DB_ADAPTORS entry to the module registering its provider.
var DBProviderModules = map[string]fx.Option{
	"sqlite":   sqlite.Module,
	"postgres": postgres.Module,
	"mysql":    mysql.Module,
}

// DBProviderOptions returns the provider modules named in adaptors, a comma-separated list.
// Unknown names are skipped with a warning.
func DBProviderOptions(adaptors string) []fx.Option {
	options := make([]fx.Option, 0)
	for _, name := range strings.Split(adaptors, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		module, ok := DBProviderModules[name]
		if !ok {
			logger.Warnf("DB provider '%s' is not supported. Skipping.", name)
			continue
		}
		options = append(options, module)
		logger.Debugf("DB provider '%s' registered.", name)
	}
	return options
}

// repositoryOptions installs the record store named by lighter.infrastructure.repository.
func repositoryOptions(cfg *config.Config, dbProviderOptions []fx.Option) fx.Option {
	if cfg.Lighter.Infrastructure.Repository == "sql" {
		return fx.Options(
			fx.Options(dbProviderOptions...),
			gorm.Module,
			sql.Module,
		)
	}
	return inmemory.Module
}

// NewApplication builds the container. Options in extra are appended last, which lets callers
// replace or add components.
func NewApplication(cfg *config.Config, dbProviderOptions []fx.Option, extra ...fx.Option) *fx.App {
	return fx.New(
		fx.Supply(cfg),
		logger.Module,
		config.Module,

		telemetry.Module,
		metrics.Module,

		repositoryOptions(cfg, dbProviderOptions),
		storage.Module,
		local.Module,
		gcs.Module,

		dummy.Module,
		statement.Module,
		usecase.Module,
		rest.Module,

		fx.Options(extra...),
	)
}

// RunApplication loads the configuration and runs the service until ctx is done.
func RunApplication(ctx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig, dbProviderOptions []fx.Option) error {
	cfg, err := config.NewConfigProvider(config.ConfigParams{
		EmbeddedConfig: embeddedConfig,
		Expander:       config.NewOsEnvironmentExpander(),
		EnvFilePath:    envFilePath,
	})
	if err != nil {
		return err
	}

	app := NewApplication(cfg, dbProviderOptions)
	startCtx, cancelStart := context.WithTimeout(ctx, app.StartTimeout())
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		return err
	}
	logger.Infof("Lighter session service started.")

	<-ctx.Done()
	logger.Infof("Shutting down.")

	stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancel()
	return app.Stop(stopCtx)
}
