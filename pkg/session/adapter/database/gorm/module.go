package gorm

import (
	"context"

	"go.uber.org/fx"

	"github.com/hjyangBig2/lighter/pkg/session/adapter/database"
)

// registerShutdown closes every pooled connection when the application stops.
func registerShutdown(lc fx.Lifecycle, r *GormDBConnectionResolver) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return r.CloseAll()
		},
	})
}

// Module exports the connection resolver. Concrete providers are in the dialect subpackages.
var Module = fx.Options(
	fx.Provide(NewGormDBConnectionResolver),
	fx.Provide(func(r *GormDBConnectionResolver) database.DBConnectionResolver { return r }),
	fx.Invoke(registerShutdown),
)
