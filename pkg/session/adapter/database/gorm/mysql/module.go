package mysql

import (
	"go.uber.org/fx"

	"github.com/hjyangBig2/lighter/pkg/session/adapter/database"
)

// Module exports the mysql DBProvider into the db_providers group.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewProvider,
			fx.ResultTags(`group:"`+database.DBProviderGroup+`"`),
		),
	),
)
