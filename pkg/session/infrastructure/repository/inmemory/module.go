package inmemory

import (
	"go.uber.org/fx"

	"github.com/hjyangBig2/lighter/pkg/session/core/domain/repository"
)

// Module provides InMemorySessionRepository as the application, statement and combined repository.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewInMemorySessionRepository,
			fx.As(
				new(repository.SessionRepository),
				new(repository.ApplicationStorage),
				new(repository.StatementStorage),
			),
		),
	),
)
