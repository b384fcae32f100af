package usecase

import (
	"context"

	"go.uber.org/fx"

	"github.com/hjyangBig2/lighter/pkg/session/core/config"
	"github.com/hjyangBig2/lighter/pkg/session/core/ports"
)

// RegisterPermanentSessionBootstrap creates the permanent session on start when enabled.
func RegisterPermanentSessionBootstrap(lc fx.Lifecycle, cfg *config.SessionConfig, service SessionService) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_, err := EnsurePermanentSession(ctx, cfg, service)
			return err
		},
	})
}

// Module is an Fx module that provides the session coordinator, the orphan sweeper and the archiver.
var Module = fx.Options(
	fx.Provide(NewStatementPolling),
	fx.Provide(ports.NewSystemClock),
	fx.Provide(fx.Annotate(
		NewDefaultSessionService,
		fx.As(new(SessionService)),
	)),
	fx.Provide(NewSweeper),
	fx.Provide(NewArchiver),
	fx.Invoke(RegisterPermanentSessionBootstrap),
)
