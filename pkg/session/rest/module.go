package rest

import (
	"go.uber.org/fx"

	"github.com/hjyangBig2/lighter/pkg/session/core/application/usecase"
	"github.com/hjyangBig2/lighter/pkg/session/infrastructure/statement"
)

// Module serves the REST API. It expects the coordinator, the statement handler, the sweeper,
// the archiver and a Prometheus gatherer in the graph.
var Module = fx.Options(
	fx.Provide(
		func(h *statement.StorageStatementHandler) ResultReporter { return h },
		func(s *usecase.Sweeper) OrphanSweeper { return s },
		func(a *usecase.Archiver) SessionArchiver { return a },
	),
	fx.Provide(NewHandler),
	fx.Provide(NewServer),
	fx.Invoke(registerServer),
)
