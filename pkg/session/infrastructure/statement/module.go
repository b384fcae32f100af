package statement

import (
	"go.uber.org/fx"

	"github.com/hjyangBig2/lighter/pkg/session/core/ports"
)

// Module provides StorageStatementHandler as ports.StatementHandler.
var Module = fx.Options(
	fx.Provide(NewStorageStatementHandler),
	fx.Provide(func(h *StorageStatementHandler) ports.StatementHandler { return h }),
)
