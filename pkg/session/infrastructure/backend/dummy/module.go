package dummy

import (
	"go.uber.org/fx"

	"github.com/hjyangBig2/lighter/pkg/session/core/ports"
)

// Module provides the dummy Backend as ports.Backend, ports.LiveSessionLister and ports.ClusterSimulator.
var Module = fx.Options(
	fx.Provide(NewBackend),
	fx.Provide(func(b *Backend) (ports.Backend, ports.LiveSessionLister, ports.ClusterSimulator) { return b, b, b }),
)
