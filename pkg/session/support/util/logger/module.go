package logger

import "go.uber.org/fx"

// Module routes Fx container events through this package.
var Module = fx.Options(
	fx.WithLogger(NewFxLoggerAdapter),
)
