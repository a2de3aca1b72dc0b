package metrics

import "go.uber.org/fx"

// Module is an Fx module that provides no-op metric implementations.
// Applications that want real backends override these with the
// infrastructure metrics module.
var Module = fx.Options(
	fx.Provide(NewNoopRecorder),
	fx.Provide(NewNoopTracer),
)
