package llm

import "go.uber.org/fx"

// Module is an Fx module that provides the generation backend client and the
// schema generator built on top of it.
var Module = fx.Options(
	fx.Provide(
		NewHTTPGenerator,
		func(g *HTTPGenerator) Generator { return g },
		NewSchemaGenerator,
	),
)
