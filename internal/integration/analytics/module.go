package analytics

import "go.uber.org/fx"

// Module is an Fx module that provides the analytics dataset client.
var Module = fx.Options(
	fx.Provide(
		NewRestClient,
		func(c *RestClient) Client { return c },
	),
)
