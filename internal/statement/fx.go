package statement

import "go.uber.org/fx"

var Module = fx.Module("statement.service",
	fx.Provide(New),
)
