package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/revenueshare/internal/attribution"
	"github.com/smallbiznis/revenueshare/internal/authorization"
	"github.com/smallbiznis/revenueshare/internal/clock"
	"github.com/smallbiznis/revenueshare/internal/config"
	"github.com/smallbiznis/revenueshare/internal/observability"
	"github.com/smallbiznis/revenueshare/internal/payout"
	"github.com/smallbiznis/revenueshare/internal/pricing"
	"github.com/smallbiznis/revenueshare/internal/revenueshare"
	"github.com/smallbiznis/revenueshare/internal/scheduler"
	"github.com/smallbiznis/revenueshare/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		authorization.Module,

		// Domain services required by payout generation
		pricing.Module,
		attribution.Module,
		revenueshare.Module,
		payout.Module,

		// No server module!
		fx.Provide(scheduler.ProvideConfig),
		fx.Provide(scheduler.New),
		// Runs regardless of SCHEDULER_ENABLED, this binary exists for it.
		fx.Invoke(scheduler.Start),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(3)
	if err != nil {
		panic(err)
	}
	return node
}
