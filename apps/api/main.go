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
	"github.com/smallbiznis/revenueshare/internal/reporting"
	"github.com/smallbiznis/revenueshare/internal/revenueshare"
	"github.com/smallbiznis/revenueshare/internal/server"
	"github.com/smallbiznis/revenueshare/internal/statement"
	"github.com/smallbiznis/revenueshare/internal/transaction"
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

		pricing.Module,
		attribution.Module,
		revenueshare.Module,
		transaction.Module,
		payout.Module,
		reporting.Module,
		statement.Module,

		// No scheduler here; apps/scheduler owns periodic generation.
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}
