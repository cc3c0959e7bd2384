package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/revenueshare/internal/attribution"
	"github.com/smallbiznis/revenueshare/internal/authorization"
	"github.com/smallbiznis/revenueshare/internal/clock"
	"github.com/smallbiznis/revenueshare/internal/config"
	"github.com/smallbiznis/revenueshare/internal/migration"
	"github.com/smallbiznis/revenueshare/internal/observability"
	"github.com/smallbiznis/revenueshare/internal/payout"
	"github.com/smallbiznis/revenueshare/internal/pricing"
	"github.com/smallbiznis/revenueshare/internal/reporting"
	"github.com/smallbiznis/revenueshare/internal/revenueshare"
	"github.com/smallbiznis/revenueshare/internal/scheduler"
	"github.com/smallbiznis/revenueshare/internal/server"
	"github.com/smallbiznis/revenueshare/internal/statement"
	"github.com/smallbiznis/revenueshare/internal/transaction"
	"github.com/smallbiznis/revenueshare/pkg/db"
	"go.uber.org/fx"
)

// The monolith serves the HTTP API, applies migrations on start and runs the
// payout scheduler when SCHEDULER_ENABLED is set.
func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		authorization.Module,

		// Functional domains
		pricing.Module,
		attribution.Module,
		revenueshare.Module,
		transaction.Module,
		payout.Module,
		reporting.Module,
		statement.Module,

		scheduler.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
