package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shopbooks/internal/clock"
	"github.com/smallbiznis/shopbooks/internal/config"
	"github.com/smallbiznis/shopbooks/internal/entity"
	"github.com/smallbiznis/shopbooks/internal/ledger"
	"github.com/smallbiznis/shopbooks/internal/migration"
	"github.com/smallbiznis/shopbooks/internal/observability"
	"github.com/smallbiznis/shopbooks/internal/persistence"
	"github.com/smallbiznis/shopbooks/internal/ratelimit"
	"github.com/smallbiznis/shopbooks/internal/reconcile"
	"github.com/smallbiznis/shopbooks/internal/refresh"
	"github.com/smallbiznis/shopbooks/internal/server"
	"github.com/smallbiznis/shopbooks/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		persistence.Module,

		// Books
		ledger.Module,
		entity.Module,
		refresh.Module,
		reconcile.Module,

		ratelimit.Module,
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
