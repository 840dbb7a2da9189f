package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/joho/godotenv"
	"github.com/smallbiznis/editorbridge/internal/billing"
	"github.com/smallbiznis/editorbridge/internal/clock"
	"github.com/smallbiznis/editorbridge/internal/config"
	"github.com/smallbiznis/editorbridge/internal/currency"
	"github.com/smallbiznis/editorbridge/internal/ledger"
	"github.com/smallbiznis/editorbridge/internal/lock"
	"github.com/smallbiznis/editorbridge/internal/migration"
	"github.com/smallbiznis/editorbridge/internal/observability/metrics"
	"github.com/smallbiznis/editorbridge/internal/platform"
	"github.com/smallbiznis/editorbridge/internal/scheduler"
	"github.com/smallbiznis/editorbridge/internal/shop"
	"github.com/smallbiznis/editorbridge/pkg/db"
	"github.com/smallbiznis/editorbridge/pkg/log"
	"go.uber.org/fx"
)

// The scheduler binary runs the recurring jobs without exposing any HTTP
// surface, so it can be deployed as a single replica next to the API.
func main() {
	_ = godotenv.Load()

	app := fx.New(
		config.Module,
		log.Module,
		metrics.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		shop.Module,
		currency.Module,
		ledger.Module,
		lock.Module,
		platform.Module,
		billing.Module,

		scheduler.Module,
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
