package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/catalogd/internal/clock"
	"github.com/smallbiznis/catalogd/internal/config"
	"github.com/smallbiznis/catalogd/internal/importjob"
	"github.com/smallbiznis/catalogd/internal/logger"
	"github.com/smallbiznis/catalogd/internal/migration"
	"github.com/smallbiznis/catalogd/internal/observability/metrics"
	"github.com/smallbiznis/catalogd/internal/product"
	"github.com/smallbiznis/catalogd/internal/server"
	"github.com/smallbiznis/catalogd/internal/taskqueue"
	"github.com/smallbiznis/catalogd/internal/webhook"
	"github.com/smallbiznis/catalogd/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		metrics.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		taskqueue.Module,

		// Functional domains
		product.Module,
		importjob.Module,
		webhook.Module,

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
