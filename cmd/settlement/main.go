package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/ironlot/settlement/internal/config"
	"github.com/ironlot/settlement/internal/migration"
	"github.com/ironlot/settlement/internal/observability"
	"github.com/ironlot/settlement/internal/server"
	"github.com/ironlot/settlement/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
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
