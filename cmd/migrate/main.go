package main

import (
	"flag"

	"github.com/richxcame/carbon-ledger/pkg/config"
	"github.com/richxcame/carbon-ledger/pkg/database"
	"github.com/richxcame/carbon-ledger/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	direction := flag.String("direction", string(database.Up), "migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load("migrate")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	if err := logger.Init(cfg.Server.Environment); err != nil {
		logger.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync()

	version, err := database.Migrate(cfg.Database.MigrationURL(), database.Direction(*direction))
	if err != nil {
		logger.Fatal("Migration failed", zap.String("direction", *direction), zap.Error(err))
	}

	logger.Info("Migrations applied", zap.String("direction", *direction), zap.Uint("version", version))
}
