package main

import (
	"context"
	"flag"

	"roundup-pipeline-go/internal/common"
	"roundup-pipeline-go/internal/config"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	seedFlag := flag.String("seed", "seed.yaml", "Path to the YAML seed file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	zap.L().Info("Setting up SQLite database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	zap.L().Info("Loading seed file", zap.String("file", *seedFlag))
	seed, err := common.LoadSeedConfig(*seedFlag)
	if err != nil {
		zap.L().Fatal("Failed to load seed file", zap.Error(err))
	}

	if err := common.ApplySeed(ctx, dbService, seed); err != nil {
		zap.L().Fatal("Failed to apply seed", zap.Error(err))
	}

	zap.L().Info("Setup complete")
}
