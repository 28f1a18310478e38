package main

import (
	"context"
	"fmt"
	"os"

	"go-logstore/internal/bootstrap"
	"go-logstore/internal/config"
	"go-logstore/internal/logging"
	"go-logstore/internal/repositories"

	"go.uber.org/zap"
)

// applyStoreFlags pushes the persistent flags into the environment so that
// config.LoadConfig sees them for every subcommand, serve included.
func applyStoreFlags() {
	for key, val := range map[string]string{
		"STORE_DRIVER":  driverFlag,
		"STORE_DB_DIR":  dirFlag,
		"STORE_DB_NAME": nameFlag,
	} {
		if val != "" {
			_ = os.Setenv(key, val)
		}
	}
}

// openStore loads configuration, builds a console-only logger and opens the
// log store, waiting for it to settle.
func openStore(ctx context.Context) (*repositories.HybridLogRepository, *zap.Logger, error) {
	applyStoreFlags()
	cfg, err := config.LoadConfig(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	loggers, err := logging.InitializeLoggers(cfg, nil, nil, "")
	if err != nil {
		return nil, nil, err
	}
	logger := loggers.File

	repo, err := bootstrap.OpenStore(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	waitCtx, cancel := context.WithTimeout(ctx, cfg.StoreInitTimeout)
	defer cancel()
	bootstrap.WaitForStore(waitCtx, repo, logger)
	return repo, logger, nil
}

func closeStore(repo *repositories.HybridLogRepository, logger *zap.Logger) {
	if err := repo.Close(); err != nil {
		logger.Warn("Error closing log store", zap.Error(err))
	}
	_ = logger.Sync()
}
