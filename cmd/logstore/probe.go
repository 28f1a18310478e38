package main

import (
	"fmt"
	"path/filepath"

	"go-logstore/internal/config"
	"go-logstore/internal/database"
	"go-logstore/internal/logging"
	"go-logstore/internal/repositories"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func probeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check that the configured storage engine works on this platform",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd)
		},
	}
}

func runProbe(cmd *cobra.Command) error {
	applyStoreFlags()
	cfg, err := config.LoadConfig(nil)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger := logging.NewFileLogger(cfg, nil)
	defer logger.Sync()

	gw, err := database.New(cfg.StoreDriver, cfg.StoreDBDir, logger)
	if err != nil {
		return err
	}
	res := repositories.Probe(cmd.Context(), gw, cfg.StoreDBName)
	fields := []zap.Field{
		zap.String("driver", res.Driver),
		zap.String("platform", res.Platform),
		zap.String("path", filepath.Join(cfg.StoreDBDir, cfg.StoreDBName)),
		zap.Duration("duration", res.Duration),
	}
	if !res.Success {
		logger.Error("Probe failed", append(fields, zap.Error(res.Err))...)
		return res.Err
	}
	logger.Info("Probe succeeded", fields...)
	return nil
}
