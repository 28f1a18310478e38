package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func purgeCmd() *cobra.Command {
	var (
		before    int64
		olderThan time.Duration
	)
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete records older than a cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan > 0 {
				before = time.Now().Add(-olderThan).UnixMilli()
			}
			if before <= 0 {
				return errors.New("one of --before or --older-than is required")
			}
			return runPurge(cmd, before)
		},
	}
	cmd.Flags().Int64Var(&before, "before", 0, "delete records with timestamp strictly before this Unix ms")
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "delete records older than this age, e.g. 720h")
	return cmd
}

func runPurge(cmd *cobra.Command, before int64) error {
	repo, logger, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStore(repo, logger)

	n, err := repo.DeleteOldLogs(cmd.Context(), before)
	if err != nil {
		return err
	}
	logger.Info("Purged old logs", zap.Int64("before", before), zap.Int64("deleted", n))
	fmt.Fprintln(cmd.OutOrStdout(), n)
	return nil
}

func clearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear without --yes")
			}
			repo, logger, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore(repo, logger)

			if err := repo.Clear(cmd.Context()); err != nil {
				return err
			}
			logger.Warn("Log store cleared", zap.String("backend", repo.CurrentBackend().Backend))
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}
