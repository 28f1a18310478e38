package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"go-logstore/internal/models"

	"github.com/spf13/cobra"
)

func queryCmd() *cobra.Command {
	var (
		levels string
		opts   models.QueryOptions
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Print matching log records as JSON lines, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, l := range strings.Split(levels, ",") {
				if l = strings.ToLower(strings.TrimSpace(l)); l != "" {
					opts.Levels = append(opts.Levels, l)
				}
			}
			return runQuery(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&levels, "level", "", "comma-separated levels to include")
	cmd.Flags().StringVar(&opts.Tag, "tag", "", "only records with this tag")
	cmd.Flags().Int64Var(&opts.From, "from", 0, "inclusive lower bound, Unix ms")
	cmd.Flags().Int64Var(&opts.To, "to", 0, "inclusive upper bound, Unix ms")
	cmd.Flags().IntVar(&opts.Limit, "limit", 100, "maximum records to print (0 for all)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "records to skip")
	return cmd
}

func runQuery(cmd *cobra.Command, opts models.QueryOptions) error {
	repo, logger, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStore(repo, logger)

	entries, err := repo.Query(cmd.Context(), opts)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return nil
}

func countCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of stored log records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, logger, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore(repo, logger)

			n, err := repo.GetCount(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}
