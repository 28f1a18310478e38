package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	driverFlag string
	dirFlag    string
	nameFlag   string
)

func main() {
	root := &cobra.Command{
		Use:   "logstore",
		Short: "Embedded log store",
		Long:  "logstore serves the log store over HTTP and inspects or maintains its database from the command line.",
		// Subcommands print their own errors through the logger.
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&driverFlag, "driver", "", "storage driver (sqlite, duckdb, memory); overrides STORE_DRIVER")
	root.PersistentFlags().StringVar(&dirFlag, "dir", "", "database directory; overrides STORE_DB_DIR")
	root.PersistentFlags().StringVar(&nameFlag, "name", "", "database name; overrides STORE_DB_NAME")

	root.AddCommand(serveCmd())
	root.AddCommand(probeCmd())
	root.AddCommand(queryCmd())
	root.AddCommand(countCmd())
	root.AddCommand(purgeCmd())
	root.AddCommand(clearCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
