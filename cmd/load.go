package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sqlsage/sqlsage/internal/app"
)

var (
	loadFile     string
	loadTruncate bool
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Bulk-load an artists CSV into the warehouse",
	Long: `load streams a CSV file into the artists table with COPY. The file must
carry the artists header row; empty fields are stored as NULL. Use
--truncate to replace the table contents instead of appending.`,
	Example: `  sqlsage load --file artists.csv
  sqlsage load --file artists.csv --truncate`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringVar(&loadFile, "file", "", "CSV file to load (required)")
	loadCmd.Flags().BoolVar(&loadTruncate, "truncate", false, "empty the table before loading")
	_ = loadCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, executor, err := app.SetupWarehouse(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("connecting to warehouse: %w", err)
	}
	defer pool.Close()

	rows, err := executor.LoadCSV(ctx, loadFile, loadTruncate)
	if err != nil {
		return fmt.Errorf("loading %s: %w", loadFile, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d rows from %s\n", rows, loadFile)
	return nil
}
