package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sqlsage/sqlsage/internal/app"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Verify warehouse connectivity",
	Long: `ping runs migrations, opens the connection pool, and round-trips a query
to the warehouse. It exits non-zero when the warehouse is unreachable.`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, _ []string) error {
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

	if err := executor.Ping(ctx); err != nil {
		return fmt.Errorf("pinging warehouse: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Warehouse %s:%d/%s is reachable\n",
		cfg.Warehouse.Host, cfg.Warehouse.Port, cfg.Warehouse.Database)
	return nil
}
