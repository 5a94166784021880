// Package cmd provides the sqlsage CLI commands.
//
// Commands:
//   - ask: answer one natural-language question against the warehouse
//   - load: bulk-load an artists CSV into the warehouse
//   - ping: verify warehouse connectivity
//   - mcp: serve the pipeline over the Model Context Protocol on stdio
//   - version: show build information
//
// All commands log to stderr, so stdout stays clean for answers and for
// the MCP stdio transport.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sqlsage/sqlsage/internal/config"
	"github.com/sqlsage/sqlsage/internal/log"
)

var (
	logLevel string
	jsonLogs bool
)

var rootCmd = &cobra.Command{
	Use:   "sqlsage",
	Short: "Ask your analytics warehouse questions in plain language",
	Long: `sqlsage answers natural-language questions about an analytics warehouse.
It selects similar worked examples, prompts a model to generate a read-only
SQL query, validates and runs the query, and prints the formatted result.`,
	// main prints the returned error; suppress cobra's own copy.
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit JSON logs (overrides config)")
}

// loadConfig loads configuration and installs the process logger, with the
// persistent flags overriding the config file's log block.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if cmd.Flags().Changed("json-logs") {
		cfg.Log.JSON = jsonLogs
	}

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}

	logger := log.New(log.Config{Level: level, JSON: cfg.Log.JSON})
	slog.SetDefault(logger)

	return cfg, logger, nil
}
