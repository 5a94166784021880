package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/sqlsage/sqlsage/internal/app"
	"github.com/sqlsage/sqlsage/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the pipeline over the Model Context Protocol on stdio",
	Long: `mcp exposes the query_warehouse tool to MCP clients (Claude Desktop,
Cursor, agent frameworks) over the stdio transport. The process serves one
client until the transport closes or it receives SIGINT/SIGTERM.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	server, err := mcp.NewServer(mcp.Config{
		Name:     "sqlsage",
		Version:  AppVersion,
		Pipeline: a.Pipeline,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	logger.Info("MCP server ready", "version", AppVersion, "transport", "stdio")

	if err := server.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server: %w", err)
	}

	logger.Info("MCP server shut down")
	return nil
}
