// Package mcp exposes the answer pipeline over the Model Context Protocol,
// so MCP clients (editors, agent frameworks) can query the warehouse in
// natural language through a single tool.
package mcp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sqlsage/sqlsage/internal/pipeline"
)

// QuestionAnswerer is the slice of the pipeline the server needs: one
// contained call per question.
type QuestionAnswerer interface {
	Answer(ctx context.Context, question string) pipeline.Answer
}

// Config holds MCP server configuration.
type Config struct {
	Name     string
	Version  string
	Pipeline QuestionAnswerer
	Logger   *slog.Logger
}

// Server wraps the MCP SDK server around the answer pipeline.
type Server struct {
	mcpServer *mcp.Server
	pipeline  QuestionAnswerer
	logger    *slog.Logger
	name      string
	version   string
}

// NewServer creates an MCP server exposing the query_warehouse tool.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, errors.New("server name is required")
	}
	if cfg.Version == "" {
		return nil, errors.New("server version is required")
	}
	if cfg.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		pipeline: cfg.Pipeline,
		logger:   cfg.Logger,
		name:     cfg.Name,
		version:  cfg.Version,
	}

	if err := s.registerQueryWarehouse(); err != nil {
		return nil, err
	}

	return s, nil
}

// Run serves MCP protocol traffic on the given transport until ctx is
// canceled or the peer disconnects.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}

// QueryWarehouseInput defines the input schema for the query_warehouse tool.
type QueryWarehouseInput struct {
	Question string `json:"question" jsonschema:"The natural-language question to answer from the warehouse"`
}

// registerQueryWarehouse registers the single pipeline-backed tool. The
// handler builds the MCP response inline; pipeline failures arrive as
// contained answers, so they become error results with displayable text
// rather than protocol errors.
func (s *Server) registerQueryWarehouse() error {
	inputSchema, err := jsonschema.For[QueryWarehouseInput](nil)
	if err != nil {
		return err
	}

	tool := &mcp.Tool{
		Name:        "query_warehouse",
		Description: "Answer a natural-language question by generating and running a read-only SQL query against the analytics warehouse. Returns the answer and the SQL that produced it.",
		InputSchema: inputSchema,
	}

	mcp.AddTool(s.mcpServer, tool, func(ctx context.Context, req *mcp.CallToolRequest, in QueryWarehouseInput) (*mcp.CallToolResult, any, error) {
		ans := s.pipeline.Answer(ctx, in.Question)

		if ans.Err != nil {
			s.logger.Warn("query_warehouse failed", "stage", ans.Stage, "error", ans.Err)
			// ans.Text is already the displayable failure message.
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: ans.Text}},
				IsError: true,
			}, nil, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: ans.Text},
				&mcp.TextContent{Text: "SQL: " + ans.SQL},
			},
		}, nil, nil
	})

	return nil
}
