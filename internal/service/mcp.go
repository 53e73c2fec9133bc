package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/recallq/recallq/internal/recall"
	"github.com/recallq/recallq/pkg/version"
)

// Standard JSON-RPC error code for invalid parameters.
const errCodeInvalidParams = -32602

// MCPError is an MCP protocol error with a JSON-RPC code.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MCPServer exposes the index as an MCP stdio server with a single
// recall_search tool, the contract AI clients expect from a recall backend.
type MCPServer struct {
	mcp    *mcp.Server
	index  *Index
	logger *slog.Logger
}

// SearchToolInput is the input schema for the recall_search tool.
type SearchToolInput struct {
	Query string `json:"query" jsonschema:"the recall search query"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
}

// SearchToolOutput is the output schema for the recall_search tool.
type SearchToolOutput struct {
	Results recall.Results `json:"results" jsonschema:"list of matching knowledge items, best match first"`
}

// NewMCPServer creates an MCP server around the index.
func NewMCPServer(index *Index, logger *slog.Logger) *MCPServer {
	if logger == nil {
		logger = slog.Default()
	}

	s := &MCPServer{index: index, logger: logger}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "recallq",
			Version: version.Version,
		},
		nil,
	)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "recall_search",
		Description: "Search organizational knowledge for patterns, decisions, and known failures using full-text search.",
	}, s.searchHandler)
	s.logger.Debug("MCP tool registered", slog.String("name", "recall_search"))

	return s
}

// searchHandler is the MCP SDK handler for the recall_search tool.
func (s *MCPServer) searchHandler(ctx context.Context, req *mcp.CallToolRequest, input SearchToolInput) (
	*mcp.CallToolResult,
	SearchToolOutput,
	error,
) {
	if input.Query == "" {
		return nil, SearchToolOutput{}, &MCPError{
			Code:    errCodeInvalidParams,
			Message: "query parameter is required",
		}
	}

	results, err := s.index.Search(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, SearchToolOutput{}, err
	}

	s.logger.Debug("recall_search served",
		slog.String("query", input.Query),
		slog.Int("results", len(results)))

	return nil, SearchToolOutput{Results: results}, nil
}

// Run serves MCP over stdio until the context is cancelled.
func (s *MCPServer) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("MCP server stopped")
	return nil
}
