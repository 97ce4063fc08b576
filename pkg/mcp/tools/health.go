package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Capabilities reports which optional dependencies are configured.
type Capabilities struct {
	Narrative      bool `json:"narrative"`
	SemanticSearch bool `json:"semantic_search"`
}

type healthResult struct {
	Status       string       `json:"status"`
	Version      string       `json:"version"`
	Capabilities Capabilities `json:"capabilities"`
}

// RegisterHealthTool adds a health tool reporting version and configured
// capabilities, so a client can tell keyword-only search from semantic search.
func RegisterHealthTool(s *server.MCPServer, version string, caps Capabilities) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status, version and enabled search capabilities"),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(healthResult{Status: "ok", Version: version, Capabilities: caps})
	})
}
