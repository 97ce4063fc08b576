package mcp

import (
	"context"
	"sync"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/metrics"
)

// ToolAuditor records every MCP tool call in the log and in the
// forensic_mcp_tool_calls_total counter. Arguments are not logged because
// query text is case evidence.
type ToolAuditor struct {
	logger *zap.Logger

	// startTimes tracks when tool calls begin, keyed by the request pointer.
	startTimes sync.Map
}

// NewToolAuditor creates a ToolAuditor.
func NewToolAuditor(logger *zap.Logger) *ToolAuditor {
	return &ToolAuditor{logger: logger.Named("mcp-audit")}
}

// Hooks returns mcp-go Hooks configured to capture tool call events.
func (a *ToolAuditor) Hooks() *server.Hooks {
	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(a.beforeCallTool)
	hooks.AddAfterCallTool(a.afterCallTool)
	hooks.AddOnError(a.onError)
	return hooks
}

func (a *ToolAuditor) beforeCallTool(_ context.Context, _ any, req *mcplib.CallToolRequest) {
	a.startTimes.Store(req, time.Now())
}

func (a *ToolAuditor) afterCallTool(_ context.Context, _ any, req *mcplib.CallToolRequest, result *mcplib.CallToolResult) {
	duration := a.elapsed(req)
	status := metrics.StatusSuccess
	if result != nil && result.IsError {
		status = metrics.StatusInvalid
	}
	metrics.ObserveToolCall(req.Params.Name, status)

	a.logger.Info("MCP tool call",
		zap.String("tool", req.Params.Name),
		zap.String("status", status),
		zap.Duration("duration", duration),
	)
}

func (a *ToolAuditor) onError(_ context.Context, _ any, method mcplib.MCPMethod, message any, err error) {
	if method != mcplib.MethodToolsCall {
		return
	}
	req, ok := message.(*mcplib.CallToolRequest)
	if !ok {
		return
	}

	duration := a.elapsed(req)
	metrics.ObserveToolCall(req.Params.Name, metrics.StatusError)
	a.logger.Warn("MCP tool call failed",
		zap.String("tool", req.Params.Name),
		zap.Duration("duration", duration),
		zap.Error(err),
	)
}

func (a *ToolAuditor) elapsed(req *mcplib.CallToolRequest) time.Duration {
	if v, ok := a.startTimes.LoadAndDelete(req); ok {
		return time.Since(v.(time.Time))
	}
	return 0
}
