package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/metrics"
)

func newAuditedServer(t *testing.T) (*Server, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	auditor := NewToolAuditor(zap.New(core))
	s := NewServer("test", "1.0.0", auditor.Hooks(), zap.NewNop())

	s.RegisterTool(mcp.NewTool("audit_ok"), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("done"), nil
	})
	s.RegisterTool(mcp.NewTool("audit_invalid"), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("bad argument"), nil
	})
	s.RegisterTool(mcp.NewTool("audit_broken"), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, errors.New("store unavailable")
	})
	return s, logs
}

func call(s *Server, tool string) {
	s.MCP().HandleMessage(context.Background(),
		[]byte(`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"`+tool+`"},"id":7}`))
}

func TestToolAuditor_Success(t *testing.T) {
	s, logs := newAuditedServer(t)
	counter := metrics.MCPToolCalls.WithLabelValues("audit_ok", metrics.StatusSuccess)
	before := testutil.ToFloat64(counter)

	call(s, "audit_ok")

	entries := logs.FilterMessage("MCP tool call").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "audit_ok", entries[0].ContextMap()["tool"])
	assert.Equal(t, metrics.StatusSuccess, entries[0].ContextMap()["status"])
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestToolAuditor_ToolError(t *testing.T) {
	s, logs := newAuditedServer(t)
	counter := metrics.MCPToolCalls.WithLabelValues("audit_invalid", metrics.StatusInvalid)
	before := testutil.ToFloat64(counter)

	call(s, "audit_invalid")

	entries := logs.FilterMessage("MCP tool call").All()
	require.Len(t, entries, 1)
	assert.Equal(t, metrics.StatusInvalid, entries[0].ContextMap()["status"])
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestToolAuditor_HandlerFailure(t *testing.T) {
	s, logs := newAuditedServer(t)
	counter := metrics.MCPToolCalls.WithLabelValues("audit_broken", metrics.StatusError)
	before := testutil.ToFloat64(counter)

	call(s, "audit_broken")

	entries := logs.FilterMessage("MCP tool call failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "audit_broken", entries[0].ContextMap()["tool"])
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
