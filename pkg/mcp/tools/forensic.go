package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/database"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/services"
)

// ForensicToolDeps contains the services the forensic tools call.
type ForensicToolDeps struct {
	Query     services.QueryService
	Analytics services.AnalyticsService
	// Scopes provides the connection for tools whose services expect one on
	// the context. Query execution acquires its own.
	Scopes database.ScopeProvider
	Logger *zap.Logger
}

// RegisterForensicTools adds forensic_query and risk_assessment to the server.
func RegisterForensicTools(s *server.MCPServer, deps *ForensicToolDeps) {
	registerForensicQueryTool(s, deps)
	registerRiskAssessmentTool(s, deps)
}

func registerForensicQueryTool(s *server.MCPServer, deps *ForensicToolDeps) {
	tool := mcp.NewTool(
		"forensic_query",
		mcp.WithDescription(
			"Search extracted device evidence (chats, calls, contacts, media) with a natural-language question. "+
				"Returns matching records, extracted entities and an investigative summary.",
		),
		mcp.WithString(
			"query",
			mcp.Required(),
			mcp.Description("Natural-language question, e.g. 'crypto wallet transfers to foreign numbers'"),
		),
		mcp.WithString(
			"case_id",
			mcp.Description("Optional case UUID; omit to search every device"),
		),
		mcp.WithString(
			"start_date",
			mcp.Description("Optional RFC3339 lower bound on record timestamps"),
		),
		mcp.WithString(
			"end_date",
			mcp.Description("Optional RFC3339 upper bound on record timestamps"),
		),
		mcp.WithString(
			"platform",
			mcp.Description("Optional messaging platform filter, e.g. WhatsApp"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		queryReq := services.QueryRequest{Query: query}
		if raw := optionalArg(req, "case_id"); raw != "" {
			caseID, err := parseCaseID(raw)
			if err != nil {
				return NewErrorResult("invalid_parameters", err.Error()), nil
			}
			queryReq.CaseID = &caseID
		}

		filters, err := parseFilters(req)
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		queryReq.Filters = filters

		result, err := deps.Query.Execute(ctx, queryReq)
		if err != nil {
			if res, ok := toolError(err); ok {
				return res, nil
			}
			return nil, fmt.Errorf("query failed: %w", err)
		}
		return jsonResult(result)
	})
}

func registerRiskAssessmentTool(s *server.MCPServer, deps *ForensicToolDeps) {
	tool := mcp.NewTool(
		"risk_assessment",
		mcp.WithDescription(
			"Score a case for crypto activity, foreign contact, deleted messages, suspicious keywords "+
				"and unusual-hour calling. Returns the score, level and contributing flags.",
		),
		mcp.WithString(
			"case_id",
			mcp.Required(),
			mcp.Description("Case UUID"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := req.RequireString("case_id")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		caseID, err := parseCaseID(raw)
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		scopedCtx, cleanup, err := deps.Scopes.WithScope(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire database connection: %w", err)
		}
		defer cleanup()

		report, err := deps.Analytics.RiskAssessment(scopedCtx, caseID)
		if err != nil {
			if res, ok := toolError(err); ok {
				return res, nil
			}
			deps.Logger.Error("Risk assessment failed",
				zap.String("case_id", caseID.String()),
				zap.Error(err))
			return nil, fmt.Errorf("risk assessment failed: %w", err)
		}
		return jsonResult(report)
	})
}
