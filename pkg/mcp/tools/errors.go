package tools

import (
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/apperrors"
)

// ErrorResponse represents a structured error in tool results.
// Actionable errors are returned as tool results so the calling model sees
// them instead of a protocol failure.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for errors the caller can fix (bad arguments, unknown case).
// System failures still return Go errors.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	jsonBytes, _ := json.Marshal(ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
	})
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// toolError converts a service error into a tool result when the caller can
// act on it. ok is false for system failures, which the handler returns as-is.
func toolError(err error) (result *mcp.CallToolResult, ok bool) {
	switch {
	case errors.Is(err, apperrors.ErrEmptyQuery), errors.Is(err, apperrors.ErrInvalidFilter):
		return NewErrorResult("invalid_parameters", err.Error()), true
	case errors.Is(err, apperrors.ErrNotFound):
		return NewErrorResult("case_not_found", err.Error()), true
	}
	return nil, false
}
