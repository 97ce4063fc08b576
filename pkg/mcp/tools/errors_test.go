package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/apperrors"
)

// getTextContent extracts the text string from the first text content item
func getTextContent(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	jsonBytes, err := json.Marshal(result.Content[0])
	require.NoError(t, err)
	var textContent struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	require.NoError(t, json.Unmarshal(jsonBytes, &textContent))
	require.Equal(t, "text", textContent.Type)
	return textContent.Text
}

func TestNewErrorResult(t *testing.T) {
	result := NewErrorResult("test_error", "this is a test error")

	require.NotNil(t, result)
	assert.True(t, result.IsError)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(getTextContent(t, result)), &errResp))
	assert.True(t, errResp.Error, "error field should be true")
	assert.Equal(t, "test_error", errResp.Code)
	assert.Equal(t, "this is a test error", errResp.Message)
}

func TestToolError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantOK   bool
		wantCode string
	}{
		{"empty query", apperrors.ErrEmptyQuery, true, "invalid_parameters"},
		{"bad filter", fmt.Errorf("%w: startDate is after endDate", apperrors.ErrInvalidFilter), true, "invalid_parameters"},
		{"unknown case", fmt.Errorf("case 42: %w", apperrors.ErrNotFound), true, "case_not_found"},
		{"store failure", errors.New("connection reset by peer"), false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, ok := toolError(tt.err)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				assert.Nil(t, result)
				return
			}
			var errResp ErrorResponse
			require.NoError(t, json.Unmarshal([]byte(getTextContent(t, result)), &errResp))
			assert.Equal(t, tt.wantCode, errResp.Code)
			assert.Equal(t, tt.err.Error(), errResp.Message)
		})
	}
}
