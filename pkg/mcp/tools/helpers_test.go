package tools

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalArg(t *testing.T) {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{
		"platform": "  WhatsApp\n",
		"blank":    " \t ",
	}

	assert.Equal(t, "WhatsApp", optionalArg(req, "platform"))
	assert.Equal(t, "", optionalArg(req, "blank"))
	assert.Equal(t, "", optionalArg(req, "missing"))
}

func TestParseCaseID(t *testing.T) {
	id := uuid.New()

	got, err := parseCaseID(" " + id.String() + " ")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = parseCaseID("case-7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"case-7"`)
}

func TestParseFilters(t *testing.T) {
	t.Run("nothing set", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"query": "x", "platform": "  "}

		f, err := parseFilters(req)
		require.NoError(t, err)
		assert.Nil(t, f)
	})

	t.Run("dates and platform", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"start_date": "2024-03-01T00:00:00Z",
			"platform":   "Telegram",
		}

		f, err := parseFilters(req)
		require.NoError(t, err)
		require.NotNil(t, f)
		require.NotNil(t, f.StartDate)
		assert.True(t, f.StartDate.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
		assert.Nil(t, f.EndDate)
		assert.Equal(t, "Telegram", f.Platform)
	})

	t.Run("bad date", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"end_date": "yesterday"}

		_, err := parseFilters(req)
		assert.ErrorContains(t, err, "end_date must be RFC3339")
	})
}
