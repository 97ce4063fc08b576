package tools

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
)

// optionalArg returns the trimmed string argument key, or "" when absent.
func optionalArg(req mcp.CallToolRequest, key string) string {
	return strings.TrimSpace(req.GetString(key, ""))
}

func parseCaseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("case_id %q is not a UUID", raw)
	}
	return id, nil
}

// parseFilters reads the optional date and platform arguments. It returns nil
// when none are set so the query runs unfiltered.
func parseFilters(req mcp.CallToolRequest) (*models.Filters, error) {
	var f models.Filters
	set := false
	for _, bound := range []struct {
		key string
		dst **time.Time
	}{
		{"start_date", &f.StartDate},
		{"end_date", &f.EndDate},
	} {
		raw := optionalArg(req, bound.key)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be RFC3339: %w", bound.key, err)
		}
		*bound.dst = &t
		set = true
	}
	if platform := optionalArg(req, "platform"); platform != "" {
		f.Platform = platform
		set = true
	}
	if !set {
		return nil, nil
	}
	return &f, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(body)), nil
}
