package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckForInjection_CleanInvestigatorQueries(t *testing.T) {
	queries := []string{
		"show me all chats",
		"find crypto wallet transfers",
		"list all communications with foreign numbers",
		"",
	}

	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			assert.Nil(t, CheckForInjection("query", q))
		})
	}
}

func TestCheckForInjection_DetectsClassicPayloads(t *testing.T) {
	payloads := []string{
		"'; DROP TABLE chat_messages--",
		"1' OR '1'='1",
		"1 UNION SELECT password FROM users",
	}

	for _, p := range payloads {
		t.Run(p, func(t *testing.T) {
			result := CheckForInjection("query", p)
			require.NotNil(t, result)
			assert.True(t, result.IsSQLi)
			assert.NotEmpty(t, result.Fingerprint)
			assert.Equal(t, "query", result.Field)
			assert.Equal(t, p, result.Value)
		})
	}
}

func TestCheckFields(t *testing.T) {
	results := CheckFields(map[string]string{
		"query":    "1' OR '1'='1",
		"platform": "WhatsApp",
		"callType": "'; DROP TABLE call_logs--",
	})

	require.Len(t, results, 2)
	assert.Equal(t, "callType", results[0].Field)
	assert.Equal(t, "query", results[1].Field)
}

func TestCheckFields_Empty(t *testing.T) {
	assert.Empty(t, CheckFields(nil))
	assert.Empty(t, CheckFields(map[string]string{"platform": "telegram"}))
}
