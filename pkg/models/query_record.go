package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// QueryRecord is the immutable audit entry written once per query execution.
type QueryRecord struct {
	ID          uuid.UUID       `json:"id"`
	CaseID      *uuid.UUID      `json:"caseId,omitempty"`
	QueryText   string          `json:"query"`
	QueryType   string          `json:"queryType"`
	Results     json.RawMessage `json:"results"`
	ResultCount int             `json:"resultCount"`
	ExecutionMS int64           `json:"executionTime"`
	CreatedAt   time.Time       `json:"createdAt"`
}
