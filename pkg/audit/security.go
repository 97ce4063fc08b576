// Package audit provides security audit logging for SIEM consumption.
// It logs security-relevant events in structured JSON format for easy parsing
// and integration with security information and event management systems.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventInjectionProbe is logged when libinjection flags investigator query text.
	EventInjectionProbe SecurityEventType = "sql_injection_probe"
	// EventFilterValidation is logged when query filters are rejected.
	EventFilterValidation SecurityEventType = "filter_validation_failure"
	// EventQueryExecution is logged once per executed query.
	EventQueryExecution SecurityEventType = "query_execution"
)

// SecurityEvent represents an auditable security event with all relevant context
// for SIEM ingestion and analysis.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	CaseID    *uuid.UUID        `json:"case_id,omitempty"`
	QueryID   *uuid.UUID        `json:"query_id,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// InjectionDetails describes query text that looked like SQL injection.
type InjectionDetails struct {
	Field       string `json:"field"`
	Value       string `json:"value"`
	Fingerprint string `json:"fingerprint"` // libinjection fingerprint for pattern analysis
}

type contextKey string

const clientIPKey contextKey = "clientIP"

// WithClientIP stores the caller's address for audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIPFromContext returns the address stored by WithClientIP, or "".
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor with a dedicated logger namespace.
// The logger is named "security_audit" for easy filtering in SIEM systems.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

func (a *SecurityAuditor) event(ctx context.Context, eventType SecurityEventType, caseID, queryID *uuid.UUID, severity string, details any) (SecurityEvent, string) {
	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		CaseID:    caseID,
		QueryID:   queryID,
		ClientIP:  ClientIPFromContext(ctx),
		Details:   details,
		Severity:  severity,
	}
	// Marshaling known types cannot fail.
	eventJSON, _ := json.Marshal(event)
	return event, string(eventJSON)
}

// LogInjectionProbe records query text that libinjection flagged. The query is
// still executed: its text is only ever bound as a parameter.
func (a *SecurityAuditor) LogInjectionProbe(ctx context.Context, caseID *uuid.UUID, details InjectionDetails) {
	event, eventJSON := a.event(ctx, EventInjectionProbe, caseID, nil, "critical", details)

	a.logger.Error("SQL injection pattern in query text",
		zap.String("event_json", eventJSON),
		zap.String("case_id", uuidString(caseID)),
		zap.String("field", details.Field),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("client_ip", event.ClientIP),
		zap.String("severity", event.Severity),
	)
}

// LogFilterValidation records rejected query filters at WARN level.
func (a *SecurityAuditor) LogFilterValidation(ctx context.Context, caseID *uuid.UUID, errorMessage string) {
	event, eventJSON := a.event(ctx, EventFilterValidation, caseID, nil, "warning",
		map[string]string{"error": errorMessage})

	a.logger.Warn("Filter validation failed",
		zap.String("event_json", eventJSON),
		zap.String("case_id", uuidString(caseID)),
		zap.String("error", errorMessage),
		zap.String("client_ip", event.ClientIP),
		zap.String("severity", event.Severity),
	)
}

// LogQueryExecution records an executed query for the audit trail.
func (a *SecurityAuditor) LogQueryExecution(ctx context.Context, caseID *uuid.UUID, queryID uuid.UUID, queryType string, resultCount int) {
	event, eventJSON := a.event(ctx, EventQueryExecution, caseID, &queryID, "info",
		map[string]any{"query_type": queryType, "result_count": resultCount})

	a.logger.Info("Query executed",
		zap.String("event_json", eventJSON),
		zap.String("case_id", uuidString(caseID)),
		zap.String("query_id", queryID.String()),
		zap.String("query_type", queryType),
		zap.Int("result_count", resultCount),
		zap.String("client_ip", event.ClientIP),
		zap.String("severity", event.Severity),
	)
}

func uuidString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
