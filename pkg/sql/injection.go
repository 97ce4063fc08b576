// Package sql screens free text that reaches the store for SQL injection patterns.
// Query text is always bound as a parameter, so a detection is audited rather
// than rejected.
package sql

import (
	"sort"

	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult contains the result of an injection check on one field.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	Field       string // Name of the field that failed the check
	Value       string // The value that was checked
}

// CheckForInjection uses libinjection to detect SQL injection patterns in value.
// Returns nil if nothing was detected.
//
// Example:
//
//	result := CheckForInjection("query", "show me all chats")
//	// result == nil
//
//	result = CheckForInjection("query", "'; DROP TABLE chat_messages--")
//	// result.IsSQLi == true
//	// result.Fingerprint == "s&1c" (or similar)
func CheckForInjection(field, value string) *InjectionCheckResult {
	if value == "" {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{
		IsSQLi:      true,
		Fingerprint: string(fingerprint),
		Field:       field,
		Value:       value,
	}
}

// CheckFields checks every field and returns the detections ordered by field name.
func CheckFields(fields map[string]string) []*InjectionCheckResult {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var results []*InjectionCheckResult
	for _, name := range names {
		if result := CheckForInjection(name, fields[name]); result != nil {
			results = append(results, result)
		}
	}
	return results
}
