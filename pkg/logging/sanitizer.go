package logging

import (
	"regexp"
)

// RedactedText replaces sensitive values in log output.
const RedactedText = "[REDACTED]"

var (
	// password=xxx, pwd=xxx, pass=xxx up to the next delimiter
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	bearerPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9\-_.]+`)

	// Provider keys as they appear in upstream error bodies.
	providerKeyPattern = regexp.MustCompile(`\b(sk|sk-ant|sk-proj)-[A-Za-z0-9\-_]{16,}`)

	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|x-api-key)[=:]\s*[A-Za-z0-9\-_]{16,}`)

	// user:pass@host in postgres:// and redis:// URLs
	credentialsPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@`)
)

// SanitizeConnectionString removes credentials from a database or redis URL.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}
	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	return credentialsPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@")
}

// SanitizeError renders err with connection credentials and provider keys removed.
// Use it for errors from the store, the embedding endpoint and the narrative model.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	sanitized := SanitizeConnectionString(err.Error())
	sanitized = bearerPattern.ReplaceAllString(sanitized, "Bearer "+RedactedText)
	sanitized = apiKeyPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	return providerKeyPattern.ReplaceAllString(sanitized, RedactedText)
}
