package apperrors

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrEmptyQuery    = errors.New("query text is required")
	ErrInvalidFilter = errors.New("invalid filter")

	// Degraded-dependency errors. Callers log these and continue with reduced capability.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
	ErrNarrativeUnavailable = errors.New("narrative generator unavailable")
)
