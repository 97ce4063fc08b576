package models

import (
	"fmt"
	"time"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/apperrors"
)

// Filters narrow a search. Zero values mean "no restriction".
type Filters struct {
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	Platform  string     `json:"platform,omitempty"`
	CallType  string     `json:"callType,omitempty"`
	MediaType string     `json:"mediaType,omitempty"`
}

// Validate rejects inverted date ranges and unknown call/media types.
func (f *Filters) Validate() error {
	if f == nil {
		return nil
	}
	if f.StartDate != nil && f.EndDate != nil && f.StartDate.After(*f.EndDate) {
		return fmt.Errorf("%w: startDate is after endDate", apperrors.ErrInvalidFilter)
	}
	switch f.CallType {
	case "", CallIncoming, CallOutgoing, CallMissed:
	default:
		return fmt.Errorf("%w: unknown callType %q", apperrors.ErrInvalidFilter, f.CallType)
	}
	switch f.MediaType {
	case "", MediaImage, MediaVideo, MediaAudio, MediaDocument:
	default:
		return fmt.Errorf("%w: unknown mediaType %q", apperrors.ErrInvalidFilter, f.MediaType)
	}
	return nil
}

// InRange reports whether t falls inside the filter's date range.
func (f *Filters) InRange(t time.Time) bool {
	if f == nil {
		return true
	}
	if f.StartDate != nil && t.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && t.After(*f.EndDate) {
		return false
	}
	return true
}
