package models

import (
	"time"

	"github.com/google/uuid"
)

// Case groups the devices extracted for one investigation.
type Case struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Device is one extracted handset belonging to a case.
type Device struct {
	ID          uuid.UUID  `json:"id"`
	CaseID      uuid.UUID  `json:"caseId"`
	Name        string     `json:"name"`
	Model       string     `json:"model"`
	IMEI        string     `json:"imei"`
	OwnerName   string     `json:"ownerName"`
	ExtractedAt *time.Time `json:"extractedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// DeviceScope is the set of devices a search runs against.
// All means every device in the store; otherwise only IDs are searched.
type DeviceScope struct {
	All bool
	IDs []uuid.UUID
}

// AllDevices returns an unscoped DeviceScope.
func AllDevices() DeviceScope {
	return DeviceScope{All: true}
}

// DevicesOf returns a DeviceScope limited to the given devices.
func DevicesOf(ids []uuid.UUID) DeviceScope {
	return DeviceScope{IDs: ids}
}

// IsEmpty reports whether the scope cannot match any record.
func (s DeviceScope) IsEmpty() bool {
	return !s.All && len(s.IDs) == 0
}
