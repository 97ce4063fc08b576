package models

import (
	"time"

	"github.com/google/uuid"
)

// EntityType identifies one category of extracted entity.
type EntityType string

const (
	EntityCryptoAddress EntityType = "crypto_address"
	EntityPhoneNumber   EntityType = "phone_number"
	EntityEmail         EntityType = "email"
	EntityURL           EntityType = "url"
	EntityIPAddress     EntityType = "ip_address"
)

// EntityTypes lists every entity category in reporting order.
var EntityTypes = []EntityType{
	EntityCryptoAddress,
	EntityPhoneNumber,
	EntityEmail,
	EntityURL,
	EntityIPAddress,
}

// IsValid returns true if t is a known entity category.
func (t EntityType) IsValid() bool {
	for _, known := range EntityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// EntityMatch is a single sighting of an entity in free text.
type EntityMatch struct {
	Value     string    `json:"value"`
	Context   string    `json:"context"`
	Timestamp time.Time `json:"timestamp"`
	SourceRef string    `json:"sourceRef,omitempty"`
}

// ExtractedEntities groups matches by category.
type ExtractedEntities struct {
	CryptoAddresses []EntityMatch `json:"cryptoAddresses"`
	PhoneNumbers    []EntityMatch `json:"phoneNumbers"`
	Emails          []EntityMatch `json:"emails"`
	URLs            []EntityMatch `json:"urls"`
	IPAddresses     []EntityMatch `json:"ipAddresses"`
}

// NewExtractedEntities returns an ExtractedEntities with every list non-nil.
func NewExtractedEntities() *ExtractedEntities {
	return &ExtractedEntities{
		CryptoAddresses: []EntityMatch{},
		PhoneNumbers:    []EntityMatch{},
		Emails:          []EntityMatch{},
		URLs:            []EntityMatch{},
		IPAddresses:     []EntityMatch{},
	}
}

// List returns a pointer to the slice holding matches of type t.
func (e *ExtractedEntities) List(t EntityType) *[]EntityMatch {
	switch t {
	case EntityCryptoAddress:
		return &e.CryptoAddresses
	case EntityPhoneNumber:
		return &e.PhoneNumbers
	case EntityEmail:
		return &e.Emails
	case EntityURL:
		return &e.URLs
	case EntityIPAddress:
		return &e.IPAddresses
	default:
		return nil
	}
}

// Total returns the number of matches across all categories.
func (e *ExtractedEntities) Total() int {
	if e == nil {
		return 0
	}
	return len(e.CryptoAddresses) + len(e.PhoneNumbers) + len(e.Emails) + len(e.URLs) + len(e.IPAddresses)
}

// EntityContext is one recorded sighting context on a persisted entity.
type EntityContext struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	SourceRef string    `json:"sourceRef,omitempty"`
}

// Entity is the deduplicated record for one (type, value) pair.
type Entity struct {
	ID          uuid.UUID       `json:"id"`
	Type        EntityType      `json:"type"`
	Value       string          `json:"value"`
	Occurrences int             `json:"occurrences"`
	Contexts    []EntityContext `json:"contexts"`
	FirstSeen   time.Time       `json:"firstSeen"`
	LastSeen    time.Time       `json:"lastSeen"`
}
