package models

import (
	"time"

	"github.com/google/uuid"
)

// Message directions.
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
	DirectionUnknown  = "unknown"
)

// Call types.
const (
	CallIncoming = "incoming"
	CallOutgoing = "outgoing"
	CallMissed   = "missed"
)

// Media kinds.
const (
	MediaImage    = "image"
	MediaVideo    = "video"
	MediaAudio    = "audio"
	MediaDocument = "document"
)

// Message is one chat/SMS record extracted from a device.
// Embedding is empty until computed; when present its length is the configured dimensionality.
type Message struct {
	ID                uuid.UUID `json:"id"`
	DeviceID          uuid.UUID `json:"deviceId"`
	Platform          string    `json:"platform"`
	ConversationID    string    `json:"conversationId,omitempty"`
	ParticipantName   string    `json:"participantName,omitempty"`
	ParticipantNumber string    `json:"participantNumber,omitempty"`
	Body              string    `json:"body"`
	SentAt            time.Time `json:"timestamp"`
	Direction         string    `json:"direction"`
	Kind              string    `json:"kind"`
	AttachmentRef     string    `json:"attachmentRef,omitempty"`
	Deleted           bool      `json:"deleted"`
	Embedding         []float32 `json:"-"`
}

// SearchText is the text keyword matching runs over: body, participant name and number.
func (m *Message) SearchText() string {
	return m.Body + " " + m.ParticipantName + " " + m.ParticipantNumber
}

// Call is one call-log record.
type Call struct {
	ID              uuid.UUID `json:"id"`
	DeviceID        uuid.UUID `json:"deviceId"`
	CallType        string    `json:"callType"`
	PhoneNumber     string    `json:"phoneNumber"`
	ContactName     string    `json:"contactName,omitempty"`
	DurationSeconds int       `json:"duration"`
	CalledAt        time.Time `json:"timestamp"`
}

// Contact is one address-book entry.
type Contact struct {
	ID           uuid.UUID `json:"id"`
	DeviceID     uuid.UUID `json:"deviceId"`
	Name         string    `json:"name"`
	PhoneNumbers []string  `json:"phoneNumbers"`
	Emails       []string  `json:"emails"`
	Organization string    `json:"organization,omitempty"`
	Notes        string    `json:"notes,omitempty"`
}

// Media is one media file recovered from a device.
type Media struct {
	ID          uuid.UUID  `json:"id"`
	DeviceID    uuid.UUID  `json:"deviceId"`
	MediaType   string     `json:"mediaType"`
	Filename    string     `json:"filename"`
	StoragePath string     `json:"storagePath"`
	SizeBytes   int64      `json:"sizeBytes"`
	MimeType    string     `json:"mimeType"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	ModifiedAt  *time.Time `json:"modifiedAt,omitempty"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
}
