package testhelpers

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
)

// Seeder inserts fixture rows the way the ingest pipeline would.
type Seeder struct {
	t   *testing.T
	tdb *TestDB
}

// Seed returns a Seeder for tdb.
func (tdb *TestDB) Seed(t *testing.T) *Seeder {
	return &Seeder{t: t, tdb: tdb}
}

func (s *Seeder) exec(query string, args ...any) {
	s.t.Helper()
	if _, err := s.tdb.DB.Exec(context.Background(), query, args...); err != nil {
		s.t.Fatalf("Failed to seed fixture: %v", err)
	}
}

// Case inserts a case and returns its id.
func (s *Seeder) Case(name string) uuid.UUID {
	s.t.Helper()
	id := uuid.New()
	s.exec(`INSERT INTO cases (id, name) VALUES ($1, $2)`, id, name)
	return id
}

// Device inserts a device owned by caseID and returns its id.
func (s *Seeder) Device(caseID uuid.UUID, name string) uuid.UUID {
	s.t.Helper()
	id := uuid.New()
	s.exec(`INSERT INTO devices (id, case_id, name) VALUES ($1, $2, $3)`, id, caseID, name)
	return id
}

// Message inserts m, assigning an id when empty.
func (s *Seeder) Message(m *models.Message) *models.Message {
	s.t.Helper()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Direction == "" {
		m.Direction = models.DirectionUnknown
	}
	if m.Kind == "" {
		m.Kind = "text"
	}
	var embedding any
	if len(m.Embedding) > 0 {
		embedding = m.Embedding
	}
	s.exec(`
		INSERT INTO chat_messages (id, device_id, platform, conversation_id, participant_name, participant_number,
		                           body, sent_at, direction, kind, attachment_ref, deleted, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		m.ID, m.DeviceID, m.Platform, m.ConversationID, m.ParticipantName, m.ParticipantNumber,
		m.Body, m.SentAt, m.Direction, m.Kind, m.AttachmentRef, m.Deleted, embedding)
	return m
}

// Call inserts c, assigning an id when empty.
func (s *Seeder) Call(c *models.Call) *models.Call {
	s.t.Helper()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	s.exec(`
		INSERT INTO call_logs (id, device_id, call_type, phone_number, contact_name, duration_seconds, called_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.DeviceID, c.CallType, c.PhoneNumber, c.ContactName, c.DurationSeconds, c.CalledAt)
	return c
}

// Contact inserts c, assigning an id when empty.
func (s *Seeder) Contact(c *models.Contact) *models.Contact {
	s.t.Helper()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.PhoneNumbers == nil {
		c.PhoneNumbers = []string{}
	}
	if c.Emails == nil {
		c.Emails = []string{}
	}
	s.exec(`
		INSERT INTO contacts (id, device_id, name, phone_numbers, emails, organization, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.DeviceID, c.Name, c.PhoneNumbers, c.Emails, c.Organization, c.Notes)
	return c
}

// Media inserts m, assigning an id when empty.
func (s *Seeder) Media(m *models.Media) *models.Media {
	s.t.Helper()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	s.exec(`
		INSERT INTO media_files (id, device_id, media_type, filename, storage_path, size_bytes, mime_type,
		                         created_at, modified_at, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		m.ID, m.DeviceID, m.MediaType, m.Filename, m.StoragePath, m.SizeBytes, m.MimeType,
		m.CreatedAt, m.ModifiedAt, m.Latitude, m.Longitude)
	return m
}
