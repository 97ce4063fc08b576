package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
)

// ChatRepository provides read access to chat messages and write access to
// their embeddings.
type ChatRepository interface {
	// ListRecent returns messages newest first, without embeddings.
	ListRecent(ctx context.Context, scope models.DeviceScope, filters *models.Filters, limit int) ([]*models.Message, error)
	// ListEmbedded returns only messages that have an embedding.
	ListEmbedded(ctx context.Context, scope models.DeviceScope, filters *models.Filters, limit int) ([]*models.Message, error)
	// ListMissingEmbeddings returns messages with a body but no embedding.
	ListMissingEmbeddings(ctx context.Context, scope models.DeviceScope, limit int) ([]*models.Message, error)
	UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
	CountByPlatform(ctx context.Context, scope models.DeviceScope) (map[string]int, error)
}

type chatRepository struct{}

// NewChatRepository creates a new ChatRepository.
func NewChatRepository() ChatRepository {
	return &chatRepository{}
}

var _ ChatRepository = (*chatRepository)(nil)

const messageColumns = `id, device_id, platform, conversation_id, participant_name, participant_number,
		       body, sent_at, direction, kind, attachment_ref, deleted`

func (r *chatRepository) ListRecent(ctx context.Context, scope models.DeviceScope, filters *models.Filters, limit int) ([]*models.Message, error) {
	return r.list(ctx, scope, filters, limit, false)
}

func (r *chatRepository) ListEmbedded(ctx context.Context, scope models.DeviceScope, filters *models.Filters, limit int) ([]*models.Message, error) {
	return r.list(ctx, scope, filters, limit, true)
}

func (r *chatRepository) list(ctx context.Context, scope models.DeviceScope, filters *models.Filters, limit int, embeddedOnly bool) ([]*models.Message, error) {
	if scope.IsEmpty() {
		return []*models.Message{}, nil
	}

	dbScope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	w := &where{}
	w.devices("device_id", scope)
	w.dateRange("sent_at", filters)
	if filters != nil && filters.Platform != "" {
		w.add("lower(platform) = lower(?)", filters.Platform)
	}
	columns := messageColumns
	if embeddedOnly {
		w.add("cardinality(embedding) > 0")
		columns += ", embedding"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM chat_messages
		WHERE %s
		ORDER BY sent_at DESC, id
		%s`, columns, w.String(), w.limit(clampLimit(limit, 50)))

	rows, err := dbScope.Conn.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		m, err := scanMessage(rows, embeddedOnly)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	if messages == nil {
		messages = []*models.Message{}
	}
	return messages, nil
}

func (r *chatRepository) ListMissingEmbeddings(ctx context.Context, scope models.DeviceScope, limit int) ([]*models.Message, error) {
	if scope.IsEmpty() {
		return []*models.Message{}, nil
	}

	dbScope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	w := &where{}
	w.devices("device_id", scope)
	w.add("embedding IS NULL")
	w.add("btrim(body) <> ''")

	query := fmt.Sprintf(`
		SELECT %s
		FROM chat_messages
		WHERE %s
		ORDER BY sent_at DESC, id
		%s`, messageColumns, w.String(), w.limit(clampLimit(limit, 1000)))

	rows, err := dbScope.Conn.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages missing embeddings: %w", err)
	}
	defer rows.Close()

	messages := []*models.Message{}
	for rows.Next() {
		m, err := scanMessage(rows, false)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *chatRepository) UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	dbScope, err := scopeFrom(ctx)
	if err != nil {
		return err
	}

	tag, err := dbScope.Conn.Exec(ctx, `UPDATE chat_messages SET embedding = $2 WHERE id = $1`, id, embedding)
	if err != nil {
		return fmt.Errorf("failed to update embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("message %s not found", id)
	}
	return nil
}

func (r *chatRepository) CountByPlatform(ctx context.Context, scope models.DeviceScope) (map[string]int, error) {
	counts := make(map[string]int)
	if scope.IsEmpty() {
		return counts, nil
	}

	dbScope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	w := &where{}
	w.devices("device_id", scope)

	query := fmt.Sprintf(`
		SELECT platform, COUNT(*)
		FROM chat_messages
		WHERE %s
		GROUP BY platform`, w.String())

	rows, err := dbScope.Conn.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var platform string
		var n int
		if err := rows.Scan(&platform, &n); err != nil {
			return nil, fmt.Errorf("failed to scan message count: %w", err)
		}
		counts[platform] = n
	}
	return counts, rows.Err()
}

func scanMessage(rows pgx.Rows, withEmbedding bool) (*models.Message, error) {
	var m models.Message
	dest := []any{
		&m.ID, &m.DeviceID, &m.Platform, &m.ConversationID, &m.ParticipantName, &m.ParticipantNumber,
		&m.Body, &m.SentAt, &m.Direction, &m.Kind, &m.AttachmentRef, &m.Deleted,
	}
	if withEmbedding {
		dest = append(dest, &m.Embedding)
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}
	return &m, nil
}
