package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/apperrors"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
)

// EntityRepository persists deduplicated extracted entities.
type EntityRepository interface {
	// Upsert adds entity.Occurrences and entity.Contexts to the (type, value) row,
	// creating it if needed. With a non-empty sourceRef the same source is only
	// ever counted once; counted reports whether this call changed the row.
	Upsert(ctx context.Context, entity *models.Entity, sourceRef string) (counted bool, err error)
	List(ctx context.Context, entityType models.EntityType, limit int) ([]*models.Entity, error)
	GetByValue(ctx context.Context, entityType models.EntityType, value string) (*models.Entity, error)
}

type entityRepository struct{}

// NewEntityRepository creates a new EntityRepository.
func NewEntityRepository() EntityRepository {
	return &entityRepository{}
}

var _ EntityRepository = (*entityRepository)(nil)

func (r *entityRepository) Upsert(ctx context.Context, entity *models.Entity, sourceRef string) (bool, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return false, err
	}
	if !entity.Type.IsValid() {
		return false, fmt.Errorf("unknown entity type %q", entity.Type)
	}
	if entity.Occurrences <= 0 {
		entity.Occurrences = 1
	}

	contexts := entity.Contexts
	if contexts == nil {
		contexts = []models.EntityContext{}
	}
	contextsJSON, err := json.Marshal(contexts)
	if err != nil {
		return false, fmt.Errorf("failed to marshal entity contexts: %w", err)
	}

	seen := entity.LastSeen
	if seen.IsZero() {
		seen = time.Now().UTC()
	}
	first := entity.FirstSeen
	if first.IsZero() {
		first = seen
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	if sourceRef != "" {
		tag, err := tx.Exec(ctx, `
			INSERT INTO forensic_entity_sightings (entity_type, value, source_ref)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING`,
			entity.Type, entity.Value, sourceRef)
		if err != nil {
			return false, fmt.Errorf("failed to record entity sighting: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return false, tx.Commit(ctx)
		}
	}

	query := `
		INSERT INTO forensic_entities (id, entity_type, value, occurrences, contexts, first_seen, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (entity_type, value) DO UPDATE SET
			occurrences = forensic_entities.occurrences + EXCLUDED.occurrences,
			contexts    = forensic_entities.contexts || EXCLUDED.contexts,
			first_seen  = LEAST(forensic_entities.first_seen, EXCLUDED.first_seen),
			last_seen   = GREATEST(forensic_entities.last_seen, EXCLUDED.last_seen)
		RETURNING id, occurrences, first_seen, last_seen`

	err = tx.QueryRow(ctx, query,
		uuid.New(), entity.Type, entity.Value, entity.Occurrences, contextsJSON, first, seen,
	).Scan(&entity.ID, &entity.Occurrences, &entity.FirstSeen, &entity.LastSeen)
	if err != nil {
		return false, fmt.Errorf("failed to upsert entity: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

func (r *entityRepository) List(ctx context.Context, entityType models.EntityType, limit int) ([]*models.Entity, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	w := &where{}
	if entityType != "" {
		w.add("entity_type = ?", entityType)
	}

	query := fmt.Sprintf(`
		SELECT id, entity_type, value, occurrences, contexts, first_seen, last_seen
		FROM forensic_entities
		WHERE %s
		ORDER BY occurrences DESC, value
		%s`, w.String(), w.limit(clampLimit(limit, 100)))

	rows, err := scope.Conn.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	defer rows.Close()

	entities := []*models.Entity{}
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entities: %w", err)
	}
	return entities, nil
}

func (r *entityRepository) GetByValue(ctx context.Context, entityType models.EntityType, value string) (*models.Entity, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	row := scope.Conn.QueryRow(ctx, `
		SELECT id, entity_type, value, occurrences, contexts, first_seen, last_seen
		FROM forensic_entities
		WHERE entity_type = $1 AND value = $2`, entityType, value)

	e, err := scanEntity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("entity %s %q: %w", entityType, value, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return e, nil
}

func scanEntity(row pgx.Row) (*models.Entity, error) {
	var e models.Entity
	var contextsJSON []byte
	if err := row.Scan(&e.ID, &e.Type, &e.Value, &e.Occurrences, &contextsJSON, &e.FirstSeen, &e.LastSeen); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan entity: %w", err)
	}
	if err := json.Unmarshal(contextsJSON, &e.Contexts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity contexts: %w", err)
	}
	return &e, nil
}
