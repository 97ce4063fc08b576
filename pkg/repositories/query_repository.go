package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
)

// QueryRepository provides append-only access to executed query records.
// There is deliberately no update or delete path.
type QueryRepository interface {
	Create(ctx context.Context, record *models.QueryRecord) error
	ListByCase(ctx context.Context, caseID uuid.UUID, limit int) ([]*models.QueryRecord, error)
}

type queryRepository struct{}

// NewQueryRepository creates a new QueryRepository.
func NewQueryRepository() QueryRepository {
	return &queryRepository{}
}

var _ QueryRepository = (*queryRepository)(nil)

func (r *queryRepository) Create(ctx context.Context, record *models.QueryRecord) error {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return err
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	results := record.Results
	if len(results) == 0 {
		results = []byte("{}")
	}

	query := `
		INSERT INTO queries (
			id, case_id, query_text, query_type, results, result_count, execution_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = scope.Conn.Exec(ctx, query,
		record.ID,
		record.CaseID,
		record.QueryText,
		record.QueryType,
		[]byte(results),
		record.ResultCount,
		record.ExecutionMS,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create query record: %w", err)
	}

	return nil
}

func (r *queryRepository) ListByCase(ctx context.Context, caseID uuid.UUID, limit int) ([]*models.QueryRecord, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT id, case_id, query_text, query_type, results, result_count, execution_ms, created_at
		FROM queries
		WHERE case_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2`

	rows, err := scope.Conn.Query(ctx, query, caseID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list query records: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.QueryRecord, error) {
		var q models.QueryRecord
		var results []byte
		err := row.Scan(&q.ID, &q.CaseID, &q.QueryText, &q.QueryType, &results, &q.ResultCount, &q.ExecutionMS, &q.CreatedAt)
		q.Results = results
		return &q, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan query records: %w", err)
	}
	if records == nil {
		records = []*models.QueryRecord{}
	}
	return records, nil
}
