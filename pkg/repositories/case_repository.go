package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/apperrors"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
)

// CaseRepository provides read access to cases and the devices they own.
type CaseRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Case, error)
	DeviceIDs(ctx context.Context, caseID uuid.UUID) ([]uuid.UUID, error)
	AllDeviceIDs(ctx context.Context) ([]uuid.UUID, error)
}

type caseRepository struct{}

// NewCaseRepository creates a new CaseRepository.
func NewCaseRepository() CaseRepository {
	return &caseRepository{}
}

var _ CaseRepository = (*caseRepository)(nil)

func (r *caseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, name, description, status, created_at, updated_at
		FROM cases
		WHERE id = $1`

	var c models.Case
	err = scope.Conn.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Description, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("case %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get case: %w", err)
	}

	return &c, nil
}

func (r *caseRepository) DeviceIDs(ctx context.Context, caseID uuid.UUID) ([]uuid.UUID, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := scope.Conn.Query(ctx, `SELECT id FROM devices WHERE case_id = $1 ORDER BY created_at`, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list case devices: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("failed to scan case devices: %w", err)
	}
	return ids, nil
}

func (r *caseRepository) AllDeviceIDs(ctx context.Context) ([]uuid.UUID, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := scope.Conn.Query(ctx, `SELECT id FROM devices ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("failed to scan devices: %w", err)
	}
	return ids, nil
}
