package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
)

// CallRepository provides read access to call logs.
type CallRepository interface {
	// ListRecent returns calls newest first.
	ListRecent(ctx context.Context, scope models.DeviceScope, filters *models.Filters, limit int) ([]*models.Call, error)
	// ListAll returns calls in chronological order.
	ListAll(ctx context.Context, scope models.DeviceScope, filters *models.Filters, limit int) ([]*models.Call, error)
	CountByType(ctx context.Context, scope models.DeviceScope) (map[string]int, error)
}

type callRepository struct{}

// NewCallRepository creates a new CallRepository.
func NewCallRepository() CallRepository {
	return &callRepository{}
}

var _ CallRepository = (*callRepository)(nil)

func (r *callRepository) ListRecent(ctx context.Context, scope models.DeviceScope, filters *models.Filters, limit int) ([]*models.Call, error) {
	return r.list(ctx, scope, filters, "called_at DESC, id", clampLimit(limit, 50))
}

func (r *callRepository) ListAll(ctx context.Context, scope models.DeviceScope, filters *models.Filters, limit int) ([]*models.Call, error) {
	return r.list(ctx, scope, filters, "called_at ASC, id", clampLimit(limit, 20000))
}

func (r *callRepository) list(ctx context.Context, scope models.DeviceScope, filters *models.Filters, order string, limit int) ([]*models.Call, error) {
	if scope.IsEmpty() {
		return []*models.Call{}, nil
	}

	dbScope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	w := &where{}
	w.devices("device_id", scope)
	w.dateRange("called_at", filters)
	if filters != nil && filters.CallType != "" {
		w.add("call_type = ?", filters.CallType)
	}

	query := fmt.Sprintf(`
		SELECT id, device_id, call_type, phone_number, contact_name, duration_seconds, called_at
		FROM call_logs
		WHERE %s
		ORDER BY %s
		%s`, w.String(), order, w.limit(limit))

	rows, err := dbScope.Conn.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list calls: %w", err)
	}

	calls, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Call, error) {
		var c models.Call
		err := row.Scan(&c.ID, &c.DeviceID, &c.CallType, &c.PhoneNumber, &c.ContactName, &c.DurationSeconds, &c.CalledAt)
		return &c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan calls: %w", err)
	}
	if calls == nil {
		calls = []*models.Call{}
	}
	return calls, nil
}

func (r *callRepository) CountByType(ctx context.Context, scope models.DeviceScope) (map[string]int, error) {
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

	query := fmt.Sprintf(`SELECT call_type, COUNT(*) FROM call_logs WHERE %s GROUP BY call_type`, w.String())

	rows, err := dbScope.Conn.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count calls: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var callType string
		var n int
		if err := rows.Scan(&callType, &n); err != nil {
			return nil, fmt.Errorf("failed to scan call count: %w", err)
		}
		counts[callType] = n
	}
	return counts, rows.Err()
}
