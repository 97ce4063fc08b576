package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
)

// MediaRepository provides read access to recovered media files.
type MediaRepository interface {
	// List returns media newest first, filtered by kind and date range only.
	List(ctx context.Context, scope models.DeviceScope, filters *models.Filters, limit int) ([]*models.Media, error)
	Count(ctx context.Context, scope models.DeviceScope) (int, error)
}

type mediaRepository struct{}

// NewMediaRepository creates a new MediaRepository.
func NewMediaRepository() MediaRepository {
	return &mediaRepository{}
}

var _ MediaRepository = (*mediaRepository)(nil)

func (r *mediaRepository) List(ctx context.Context, scope models.DeviceScope, filters *models.Filters, limit int) ([]*models.Media, error) {
	if scope.IsEmpty() {
		return []*models.Media{}, nil
	}

	dbScope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	w := &where{}
	w.devices("device_id", scope)
	w.dateRange("created_at", filters)
	if filters != nil && filters.MediaType != "" {
		w.add("media_type = ?", filters.MediaType)
	}

	query := fmt.Sprintf(`
		SELECT id, device_id, media_type, filename, storage_path, size_bytes, mime_type,
		       created_at, modified_at, latitude, longitude
		FROM media_files
		WHERE %s
		ORDER BY created_at DESC NULLS LAST, id
		%s`, w.String(), w.limit(clampLimit(limit, 50)))

	rows, err := dbScope.Conn.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}

	media, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Media, error) {
		var m models.Media
		err := row.Scan(&m.ID, &m.DeviceID, &m.MediaType, &m.Filename, &m.StoragePath, &m.SizeBytes, &m.MimeType,
			&m.CreatedAt, &m.ModifiedAt, &m.Latitude, &m.Longitude)
		return &m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan media: %w", err)
	}
	if media == nil {
		media = []*models.Media{}
	}
	return media, nil
}

func (r *mediaRepository) Count(ctx context.Context, scope models.DeviceScope) (int, error) {
	if scope.IsEmpty() {
		return 0, nil
	}

	dbScope, err := scopeFrom(ctx)
	if err != nil {
		return 0, err
	}

	w := &where{}
	w.devices("device_id", scope)

	var n int
	if err := dbScope.Conn.QueryRow(ctx, "SELECT COUNT(*) FROM media_files WHERE "+w.String(), w.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count media: %w", err)
	}
	return n, nil
}
