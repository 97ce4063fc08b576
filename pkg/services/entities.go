package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/apperrors"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/repositories"
)

// EntityService reads persisted entity records.
type EntityService interface {
	// List returns entities by descending occurrence. An empty type lists every category.
	List(ctx context.Context, entityType models.EntityType, limit int) ([]*models.Entity, error)
	GetByValue(ctx context.Context, entityType models.EntityType, value string) (*models.Entity, error)
}

type entityService struct {
	entities repositories.EntityRepository
	logger   *zap.Logger
}

func NewEntityService(entities repositories.EntityRepository, logger *zap.Logger) EntityService {
	return &entityService{
		entities: entities,
		logger:   logger.Named("entity-service"),
	}
}

var _ EntityService = (*entityService)(nil)

func (s *entityService) List(ctx context.Context, entityType models.EntityType, limit int) ([]*models.Entity, error) {
	if entityType != "" && !entityType.IsValid() {
		return nil, fmt.Errorf("%w: unknown entity type %q", apperrors.ErrInvalidFilter, entityType)
	}

	entities, err := s.entities.List(ctx, entityType, limit)
	if err != nil {
		s.logger.Error("Failed to list entities", zap.String("type", string(entityType)), zap.Error(err))
		return nil, err
	}
	return entities, nil
}

func (s *entityService) GetByValue(ctx context.Context, entityType models.EntityType, value string) (*models.Entity, error) {
	if !entityType.IsValid() {
		return nil, fmt.Errorf("%w: unknown entity type %q", apperrors.ErrInvalidFilter, entityType)
	}
	return s.entities.GetByValue(ctx, entityType, value)
}
