package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/apperrors"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/repositories"
)

// HistoryService lists the queries recorded against a case.
type HistoryService interface {
	List(ctx context.Context, caseID uuid.UUID, limit int) ([]*models.QueryRecord, error)
}

type historyService struct {
	cases   repositories.CaseRepository
	queries repositories.QueryRepository
	logger  *zap.Logger
}

func NewHistoryService(cases repositories.CaseRepository, queries repositories.QueryRepository, logger *zap.Logger) HistoryService {
	return &historyService{
		cases:   cases,
		queries: queries,
		logger:  logger.Named("query-history-service"),
	}
}

var _ HistoryService = (*historyService)(nil)

func (s *historyService) List(ctx context.Context, caseID uuid.UUID, limit int) ([]*models.QueryRecord, error) {
	if _, err := s.cases.GetByID(ctx, caseID); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Error("Failed to load case", zap.String("case_id", caseID.String()), zap.Error(err))
		}
		return nil, err
	}

	records, err := s.queries.ListByCase(ctx, caseID, limit)
	if err != nil {
		s.logger.Error("Failed to list query history",
			zap.String("case_id", caseID.String()),
			zap.Error(err))
		return nil, err
	}
	return records, nil
}
