package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/apperrors"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/extraction"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/repositories"
)

// AnalyticsService summarizes a case and scores its risk.
type AnalyticsService interface {
	CaseAnalytics(ctx context.Context, caseID uuid.UUID) (*models.CaseAnalytics, error)
	RiskAssessment(ctx context.Context, caseID uuid.UUID) (*models.RiskReport, error)
}

type analyticsService struct {
	cases     repositories.CaseRepository
	chats     repositories.ChatRepository
	calls     repositories.CallRepository
	contacts  repositories.ContactRepository
	media     repositories.MediaRepository
	phones    *extraction.PhoneClassifier
	location  *time.Location
	scanLimit int
	logger    *zap.Logger
}

// NewAnalyticsService creates an AnalyticsService. Unusual hours are judged in location.
func NewAnalyticsService(
	cases repositories.CaseRepository,
	chats repositories.ChatRepository,
	calls repositories.CallRepository,
	contacts repositories.ContactRepository,
	media repositories.MediaRepository,
	phones *extraction.PhoneClassifier,
	location *time.Location,
	scanLimit int,
	logger *zap.Logger,
) AnalyticsService {
	if scanLimit <= 0 {
		scanLimit = DefaultRetrievalConfig().ScanLimit
	}
	return &analyticsService{
		cases:     cases,
		chats:     chats,
		calls:     calls,
		contacts:  contacts,
		media:     media,
		phones:    phones,
		location:  location,
		scanLimit: scanLimit,
		logger:    logger.Named("analytics-service"),
	}
}

var _ AnalyticsService = (*analyticsService)(nil)

func (s *analyticsService) CaseAnalytics(ctx context.Context, caseID uuid.UUID) (*models.CaseAnalytics, error) {
	scope, err := s.caseScope(ctx, caseID)
	if err != nil {
		return nil, err
	}

	platforms, err := s.chats.CountByPlatform(ctx, scope)
	if err != nil {
		s.logger.Error("Failed to count messages", zap.String("case_id", caseID.String()), zap.Error(err))
		return nil, err
	}
	callTypes, err := s.calls.CountByType(ctx, scope)
	if err != nil {
		s.logger.Error("Failed to count calls", zap.String("case_id", caseID.String()), zap.Error(err))
		return nil, err
	}
	contacts, err := s.contacts.Count(ctx, scope)
	if err != nil {
		s.logger.Error("Failed to count contacts", zap.String("case_id", caseID.String()), zap.Error(err))
		return nil, err
	}
	media, err := s.media.Count(ctx, scope)
	if err != nil {
		s.logger.Error("Failed to count media", zap.String("case_id", caseID.String()), zap.Error(err))
		return nil, err
	}

	report, err := s.risk(ctx, scope)
	if err != nil {
		return nil, err
	}

	overview := models.CaseOverview{
		Devices:         len(scope.IDs),
		DeletedMessages: report.Stats.DeletedMessages,
		Contacts:        contacts,
		Media:           media,
		Platforms:       platforms,
		CallTypes:       callTypes,
	}
	for _, n := range platforms {
		overview.Messages += n
	}
	for _, n := range callTypes {
		overview.Calls += n
	}

	return &models.CaseAnalytics{Overview: overview, Risk: *report}, nil
}

func (s *analyticsService) RiskAssessment(ctx context.Context, caseID uuid.UUID) (*models.RiskReport, error) {
	scope, err := s.caseScope(ctx, caseID)
	if err != nil {
		return nil, err
	}
	return s.risk(ctx, scope)
}

func (s *analyticsService) caseScope(ctx context.Context, caseID uuid.UUID) (models.DeviceScope, error) {
	if _, err := s.cases.GetByID(ctx, caseID); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Error("Failed to load case", zap.String("case_id", caseID.String()), zap.Error(err))
		}
		return models.DeviceScope{}, err
	}
	ids, err := s.cases.DeviceIDs(ctx, caseID)
	if err != nil {
		s.logger.Error("Failed to load case devices", zap.String("case_id", caseID.String()), zap.Error(err))
		return models.DeviceScope{}, err
	}
	return models.DevicesOf(ids), nil
}

func (s *analyticsService) risk(ctx context.Context, scope models.DeviceScope) (*models.RiskReport, error) {
	chats, err := s.chats.ListRecent(ctx, scope, nil, s.scanLimit)
	if err != nil {
		s.logger.Error("Failed to load chats for risk analysis", zap.Error(err))
		return nil, err
	}
	calls, err := s.calls.ListAll(ctx, scope, nil, s.scanLimit)
	if err != nil {
		s.logger.Error("Failed to load calls for risk analysis", zap.Error(err))
		return nil, err
	}
	report := AnalyzeRisk(chats, calls, s.phones, s.location)
	return &report, nil
}
