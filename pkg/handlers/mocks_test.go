package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/services"
)

type mockQueryService struct {
	result *models.QueryResult
	err    error
	got    services.QueryRequest
}

func (m *mockQueryService) Execute(ctx context.Context, req services.QueryRequest) (*models.QueryResult, error) {
	m.got = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockHistoryService struct {
	records   []*models.QueryRecord
	err       error
	gotLimit  int
	gotCaseID uuid.UUID
}

func (m *mockHistoryService) List(ctx context.Context, caseID uuid.UUID, limit int) ([]*models.QueryRecord, error) {
	m.gotCaseID, m.gotLimit = caseID, limit
	return m.records, m.err
}

type mockAnalyticsService struct {
	analytics *models.CaseAnalytics
	err       error
}

func (m *mockAnalyticsService) CaseAnalytics(ctx context.Context, caseID uuid.UUID) (*models.CaseAnalytics, error) {
	return m.analytics, m.err
}

func (m *mockAnalyticsService) RiskAssessment(ctx context.Context, caseID uuid.UUID) (*models.RiskReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &m.analytics.Risk, nil
}

type mockBackfillService struct {
	report *services.BackfillReport
	err    error
}

func (m *mockBackfillService) Backfill(ctx context.Context, caseID uuid.UUID) (*services.BackfillReport, error) {
	return m.report, m.err
}

type mockEntityService struct {
	entities []*models.Entity
	err      error
	gotType  models.EntityType
	gotLimit int
}

func (m *mockEntityService) List(ctx context.Context, entityType models.EntityType, limit int) ([]*models.Entity, error) {
	m.gotType, m.gotLimit = entityType, limit
	return m.entities, m.err
}

func (m *mockEntityService) GetByValue(ctx context.Context, entityType models.EntityType, value string) (*models.Entity, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, e := range m.entities {
		if e.Type == entityType && e.Value == value {
			return e, nil
		}
	}
	return nil, errNotFoundForTest
}

// passthroughScope stands in for the scoped-connection middleware and counts calls.
type passthroughScope struct {
	calls int
}

func (p *passthroughScope) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p.calls++
		next(w, r)
	}
}
