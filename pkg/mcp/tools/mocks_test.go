package tools

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/services"
)

type mockQueryService struct {
	result *models.QueryResult
	err    error
	got    *services.QueryRequest
}

func (m *mockQueryService) Execute(ctx context.Context, req services.QueryRequest) (*models.QueryResult, error) {
	m.got = &req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockAnalyticsService struct {
	report  *models.RiskReport
	err     error
	scoped  bool
	gotCase uuid.UUID
}

func (m *mockAnalyticsService) CaseAnalytics(ctx context.Context, caseID uuid.UUID) (*models.CaseAnalytics, error) {
	return nil, errors.New("not used")
}

func (m *mockAnalyticsService) RiskAssessment(ctx context.Context, caseID uuid.UUID) (*models.RiskReport, error) {
	m.gotCase = caseID
	m.scoped = ctx.Value(scopeMarker{}) != nil
	if m.err != nil {
		return nil, m.err
	}
	return m.report, nil
}

type scopeMarker struct{}

type mockScopes struct {
	err      error
	acquired int
	released int
}

func (m *mockScopes) WithScope(ctx context.Context) (context.Context, func(), error) {
	if m.err != nil {
		return nil, nil, m.err
	}
	m.acquired++
	return context.WithValue(ctx, scopeMarker{}, true), func() { m.released++ }, nil
}
