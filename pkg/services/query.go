package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/apperrors"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/audit"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/database"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/intent"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/metrics"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/repositories"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/sql"
)

// QueryRequest is one natural-language query.
type QueryRequest struct {
	Query   string          `json:"query"`
	CaseID  *uuid.UUID      `json:"caseId,omitempty"`
	Filters *models.Filters `json:"filters,omitempty"`
}

// QueryService executes natural-language queries across the enabled facets.
type QueryService interface {
	Execute(ctx context.Context, req QueryRequest) (*models.QueryResult, error)
}

type queryService struct {
	scopes     database.ScopeProvider
	cases      repositories.CaseRepository
	queries    repositories.QueryRepository
	retrieval  RetrievalService
	classifier intent.Classifier
	composer   *SummaryComposer
	auditor    *audit.SecurityAuditor
	logger     *zap.Logger
}

// NewQueryService creates a QueryService. Each facet runs on its own pooled
// connection obtained from scopes, so ctx need not carry a database scope.
func NewQueryService(
	scopes database.ScopeProvider,
	cases repositories.CaseRepository,
	queries repositories.QueryRepository,
	retrieval RetrievalService,
	classifier intent.Classifier,
	composer *SummaryComposer,
	auditor *audit.SecurityAuditor,
	logger *zap.Logger,
) QueryService {
	return &queryService{
		scopes:     scopes,
		cases:      cases,
		queries:    queries,
		retrieval:  retrieval,
		classifier: classifier,
		composer:   composer,
		auditor:    auditor,
		logger:     logger.Named("query-service"),
	}
}

var _ QueryService = (*queryService)(nil)

func (s *queryService) Execute(ctx context.Context, req QueryRequest) (*models.QueryResult, error) {
	start := time.Now()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		metrics.ObserveQuery(metrics.StatusInvalid, time.Since(start))
		return nil, apperrors.ErrEmptyQuery
	}
	if err := req.Filters.Validate(); err != nil {
		s.auditor.LogFilterValidation(ctx, req.CaseID, err.Error())
		metrics.ObserveQuery(metrics.StatusInvalid, time.Since(start))
		return nil, err
	}

	s.probe(ctx, query, req)

	queryIntent := s.classifier.Classify(query)

	scope, err := s.resolveScope(ctx, req.CaseID)
	if err != nil {
		metrics.ObserveQuery(statusFor(err), time.Since(start))
		return nil, err
	}

	s.logger.Debug("Executing query",
		zap.String("query_type", queryIntent.QueryType()),
		zap.String("scope", describeScope(scope)))

	results, err := s.runFacets(ctx, query, queryIntent, scope, req.Filters)
	if err != nil {
		s.logger.Error("Failed to execute query",
			zap.String("query_type", queryIntent.QueryType()),
			zap.Error(err))
		metrics.ObserveQuery(metrics.StatusError, time.Since(start))
		return nil, err
	}

	total := results.Total()
	summary := s.composer.Compose(ctx, query, results)
	elapsed := time.Since(start)

	record, err := s.persist(ctx, query, req.CaseID, queryIntent, results, total, elapsed)
	if err != nil {
		metrics.ObserveQuery(metrics.StatusError, time.Since(start))
		return nil, err
	}

	s.auditor.LogQueryExecution(ctx, req.CaseID, record.ID, record.QueryType, total)
	metrics.ObserveQuery(metrics.StatusSuccess, elapsed)

	return &models.QueryResult{
		QueryID:       record.ID,
		Intent:        queryIntent,
		Results:       *results,
		Summary:       summary,
		ExecutionTime: elapsed.Milliseconds(),
		TotalResults:  total,
	}, nil
}

// probe audits query text and filter strings that look like SQL injection.
func (s *queryService) probe(ctx context.Context, query string, req QueryRequest) {
	fields := map[string]string{"query": query}
	if req.Filters != nil {
		fields["platform"] = req.Filters.Platform
	}
	for _, hit := range sql.CheckFields(fields) {
		s.auditor.LogInjectionProbe(ctx, req.CaseID, audit.InjectionDetails{
			Field:       hit.Field,
			Value:       hit.Value,
			Fingerprint: hit.Fingerprint,
		})
	}
}

// resolveScope maps an optional case id onto the devices to search.
func (s *queryService) resolveScope(ctx context.Context, caseID *uuid.UUID) (models.DeviceScope, error) {
	if caseID == nil {
		return models.AllDevices(), nil
	}

	scopedCtx, cleanup, err := s.scopes.WithScope(ctx)
	if err != nil {
		s.logger.Error("Failed to acquire connection", zap.Error(err))
		return models.DeviceScope{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer cleanup()

	if _, err := s.cases.GetByID(scopedCtx, *caseID); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Error("Failed to load case", zap.String("case_id", caseID.String()), zap.Error(err))
		}
		return models.DeviceScope{}, err
	}

	ids, err := s.cases.DeviceIDs(scopedCtx, *caseID)
	if err != nil {
		s.logger.Error("Failed to load case devices", zap.String("case_id", caseID.String()), zap.Error(err))
		return models.DeviceScope{}, err
	}
	return models.DevicesOf(ids), nil
}

// runFacets runs every enabled facet concurrently, each on its own connection.
// The first failure cancels the rest.
func (s *queryService) runFacets(ctx context.Context, query string, queryIntent models.Intent, scope models.DeviceScope, filters *models.Filters) (*models.FacetResults, error) {
	results := &models.FacetResults{}
	g, gctx := errgroup.WithContext(ctx)

	run := func(facet string, fn func(ctx context.Context) (int, error)) {
		g.Go(func() error {
			scopedCtx, cleanup, err := s.scopes.WithScope(gctx)
			if err != nil {
				return fmt.Errorf("%s: acquire connection: %w", facet, err)
			}
			defer cleanup()

			n, err := fn(scopedCtx)
			if err != nil {
				return fmt.Errorf("%s: %w", facet, err)
			}
			metrics.ObserveFacet(facet, n)
			return nil
		})
	}

	if queryIntent.SearchChats {
		run(models.FacetChats, func(ctx context.Context) (int, error) {
			chats, err := s.retrieval.SearchChats(ctx, query, scope, filters)
			results.Chats = chats
			return len(chats), err
		})
	}
	if queryIntent.SearchCalls {
		run(models.FacetCalls, func(ctx context.Context) (int, error) {
			calls, err := s.retrieval.SearchCalls(ctx, query, scope, filters)
			results.Calls = calls
			return len(calls), err
		})
	}
	if queryIntent.SearchContacts {
		run(models.FacetContacts, func(ctx context.Context) (int, error) {
			contacts, err := s.retrieval.SearchContacts(ctx, query, scope)
			results.Contacts = contacts
			return len(contacts), err
		})
	}
	if queryIntent.SearchMedia {
		run(models.FacetMedia, func(ctx context.Context) (int, error) {
			media, err := s.retrieval.SearchMedia(ctx, scope, filters)
			results.Media = media
			return len(media), err
		})
	}
	if queryIntent.FindEntities {
		run(models.FacetEntities, func(ctx context.Context) (int, error) {
			entities, err := s.retrieval.SearchEntities(ctx, scope, filters)
			results.Entities = entities
			return entities.Total(), err
		})
	}
	if queryIntent.FindConnections {
		run(models.FacetConnections, func(ctx context.Context) (int, error) {
			connections, err := s.retrieval.SearchConnections(ctx, queryIntent.ConnectionParams, scope, filters)
			results.Connections = connections
			return connections.Total(), err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// persist writes the immutable QueryRecord for this execution.
func (s *queryService) persist(ctx context.Context, query string, caseID *uuid.UUID, queryIntent models.Intent, results *models.FacetResults, total int, elapsed time.Duration) (*models.QueryRecord, error) {
	payload, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("encode results: %w", err)
	}

	record := &models.QueryRecord{
		CaseID:      caseID,
		QueryText:   query,
		QueryType:   queryIntent.QueryType(),
		Results:     payload,
		ResultCount: total,
		ExecutionMS: elapsed.Milliseconds(),
	}

	scopedCtx, cleanup, err := s.scopes.WithScope(ctx)
	if err != nil {
		s.logger.Error("Failed to acquire connection", zap.Error(err))
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer cleanup()

	if err := s.queries.Create(scopedCtx, record); err != nil {
		s.logger.Error("Failed to record query", zap.Error(err))
		return nil, err
	}
	return record, nil
}

func statusFor(err error) string {
	if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrInvalidFilter) {
		return metrics.StatusInvalid
	}
	return metrics.StatusError
}
