package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/apperrors"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/audit"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/extraction"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/intent"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
)

type queryFixture struct {
	*retrievalFixture
	scopes   *mockScopeProvider
	cases    *mockCaseRepository
	queries  *mockQueryRepository
	narrator NarrativeGenerator
	logs     *observer.ObservedLogs
}

func newQueryFixture(t *testing.T) *queryFixture {
	t.Helper()
	return &queryFixture{
		retrievalFixture: newRetrievalFixture(t),
		scopes:           &mockScopeProvider{},
		cases:            newMockCaseRepository(),
		queries:          &mockQueryRepository{},
	}
}

// service wires a QueryService over the fixture's mocks and captures its logs.
func (f *queryFixture) service() QueryService {
	core, logs := observer.New(zapcore.DebugLevel)
	f.logs = logs
	logger := zap.New(core)
	retrieval := NewRetrievalService(
		f.chats, f.calls, f.contacts, f.media, f.entities,
		f.embedder,
		extraction.NewExtractor(),
		extraction.NewPhoneClassifier("91"),
		DefaultRetrievalConfig(),
		logger,
	)
	return NewQueryService(
		f.scopes,
		f.cases,
		f.queries,
		retrieval,
		intent.NewKeywordClassifier(nil),
		NewSummaryComposer(f.narrator, logger),
		audit.NewSecurityAuditor(logger),
		logger,
	)
}

func (f *queryFixture) assertScopesReleased(t *testing.T) {
	t.Helper()
	assert.Equal(t, f.scopes.acquired.Load(), f.scopes.released.Load())
}

func TestQueryService_EmptyQuery(t *testing.T) {
	f := newQueryFixture(t)
	svc := f.service()

	_, err := svc.Execute(context.Background(), QueryRequest{Query: "   \n\t"})

	assert.ErrorIs(t, err, apperrors.ErrEmptyQuery)
	assert.Empty(t, f.queries.records)
	assert.Equal(t, int32(0), f.scopes.acquired.Load())
}

func TestQueryService_InvalidFilter(t *testing.T) {
	f := newQueryFixture(t)
	svc := f.service()

	start := t0.Add(time.Hour)
	end := t0
	_, err := svc.Execute(context.Background(), QueryRequest{
		Query:   "show all chats",
		Filters: &models.Filters{StartDate: &start, EndDate: &end},
	})

	assert.ErrorIs(t, err, apperrors.ErrInvalidFilter)
	assert.Empty(t, f.queries.records)
	assert.Equal(t, 1, f.logs.FilterMessage("Filter validation failed").Len())
}

func TestQueryService_UnknownCase(t *testing.T) {
	f := newQueryFixture(t)
	svc := f.service()

	unknown := uuid.New()
	_, err := svc.Execute(context.Background(), QueryRequest{Query: "show all chats", CaseID: &unknown})

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Empty(t, f.queries.records)
	assert.Equal(t, 0, f.logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	f.assertScopesReleased(t)
}

func TestQueryService_CryptoQueryWithEmbeddingOutage(t *testing.T) {
	f := newQueryFixture(t)
	f.embedder.err = errors.New("dial tcp 127.0.0.1:8080: connect: connection refused")
	f.addChat("moved the coins to my wallet", t0, []float32{1, 0, 0})
	f.addChat("bank transfer done", t0.Add(time.Minute), nil)
	f.addChat("happy birthday!", t0.Add(2*time.Minute), nil)
	caseID := f.cases.add(f.device)
	svc := f.service()

	result, err := svc.Execute(context.Background(), QueryRequest{Query: "find crypto wallet transfers", CaseID: &caseID})
	require.NoError(t, err)

	assert.True(t, result.Intent.SearchChats)
	assert.True(t, result.Intent.FindEntities)
	assert.Len(t, result.Results.Chats, 2)
	for _, c := range result.Results.Chats {
		assert.Equal(t, models.MatchKeyword, c.MatchType)
	}
	assert.Equal(t, FallbackSummary, result.Summary)
	assert.Equal(t, result.Results.Total(), result.TotalResults)
	assert.GreaterOrEqual(t, f.logs.FilterMessage("Query embedding failed, continuing with keyword search only").Len(), 1)

	require.Len(t, f.queries.records, 1)
	record := f.queries.records[0]
	assert.Equal(t, result.QueryID, record.ID)
	assert.Equal(t, "chats,entities", record.QueryType)
	assert.Equal(t, "find crypto wallet transfers", record.QueryText)
	assert.Equal(t, &caseID, record.CaseID)
	assert.Equal(t, result.TotalResults, record.ResultCount)

	var stored models.FacetResults
	require.NoError(t, json.Unmarshal(record.Results, &stored))
	assert.Len(t, stored.Chats, 2)

	f.assertScopesReleased(t)
}

func TestQueryService_ForeignCommunications(t *testing.T) {
	f := newQueryFixture(t)
	f.addCall("+91-555-010-0000", t0.Add(time.Minute))
	foreign := f.addCall("+1-555-020-0000", t0)
	svc := f.service()

	result, err := svc.Execute(context.Background(), QueryRequest{Query: "list all communications with foreign numbers"})
	require.NoError(t, err)

	assert.True(t, result.Intent.SearchCalls)
	require.Len(t, result.Results.Calls, 1)
	assert.Equal(t, foreign.ID, result.Results.Calls[0].ID)
	assert.True(t, result.Results.Calls[0].IsForeign)
}

func TestQueryService_CaseWithoutDevices(t *testing.T) {
	f := newQueryFixture(t)
	f.addChat("wallet transfer", t0, nil)
	f.addCall("+1-555-020-0000", t0)
	empty := f.cases.add()
	f.narrator = &mockNarrator{text: "## Key Findings\n- nothing"}
	svc := f.service()

	result, err := svc.Execute(context.Background(), QueryRequest{Query: "show all chats and calls", CaseID: &empty})
	require.NoError(t, err)

	assert.Equal(t, 0, result.TotalResults)
	assert.Empty(t, result.Results.Chats)
	assert.Empty(t, result.Results.Calls)
	assert.Equal(t, NoResultsSummary, result.Summary)
	assert.Equal(t, int32(0), f.narrator.(*mockNarrator).calls.Load())
	require.Len(t, f.queries.records, 1)
}

func TestQueryService_ScopesToCaseDevices(t *testing.T) {
	f := newQueryFixture(t)
	f.addChat("inside the case", t0, nil)
	other := &models.Message{ID: uuid.New(), DeviceID: uuid.New(), Body: "outside the case", SentAt: t0}
	f.chats.messages = append(f.chats.messages, other)
	caseID := f.cases.add(f.device)
	svc := f.service()

	scoped, err := svc.Execute(context.Background(), QueryRequest{Query: "show all chats", CaseID: &caseID})
	require.NoError(t, err)
	require.Len(t, scoped.Results.Chats, 1)
	assert.Equal(t, "inside the case", scoped.Results.Chats[0].Body)

	unscoped, err := svc.Execute(context.Background(), QueryRequest{Query: "show all chats"})
	require.NoError(t, err)
	assert.Len(t, unscoped.Results.Chats, 2)
}

func TestQueryService_NoFacetTriggered(t *testing.T) {
	f := newQueryFixture(t)
	f.addChat("wallet", t0, nil)
	svc := f.service()

	result, err := svc.Execute(context.Background(), QueryRequest{Query: "hello there"})
	require.NoError(t, err)

	assert.Empty(t, result.Intent.Facets())
	assert.Equal(t, 0, result.TotalResults)
	assert.Equal(t, NoResultsSummary, result.Summary)
	require.Len(t, f.queries.records, 1)
	assert.Equal(t, "general", f.queries.records[0].QueryType)
}

func TestQueryService_NarrativeSummary(t *testing.T) {
	f := newQueryFixture(t)
	f.addChat("meet at the docks", t0, nil)
	narrator := &mockNarrator{text: "##Key Findings\n* docks meeting"}
	f.narrator = narrator
	svc := f.service()

	result, err := svc.Execute(context.Background(), QueryRequest{Query: "show all chats"})
	require.NoError(t, err)

	assert.Equal(t, "## Key Findings\n\n- docks meeting", result.Summary)
	assert.Contains(t, narrator.lastPrompt, "meet at the docks")
}

func TestQueryService_StoreFailure(t *testing.T) {
	f := newQueryFixture(t)
	f.chats.err = errStoreDown
	svc := f.service()

	_, err := svc.Execute(context.Background(), QueryRequest{Query: "show all chats"})

	assert.ErrorIs(t, err, errStoreDown)
	assert.Empty(t, f.queries.records)
	f.assertScopesReleased(t)
}

func TestQueryService_PersistFailure(t *testing.T) {
	f := newQueryFixture(t)
	f.addChat("hi", t0, nil)
	f.queries.err = errStoreDown
	svc := f.service()

	_, err := svc.Execute(context.Background(), QueryRequest{Query: "show all chats"})

	assert.ErrorIs(t, err, errStoreDown)
	f.assertScopesReleased(t)
}

func TestQueryService_ConnectionUnavailable(t *testing.T) {
	f := newQueryFixture(t)
	f.scopes.err = errors.New("pool closed")
	caseID := f.cases.add(f.device)
	svc := f.service()

	_, err := svc.Execute(context.Background(), QueryRequest{Query: "show all chats", CaseID: &caseID})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "pool closed")
}

func TestQueryService_AuditsExecutionAndProbes(t *testing.T) {
	f := newQueryFixture(t)
	svc := f.service()

	ctx := audit.WithClientIP(context.Background(), "10.0.0.7")
	result, err := svc.Execute(ctx, QueryRequest{Query: "1' OR '1'='1"})
	require.NoError(t, err)

	probes := f.logs.FilterMessage("SQL injection pattern in query text").All()
	require.Len(t, probes, 1)
	assert.Equal(t, "query", probes[0].ContextMap()["field"])
	assert.Equal(t, "10.0.0.7", probes[0].ContextMap()["client_ip"])

	executed := f.logs.FilterMessage("Query executed").All()
	require.Len(t, executed, 1)
	assert.Equal(t, result.QueryID.String(), executed[0].ContextMap()["query_id"])
}
