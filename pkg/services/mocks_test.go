package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/apperrors"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/repositories"
)

var errStoreDown = errors.New("connection refused")

// mockScopeProvider hands back the caller's context unchanged.
type mockScopeProvider struct {
	acquired atomic.Int32
	released atomic.Int32
	err      error
}

func (m *mockScopeProvider) WithScope(ctx context.Context) (context.Context, func(), error) {
	if m.err != nil {
		return nil, nil, m.err
	}
	m.acquired.Add(1)
	return ctx, func() { m.released.Add(1) }, nil
}

type mockCaseRepository struct {
	cases   map[uuid.UUID]*models.Case
	devices map[uuid.UUID][]uuid.UUID
	err     error
}

func newMockCaseRepository() *mockCaseRepository {
	return &mockCaseRepository{
		cases:   map[uuid.UUID]*models.Case{},
		devices: map[uuid.UUID][]uuid.UUID{},
	}
}

func (m *mockCaseRepository) add(devices ...uuid.UUID) uuid.UUID {
	id := uuid.New()
	m.cases[id] = &models.Case{ID: id, Name: "case " + id.String()[:8]}
	m.devices[id] = devices
	return id
}

func (m *mockCaseRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Case, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.cases[id]
	if !ok {
		return nil, fmt.Errorf("case %s: %w", id, apperrors.ErrNotFound)
	}
	return c, nil
}

func (m *mockCaseRepository) DeviceIDs(_ context.Context, caseID uuid.UUID) ([]uuid.UUID, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.devices[caseID], nil
}

func (m *mockCaseRepository) AllDeviceIDs(_ context.Context) ([]uuid.UUID, error) {
	var all []uuid.UUID
	for _, ids := range m.devices {
		all = append(all, ids...)
	}
	return all, nil
}

func inScope(scope models.DeviceScope, device uuid.UUID) bool {
	if scope.All {
		return true
	}
	for _, id := range scope.IDs {
		if id == device {
			return true
		}
	}
	return false
}

type mockChatRepository struct {
	mu         sync.Mutex
	messages   []*models.Message
	err        error
	embedded   map[uuid.UUID][]float32
	listCalls  atomic.Int32
	lastLimits []int
}

func (m *mockChatRepository) filtered(scope models.DeviceScope, filters *models.Filters, limit int, embeddedOnly bool) []*models.Message {
	var out []*models.Message
	for _, msg := range m.messages {
		if !inScope(scope, msg.DeviceID) || !filters.InRange(msg.SentAt) {
			continue
		}
		if filters != nil && filters.Platform != "" && !strings.EqualFold(filters.Platform, msg.Platform) {
			continue
		}
		if embeddedOnly && len(msg.Embedding) == 0 {
			continue
		}
		copied := *msg
		if !embeddedOnly {
			copied.Embedding = nil
		}
		out = append(out, &copied)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SentAt.After(out[j].SentAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []*models.Message{}
	}
	return out
}

func (m *mockChatRepository) record(limit int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimits = append(m.lastLimits, limit)
}

func (m *mockChatRepository) ListRecent(_ context.Context, scope models.DeviceScope, filters *models.Filters, limit int) ([]*models.Message, error) {
	m.listCalls.Add(1)
	m.record(limit)
	if m.err != nil {
		return nil, m.err
	}
	return m.filtered(scope, filters, limit, false), nil
}

func (m *mockChatRepository) ListEmbedded(_ context.Context, scope models.DeviceScope, filters *models.Filters, limit int) ([]*models.Message, error) {
	m.listCalls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.filtered(scope, filters, limit, true), nil
}

func (m *mockChatRepository) ListMissingEmbeddings(_ context.Context, scope models.DeviceScope, limit int) ([]*models.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Message
	for _, msg := range m.messages {
		if inScope(scope, msg.DeviceID) && len(msg.Embedding) == 0 && m.embedded[msg.ID] == nil && strings.TrimSpace(msg.Body) != "" {
			out = append(out, msg)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockChatRepository) UpdateEmbedding(_ context.Context, id uuid.UUID, vec []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.embedded == nil {
		m.embedded = map[uuid.UUID][]float32{}
	}
	m.embedded[id] = vec
	return nil
}

func (m *mockChatRepository) CountByPlatform(_ context.Context, scope models.DeviceScope) (map[string]int, error) {
	counts := map[string]int{}
	for _, msg := range m.messages {
		if inScope(scope, msg.DeviceID) {
			counts[msg.Platform]++
		}
	}
	return counts, nil
}

type mockCallRepository struct {
	calls []*models.Call
	err   error
}

func (m *mockCallRepository) list(scope models.DeviceScope, filters *models.Filters, limit int, newestFirst bool) []*models.Call {
	var out []*models.Call
	for _, c := range m.calls {
		if !inScope(scope, c.DeviceID) || !filters.InRange(c.CalledAt) {
			continue
		}
		if filters != nil && filters.CallType != "" && filters.CallType != c.CallType {
			continue
		}
		copied := *c
		out = append(out, &copied)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CalledAt.After(out[j].CalledAt)
		}
		return out[i].CalledAt.Before(out[j].CalledAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []*models.Call{}
	}
	return out
}

func (m *mockCallRepository) ListRecent(_ context.Context, scope models.DeviceScope, filters *models.Filters, limit int) ([]*models.Call, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.list(scope, filters, limit, true), nil
}

func (m *mockCallRepository) ListAll(_ context.Context, scope models.DeviceScope, filters *models.Filters, limit int) ([]*models.Call, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.list(scope, filters, limit, false), nil
}

func (m *mockCallRepository) CountByType(_ context.Context, scope models.DeviceScope) (map[string]int, error) {
	counts := map[string]int{}
	for _, c := range m.calls {
		if inScope(scope, c.DeviceID) {
			counts[c.CallType]++
		}
	}
	return counts, nil
}

type mockContactRepository struct {
	contacts   []*models.Contact
	err        error
	lastSearch repositories.ContactSearch
	searched   bool
}

func (m *mockContactRepository) ListRecent(_ context.Context, scope models.DeviceScope, limit int) ([]*models.Contact, error) {
	return m.ListAll(context.Background(), scope, limit)
}

func (m *mockContactRepository) Search(_ context.Context, scope models.DeviceScope, search repositories.ContactSearch, limit int) ([]*models.Contact, error) {
	m.searched = true
	m.lastSearch = search
	if m.err != nil {
		return nil, m.err
	}
	var out []*models.Contact
	for _, c := range m.contacts {
		if !inScope(scope, c.DeviceID) {
			continue
		}
		if contactMatches(c, search) {
			out = append(out, c)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func contactMatches(c *models.Contact, search repositories.ContactSearch) bool {
	for _, term := range search.NameTerms {
		if strings.Contains(strings.ToLower(c.Name), strings.ToLower(term)) {
			return true
		}
	}
	for _, p := range search.Phones {
		for _, have := range c.PhoneNumbers {
			if have == p {
				return true
			}
		}
	}
	for _, e := range search.Emails {
		for _, have := range c.Emails {
			if strings.EqualFold(have, e) {
				return true
			}
		}
	}
	return false
}

func (m *mockContactRepository) ListAll(_ context.Context, scope models.DeviceScope, limit int) ([]*models.Contact, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []*models.Contact{}
	for _, c := range m.contacts {
		if inScope(scope, c.DeviceID) {
			out = append(out, c)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockContactRepository) Count(_ context.Context, scope models.DeviceScope) (int, error) {
	all, err := m.ListAll(context.Background(), scope, 0)
	return len(all), err
}

type mockMediaRepository struct {
	files []*models.Media
	err   error
}

func (m *mockMediaRepository) List(_ context.Context, scope models.DeviceScope, filters *models.Filters, limit int) ([]*models.Media, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []*models.Media{}
	for _, f := range m.files {
		if !inScope(scope, f.DeviceID) {
			continue
		}
		if filters != nil && filters.MediaType != "" && filters.MediaType != f.MediaType {
			continue
		}
		out = append(out, f)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockMediaRepository) Count(_ context.Context, scope models.DeviceScope) (int, error) {
	n := 0
	for _, f := range m.files {
		if inScope(scope, f.DeviceID) {
			n++
		}
	}
	return n, nil
}

// mockEntityRepository mirrors the store's per-source idempotence.
type mockEntityRepository struct {
	mu       sync.Mutex
	entities map[string]*models.Entity
	sources  map[string]bool
	err      error
}

func newMockEntityRepository() *mockEntityRepository {
	return &mockEntityRepository{entities: map[string]*models.Entity{}, sources: map[string]bool{}}
}

func (m *mockEntityRepository) Upsert(_ context.Context, e *models.Entity, sourceRef string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := string(e.Type) + "|" + e.Value
	if sourceRef != "" {
		if m.sources[key+"|"+sourceRef] {
			return false, nil
		}
		m.sources[key+"|"+sourceRef] = true
	}
	existing, ok := m.entities[key]
	if !ok {
		copied := *e
		m.entities[key] = &copied
		return true, nil
	}
	existing.Occurrences += e.Occurrences
	existing.Contexts = append(existing.Contexts, e.Contexts...)
	return true, nil
}

func (m *mockEntityRepository) List(_ context.Context, t models.EntityType, limit int) ([]*models.Entity, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Entity{}
	for _, e := range m.entities {
		if t == "" || e.Type == t {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Occurrences > out[j].Occurrences })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockEntityRepository) GetByValue(_ context.Context, t models.EntityType, value string) (*models.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entities[string(t)+"|"+value]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return e, nil
}

func (m *mockEntityRepository) occurrences(t models.EntityType, value string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entities[string(t)+"|"+value]; ok {
		return e.Occurrences
	}
	return 0
}

type mockQueryRepository struct {
	mu      sync.Mutex
	records []*models.QueryRecord
	err     error
}

func (m *mockQueryRepository) Create(_ context.Context, record *models.QueryRecord) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	m.records = append(m.records, record)
	return nil
}

func (m *mockQueryRepository) ListByCase(_ context.Context, caseID uuid.UUID, limit int) ([]*models.QueryRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.QueryRecord{}
	for i := len(m.records) - 1; i >= 0; i-- {
		r := m.records[i]
		if r.CaseID != nil && *r.CaseID == caseID {
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// mockEmbedder returns fixed vectors per text, or err for everything.
type mockEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   atomic.Int32
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

// mockNarrator records prompts and returns text or err.
type mockNarrator struct {
	text       string
	err        error
	calls      atomic.Int32
	lastPrompt string
}

func (m *mockNarrator) Generate(_ context.Context, _ string, userPrompt string) (string, error) {
	m.calls.Add(1)
	m.lastPrompt = userPrompt
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}
