package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/embedding"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/extraction"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/intent"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/metrics"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/repositories"
)

// Facet result limits.
const (
	ShowAllChatLimit    = 50
	SemanticTopK        = 30
	ChatResultLimit     = 100
	ShowAllCallLimit    = 100
	CallResultLimit     = 50
	ShowAllContactLimit = 100
	ContactResultLimit  = 50
	MediaResultLimit    = 50
)

// RetrievalConfig tunes the retrieval engine.
type RetrievalConfig struct {
	// SemanticThreshold is the minimum cosine similarity for a semantic hit.
	SemanticThreshold float64
	// ScanLimit bounds how many records a single scan loads.
	ScanLimit int
}

// DefaultRetrievalConfig returns the default tuning.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{SemanticThreshold: 0.3, ScanLimit: 20000}
}

// RetrievalService runs one facet search against a device scope. Every method
// expects a database scope in ctx.
type RetrievalService interface {
	SearchChats(ctx context.Context, query string, scope models.DeviceScope, filters *models.Filters) ([]models.ChatResult, error)
	SearchCalls(ctx context.Context, query string, scope models.DeviceScope, filters *models.Filters) ([]models.CallResult, error)
	SearchContacts(ctx context.Context, query string, scope models.DeviceScope) ([]models.ContactResult, error)
	SearchMedia(ctx context.Context, scope models.DeviceScope, filters *models.Filters) ([]models.MediaResult, error)
	SearchEntities(ctx context.Context, scope models.DeviceScope, filters *models.Filters) (*models.ExtractedEntities, error)
	SearchConnections(ctx context.Context, params models.ConnectionParams, scope models.DeviceScope, filters *models.Filters) (*models.ConnectionResult, error)
}

// Terms that mark a chat as relevant to a keyword search regardless of the query.
var chatSuspiciousTerms = []string{
	"payment", "transfer", "money", "bitcoin", "crypto", "wallet",
	"bank", "deal", "package", "pickup", "delivery",
}

// Query words ignored when matching contact names.
var contactStopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true, "all": true,
	"any": true, "who": true, "whose": true, "named": true, "name": true, "names": true,
	"find": true, "show": true, "list": true, "display": true, "get": true, "give": true,
	"search": true, "contact": true, "contacts": true, "phone": true, "number": true,
	"numbers": true, "email": true, "emails": true, "saved": true, "person": true,
	"people": true, "called": true, "me": true, "his": true, "her": true, "their": true,
	"about": true, "book": true, "phonebook": true, "address": true, "addressbook": true,
}

type retrievalService struct {
	chats     repositories.ChatRepository
	calls     repositories.CallRepository
	contacts  repositories.ContactRepository
	media     repositories.MediaRepository
	entities  repositories.EntityRepository
	embedder  embedding.Embedder
	extractor *extraction.Extractor
	phones    *extraction.PhoneClassifier
	cfg       RetrievalConfig
	logger    *zap.Logger
}

// NewRetrievalService creates a RetrievalService.
func NewRetrievalService(
	chats repositories.ChatRepository,
	calls repositories.CallRepository,
	contacts repositories.ContactRepository,
	media repositories.MediaRepository,
	entities repositories.EntityRepository,
	embedder embedding.Embedder,
	extractor *extraction.Extractor,
	phones *extraction.PhoneClassifier,
	cfg RetrievalConfig,
	logger *zap.Logger,
) RetrievalService {
	defaults := DefaultRetrievalConfig()
	if cfg.ScanLimit <= 0 {
		cfg.ScanLimit = defaults.ScanLimit
	}
	return &retrievalService{
		chats:     chats,
		calls:     calls,
		contacts:  contacts,
		media:     media,
		entities:  entities,
		embedder:  embedder,
		extractor: extractor,
		phones:    phones,
		cfg:       cfg,
		logger:    logger.Named("retrieval-service"),
	}
}

var _ RetrievalService = (*retrievalService)(nil)

func (s *retrievalService) SearchChats(ctx context.Context, query string, scope models.DeviceScope, filters *models.Filters) ([]models.ChatResult, error) {
	if intent.IsShowAll(query, intent.ChatNouns) {
		messages, err := s.chats.ListRecent(ctx, scope, filters, ShowAllChatLimit)
		if err != nil {
			s.logger.Error("Failed to list recent chats", zap.Error(err))
			return nil, err
		}
		results := make([]models.ChatResult, 0, len(messages))
		for _, m := range messages {
			results = append(results, models.ChatResult{Message: *m, MatchType: models.MatchRecent})
		}
		return results, nil
	}

	semantic, err := s.semanticChats(ctx, query, scope, filters)
	if err != nil {
		return nil, err
	}

	keyword, err := s.keywordChats(ctx, query, scope, filters)
	if err != nil {
		return nil, err
	}

	return MergeRanked(semantic, keyword, ChatResultLimit), nil
}

// semanticChats scores embedded messages against the query vector. An embedding
// failure yields no semantic hits; a store failure is returned.
func (s *retrievalService) semanticChats(ctx context.Context, query string, scope models.DeviceScope, filters *models.Filters) ([]ScoredChat, error) {
	if s.embedder == nil {
		return nil, nil
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("Query embedding failed, continuing with keyword search only", zap.Error(err))
		metrics.Degraded(metrics.DependencyEmbedding)
		return nil, nil
	}
	if len(queryVec) == 0 {
		return nil, nil
	}

	messages, err := s.chats.ListEmbedded(ctx, scope, filters, s.cfg.ScanLimit)
	if err != nil {
		s.logger.Error("Failed to load embedded chats", zap.Error(err))
		return nil, err
	}

	var hits []ScoredChat
	for _, m := range messages {
		score := embedding.CosineSimilarity(queryVec, m.Embedding)
		if score > s.cfg.SemanticThreshold {
			hits = append(hits, ScoredChat{Message: m, Score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > SemanticTopK {
		hits = hits[:SemanticTopK]
	}
	return hits, nil
}

// keywordChats returns messages containing a query word (longer than two
// characters), a crypto address, a foreign number or a suspicious term.
func (s *retrievalService) keywordChats(ctx context.Context, query string, scope models.DeviceScope, filters *models.Filters) ([]KeywordHit, error) {
	words := keywordTerms(query)

	messages, err := s.chats.ListRecent(ctx, scope, filters, s.cfg.ScanLimit)
	if err != nil {
		s.logger.Error("Failed to scan chats", zap.Error(err))
		return nil, err
	}

	var hits []KeywordHit
	for _, m := range messages {
		text := m.SearchText()
		lower := strings.ToLower(text)

		var matched []string
		for _, w := range words {
			if strings.Contains(lower, w) {
				matched = append(matched, w)
			}
		}

		if len(matched) > 0 ||
			extraction.CryptoPattern.MatchString(text) ||
			s.phones.ContainsForeign(text) ||
			containsAny(lower, chatSuspiciousTerms) {
			hits = append(hits, KeywordHit{Message: m, MatchedWords: matched})
		}
	}
	return hits, nil
}

func (s *retrievalService) SearchCalls(ctx context.Context, query string, scope models.DeviceScope, filters *models.Filters) ([]models.CallResult, error) {
	limit := CallResultLimit
	if intent.IsShowAll(query, intent.CallNouns) {
		limit = ShowAllCallLimit
	}

	foreignOnly := intent.MentionsForeign(query)
	fetch := limit
	if foreignOnly {
		fetch = s.cfg.ScanLimit
	}

	calls, err := s.calls.ListRecent(ctx, scope, filters, fetch)
	if err != nil {
		s.logger.Error("Failed to list calls", zap.Error(err))
		return nil, err
	}

	results := make([]models.CallResult, 0, min(len(calls), limit))
	for _, c := range calls {
		if len(results) >= limit {
			break
		}
		foreign := s.phones.IsForeign(c.PhoneNumber)
		if foreignOnly && !foreign {
			continue
		}
		results = append(results, models.CallResult{Call: *c, IsForeign: foreign})
	}
	return results, nil
}

func (s *retrievalService) SearchContacts(ctx context.Context, query string, scope models.DeviceScope) ([]models.ContactResult, error) {
	var (
		contacts []*models.Contact
		err      error
	)
	if intent.IsShowAll(query, intent.ContactNouns) {
		contacts, err = s.contacts.ListRecent(ctx, scope, ShowAllContactLimit)
	} else {
		search := s.contactSearch(query)
		if search.IsEmpty() {
			return []models.ContactResult{}, nil
		}
		contacts, err = s.contacts.Search(ctx, scope, search, ContactResultLimit)
	}
	if err != nil {
		s.logger.Error("Failed to search contacts", zap.Error(err))
		return nil, err
	}

	results := make([]models.ContactResult, 0, len(contacts))
	for _, c := range contacts {
		results = append(results, models.ContactResult{Contact: *c})
	}
	return results, nil
}

// contactSearch derives contact terms from the query: the whole query and its
// significant words as name terms, plus any phone numbers and emails it quotes.
func (s *retrievalService) contactSearch(query string) repositories.ContactSearch {
	var search repositories.ContactSearch
	query = strings.TrimSpace(query)
	if query == "" {
		return search
	}

	seenName := map[string]bool{}
	addName := func(term string) {
		key := strings.ToLower(term)
		if !seenName[key] {
			seenName[key] = true
			search.NameTerms = append(search.NameTerms, term)
		}
	}
	addName(query)
	for _, w := range intent.Tokens(query) {
		if len(w) > 2 && !contactStopWords[w] {
			addName(w)
		}
	}

	seenPhone := map[string]bool{}
	addPhone := func(p string) {
		if p != "" && !seenPhone[p] {
			seenPhone[p] = true
			search.Phones = append(search.Phones, p)
		}
	}
	extracted := s.extractor.Extract(query, time.Now(), "")
	for _, m := range extracted.PhoneNumbers {
		addPhone(m.Value)
		addPhone(extraction.Normalize(m.Value))
	}
	for _, n := range intent.ExtractConnectionParams(query).PhoneNumbers {
		addPhone(n)
	}
	for _, m := range extracted.Emails {
		search.Emails = append(search.Emails, m.Value)
	}
	return search
}

func (s *retrievalService) SearchMedia(ctx context.Context, scope models.DeviceScope, filters *models.Filters) ([]models.MediaResult, error) {
	files, err := s.media.List(ctx, scope, filters, MediaResultLimit)
	if err != nil {
		s.logger.Error("Failed to list media", zap.Error(err))
		return nil, err
	}
	results := make([]models.MediaResult, 0, len(files))
	for _, f := range files {
		results = append(results, models.MediaResult{Media: *f})
	}
	return results, nil
}

// SearchEntities extracts entities from every in-scope message, persists them
// keyed by message id, and returns the distinct values found per category.
func (s *retrievalService) SearchEntities(ctx context.Context, scope models.DeviceScope, filters *models.Filters) (*models.ExtractedEntities, error) {
	messages, err := s.chats.ListRecent(ctx, scope, filters, s.cfg.ScanLimit)
	if err != nil {
		s.logger.Error("Failed to scan chats for entities", zap.Error(err))
		return nil, err
	}

	found := models.NewExtractedEntities()
	seen := make(map[models.EntityType]map[string]bool, len(models.EntityTypes))
	for _, t := range models.EntityTypes {
		seen[t] = map[string]bool{}
	}

	for _, m := range messages {
		sourceRef := m.ID.String()
		extracted := s.extractor.Extract(m.Body, m.SentAt, sourceRef)
		if extracted.Total() == 0 {
			continue
		}

		for _, t := range models.EntityTypes {
			matches := *extracted.List(t)
			if len(matches) == 0 {
				continue
			}
			for _, entity := range groupMatches(t, matches) {
				if _, err := s.entities.Upsert(ctx, entity, sourceRef); err != nil {
					s.logger.Error("Failed to upsert entity",
						zap.String("type", string(t)),
						zap.Error(err))
					return nil, err
				}
			}
			list := found.List(t)
			for _, match := range matches {
				if !seen[t][match.Value] {
					seen[t][match.Value] = true
					*list = append(*list, match)
				}
			}
		}
	}
	return found, nil
}

// groupMatches folds one message's matches of a type into one entity per value.
func groupMatches(t models.EntityType, matches []models.EntityMatch) []*models.Entity {
	byValue := make(map[string]*models.Entity)
	var order []string
	for _, m := range matches {
		e, ok := byValue[m.Value]
		if !ok {
			e = &models.Entity{Type: t, Value: m.Value, FirstSeen: m.Timestamp, LastSeen: m.Timestamp}
			byValue[m.Value] = e
			order = append(order, m.Value)
		}
		e.Occurrences++
		e.Contexts = append(e.Contexts, models.EntityContext{
			Text:      m.Context,
			Timestamp: m.Timestamp,
			SourceRef: m.SourceRef,
		})
	}
	entities := make([]*models.Entity, 0, len(order))
	for _, v := range order {
		entities = append(entities, byValue[v])
	}
	return entities
}

func (s *retrievalService) SearchConnections(ctx context.Context, params models.ConnectionParams, scope models.DeviceScope, filters *models.Filters) (*models.ConnectionResult, error) {
	calls, err := s.calls.ListAll(ctx, scope, filters, s.cfg.ScanLimit)
	if err != nil {
		s.logger.Error("Failed to load calls for connection analysis", zap.Error(err))
		return nil, err
	}
	chats, err := s.chats.ListRecent(ctx, scope, filters, s.cfg.ScanLimit)
	if err != nil {
		s.logger.Error("Failed to load chats for connection analysis", zap.Error(err))
		return nil, err
	}
	contacts, err := s.contacts.ListAll(ctx, scope, s.cfg.ScanLimit)
	if err != nil {
		s.logger.Error("Failed to load contacts for connection analysis", zap.Error(err))
		return nil, err
	}
	return AnalyzeConnections(calls, chats, contacts, params), nil
}

// keywordTerms returns the distinct lowercase query words longer than two characters.
func keywordTerms(query string) []string {
	var terms []string
	seen := map[string]bool{}
	for _, w := range strings.FieldsFunc(strings.ToLower(query), isWordSeparator) {
		if len(w) > 2 && !seen[w] {
			seen[w] = true
			terms = append(terms, w)
		}
	}
	return terms
}

func isWordSeparator(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

func describeScope(scope models.DeviceScope) string {
	if scope.All {
		return "all devices"
	}
	return fmt.Sprintf("%d devices", len(scope.IDs))
}
