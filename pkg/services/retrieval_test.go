package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/extraction"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
)

type retrievalFixture struct {
	device   uuid.UUID
	chats    *mockChatRepository
	calls    *mockCallRepository
	contacts *mockContactRepository
	media    *mockMediaRepository
	entities *mockEntityRepository
	embedder *mockEmbedder
	svc      RetrievalService
}

func newRetrievalFixture(t *testing.T) *retrievalFixture {
	t.Helper()
	f := &retrievalFixture{
		device:   uuid.New(),
		chats:    &mockChatRepository{},
		calls:    &mockCallRepository{},
		contacts: &mockContactRepository{},
		media:    &mockMediaRepository{},
		entities: newMockEntityRepository(),
		embedder: &mockEmbedder{vectors: map[string][]float32{}},
	}
	f.svc = NewRetrievalService(
		f.chats, f.calls, f.contacts, f.media, f.entities,
		f.embedder,
		extraction.NewExtractor(extraction.DefaultRecognizers()...),
		extraction.NewPhoneClassifier("91"),
		DefaultRetrievalConfig(),
		zap.NewNop(),
	)
	return f
}

func (f *retrievalFixture) addChat(body string, at time.Time, embedding []float32) *models.Message {
	m := &models.Message{
		ID:        uuid.New(),
		DeviceID:  f.device,
		Platform:  "WhatsApp",
		Body:      body,
		SentAt:    at,
		Direction: models.DirectionIncoming,
		Embedding: embedding,
	}
	f.chats.messages = append(f.chats.messages, m)
	return m
}

func (f *retrievalFixture) addCall(number string, at time.Time) *models.Call {
	c := &models.Call{ID: uuid.New(), DeviceID: f.device, PhoneNumber: number, CalledAt: at, CallType: models.CallOutgoing}
	f.calls.calls = append(f.calls.calls, c)
	return c
}

func (f *retrievalFixture) scope() models.DeviceScope {
	return models.DevicesOf([]uuid.UUID{f.device})
}

func TestSearchChats_ShowAllReturnsRecentUnscored(t *testing.T) {
	f := newRetrievalFixture(t)
	for i := 0; i < 60; i++ {
		f.addChat(fmt.Sprintf("message %d", i), t0.Add(time.Duration(i)*time.Minute), nil)
	}
	f.embedder.err = errors.New("connection refused")

	results, err := f.svc.SearchChats(context.Background(), "show me all chats", f.scope(), nil)
	require.NoError(t, err)

	require.Len(t, results, ShowAllChatLimit)
	assert.Equal(t, "message 59", results[0].Body)
	for _, r := range results {
		assert.Nil(t, r.Score)
		assert.Equal(t, models.MatchRecent, r.MatchType)
	}
	assert.Equal(t, int32(0), f.embedder.calls.Load(), "show-all never embeds the query")
}

func TestSearchChats_SemanticThresholdAndMerge(t *testing.T) {
	f := newRetrievalFixture(t)
	query := "meet at the warehouse"
	f.embedder.vectors[query] = []float32{1, 0, 0}

	near := f.addChat("see you at the docks", t0, []float32{0.9, 0.1, 0})
	weak := f.addChat("dinner tonight", t0.Add(time.Minute), []float32{0.2, 1, 0})
	both := f.addChat("the warehouse is locked", t0.Add(2*time.Minute), []float32{1, 0, 0})
	f.addChat("nothing relevant here", t0.Add(3*time.Minute), nil)

	results, err := f.svc.SearchChats(context.Background(), query, f.scope(), nil)
	require.NoError(t, err)

	ids := map[uuid.UUID]models.ChatResult{}
	for _, r := range results {
		ids[r.ID] = r
	}
	require.Contains(t, ids, near.ID)
	require.Contains(t, ids, both.ID)
	assert.NotContains(t, ids, weak.ID, "similarity below 0.3 is dropped")

	assert.Equal(t, models.MatchSemantic, ids[both.ID].MatchType)
	assert.InDelta(t, 1.0, *ids[both.ID].Score, 1e-6)
	assert.Contains(t, ids[both.ID].MatchedWords, "warehouse")
	assert.Equal(t, both.ID, results[0].ID)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, *results[i-1].Score, *results[i].Score)
	}
}

func TestSearchChats_EmbeddingFailureFallsBackToKeywords(t *testing.T) {
	f := newRetrievalFixture(t)
	f.embedder.err = errors.New("dial tcp: connection refused")

	wallet := f.addChat("moved it to the cold wallet", t0, []float32{1, 0, 0})
	address := f.addChat("use bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq", t0.Add(time.Minute), nil)
	f.addChat("see you at lunch", t0.Add(2*time.Minute), nil)

	results, err := f.svc.SearchChats(context.Background(), "find crypto wallet transfers", f.scope(), nil)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, wallet.ID, results[0].ID)
	assert.Equal(t, models.MatchKeyword, results[0].MatchType)
	assert.Equal(t, []string{"wallet"}, results[0].MatchedWords)
	assert.InDelta(t, 0.5, *results[0].Score, 1e-9)

	assert.Equal(t, address.ID, results[1].ID)
	assert.InDelta(t, 0.4, *results[1].Score, 1e-9)
}

func TestSearchChats_KeywordFlagsForeignAndSuspicious(t *testing.T) {
	f := newRetrievalFixture(t)

	foreign := f.addChat("call me on +1 555 020 1234", t0, nil)
	suspicious := f.addChat("pickup at 5", t0.Add(time.Minute), nil)
	domestic := f.addChat("call me on +91 98765 43210", t0.Add(2*time.Minute), nil)

	results, err := f.svc.SearchChats(context.Background(), "zz", f.scope(), nil)
	require.NoError(t, err)

	ids := map[uuid.UUID]bool{}
	for _, r := range results {
		ids[r.ID] = true
	}
	assert.True(t, ids[foreign.ID])
	assert.True(t, ids[suspicious.ID])
	assert.False(t, ids[domestic.ID])
}

func TestSearchChats_StoreFailurePropagates(t *testing.T) {
	f := newRetrievalFixture(t)
	f.chats.err = errStoreDown

	_, err := f.svc.SearchChats(context.Background(), "find the deal", f.scope(), nil)
	assert.ErrorIs(t, err, errStoreDown)
}

func TestSearchChats_EmptyScope(t *testing.T) {
	f := newRetrievalFixture(t)
	f.addChat("wallet", t0, nil)

	results, err := f.svc.SearchChats(context.Background(), "wallet", models.DevicesOf(nil), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchCalls_ForeignFilter(t *testing.T) {
	f := newRetrievalFixture(t)
	// Fifty recent domestic calls must not hide the older foreign one.
	for i := 0; i < 60; i++ {
		f.addCall("+91-555-010-0000", t0.Add(time.Duration(i+1)*time.Minute))
	}
	foreign := f.addCall("+1-555-020-0000", t0)

	results, err := f.svc.SearchCalls(context.Background(), "list all communications with foreign numbers", f.scope(), nil)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, foreign.ID, results[0].ID)
	assert.True(t, results[0].IsForeign)
}

func TestSearchCalls_Limits(t *testing.T) {
	f := newRetrievalFixture(t)
	for i := 0; i < 120; i++ {
		f.addCall("+919876543210", t0.Add(time.Duration(i)*time.Minute))
	}

	results, err := f.svc.SearchCalls(context.Background(), "who did he phone", f.scope(), nil)
	require.NoError(t, err)
	assert.Len(t, results, CallResultLimit)
	assert.False(t, results[0].IsForeign)

	results, err = f.svc.SearchCalls(context.Background(), "show all calls", f.scope(), nil)
	require.NoError(t, err)
	assert.Len(t, results, ShowAllCallLimit)
	assert.True(t, results[0].CalledAt.After(results[1].CalledAt))
}

func TestSearchContacts_Terms(t *testing.T) {
	f := newRetrievalFixture(t)
	ravi := &models.Contact{ID: uuid.New(), DeviceID: f.device, Name: "Ravi Kumar", PhoneNumbers: []string{"+919876543210"}}
	mike := &models.Contact{ID: uuid.New(), DeviceID: f.device, Name: "Mike", Emails: []string{"mike@example.com"}}
	f.contacts.contacts = []*models.Contact{ravi, mike}

	results, err := f.svc.SearchContacts(context.Background(), "find contact ravi", f.scope())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ravi.ID, results[0].ID)
	assert.Contains(t, f.contacts.lastSearch.NameTerms, "ravi")
	assert.NotContains(t, f.contacts.lastSearch.NameTerms, "contact")

	results, err = f.svc.SearchContacts(context.Background(), "who has +91 98765 43210 or Mike@Example.com", f.scope())
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Contains(t, f.contacts.lastSearch.Phones, "+919876543210")
	assert.Contains(t, f.contacts.lastSearch.Emails, "mike@example.com")
}

func TestSearchContacts_NameTermsAsWritten(t *testing.T) {
	f := newRetrievalFixture(t)

	_, err := f.svc.SearchContacts(context.Background(), "James Sands", f.scope())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"James Sands", "james", "sands"}, f.contacts.lastSearch.NameTerms)
}

func TestSearchContacts_ShowAll(t *testing.T) {
	f := newRetrievalFixture(t)
	for i := 0; i < 120; i++ {
		f.contacts.contacts = append(f.contacts.contacts, &models.Contact{ID: uuid.New(), DeviceID: f.device, Name: fmt.Sprintf("c%d", i)})
	}

	results, err := f.svc.SearchContacts(context.Background(), "list all contacts", f.scope())
	require.NoError(t, err)
	assert.Len(t, results, ShowAllContactLimit)
	assert.False(t, f.contacts.searched)
}

func TestSearchMedia_FilterAndCap(t *testing.T) {
	f := newRetrievalFixture(t)
	for i := 0; i < 70; i++ {
		kind := models.MediaImage
		if i%2 == 0 {
			kind = models.MediaVideo
		}
		f.media.files = append(f.media.files, &models.Media{ID: uuid.New(), DeviceID: f.device, MediaType: kind})
	}

	results, err := f.svc.SearchMedia(context.Background(), f.scope(), &models.Filters{MediaType: models.MediaImage})
	require.NoError(t, err)
	assert.Len(t, results, 35)

	results, err = f.svc.SearchMedia(context.Background(), f.scope(), nil)
	require.NoError(t, err)
	assert.Len(t, results, MediaResultLimit)
}

func TestSearchEntities_PersistsOncePerMessage(t *testing.T) {
	f := newRetrievalFixture(t)
	addr := "0x52908400098527886E0F7030069857D2E4169EE7"
	f.addChat("send to "+addr+" now, again "+addr, t0, nil)
	f.addChat("mail bob@example.com or visit https://example.com/pay", t0.Add(time.Minute), nil)
	f.addChat("same wallet "+addr, t0.Add(2*time.Minute), nil)
	f.addChat("   ", t0.Add(3*time.Minute), nil)

	found, err := f.svc.SearchEntities(context.Background(), f.scope(), nil)
	require.NoError(t, err)

	require.Len(t, found.CryptoAddresses, 1, "values are deduplicated per category")
	assert.Equal(t, addr, found.CryptoAddresses[0].Value)
	require.Len(t, found.Emails, 1)
	require.Len(t, found.URLs, 1)
	assert.Equal(t, 3, f.entities.occurrences(models.EntityCryptoAddress, addr))

	// Re-running over unchanged data does not change the counts.
	_, err = f.svc.SearchEntities(context.Background(), f.scope(), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, f.entities.occurrences(models.EntityCryptoAddress, addr))
	assert.Equal(t, 1, f.entities.occurrences(models.EntityEmail, "bob@example.com"))
}

func TestSearchEntities_StoreFailurePropagates(t *testing.T) {
	f := newRetrievalFixture(t)
	f.addChat("mail bob@example.com", t0, nil)
	f.entities.err = errStoreDown

	_, err := f.svc.SearchEntities(context.Background(), f.scope(), nil)
	assert.ErrorIs(t, err, errStoreDown)
}

func TestSearchConnections(t *testing.T) {
	f := newRetrievalFixture(t)
	f.addCall("+1-555-0200", t0)
	m := f.addChat("got it", t0.Add(40*time.Minute), nil)
	m.ParticipantNumber = "+1-555-0200"
	f.addChat("later", t0.Add(90*time.Minute), nil).ParticipantNumber = "+1-555-0200"

	result, err := f.svc.SearchConnections(context.Background(), models.ConnectionParams{PhoneNumbers: []string{"+15550200"}}, f.scope(), nil)
	require.NoError(t, err)

	require.Len(t, result.Correlations, 1)
	assert.Equal(t, m.ID, result.Correlations[0].Chat.ID)
	assert.InDelta(t, 40.0, result.Correlations[0].TimeGap, 0.01)
	require.Len(t, result.TopContacts, 1)
	require.Len(t, result.Seeds, 1)
	assert.Equal(t, 1, result.Seeds[0].Calls)
	assert.Equal(t, 2, result.Seeds[0].Chats)
}
