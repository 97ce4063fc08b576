//go:build integration

package repositories

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/apperrors"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/database"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/testhelpers"
)

// fixture seeds two devices in one case plus a device in another case.
type fixture struct {
	tdb      *testhelpers.TestDB
	caseID   uuid.UUID
	deviceA  uuid.UUID
	deviceB  uuid.UUID
	otherDev uuid.UUID
	base     time.Time
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()

	tdb := testhelpers.GetTestDB(t)
	tdb.Reset(t)
	seed := tdb.Seed(t)

	f := &fixture{tdb: tdb, base: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	f.caseID = seed.Case("Operation Ledger")
	f.deviceA = seed.Device(f.caseID, "suspect phone")
	f.deviceB = seed.Device(f.caseID, "burner")
	other := seed.Case("Unrelated")
	f.otherDev = seed.Device(other, "witness phone")
	return f
}

func (f *fixture) scope() models.DeviceScope {
	return models.DevicesOf([]uuid.UUID{f.deviceA, f.deviceB})
}

func TestCaseRepository_DeviceIDs(t *testing.T) {
	f := setupFixture(t)
	ctx := f.tdb.Scoped(t)
	repo := NewCaseRepository()

	ids, err := repo.DeviceIDs(ctx, f.caseID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{f.deviceA, f.deviceB}, ids)

	all, err := repo.AllDeviceIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRepositories_RequireScope(t *testing.T) {
	f := setupFixture(t)
	_ = f

	_, err := NewChatRepository().ListRecent(t.Context(), models.AllDevices(), nil, 10)
	assert.ErrorIs(t, err, errNoScope)
}

func TestChatRepository_ListAndEmbeddings(t *testing.T) {
	f := setupFixture(t)
	seed := f.tdb.Seed(t)
	ctx := f.tdb.Scoped(t)
	repo := NewChatRepository()

	older := seed.Message(&models.Message{DeviceID: f.deviceA, Platform: "WhatsApp", Body: "meet at the dock", SentAt: f.base})
	newer := seed.Message(&models.Message{DeviceID: f.deviceB, Platform: "Telegram", Body: "bring the package", SentAt: f.base.Add(time.Hour),
		Embedding: []float32{0.6, 0.8}})
	seed.Message(&models.Message{DeviceID: f.otherDev, Platform: "SMS", Body: "out of scope", SentAt: f.base.Add(2 * time.Hour)})

	recent, err := repo.ListRecent(ctx, f.scope(), nil, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, newer.ID, recent[0].ID)
	assert.Equal(t, older.ID, recent[1].ID)
	assert.Nil(t, recent[0].Embedding)

	embedded, err := repo.ListEmbedded(ctx, f.scope(), nil, 10)
	require.NoError(t, err)
	require.Len(t, embedded, 1)
	assert.Equal(t, []float32{0.6, 0.8}, embedded[0].Embedding)

	platform, err := repo.ListRecent(ctx, f.scope(), &models.Filters{Platform: "whatsapp"}, 10)
	require.NoError(t, err)
	require.Len(t, platform, 1)
	assert.Equal(t, older.ID, platform[0].ID)

	missing, err := repo.ListMissingEmbeddings(ctx, f.scope(), 10)
	require.NoError(t, err)
	require.Len(t, missing, 1)

	require.NoError(t, repo.UpdateEmbedding(ctx, older.ID, []float32{1, 0}))
	missing, err = repo.ListMissingEmbeddings(ctx, f.scope(), 10)
	require.NoError(t, err)
	assert.Empty(t, missing)

	counts, err := repo.CountByPlatform(ctx, f.scope())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"WhatsApp": 1, "Telegram": 1}, counts)

	empty, err := repo.ListRecent(ctx, models.DevicesOf(nil), nil, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCallRepository_OrderingAndFilters(t *testing.T) {
	f := setupFixture(t)
	seed := f.tdb.Seed(t)
	ctx := f.tdb.Scoped(t)
	repo := NewCallRepository()

	first := seed.Call(&models.Call{DeviceID: f.deviceA, CallType: models.CallOutgoing, PhoneNumber: "+15550200", DurationSeconds: 60, CalledAt: f.base})
	second := seed.Call(&models.Call{DeviceID: f.deviceA, CallType: models.CallMissed, PhoneNumber: "+919876543210", CalledAt: f.base.Add(time.Hour)})

	recent, err := repo.ListRecent(ctx, f.scope(), nil, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, second.ID, recent[0].ID)

	all, err := repo.ListAll(ctx, f.scope(), nil, 10)
	require.NoError(t, err)
	assert.Equal(t, first.ID, all[0].ID)

	missed, err := repo.ListRecent(ctx, f.scope(), &models.Filters{CallType: models.CallMissed}, 10)
	require.NoError(t, err)
	require.Len(t, missed, 1)
	assert.Equal(t, second.ID, missed[0].ID)

	end := f.base.Add(30 * time.Minute)
	ranged, err := repo.ListRecent(ctx, f.scope(), &models.Filters{EndDate: &end}, 10)
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, first.ID, ranged[0].ID)

	counts, err := repo.CountByType(ctx, f.scope())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{models.CallOutgoing: 1, models.CallMissed: 1}, counts)
}

func TestContactRepository_Search(t *testing.T) {
	f := setupFixture(t)
	seed := f.tdb.Seed(t)
	ctx := f.tdb.Scoped(t)
	repo := NewContactRepository()

	ravi := seed.Contact(&models.Contact{DeviceID: f.deviceA, Name: "Ravi Kumar", PhoneNumbers: []string{"+919876543210"}})
	seed.Contact(&models.Contact{DeviceID: f.deviceB, Name: "Broker", Emails: []string{"Broker@Example.com"}})
	seed.Contact(&models.Contact{DeviceID: f.deviceB, Name: "100%_legit"})

	byName, err := repo.Search(ctx, f.scope(), ContactSearch{NameTerms: []string{"ravi"}}, 50)
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, ravi.ID, byName[0].ID)

	byPhone, err := repo.Search(ctx, f.scope(), ContactSearch{Phones: []string{"+919876543210"}}, 50)
	require.NoError(t, err)
	require.Len(t, byPhone, 1)

	byEmail, err := repo.Search(ctx, f.scope(), ContactSearch{Emails: []string{"broker@example.com"}}, 50)
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	assert.Equal(t, "Broker", byEmail[0].Name)

	literal, err := repo.Search(ctx, f.scope(), ContactSearch{NameTerms: []string{"0%_"}}, 50)
	require.NoError(t, err)
	require.Len(t, literal, 1)
	assert.Equal(t, "100%_legit", literal[0].Name)

	n, err := repo.Count(ctx, f.scope())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMediaRepository_List(t *testing.T) {
	f := setupFixture(t)
	seed := f.tdb.Seed(t)
	ctx := f.tdb.Scoped(t)
	repo := NewMediaRepository()

	t1, t2 := f.base, f.base.Add(time.Hour)
	seed.Media(&models.Media{DeviceID: f.deviceA, MediaType: models.MediaImage, Filename: "a.jpg", CreatedAt: &t1})
	video := seed.Media(&models.Media{DeviceID: f.deviceA, MediaType: models.MediaVideo, Filename: "b.mp4", CreatedAt: &t2})

	all, err := repo.List(ctx, f.scope(), nil, 50)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, video.ID, all[0].ID)

	images, err := repo.List(ctx, f.scope(), &models.Filters{MediaType: models.MediaImage}, 50)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "a.jpg", images[0].Filename)
}

func TestEntityRepository_UpsertIdempotentPerSource(t *testing.T) {
	f := setupFixture(t)
	ctx := f.tdb.Scoped(t)
	repo := NewEntityRepository()

	upsert := func(sourceRef string, count int) bool {
		counted, err := repo.Upsert(ctx, &models.Entity{
			Type:        models.EntityEmail,
			Value:       "drop@example.com",
			Occurrences: count,
			Contexts:    []models.EntityContext{{Text: "send to drop@example.com", Timestamp: f.base, SourceRef: sourceRef}},
			LastSeen:    f.base,
		}, sourceRef)
		require.NoError(t, err)
		return counted
	}

	assert.True(t, upsert("msg-1", 2))
	assert.False(t, upsert("msg-1", 2))
	assert.True(t, upsert("msg-2", 1))

	got, err := repo.GetByValue(ctx, models.EntityEmail, "drop@example.com")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Occurrences)
	assert.Len(t, got.Contexts, 2)

	// Without a source reference every call counts.
	assert.True(t, upsert("", 1))
	assert.True(t, upsert("", 1))
	got, err = repo.GetByValue(ctx, models.EntityEmail, "drop@example.com")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Occurrences)

	list, err := repo.List(ctx, models.EntityEmail, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestEntityRepository_ConcurrentUpsertsAccumulate(t *testing.T) {
	f := setupFixture(t)
	repo := NewEntityRepository()
	provider := database.NewScopeProvider(f.tdb.DB)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx, cleanup, err := provider.WithScope(t.Context())
			if err != nil {
				errs <- err
				return
			}
			defer cleanup()
			_, err = repo.Upsert(ctx, &models.Entity{
				Type:        models.EntityCryptoAddress,
				Value:       "0x52908400098527886E0F7030069857D2E4169EE7",
				Occurrences: 1,
				Contexts:    []models.EntityContext{{Text: "pay here", Timestamp: f.base}},
			}, uuid.NewString())
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	ctx := f.tdb.Scoped(t)
	got, err := repo.GetByValue(ctx, models.EntityCryptoAddress, "0x52908400098527886E0F7030069857D2E4169EE7")
	require.NoError(t, err)
	assert.Equal(t, workers, got.Occurrences)
	assert.Len(t, got.Contexts, workers)
}

func TestQueryRepository_CreateAndList(t *testing.T) {
	f := setupFixture(t)
	ctx := f.tdb.Scoped(t)
	repo := NewQueryRepository()

	for i, text := range []string{"show me all chats", "find crypto wallet transfers"} {
		rec := &models.QueryRecord{
			CaseID:      &f.caseID,
			QueryText:   text,
			QueryType:   models.FacetChats,
			Results:     json.RawMessage(`{"chats":[]}`),
			ExecutionMS: 12,
			CreatedAt:   f.base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(ctx, rec))
		assert.NotEqual(t, uuid.Nil, rec.ID)
	}

	// Unscoped queries are stored but not listed under any case.
	require.NoError(t, repo.Create(ctx, &models.QueryRecord{QueryText: "global", QueryType: "general"}))

	records, err := repo.ListByCase(ctx, f.caseID, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "find crypto wallet transfers", records[0].QueryText)
	assert.JSONEq(t, `{"chats":[]}`, string(records[0].Results))
}
