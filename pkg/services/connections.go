package services

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/extraction"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
)

// Connection analysis limits.
const (
	TopCommunicatorLimit = 20
	CorrelationLimit     = 20
	CorrelationWindow    = time.Hour
)

// Seed kinds.
const (
	SeedPhoneNumber   = "phone_number"
	SeedCryptoAddress = "crypto_address"
)

// AnalyzeConnections builds the connection facet from already-loaded records.
func AnalyzeConnections(calls []*models.Call, chats []*models.Message, contacts []*models.Contact, params models.ConnectionParams) *models.ConnectionResult {
	return &models.ConnectionResult{
		TopContacts:    TopCommunicators(calls, TopCommunicatorLimit),
		SharedContacts: SharedContacts(contacts),
		Correlations:   CorrelateCallsWithChats(calls, chats, CorrelationWindow, CorrelationLimit),
		Seeds:          LookupSeeds(params, calls, chats, contacts),
	}
}

// TopCommunicators ranks counterparties by number of calls. Ties go to the most
// recent last call, then to the lower number.
func TopCommunicators(calls []*models.Call, limit int) []models.FrequentNumber {
	byNumber := make(map[string]*models.FrequentNumber)
	for _, c := range calls {
		number := extraction.Normalize(c.PhoneNumber)
		if number == "" {
			continue
		}
		fn, ok := byNumber[number]
		if !ok {
			fn = &models.FrequentNumber{PhoneNumber: number}
			byNumber[number] = fn
		}
		fn.CallCount++
		fn.TotalDuration += c.DurationSeconds
		if !c.CalledAt.Before(fn.LastCall) {
			fn.LastCall = c.CalledAt
			if c.ContactName != "" {
				fn.ContactName = c.ContactName
			}
		} else if fn.ContactName == "" {
			fn.ContactName = c.ContactName
		}
	}

	ranked := make([]models.FrequentNumber, 0, len(byNumber))
	for _, fn := range byNumber {
		ranked = append(ranked, *fn)
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.CallCount != b.CallCount {
			return a.CallCount > b.CallCount
		}
		if !a.LastCall.Equal(b.LastCall) {
			return a.LastCall.After(b.LastCall)
		}
		return a.PhoneNumber < b.PhoneNumber
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// SharedContacts returns phone numbers saved in contacts on more than one device.
func SharedContacts(contacts []*models.Contact) []models.SharedContact {
	type entry struct {
		names   []string
		seen    map[string]bool
		devices map[uuid.UUID]bool
	}
	byNumber := make(map[string]*entry)

	for _, c := range contacts {
		for _, raw := range c.PhoneNumbers {
			number := extraction.Normalize(raw)
			if len(extraction.Digits(number)) < 7 {
				continue
			}
			e, ok := byNumber[number]
			if !ok {
				e = &entry{seen: map[string]bool{}, devices: map[uuid.UUID]bool{}}
				byNumber[number] = e
			}
			e.devices[c.DeviceID] = true
			if name := strings.TrimSpace(c.Name); name != "" && !e.seen[strings.ToLower(name)] {
				e.seen[strings.ToLower(name)] = true
				e.names = append(e.names, name)
			}
		}
	}

	shared := []models.SharedContact{}
	for number, e := range byNumber {
		if len(e.devices) < 2 {
			continue
		}
		ids := make([]uuid.UUID, 0, len(e.devices))
		for id := range e.devices {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
		names := e.names
		if names == nil {
			names = []string{}
		}
		shared = append(shared, models.SharedContact{
			PhoneNumber: number,
			Names:       names,
			DeviceIDs:   ids,
			DeviceCount: len(ids),
		})
	}
	sort.Slice(shared, func(i, j int) bool {
		if shared[i].DeviceCount != shared[j].DeviceCount {
			return shared[i].DeviceCount > shared[j].DeviceCount
		}
		return shared[i].PhoneNumber < shared[j].PhoneNumber
	})
	return shared
}

// CorrelateCallsWithChats pairs each call with chats exchanged with the same
// counterparty within window of it. Calls are visited in chronological order and
// at most limit pairs are returned. TimeGap is in minutes.
func CorrelateCallsWithChats(calls []*models.Call, chats []*models.Message, window time.Duration, limit int) []models.Correlation {
	orderedCalls := make([]*models.Call, len(calls))
	copy(orderedCalls, calls)
	sort.SliceStable(orderedCalls, func(i, j int) bool {
		return orderedCalls[i].CalledAt.Before(orderedCalls[j].CalledAt)
	})

	orderedChats := make([]*models.Message, len(chats))
	copy(orderedChats, chats)
	sort.SliceStable(orderedChats, func(i, j int) bool {
		return orderedChats[i].SentAt.Before(orderedChats[j].SentAt)
	})

	correlations := []models.Correlation{}
	for _, call := range orderedCalls {
		for _, chat := range orderedChats {
			gap := chat.SentAt.Sub(call.CalledAt)
			if gap < 0 {
				gap = -gap
			}
			if gap > window || !sameCounterparty(call, chat) {
				continue
			}
			correlations = append(correlations, models.Correlation{
				Call:    *call,
				Chat:    *chat,
				TimeGap: math.Round(gap.Minutes()*10) / 10,
			})
			if len(correlations) >= limit {
				return correlations
			}
		}
	}
	return correlations
}

func sameCounterparty(call *models.Call, chat *models.Message) bool {
	if chat.ParticipantNumber != "" {
		return extraction.SameNumber(chat.ParticipantNumber, call.PhoneNumber)
	}
	name := strings.TrimSpace(chat.ParticipantName)
	return name != "" && strings.EqualFold(name, strings.TrimSpace(call.ContactName))
}

// LookupSeeds counts the records touching each identifier quoted in the query.
func LookupSeeds(params models.ConnectionParams, calls []*models.Call, chats []*models.Message, contacts []*models.Contact) []models.SeedLookup {
	var seeds []models.SeedLookup

	for _, number := range params.PhoneNumbers {
		seed := models.SeedLookup{Value: number, Kind: SeedPhoneNumber}
		for _, c := range calls {
			if extraction.SameNumber(c.PhoneNumber, number) {
				seed.Calls++
			}
		}
		for _, m := range chats {
			if extraction.SameNumber(m.ParticipantNumber, number) || mentionsNumber(m.Body, number) {
				seed.Chats++
			}
		}
		for _, c := range contacts {
			for _, p := range c.PhoneNumbers {
				if extraction.SameNumber(p, number) {
					seed.Contacts++
					break
				}
			}
		}
		seeds = append(seeds, seed)
	}

	for _, addr := range params.CryptoAddresses {
		seed := models.SeedLookup{Value: addr, Kind: SeedCryptoAddress}
		for _, m := range chats {
			if strings.Contains(m.Body, addr) {
				seed.Chats++
			}
		}
		for _, c := range contacts {
			if strings.Contains(c.Notes, addr) {
				seed.Contacts++
			}
		}
		seeds = append(seeds, seed)
	}

	return seeds
}

func mentionsNumber(text, number string) bool {
	for _, candidate := range extraction.PhonePattern.FindAllString(text, -1) {
		if extraction.SameNumber(candidate, number) {
			return true
		}
	}
	return false
}
