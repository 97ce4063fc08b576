package models

import (
	"time"

	"github.com/google/uuid"
)

// Chat match types.
const (
	MatchSemantic = "semantic"
	MatchKeyword  = "keyword"
	MatchRecent   = "recent"
)

// ChatResult is a message returned by chat search.
// Score is nil for unscored results such as the show-all listing.
type ChatResult struct {
	Message
	Score        *float64 `json:"score,omitempty"`
	MatchType    string   `json:"matchType"`
	MatchedWords []string `json:"matchedWords,omitempty"`
}

// CallResult is a call returned by call search.
type CallResult struct {
	Call
	IsForeign bool `json:"isForeign"`
}

// ContactResult is a contact returned by contact search.
type ContactResult struct {
	Contact
}

// MediaResult is a media file returned by media search.
type MediaResult struct {
	Media
}

// FrequentNumber is a counterparty ranked by call frequency.
type FrequentNumber struct {
	PhoneNumber   string    `json:"phoneNumber"`
	ContactName   string    `json:"contactName,omitempty"`
	CallCount     int       `json:"callCount"`
	TotalDuration int       `json:"totalDuration"`
	LastCall      time.Time `json:"lastCall"`
}

// SharedContact is a phone number saved in contacts on more than one device.
type SharedContact struct {
	PhoneNumber string      `json:"phoneNumber"`
	Names       []string    `json:"names"`
	DeviceIDs   []uuid.UUID `json:"deviceIds"`
	DeviceCount int         `json:"deviceCount"`
}

// Correlation links a call and a chat with the same counterparty close in time.
type Correlation struct {
	Call    Call    `json:"call"`
	Chat    Message `json:"chat"`
	TimeGap float64 `json:"timeGap"` // minutes, absolute
}

// SeedLookup counts records touching one identifier quoted in the query.
type SeedLookup struct {
	Value    string `json:"value"`
	Kind     string `json:"kind"` // phone_number or crypto_address
	Calls    int    `json:"calls"`
	Chats    int    `json:"chats"`
	Contacts int    `json:"contacts"`
}

// ConnectionResult is the connection facet.
type ConnectionResult struct {
	TopContacts    []FrequentNumber `json:"topContacts"`
	SharedContacts []SharedContact  `json:"sharedContacts"`
	Correlations   []Correlation    `json:"correlations"`
	Seeds          []SeedLookup     `json:"seeds,omitempty"`
}

// Total counts the connection facet's items.
func (c *ConnectionResult) Total() int {
	if c == nil {
		return 0
	}
	return len(c.TopContacts) + len(c.SharedContacts) + len(c.Correlations)
}

// FacetResults holds one list per populated facet.
type FacetResults struct {
	Chats       []ChatResult       `json:"chats,omitempty"`
	Calls       []CallResult       `json:"calls,omitempty"`
	Contacts    []ContactResult    `json:"contacts,omitempty"`
	Media       []MediaResult      `json:"media,omitempty"`
	Entities    *ExtractedEntities `json:"entities,omitempty"`
	Connections *ConnectionResult  `json:"connections,omitempty"`
}

// Total is the sum of result-list lengths across all facets.
func (r *FacetResults) Total() int {
	return len(r.Chats) + len(r.Calls) + len(r.Contacts) + len(r.Media) +
		r.Entities.Total() + r.Connections.Total()
}

// IsEmpty reports whether no facet produced results.
func (r *FacetResults) IsEmpty() bool {
	return r.Total() == 0
}

// QueryResult is the response of one query execution.
type QueryResult struct {
	QueryID       uuid.UUID    `json:"queryId"`
	Intent        Intent       `json:"intent"`
	Results       FacetResults `json:"results"`
	Summary       string       `json:"summary"`
	ExecutionTime int64        `json:"executionTime"` // milliseconds
	TotalResults  int          `json:"totalResults"`
}
