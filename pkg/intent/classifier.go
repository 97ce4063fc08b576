// Package intent maps free-text investigator queries onto search facets.
package intent

import (
	"regexp"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/extraction"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
)

// Classifier decides which facets a query asks about.
type Classifier interface {
	Classify(query string) models.Intent
}

// Vocabulary lists the trigger words for each facet. Words are lowercase and
// singular; query words are compared as written and in singular form.
type Vocabulary map[string][]string

// DefaultVocabulary is the built-in trigger list.
var DefaultVocabulary = Vocabulary{
	models.FacetChats: {
		"chat", "message", "messaged", "conversation", "text", "texted", "sms", "mms", "dm", "inbox",
		"whatsapp", "telegram", "signal", "messenger", "imessage", "wechat", "viber", "snapchat", "instagram",
		"communication", "said", "wrote", "mention", "discuss",
		"transfer", "payment", "money", "deal", "package", "pickup", "delivery", "wallet",
	},
	models.FacetCalls: {
		"call", "called", "calling", "caller", "calllog", "dial", "dialed", "rang", "ring", "missed", "incoming", "outgoing",
		"communication", "foreign", "international", "overseas", "duration", "phone",
	},
	models.FacetContacts: {
		"contact", "phonebook", "addressbook", "person", "people", "name", "who",
	},
	models.FacetMedia: {
		"media", "photo", "image", "picture", "pic", "video", "audio", "recording",
		"document", "file", "attachment", "gallery", "camera",
	},
	models.FacetEntities: {
		"entity", "crypto", "cryptocurrency", "bitcoin", "btc", "ethereum", "eth", "usdt",
		"wallet", "address", "email", "url", "link", "website", "domain", "ip",
	},
	models.FacetConnections: {
		"connection", "connected", "connect", "relationship", "network", "linked",
		"shared", "common", "correlate", "correlation", "associate", "between",
		"frequent", "frequently", "top", "communicator", "trace", "traced", "tracing",
	},
}

var (
	wordPattern    = regexp.MustCompile(`[a-z0-9]+`)
	showAllPattern = regexp.MustCompile(`(?i)\b(?:all|show|list|display)\b`)
	foreignPattern = regexp.MustCompile(`(?i)\b(?:foreign|international|overseas|abroad)\b`)
)

// Noun families used to detect "show everything" phrasing per facet.
var (
	ChatNouns    = []string{"chat", "message", "conversation", "text", "sms"}
	CallNouns    = []string{"call", "calllog"}
	ContactNouns = []string{"contact", "phonebook", "addressbook"}
)

// KeywordClassifier classifies by vocabulary presence. It is stateless and safe
// for concurrent use.
type KeywordClassifier struct {
	vocab map[string]map[string]bool
}

var _ Classifier = (*KeywordClassifier)(nil)

// NewKeywordClassifier builds a classifier over vocab, or DefaultVocabulary when nil.
func NewKeywordClassifier(vocab Vocabulary) *KeywordClassifier {
	if vocab == nil {
		vocab = DefaultVocabulary
	}
	sets := make(map[string]map[string]bool, len(vocab))
	for facet, words := range vocab {
		set := make(map[string]bool, len(words))
		for _, w := range words {
			set[strings.ToLower(w)] = true
		}
		sets[facet] = set
	}
	return &KeywordClassifier{vocab: sets}
}

// Classify returns the facets triggered by query. No facet being triggered is a
// valid result.
func (c *KeywordClassifier) Classify(query string) models.Intent {
	words := Words(query)

	hit := func(facet string) bool {
		set := c.vocab[facet]
		for _, w := range words {
			if set[w] {
				return true
			}
		}
		return false
	}

	result := models.Intent{
		SearchChats:     hit(models.FacetChats),
		SearchCalls:     hit(models.FacetCalls),
		SearchContacts:  hit(models.FacetContacts),
		SearchMedia:     hit(models.FacetMedia),
		FindEntities:    hit(models.FacetEntities),
		FindConnections: hit(models.FacetConnections),
	}

	if result.FindConnections {
		result.ConnectionParams = ExtractConnectionParams(query)
	}
	return result
}

// Words lowercases query and returns its words, each followed by its singular
// form when that differs.
func Words(query string) []string {
	raw := Tokens(query)
	words := make([]string, 0, len(raw)*2)
	for _, w := range raw {
		words = append(words, w)
		if s := inflection.Singular(w); s != w {
			words = append(words, s)
		}
	}
	return words
}

// Tokens lowercases query and returns its words as written.
func Tokens(query string) []string {
	return wordPattern.FindAllString(strings.ToLower(query), -1)
}

// ExtractConnectionParams pulls phone numbers and crypto addresses out of the
// query text. Phone numbers are normalized and deduplicated.
func ExtractConnectionParams(query string) models.ConnectionParams {
	var params models.ConnectionParams

	seenAddr := make(map[string]bool)
	for _, m := range extraction.CryptoPattern.FindAllString(query, -1) {
		if !seenAddr[m] {
			seenAddr[m] = true
			params.CryptoAddresses = append(params.CryptoAddresses, m)
		}
	}
	// Digit runs inside an address are not phone numbers.
	query = extraction.CryptoPattern.ReplaceAllString(query, " ")

	seen := make(map[string]bool)
	addPhone := func(raw string) {
		n := extraction.Normalize(raw)
		if len(extraction.Digits(n)) < 7 || seen[n] {
			return
		}
		seen[n] = true
		params.PhoneNumbers = append(params.PhoneNumbers, n)
	}
	for _, m := range extraction.InternationalPattern.FindAllString(query, -1) {
		addPhone(m)
	}
	for _, m := range extraction.PhonePattern.FindAllString(query, -1) {
		if !alreadyCovered(m, params.PhoneNumbers) {
			addPhone(m)
		}
	}
	return params
}

func alreadyCovered(raw string, numbers []string) bool {
	for _, n := range numbers {
		if extraction.SameNumber(raw, n) {
			return true
		}
	}
	return false
}

// IsShowAll reports whether query asks to list everything of a facet: a
// show/list/display/all verb together with one of the facet's nouns.
func IsShowAll(query string, nouns []string) bool {
	if !showAllPattern.MatchString(query) {
		return false
	}
	for _, w := range Words(query) {
		for _, n := range nouns {
			if w == n {
				return true
			}
		}
	}
	return false
}

// MentionsForeign reports whether query restricts results to foreign or
// international numbers.
func MentionsForeign(query string) bool {
	return foreignPattern.MatchString(query)
}
