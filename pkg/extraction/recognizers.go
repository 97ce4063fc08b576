package extraction

import (
	"regexp"
	"strings"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
)

// Span is one match of a recognizer in the input, as byte offsets.
type Span struct {
	Start int
	End   int
	Value string
}

// Recognizer finds entities of a single type in free text.
type Recognizer interface {
	Type() models.EntityType
	FindAll(text string) []Span
}

// CryptoPattern matches Ethereum-style hex addresses, legacy/P2SH base58
// addresses starting with 1 or 3, and bech32 addresses starting with bc1.
var CryptoPattern = regexp.MustCompile(`\b(?:0x[a-fA-F0-9]{40}|[13][a-km-zA-HJ-NP-Z1-9]{25,34}|bc1[a-zA-HJ-NP-Z0-9]{39,59})\b`)

// PhonePattern matches an optional +country code and a 3-3-4 digit grouping
// separated by spaces, dots or dashes. The area code may be parenthesised.
var PhonePattern = regexp.MustCompile(`(?:\+\d{1,3}[\s.-]?)?(?:\(\d{3}\)|\d{3})[\s.-]?\d{3}[\s.-]?\d{4}`)

// InternationalPattern matches loosely formatted numbers with an explicit
// international prefix, used for foreign-number screening.
var InternationalPattern = regexp.MustCompile(`(?:\+|\b00)\d{1,3}[\s.-]?(?:\(\d{1,4}\)[\s.-]?)?\d[\d\s.-]{4,}\d`)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	urlPattern   = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s<>"']+`)
	ipv4Pattern  = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
)

type regexRecognizer struct {
	entityType models.EntityType
	pattern    *regexp.Regexp
	clean      func(string) string
}

var _ Recognizer = (*regexRecognizer)(nil)

// NewRegexRecognizer creates a Recognizer backed by a compiled pattern.
// clean, when non-nil, post-processes each matched value; empty results are dropped.
func NewRegexRecognizer(entityType models.EntityType, pattern *regexp.Regexp, clean func(string) string) Recognizer {
	return &regexRecognizer{entityType: entityType, pattern: pattern, clean: clean}
}

func (r *regexRecognizer) Type() models.EntityType {
	return r.entityType
}

func (r *regexRecognizer) FindAll(text string) []Span {
	locs := r.pattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	spans := make([]Span, 0, len(locs))
	for _, loc := range locs {
		value := text[loc[0]:loc[1]]
		if r.clean != nil {
			value = r.clean(value)
		}
		if value == "" {
			continue
		}
		spans = append(spans, Span{Start: loc[0], End: loc[0] + len(value), Value: value})
	}
	return spans
}

// DefaultRecognizers returns the built-in recognizers in reporting order.
func DefaultRecognizers() []Recognizer {
	return []Recognizer{
		NewRegexRecognizer(models.EntityCryptoAddress, CryptoPattern, nil),
		NewRegexRecognizer(models.EntityPhoneNumber, PhonePattern, strings.TrimSpace),
		NewRegexRecognizer(models.EntityEmail, emailPattern, strings.ToLower),
		NewRegexRecognizer(models.EntityURL, urlPattern, trimURL),
		NewRegexRecognizer(models.EntityIPAddress, ipv4Pattern, nil),
	}
}

// trimURL drops trailing sentence punctuation that the greedy pattern swallows.
func trimURL(s string) string {
	return strings.TrimRight(s, ".,;:!?)]}")
}
