// Package extraction recognizes structured entities (crypto addresses, phone
// numbers, emails, URLs and IPv4 addresses) in unstructured message text.
package extraction

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
)

// ContextRadius is the number of bytes of surrounding text kept either side of a match.
const ContextRadius = 50

// Extractor runs a set of recognizers over text. It is stateless and safe for concurrent use.
type Extractor struct {
	recognizers []Recognizer
}

// NewExtractor creates an Extractor. With no recognizers, DefaultRecognizers is used.
func NewExtractor(recognizers ...Recognizer) *Extractor {
	if len(recognizers) == 0 {
		recognizers = DefaultRecognizers()
	}
	return &Extractor{recognizers: recognizers}
}

// Extract finds every entity in text. Text that is blank or has no timestamp is
// treated as malformed and yields an empty result.
//
// Phone matches that overlap a match of another type are dropped, so the digits
// inside a crypto address or IP are not also reported as phone numbers.
func (e *Extractor) Extract(text string, ts time.Time, sourceRef string) *models.ExtractedEntities {
	out := models.NewExtractedEntities()
	if strings.TrimSpace(text) == "" || ts.IsZero() {
		return out
	}

	found := make(map[models.EntityType][]Span, len(e.recognizers))
	var others []Span
	for _, r := range e.recognizers {
		spans := r.FindAll(text)
		found[r.Type()] = append(found[r.Type()], spans...)
		if r.Type() != models.EntityPhoneNumber {
			others = append(others, spans...)
		}
	}

	for _, r := range e.recognizers {
		list := out.List(r.Type())
		if list == nil {
			continue
		}
		for _, span := range found[r.Type()] {
			if r.Type() == models.EntityPhoneNumber && overlapsAny(span, others) {
				continue
			}
			*list = append(*list, models.EntityMatch{
				Value:     span.Value,
				Context:   contextAround(text, span.Start, span.End),
				Timestamp: ts,
				SourceRef: sourceRef,
			})
		}
		found[r.Type()] = nil
	}

	return out
}

// Counts returns, per (type, value), the number of matches in extracted.
func Counts(extracted *models.ExtractedEntities) map[models.EntityType]map[string]int {
	counts := make(map[models.EntityType]map[string]int)
	for _, t := range models.EntityTypes {
		list := extracted.List(t)
		if list == nil || len(*list) == 0 {
			continue
		}
		byValue := make(map[string]int)
		for _, m := range *list {
			byValue[m.Value]++
		}
		counts[t] = byValue
	}
	return counts
}

func overlapsAny(s Span, others []Span) bool {
	for _, o := range others {
		if s.Start < o.End && o.Start < s.End {
			return true
		}
	}
	return false
}

// contextAround returns up to ContextRadius bytes either side of [start,end),
// adjusted to rune boundaries and with whitespace collapsed.
func contextAround(text string, start, end int) string {
	from := start - ContextRadius
	if from < 0 {
		from = 0
	}
	for from > 0 && !utf8.RuneStart(text[from]) {
		from--
	}
	to := end + ContextRadius
	if to > len(text) {
		to = len(text)
	}
	for to < len(text) && !utf8.RuneStart(text[to]) {
		to++
	}
	return strings.Join(strings.Fields(text[from:to]), " ")
}
