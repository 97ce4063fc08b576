package extraction

import (
	"strings"
)

// PhoneClassifier normalizes phone numbers and decides whether they are foreign
// relative to a home country dialing code.
type PhoneClassifier struct {
	homeCode string
}

// NewPhoneClassifier creates a classifier for the given home dialing code (digits, no '+').
func NewPhoneClassifier(homeCode string) *PhoneClassifier {
	return &PhoneClassifier{homeCode: strings.TrimPrefix(strings.TrimSpace(homeCode), "+")}
}

// HomeCode returns the configured home dialing code.
func (c *PhoneClassifier) HomeCode() string {
	return c.homeCode
}

// Normalize reduces a number to its digits, keeping a leading '+' when the number
// carries an international prefix ('+' or '00').
func Normalize(number string) string {
	number = strings.TrimSpace(number)
	international := strings.HasPrefix(number, "+")
	digits := Digits(number)
	if !international && strings.HasPrefix(digits, "00") && len(digits) > 4 {
		international = true
		digits = digits[2:]
	}
	if international && digits != "" {
		return "+" + digits
	}
	return digits
}

// Digits returns only the decimal digits of s.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsForeign reports whether number has an international prefix whose country code
// is not the home code. Numbers without an international prefix are domestic.
func (c *PhoneClassifier) IsForeign(number string) bool {
	n := Normalize(number)
	if !strings.HasPrefix(n, "+") {
		return false
	}
	return !strings.HasPrefix(n[1:], c.homeCode)
}

// ContainsForeign reports whether text mentions at least one foreign number.
func (c *PhoneClassifier) ContainsForeign(text string) bool {
	for _, candidate := range InternationalPattern.FindAllString(text, -1) {
		if c.IsForeign(candidate) {
			return true
		}
	}
	return false
}

// ForeignNumbers returns the distinct normalized foreign numbers mentioned in text.
func (c *PhoneClassifier) ForeignNumbers(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, candidate := range InternationalPattern.FindAllString(text, -1) {
		if !c.IsForeign(candidate) {
			continue
		}
		n := Normalize(candidate)
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// SameNumber reports whether two phone numbers refer to the same line. Two
// numbers with international prefixes match only when they normalize equally.
// Otherwise the digits must be equal, or the shorter (at least 7 digits) must be
// a suffix of the longer, which tolerates a missing country code.
func SameNumber(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if strings.HasPrefix(na, "+") && strings.HasPrefix(nb, "+") {
		return na == nb
	}
	da, db := strings.TrimPrefix(na, "+"), strings.TrimPrefix(nb, "+")
	if da == "" || db == "" {
		return false
	}
	if da == db {
		return true
	}
	if len(da) > len(db) {
		da, db = db, da
	}
	return len(da) >= 7 && strings.HasSuffix(db, da)
}
