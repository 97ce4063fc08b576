package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// HashEmbedder produces deterministic vectors by feature hashing words and
// character trigrams into a fixed number of buckets. It is used when no
// embedding provider is configured, so similarity reflects lexical overlap.
type HashEmbedder struct {
	dims int
}

var _ Embedder = (*HashEmbedder)(nil)

// NewHashEmbedder creates a HashEmbedder producing vectors of length dims.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &HashEmbedder{dims: dims}
}

// Dimensions returns the vector length.
func (h *HashEmbedder) Dimensions() int {
	return h.dims
}

// Embed returns the unit-length hashed vector for text. Text without any
// letters or digits yields an empty vector.
func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return []float32{}, nil
	}

	vec := make([]float32, h.dims)
	for _, tok := range tokens {
		h.add(vec, "w:"+tok, 1.0)
		padded := "#" + tok + "#"
		runes := []rune(padded)
		for i := 0; i+3 <= len(runes); i++ {
			h.add(vec, "c:"+string(runes[i:i+3]), 0.5)
		}
	}

	return Normalize(vec), nil
}

func (h *HashEmbedder) add(vec []float32, feature string, weight float32) {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(feature))
	sum := hasher.Sum64()

	idx := int(sum % uint64(h.dims))
	// The top bit picks the sign so collisions tend to cancel instead of pile up.
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
