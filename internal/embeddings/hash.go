package embeddings

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultHashDimensions is the vector size of the local embedder.
const DefaultHashDimensions = 256

// HashEmbedder is an offline embedder using signed feature hashing over word
// unigrams and bigrams. Texts sharing vocabulary land close together, which
// is enough for keyword-heavy part and repair text without an API key.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a local embedder. dims <= 0 uses DefaultHashDimensions.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = DefaultHashDimensions
	}
	return &HashEmbedder{dims: dims}
}

func (e *HashEmbedder) Name() string    { return "local/hash" }
func (e *HashEmbedder) Dimensions() int { return e.dims }

func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *HashEmbedder) vector(text string) []float32 {
	vec := make([]float32, e.dims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, w := range words {
		e.add(vec, w, 1)
		if i > 0 {
			e.add(vec, words[i-1]+" "+w, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		// chromem rejects zero vectors; give empty text a fixed direction.
		vec[0] = 1
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

func (e *HashEmbedder) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dims))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}
