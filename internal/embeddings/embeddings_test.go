package embeddings

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestHashEmbedderIsNormalizedAndDeterministic(t *testing.T) {
	e := NewHashEmbedder(0)
	assert.Equal(t, DefaultHashDimensions, e.Dimensions())

	vecs, err := e.Embed(context.Background(), []string{"Dishwasher drain pump", "Dishwasher drain pump", ""})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, vecs[0], vecs[1])

	for _, v := range vecs {
		var norm float64
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
	}
}

func TestHashEmbedderSimilarity(t *testing.T) {
	e := NewHashEmbedder(512)
	vecs, err := e.Embed(context.Background(), []string{
		"dishwasher not draining drain pump",
		"replace the dishwasher drain pump",
		"refrigerator ice maker water valve",
	})
	require.NoError(t, err)
	assert.Greater(t, cosine(vecs[0], vecs[1]), cosine(vecs[0], vecs[2]))
}

func TestHashEmbedderHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHashEmbedder(8).Embed(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewEmbedder(t *testing.T) {
	e, err := New("", "", "")
	require.NoError(t, err)
	assert.Equal(t, "local/hash", e.Name())

	t.Setenv("OPENAI_API_KEY", "")
	_, err = New("openai", "", "")
	assert.Error(t, err)

	_, err = New("bogus", "", "")
	assert.Error(t, err)

	o, err := New("ollama", "", "")
	require.NoError(t, err)
	assert.Equal(t, "ollama/nomic-embed-text", o.Name())
}

func TestOllamaEmbedBatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		out := ollamaEmbedResponse{}
		for range req.Input {
			out.Embeddings = append(out.Embeddings, []float32{1, 0})
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer ts.Close()

	e := NewOllamaEmbedder("nomic-embed-text", 2, ts.URL+"/v1")
	vecs, err := e.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
}

func TestOpenAIEmbedderRestoresOrder(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small","data":[
			{"object":"embedding","index":1,"embedding":[0,1]},
			{"object":"embedding","index":0,"embedding":[1,0]}]}`))
	}))
	defer ts.Close()

	e := NewOpenAIEmbedder("k", ModelTextEmbedding3Small, ts.URL)
	vecs, err := e.Embed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
}

func TestToChromemFunc(t *testing.T) {
	fn := ToChromemFunc(NewHashEmbedder(16))
	v, err := fn(context.Background(), "door latch")
	require.NoError(t, err)
	assert.Len(t, v, 16)
}
