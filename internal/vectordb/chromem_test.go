package vectordb

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/partsdesk/internal/catalog"
)

// mockEmbedder returns deterministic embeddings based on text content.
// Similar texts produce similar vectors because shared characters contribute
// to the same positions in the vector.
type mockEmbedder struct {
	dims int
}

func newMockEmbedder(dims int) *mockEmbedder {
	return &mockEmbedder{dims: dims}
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		results[i] = m.deterministicVector(text)
	}
	return results, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }
func (m *mockEmbedder) Name() string    { return "mock" }

func (m *mockEmbedder) deterministicVector(text string) []float32 {
	vec := make([]float32, m.dims)
	for i, ch := range text {
		idx := (int(ch) + i) % m.dims
		vec[idx] += 1.0
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

func seededStore(t *testing.T) *ChromemStore {
	t.Helper()
	store, err := NewChromemStore(newMockEmbedder(64))
	require.NoError(t, err)

	var docs []Document
	for _, p := range catalog.SeedParts() {
		docs = append(docs, PartDocument(p))
	}
	for _, r := range catalog.SeedRepairs() {
		docs = append(docs, RepairDocument(r))
	}
	for _, a := range catalog.SeedArticles() {
		docs = append(docs, ArticleDocument(a))
	}
	require.NoError(t, store.AddDocuments(context.Background(), docs))
	return store
}

func TestDocumentBuilders(t *testing.T) {
	p := catalog.Part{PartNumber: "PS11746591", Name: "Drain Pump", Brand: "Whirlpool",
		ApplianceType: catalog.Dishwasher, Description: "Pumps water out.", InstallDifficulty: "Easy", InstallTime: "30 min"}
	doc := PartDocument(p)
	assert.Equal(t, "part:PS11746591", doc.ID)
	assert.Contains(t, doc.Content, "Whirlpool Drain Pump (PS11746591)")
	assert.Contains(t, doc.Content, "Install: Easy, 30 min")
	assert.Equal(t, KindPart, doc.Metadata.Kind)
	assert.Len(t, doc.Metadata.ContentHash, 16)

	r := RepairDocument(catalog.Repair{ID: "r1", Title: "Dishwasher not draining", Symptom: "not draining",
		ApplianceType: catalog.Dishwasher, PartNames: []string{"Drain Pump", "Check Valve"}})
	assert.Contains(t, r.Content, "Parts: Drain Pump, Check Valve")
	assert.NotContains(t, PartDocument(catalog.Part{PartNumber: "X"}).Content, "Install:")
}

func TestChromemStore_AddAndSearch(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()
	assert.Greater(t, store.Count(), 0)

	results, err := store.Search(ctx, "dishwasher drain pump", 3, nil)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Similarity, results[i].Similarity)
	}
}

func TestChromemStore_FilterByKindAndAppliance(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	results, err := store.Search(ctx, "replacement part", 20, &SearchFilter{Kind: KindPart, ApplianceType: catalog.Dishwasher})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	sawUniversal := false
	for _, r := range results {
		assert.Equal(t, KindPart, r.Document.Metadata.Kind)
		at := r.Document.Metadata.ApplianceType
		assert.Contains(t, []catalog.ApplianceType{catalog.Dishwasher, catalog.Universal}, at)
		if at == catalog.Universal {
			sawUniversal = true
		}
	}
	assert.True(t, sawUniversal, "universal parts match every appliance filter")

	repairs, err := store.Search(ctx, "fridge", 20, &SearchFilter{Kind: KindRepair, ApplianceType: catalog.Refrigerator})
	require.NoError(t, err)
	for _, r := range repairs {
		assert.Equal(t, catalog.Refrigerator, r.Document.Metadata.ApplianceType)
	}
}

func TestChromemStore_EmptySearch(t *testing.T) {
	store, err := NewChromemStore(newMockEmbedder(16))
	require.NoError(t, err)
	results, err := store.Search(context.Background(), "anything", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChromemStore_DeleteByKind(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()
	before := store.Count()

	require.NoError(t, store.DeleteByKind(ctx, KindArticle))
	assert.Equal(t, before-len(catalog.SeedArticles()), store.Count())

	results, err := store.Search(ctx, "maintenance", 5, &SearchFilter{Kind: KindArticle})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChromemStore_PersistAndLoad(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	dir := t.TempDir()

	assert.False(t, Exists(dir))
	require.NoError(t, store.Persist(ctx, dir))
	assert.True(t, Exists(dir))

	loaded, err := NewChromemStore(newMockEmbedder(64))
	require.NoError(t, err)
	require.NoError(t, loaded.Load(ctx, dir))
	assert.Equal(t, store.Count(), loaded.Count())

	results, err := loaded.Search(ctx, "door latch", 1, &SearchFilter{Kind: KindPart})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NotEmpty(t, results[0].Document.Metadata.RecordID)
	assert.False(t, results[0].Document.Metadata.IndexedAt.IsZero())
}

func TestFormatResults(t *testing.T) {
	assert.Equal(t, "No results found.", FormatResults(nil))

	out := FormatResults([]SearchResult{{
		Document:   PartDocument(catalog.Part{PartNumber: "PS1", Name: "Latch", Brand: "Whirlpool", ApplianceType: catalog.Dishwasher}),
		Similarity: 0.9,
	}})
	assert.Contains(t, out, "part: PS1")
	assert.Contains(t, out, "Title: Latch")
	assert.Contains(t, out, "Appliance: dishwasher")
}
