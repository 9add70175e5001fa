package indexer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/partsdesk/internal/catalog"
	"github.com/ziadkadry99/partsdesk/internal/db"
	"github.com/ziadkadry99/partsdesk/internal/embeddings"
	"github.com/ziadkadry99/partsdesk/internal/vectordb"
)

func seededCatalog(t *testing.T) *catalog.SQLiteStore {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	store := catalog.NewSQLiteStore(database)
	require.NoError(t, catalog.Seed(context.Background(), store))
	return store
}

func newVectors(t *testing.T) *vectordb.ChromemStore {
	t.Helper()
	store, err := vectordb.NewChromemStore(embeddings.NewHashEmbedder(128))
	require.NoError(t, err)
	return store
}

func seedTotal() int {
	return len(catalog.SeedParts()) + len(catalog.SeedRepairs()) + len(catalog.SeedArticles())
}

func TestPipeline_IncrementalRuns(t *testing.T) {
	ctx := context.Background()
	cat := seededCatalog(t)
	vectors := newVectors(t)
	dir := t.TempDir()

	var mu sync.Mutex
	var last, total int
	p := NewPipeline(cat, vectors, dir,
		WithBatching(4, 3),
		WithEmbedderName("hash"),
		WithProgress(func(processed, n int, _ string) {
			mu.Lock()
			defer mu.Unlock()
			if processed > last {
				last = processed
			}
			total = n
		}))

	first, err := p.Run(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, seedTotal(), first.DocumentsIndexed)
	assert.Zero(t, first.DocumentsSkipped)
	assert.Empty(t, first.Errors)
	assert.Equal(t, seedTotal(), vectors.Count())
	assert.Equal(t, total, last)
	assert.True(t, vectordb.Exists(VectorDir(dir)))

	second, err := p.Run(ctx, false)
	require.NoError(t, err)
	assert.Zero(t, second.DocumentsIndexed)
	assert.Equal(t, seedTotal(), second.DocumentsSkipped)
	assert.Empty(t, second.Rebuilt)

	part := catalog.SeedParts()[0]
	part.Description = "Revised description after a supplier change."
	require.NoError(t, cat.UpsertPart(ctx, part))

	third, err := p.Run(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, third.DocumentsIndexed)
	assert.Equal(t, seedTotal()-1, third.DocumentsSkipped)
	assert.Equal(t, seedTotal(), vectors.Count())
}

func TestPipeline_FullRebuild(t *testing.T) {
	ctx := context.Background()
	cat := seededCatalog(t)
	vectors := newVectors(t)
	dir := t.TempDir()
	p := NewPipeline(cat, vectors, dir, WithEmbedderName("hash"))

	_, err := p.Run(ctx, false)
	require.NoError(t, err)

	res, err := p.Run(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, seedTotal(), res.DocumentsIndexed)
	assert.ElementsMatch(t, kinds, res.Rebuilt)
	assert.Equal(t, seedTotal(), vectors.Count())
}

func TestPipeline_EmbedderChangeRebuilds(t *testing.T) {
	ctx := context.Background()
	cat := seededCatalog(t)
	dir := t.TempDir()

	_, err := NewPipeline(cat, newVectors(t), dir, WithEmbedderName("hash")).Run(ctx, false)
	require.NoError(t, err)

	res, err := NewPipeline(cat, newVectors(t), dir, WithEmbedderName("openai/text-embedding-3-small")).Run(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, seedTotal(), res.DocumentsIndexed)

	state, err := LoadState(dir)
	require.NoError(t, err)
	assert.Equal(t, "openai/text-embedding-3-small", state.Embedder)
}

func TestPipeline_MissingVectorsReindex(t *testing.T) {
	ctx := context.Background()
	cat := seededCatalog(t)
	dir := t.TempDir()

	_, err := NewPipeline(cat, newVectors(t), dir).Run(ctx, false)
	require.NoError(t, err)

	// A fresh, empty store with surviving state must not be treated as up to date.
	fresh := newVectors(t)
	res, err := NewPipeline(cat, fresh, dir).Run(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, seedTotal(), res.DocumentsIndexed)
	assert.Equal(t, seedTotal(), fresh.Count())
}

// shrunkCatalog hides all but the first article.
type shrunkCatalog struct {
	catalog.Store
}

func (s shrunkCatalog) SearchArticles(ctx context.Context, f catalog.ArticleFilter) ([]catalog.Article, error) {
	all, err := s.Store.SearchArticles(ctx, f)
	if err != nil || len(all) == 0 {
		return all, err
	}
	return all[:1], nil
}

func TestPipeline_RemovedRecordsRebuildKind(t *testing.T) {
	ctx := context.Background()
	cat := seededCatalog(t)
	vectors := newVectors(t)
	dir := t.TempDir()

	_, err := NewPipeline(cat, vectors, dir).Run(ctx, false)
	require.NoError(t, err)

	res, err := NewPipeline(shrunkCatalog{cat}, vectors, dir).Run(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []vectordb.DocumentKind{vectordb.KindArticle}, res.Rebuilt)
	assert.Equal(t, 1, res.DocumentsIndexed)

	arts := len(catalog.SeedArticles())
	assert.Equal(t, seedTotal()-arts+1, vectors.Count())
}

func TestPipeline_CatalogError(t *testing.T) {
	p := NewPipeline(failingCatalog{}, newVectors(t), t.TempDir())
	_, err := p.Run(context.Background(), false)
	assert.ErrorContains(t, err, "list parts")
}

type failingCatalog struct {
	catalog.Store
}

func (failingCatalog) SearchParts(context.Context, catalog.PartFilter) ([]catalog.Part, error) {
	return nil, errors.New("database is locked")
}

// flakyStore fails AddDocuments with err after ok successful batches.
type flakyStore struct {
	vectordb.VectorStore
	mu    sync.Mutex
	ok    int
	calls int
	err   error
}

func (f *flakyStore) AddDocuments(_ context.Context, _ []vectordb.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls > f.ok {
		return f.err
	}
	return nil
}

func docs(n int) []vectordb.Document {
	parts := catalog.SeedParts()
	out := make([]vectordb.Document, n)
	for i := range out {
		out[i] = vectordb.PartDocument(parts[i%len(parts)])
	}
	return out
}

func TestBatcher_QuotaStopsRemainingBatches(t *testing.T) {
	store := &flakyStore{err: errors.New("429: insufficient_quota")}
	var mu sync.Mutex
	var reported int
	b := NewBatcher(store, 2, 1, func(processed, _ int, _ string) {
		mu.Lock()
		reported = max(reported, processed)
		mu.Unlock()
	})

	res := b.Process(context.Background(), docs(10))
	assert.Empty(t, res.Stored)
	assert.Equal(t, 10, res.Failed)
	assert.Len(t, res.Errors, 5)
	assert.Equal(t, 10, reported)
	assert.Less(t, store.calls, 5, "batches after the quota error are not sent")
}

func TestBatcher_OtherErrorsContinue(t *testing.T) {
	store := &flakyStore{ok: 2, err: errors.New("connection reset")}
	res := NewBatcher(store, 3, 1, nil).Process(context.Background(), docs(9))
	assert.Len(t, res.Stored, 6)
	assert.Equal(t, 3, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Error(), "connection reset")
}

func TestBatcher_Empty(t *testing.T) {
	res := NewBatcher(&flakyStore{}, 0, 0, nil).Process(context.Background(), nil)
	assert.Empty(t, res.Stored)
	assert.Zero(t, res.Failed)
}

func TestState_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := LoadState(dir)
	require.NoError(t, err)
	assert.True(t, s.IsChanged("part:PS1", "abc"))

	s.Hashes["part:PS1"] = "abc"
	s.Embedder = "hash"
	require.NoError(t, s.SaveState(dir))

	loaded, err := LoadState(dir)
	require.NoError(t, err)
	assert.False(t, loaded.IsChanged("part:PS1", "abc"))
	assert.True(t, loaded.IsChanged("part:PS1", "def"))
	assert.Equal(t, "hash", loaded.Embedder)
	assert.False(t, loaded.LastUpdated.IsZero())

	loaded.Reset()
	assert.True(t, loaded.IsChanged("part:PS1", "abc"))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, vectordb.KindRepair, kindOf("repair:dw-not-draining"))
	assert.Equal(t, vectordb.DocumentKind("bare"), kindOf("bare"))
}
