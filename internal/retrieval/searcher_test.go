package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/partsdesk/internal/catalog"
	"github.com/ziadkadry99/partsdesk/internal/db"
	"github.com/ziadkadry99/partsdesk/internal/embeddings"
	"github.com/ziadkadry99/partsdesk/internal/failure"
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

func partNumbers(parts []catalog.Part) []string {
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = p.PartNumber
	}
	return out
}

var drainRequest = Request{
	Query:         "my dishwasher is not draining",
	ApplianceType: catalog.Dishwasher,
	Symptoms:      []string{"not draining"},
}

func TestKeywordFallback(t *testing.T) {
	s := New(seededCatalog(t))
	ctx := context.Background()

	parts, err := s.Parts(ctx, drainRequest, 5)
	require.NoError(t, err)
	assert.Contains(t, partNumbers(parts), "PS11746591")

	repairs, err := s.Repairs(ctx, drainRequest, 3)
	require.NoError(t, err)
	require.NotEmpty(t, repairs)
	assert.Equal(t, "dw-not-draining", repairs[0].ID)

	articles, err := s.Articles(ctx, drainRequest, 2)
	require.NoError(t, err)
	require.NotEmpty(t, articles)
	assert.Equal(t, "how-to-clean-dishwasher-filter", articles[0].ID)
}

func TestPartsForKnownModelComeFirst(t *testing.T) {
	s := New(seededCatalog(t))
	req := drainRequest
	req.ModelNumber = "WDT780SAEM1"

	parts, err := s.Parts(context.Background(), req, 5)
	require.NoError(t, err)
	require.Len(t, parts, 5)
	for _, p := range parts {
		assert.Equal(t, catalog.Dishwasher, p.ApplianceType)
	}
}

func TestLimitsAreRespected(t *testing.T) {
	s := New(seededCatalog(t))
	req := Request{Query: "door leaking latch gasket", ApplianceType: catalog.Dishwasher, Symptoms: []string{"leaking", "door won't close"}}

	parts, err := s.Parts(context.Background(), req, 1)
	require.NoError(t, err)
	assert.Len(t, parts, 1)

	repairs, err := s.Repairs(context.Background(), req, 1)
	require.NoError(t, err)
	assert.Len(t, repairs, 1)
}

func TestSemanticSearch(t *testing.T) {
	store := seededCatalog(t)
	vectors, err := vectordb.NewChromemStore(embeddings.NewHashEmbedder(512))
	require.NoError(t, err)

	var docs []vectordb.Document
	for _, p := range catalog.SeedParts() {
		docs = append(docs, vectordb.PartDocument(p))
	}
	for _, r := range catalog.SeedRepairs() {
		docs = append(docs, vectordb.RepairDocument(r))
	}
	for _, a := range catalog.SeedArticles() {
		docs = append(docs, vectordb.ArticleDocument(a))
	}
	require.NoError(t, vectors.AddDocuments(context.Background(), docs))

	s := New(store, WithVectors(vectors), WithMinSimilarity(0))
	req := Request{Query: "dishwasher drain pump", ApplianceType: catalog.Dishwasher}

	parts, err := s.Parts(context.Background(), req, 5)
	require.NoError(t, err)
	assert.Contains(t, partNumbers(parts), "PS11746591")
	for _, p := range parts {
		assert.Contains(t, []catalog.ApplianceType{catalog.Dishwasher, catalog.Universal}, p.ApplianceType)
	}

	repairs, err := s.Repairs(context.Background(), req, 3)
	require.NoError(t, err)
	for _, r := range repairs {
		assert.Equal(t, catalog.Dishwasher, r.ApplianceType)
	}
}

// brokenStore fails or stalls every call it overrides.
type brokenStore struct {
	catalog.Store
	err   error
	stall bool
}

func (b *brokenStore) wait(ctx context.Context) error {
	if b.stall {
		<-ctx.Done()
		return ctx.Err()
	}
	return b.err
}

func (b *brokenStore) SearchParts(ctx context.Context, _ catalog.PartFilter) ([]catalog.Part, error) {
	return nil, b.wait(ctx)
}

func (b *brokenStore) SearchRepairs(ctx context.Context, _ catalog.RepairFilter) ([]catalog.Repair, error) {
	return nil, b.wait(ctx)
}

func (b *brokenStore) SearchArticles(ctx context.Context, _ catalog.ArticleFilter) ([]catalog.Article, error) {
	return nil, b.wait(ctx)
}

func (b *brokenStore) PartsForModel(ctx context.Context, _ string, _ int) ([]catalog.Part, error) {
	return nil, b.wait(ctx)
}

func TestErrorsAreClassified(t *testing.T) {
	s := New(&brokenStore{err: errors.New("connection refused")})
	_, err := s.Repairs(context.Background(), drainRequest, 3)
	require.Error(t, err)
	assert.Equal(t, failure.CollaboratorUnavailable, failure.KindOf(err))

	slow := New(&brokenStore{stall: true}, WithTimeout(20*time.Millisecond))
	start := time.Now()
	_, err = slow.Articles(context.Background(), drainRequest, 2)
	require.Error(t, err)
	assert.Equal(t, failure.CollaboratorTimeout, failure.KindOf(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestCallerCancellationPassesThrough(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New(&brokenStore{stall: true})
	_, err := s.Parts(ctx, Request{ModelNumber: "WDT780SAEM1"}, 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKeywords(t *testing.T) {
	got := keywords("My dishwasher keeps leaking from the door!", []string{"Door Gasket"})
	assert.Equal(t, []string{"door gasket", "leak", "door"}, got)
	assert.Equal(t, "glass", stem("glass"))
	assert.Equal(t, "gasket", stem("gaskets"))
	assert.Equal(t, "bins", stem("bins"))
}
