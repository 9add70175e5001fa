package vectordb

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"github.com/rotisserie/eris"

	"github.com/ziadkadry99/partsdesk/internal/catalog"
	"github.com/ziadkadry99/partsdesk/internal/embeddings"
)

const (
	collectionName = "catalog"
	exportFile     = "chromem.gob.gz"

	// scopeKey holds the appliance type used for filtering. Records without
	// one are stored as universal.
	scopeKey = "appliance_scope"
)

// ChromemStore implements VectorStore using chromem-go.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedFunc  chromem.EmbeddingFunc
}

// NewChromemStore creates a new in-memory ChromemStore.
func NewChromemStore(embedder embeddings.Embedder) (*ChromemStore, error) {
	db := chromem.NewDB()
	ef := embeddings.ToChromemFunc(embedder)

	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, eris.Wrap(err, "create collection")
	}

	return &ChromemStore{
		db:         db,
		collection: col,
		embedFunc:  ef,
	}, nil
}

func (s *ChromemStore) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	now := time.Now().UTC()
	chromDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		if doc.Metadata.IndexedAt.IsZero() {
			doc.Metadata.IndexedAt = now
		}
		chromDocs[i] = chromem.Document{
			ID:       doc.ID,
			Content:  doc.Content,
			Metadata: metadataToMap(doc.Metadata),
		}
	}

	return eris.Wrap(s.collection.AddDocuments(ctx, chromDocs, 4), "add documents")
}

// Search returns up to limit documents ordered by similarity. With an
// appliance filter, universal documents are merged into the results.
func (s *ChromemStore) Search(ctx context.Context, query string, limit int, filter *SearchFilter) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	// chromem-go requires nResults <= collection size.
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	wheres := buildWhereClauses(filter)
	var merged []SearchResult
	for _, where := range wheres {
		results, err := s.collection.Query(ctx, query, limit, where, nil)
		if err != nil {
			return nil, eris.Wrap(err, "chromem query")
		}
		for _, r := range results {
			merged = append(merged, SearchResult{
				Document: Document{
					ID:       r.ID,
					Content:  r.Content,
					Metadata: mapToMetadata(r.Metadata),
				},
				Similarity: r.Similarity,
			})
		}
	}

	if len(wheres) > 1 {
		sort.SliceStable(merged, func(i, j int) bool { return merged[i].Similarity > merged[j].Similarity })
	}
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

func (s *ChromemStore) DeleteByKind(ctx context.Context, kind DocumentKind) error {
	where := map[string]string{"kind": string(kind)}
	return eris.Wrapf(s.collection.Delete(ctx, where, nil), "delete %s documents", kind)
}

func (s *ChromemStore) Persist(_ context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "create vector dir")
	}
	return eris.Wrap(s.db.ExportToFile(filepath.Join(dir, exportFile), true, ""), "export vector store")
}

func (s *ChromemStore) Load(_ context.Context, dir string) error {
	err := s.db.ImportFromFile(filepath.Join(dir, exportFile), "")
	if err != nil {
		return eris.Wrap(err, "import from file")
	}

	// Re-acquire collection reference after import.
	col := s.db.GetCollection(collectionName, s.embedFunc)
	if col == nil {
		return eris.Errorf("collection %q not found after import", collectionName)
	}
	s.collection = col
	return nil
}

// Exists reports whether a persisted store is present in dir.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, exportFile))
	return err == nil
}

func (s *ChromemStore) Count() int {
	return s.collection.Count()
}

// metadataToMap converts DocumentMetadata to a flat map[string]string for chromem.
func metadataToMap(m DocumentMetadata) map[string]string {
	scope := string(m.ApplianceType)
	if scope == "" {
		scope = string(catalog.Universal)
	}
	return map[string]string{
		"kind":           string(m.Kind),
		"record_id":      m.RecordID,
		"appliance_type": string(m.ApplianceType),
		scopeKey:         scope,
		"brand":          m.Brand,
		"title":          m.Title,
		"content_hash":   m.ContentHash,
		"indexed_at":     m.IndexedAt.Format(time.RFC3339),
	}
}

// mapToMetadata converts a flat map[string]string back to DocumentMetadata.
func mapToMetadata(m map[string]string) DocumentMetadata {
	indexedAt, _ := time.Parse(time.RFC3339, m["indexed_at"])
	return DocumentMetadata{
		Kind:          DocumentKind(m["kind"]),
		RecordID:      m["record_id"],
		ApplianceType: catalog.ApplianceType(m["appliance_type"]),
		Brand:         m["brand"],
		Title:         m["title"],
		ContentHash:   m["content_hash"],
		IndexedAt:     indexedAt,
	}
}

// buildWhereClauses converts a SearchFilter to one or two chromem where
// clauses. chromem only matches equality, so "type X or universal" needs a
// second query.
func buildWhereClauses(filter *SearchFilter) []map[string]string {
	if filter == nil {
		return []map[string]string{nil}
	}

	base := make(map[string]string)
	if filter.Kind != "" {
		base["kind"] = string(filter.Kind)
	}
	if filter.ApplianceType == "" || filter.ApplianceType == catalog.Universal {
		if len(base) == 0 {
			return []map[string]string{nil}
		}
		return []map[string]string{base}
	}

	typed := map[string]string{scopeKey: string(filter.ApplianceType)}
	universal := map[string]string{scopeKey: string(catalog.Universal)}
	for k, v := range base {
		typed[k] = v
		universal[k] = v
	}
	return []map[string]string{typed, universal}
}
