// Package indexer embeds catalog parts, repair guides and articles into the
// vector store used for semantic retrieval.
package indexer

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ziadkadry99/partsdesk/internal/catalog"
	"github.com/ziadkadry99/partsdesk/internal/logging"
	"github.com/ziadkadry99/partsdesk/internal/vectordb"
)

var kinds = []vectordb.DocumentKind{vectordb.KindPart, vectordb.KindRepair, vectordb.KindArticle}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBatching sets the embedding batch size and the number of batches in
// flight.
func WithBatching(size, concurrency int) Option {
	return func(p *Pipeline) {
		p.batchSize = size
		p.concurrency = concurrency
	}
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Pipeline) { p.onProgress = fn }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = logging.OrNop(l) }
}

// WithEmbedderName records which embedder produced the vectors. A change of
// embedder invalidates every stored hash.
func WithEmbedderName(name string) Option {
	return func(p *Pipeline) { p.embedder = name }
}

// Pipeline orchestrates catalog indexing: load -> diff -> embed -> persist.
type Pipeline struct {
	catalog     catalog.Store
	store       vectordb.VectorStore
	dataDir     string
	embedder    string
	batchSize   int
	concurrency int
	onProgress  ProgressFunc
	logger      *zap.Logger
}

// NewPipeline creates a Pipeline that reads from cat and writes vectors and
// state under dataDir.
func NewPipeline(cat catalog.Store, store vectordb.VectorStore, dataDir string, opts ...Option) *Pipeline {
	p := &Pipeline{
		catalog:     cat,
		store:       store,
		dataDir:     dataDir,
		batchSize:   32,
		concurrency: 2,
		logger:      zap.NewNop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// VectorDir is where the pipeline persists the vector store.
func VectorDir(dataDir string) string {
	return filepath.Join(dataDir, "vectordb")
}

// Run indexes the catalog. Unchanged documents are skipped unless full is
// set; a kind whose records were removed from the catalog is rebuilt.
func (p *Pipeline) Run(ctx context.Context, full bool) (*PipelineResult, error) {
	start := time.Now()
	result := &PipelineResult{}

	state, err := LoadState(p.dataDir)
	if err != nil {
		return nil, err
	}
	if p.embedder != "" && state.Embedder != "" && state.Embedder != p.embedder {
		p.logger.Info("embedder changed, rebuilding index",
			zap.String("previous", state.Embedder), zap.String("current", p.embedder))
		full = true
	}
	// State without vectors means the store was deleted or never persisted.
	if p.store.Count() == 0 && len(state.Hashes) > 0 {
		full = true
	}

	docs, err := p.loadDocuments(ctx)
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(docs))
	for _, d := range docs {
		present[d.ID] = true
	}
	rebuild := make(map[vectordb.DocumentKind]bool)
	for _, k := range kinds {
		rebuild[k] = full
	}
	for id := range state.Hashes {
		if !present[id] {
			rebuild[kindOf(id)] = true
		}
	}

	for _, k := range kinds {
		if !rebuild[k] {
			continue
		}
		if err := p.store.DeleteByKind(ctx, k); err != nil {
			return nil, eris.Wrapf(err, "clear %s documents", k)
		}
		for id := range state.Hashes {
			if kindOf(id) == k {
				delete(state.Hashes, id)
			}
		}
		result.Rebuilt = append(result.Rebuilt, k)
	}

	var changed []vectordb.Document
	for _, d := range docs {
		if state.IsChanged(d.ID, d.Metadata.ContentHash) {
			changed = append(changed, d)
		} else {
			result.DocumentsSkipped++
		}
	}

	if len(changed) > 0 {
		batch := NewBatcher(p.store, p.batchSize, p.concurrency, p.onProgress).Process(ctx, changed)
		for _, d := range batch.Stored {
			state.Hashes[d.ID] = d.Metadata.ContentHash
		}
		result.DocumentsIndexed = len(batch.Stored)
		result.DocumentsFailed = batch.Failed
		result.Errors = batch.Errors
		for _, e := range batch.Errors {
			p.logger.Warn("embedding batch failed", zap.Error(e))
		}
	}

	if len(changed) > 0 || len(result.Rebuilt) > 0 {
		if err := p.store.Persist(ctx, VectorDir(p.dataDir)); err != nil {
			return nil, eris.Wrap(err, "persist vector store")
		}
	}
	state.Embedder = p.embedder
	if err := state.SaveState(p.dataDir); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	p.logger.Info("catalog indexed",
		zap.Int("indexed", result.DocumentsIndexed),
		zap.Int("skipped", result.DocumentsSkipped),
		zap.Int("failed", result.DocumentsFailed),
		zap.Duration("duration", result.Duration))
	return result, nil
}

func (p *Pipeline) loadDocuments(ctx context.Context) ([]vectordb.Document, error) {
	parts, err := p.catalog.SearchParts(ctx, catalog.PartFilter{})
	if err != nil {
		return nil, eris.Wrap(err, "list parts")
	}
	repairs, err := p.catalog.SearchRepairs(ctx, catalog.RepairFilter{})
	if err != nil {
		return nil, eris.Wrap(err, "list repairs")
	}
	articles, err := p.catalog.SearchArticles(ctx, catalog.ArticleFilter{})
	if err != nil {
		return nil, eris.Wrap(err, "list articles")
	}

	docs := make([]vectordb.Document, 0, len(parts)+len(repairs)+len(articles))
	for _, part := range parts {
		docs = append(docs, vectordb.PartDocument(part))
	}
	for _, r := range repairs {
		docs = append(docs, vectordb.RepairDocument(r))
	}
	for _, a := range articles {
		docs = append(docs, vectordb.ArticleDocument(a))
	}
	return docs, nil
}

// kindOf recovers the document kind from an ID of the form "kind:record".
func kindOf(id string) vectordb.DocumentKind {
	kind, _, _ := strings.Cut(id, ":")
	return vectordb.DocumentKind(kind)
}
