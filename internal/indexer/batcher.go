package indexer

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/partsdesk/internal/vectordb"
)

// Batcher embeds documents into a vector store in fixed-size batches with
// bounded parallelism.
type Batcher struct {
	store       vectordb.VectorStore
	batchSize   int
	concurrency int
	onProgress  ProgressFunc
}

// NewBatcher creates a Batcher. Sizes below one are raised to one.
func NewBatcher(store vectordb.VectorStore, batchSize, concurrency int, onProgress ProgressFunc) *Batcher {
	if batchSize < 1 {
		batchSize = 1
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Batcher{store: store, batchSize: batchSize, concurrency: concurrency, onProgress: onProgress}
}

// BatchResult holds the documents that made it into the store and the
// errors of the batches that did not.
type BatchResult struct {
	Stored []vectordb.Document
	Failed int
	Errors []error
}

// Process adds docs to the store. A quota error from the embedder stops
// the remaining batches; other batch failures are collected and the rest
// continue.
func (b *Batcher) Process(ctx context.Context, docs []vectordb.Document) *BatchResult {
	result := &BatchResult{}
	total := len(docs)
	if total == 0 {
		return result
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var quotaExhausted atomic.Bool

	var (
		mu        sync.Mutex
		processed atomic.Int64
	)
	report := func(n int, current string) {
		count := processed.Add(int64(n))
		if b.onProgress != nil {
			b.onProgress(int(count), total, current)
		}
	}
	fail := func(batch []vectordb.Document, err error) {
		mu.Lock()
		result.Failed += len(batch)
		result.Errors = append(result.Errors, err)
		mu.Unlock()
	}

	g := new(errgroup.Group)
	g.SetLimit(b.concurrency)
	for start := 0; start < total; start += b.batchSize {
		batch := docs[start:min(start+b.batchSize, total)]
		label := batch[len(batch)-1].ID

		if quotaExhausted.Load() {
			fail(batch, eris.Errorf("embed %s: skipped (embedding quota exhausted)", label))
			report(len(batch), label)
			continue
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				fail(batch, err)
				report(len(batch), label)
				return nil
			}
			if err := b.store.AddDocuments(ctx, batch); err != nil {
				fail(batch, eris.Wrapf(err, "embed batch ending %s", label))
				if isQuotaError(err) {
					quotaExhausted.Store(true)
					cancel()
				}
			} else {
				mu.Lock()
				result.Stored = append(result.Stored, batch...)
				mu.Unlock()
			}
			report(len(batch), label)
			return nil
		})
	}
	_ = g.Wait()
	return result
}

func isQuotaError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "insufficient_quota")
}
