package indexer

import (
	"time"

	"github.com/ziadkadry99/partsdesk/internal/vectordb"
)

// PipelineResult summarizes the outcome of an indexing run.
type PipelineResult struct {
	DocumentsIndexed int
	DocumentsSkipped int
	DocumentsFailed  int
	// Rebuilt lists the kinds that were dropped and re-embedded in full,
	// either on request or because records disappeared from the catalog.
	Rebuilt  []vectordb.DocumentKind
	Duration time.Duration
	Errors   []error
}

// ProgressFunc is called during batch processing to report progress.
type ProgressFunc func(processed int, total int, current string)
