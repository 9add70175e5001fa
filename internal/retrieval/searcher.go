// Package retrieval finds catalog records relevant to a question. It prefers
// the semantic index and falls back to keyword search over the catalog when
// the index is empty or absent.
package retrieval

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/partsdesk/internal/catalog"
	"github.com/ziadkadry99/partsdesk/internal/failure"
	"github.com/ziadkadry99/partsdesk/internal/logging"
	"github.com/ziadkadry99/partsdesk/internal/vectordb"
)

const (
	DefaultTimeout       = 5 * time.Second
	DefaultMinSimilarity = 0.05
)

// Request describes what to search for.
type Request struct {
	Query         string
	ApplianceType catalog.ApplianceType
	Brand         string
	ModelNumber   string
	Symptoms      []string
}

// Searcher runs bounded, time-limited searches.
type Searcher struct {
	catalog       catalog.Store
	vectors       vectordb.VectorStore
	timeout       time.Duration
	minSimilarity float32
	logger        *zap.Logger
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithVectors enables semantic search.
func WithVectors(v vectordb.VectorStore) Option {
	return func(s *Searcher) { s.vectors = v }
}

// WithTimeout bounds each individual search.
func WithTimeout(d time.Duration) Option {
	return func(s *Searcher) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMinSimilarity drops semantic hits scoring below min.
func WithMinSimilarity(min float32) Option {
	return func(s *Searcher) { s.minSimilarity = min }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Searcher) { s.logger = logging.OrNop(l) }
}

// New creates a Searcher over store.
func New(store catalog.Store, opts ...Option) *Searcher {
	s := &Searcher{
		catalog:       store,
		timeout:       DefaultTimeout,
		minSimilarity: DefaultMinSimilarity,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Searcher) semanticReady() bool {
	return s.vectors != nil && s.vectors.Count() > 0
}

// semantic returns record ids of the best matches of one kind.
func (s *Searcher) semantic(ctx context.Context, req Request, kind vectordb.DocumentKind, limit int) ([]string, error) {
	results, err := s.vectors.Search(ctx, req.Query, limit, &vectordb.SearchFilter{Kind: kind, ApplianceType: req.ApplianceType})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(results))
	for _, r := range results {
		if r.Similarity < s.minSimilarity {
			continue
		}
		ids = append(ids, r.Document.Metadata.RecordID)
	}
	return ids, nil
}

// Parts returns up to limit parts. Parts linked to a known model come first.
func (s *Searcher) Parts(ctx context.Context, req Request, limit int) ([]catalog.Part, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var out partSet
	if req.ModelNumber != "" {
		fits, err := s.catalog.PartsForModel(ctx, req.ModelNumber, limit)
		if err != nil {
			return nil, classify(ctx, "retrieval.parts_for_model", err)
		}
		out.add(limit, fits...)
	}
	if out.len() >= limit {
		return out.items, nil
	}

	if s.semanticReady() {
		ids, err := s.semantic(ctx, req, vectordb.KindPart, limit)
		if err != nil {
			return nil, classify(ctx, "retrieval.semantic_parts", err)
		}
		for _, id := range ids {
			p, err := s.catalog.GetPart(ctx, id)
			if errors.Is(err, catalog.ErrNotFound) {
				s.logger.Debug("indexed part missing from catalog", zap.String("part", id))
				continue
			}
			if err != nil {
				return nil, classify(ctx, "retrieval.get_part", err)
			}
			out.add(limit, *p)
		}
		return out.items, nil
	}

	// Repair guides name the parts that usually fix a symptom.
	var phrases []string
	for _, symptom := range req.Symptoms {
		guides, err := s.catalog.SearchRepairs(ctx, catalog.RepairFilter{Query: symptom, ApplianceType: req.ApplianceType})
		if err != nil {
			return nil, classify(ctx, "retrieval.search_repairs", err)
		}
		for _, g := range guides {
			phrases = append(phrases, g.PartNames...)
		}
	}
	for _, term := range keywords(req.Query, phrases) {
		found, err := s.catalog.SearchParts(ctx, catalog.PartFilter{Query: term, ApplianceType: req.ApplianceType, Limit: limit})
		if err != nil {
			return nil, classify(ctx, "retrieval.search_parts", err)
		}
		out.add(limit, found...)
		if out.len() >= limit {
			break
		}
	}
	return out.items, nil
}

// Repairs returns up to limit repair guides. Known symptoms are matched
// before free text.
func (s *Searcher) Repairs(ctx context.Context, req Request, limit int) ([]catalog.Repair, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		out  []catalog.Repair
		seen = map[string]bool{}
	)
	add := func(rs ...catalog.Repair) {
		for _, r := range rs {
			if len(out) < limit && !seen[r.ID] {
				seen[r.ID] = true
				out = append(out, r)
			}
		}
	}

	for _, symptom := range req.Symptoms {
		found, err := s.catalog.SearchRepairs(ctx, catalog.RepairFilter{Query: symptom, ApplianceType: req.ApplianceType, Limit: limit})
		if err != nil {
			return nil, classify(ctx, "retrieval.search_repairs", err)
		}
		add(found...)
	}
	if len(out) >= limit {
		return out, nil
	}

	if s.semanticReady() {
		ids, err := s.semantic(ctx, req, vectordb.KindRepair, limit)
		if err != nil {
			return nil, classify(ctx, "retrieval.semantic_repairs", err)
		}
		if len(ids) > 0 {
			byID, err := s.repairsByID(ctx, req.ApplianceType)
			if err != nil {
				return nil, err
			}
			for _, id := range ids {
				if r, ok := byID[id]; ok {
					add(r)
				}
			}
		}
		return out, nil
	}

	for _, term := range keywords(req.Query, nil) {
		found, err := s.catalog.SearchRepairs(ctx, catalog.RepairFilter{Query: term, ApplianceType: req.ApplianceType, Limit: limit})
		if err != nil {
			return nil, classify(ctx, "retrieval.search_repairs", err)
		}
		add(found...)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Searcher) repairsByID(ctx context.Context, at catalog.ApplianceType) (map[string]catalog.Repair, error) {
	all, err := s.catalog.SearchRepairs(ctx, catalog.RepairFilter{ApplianceType: at})
	if err != nil {
		return nil, classify(ctx, "retrieval.load_repairs", err)
	}
	byID := make(map[string]catalog.Repair, len(all))
	for _, r := range all {
		byID[r.ID] = r
	}
	return byID, nil
}

// Articles returns up to limit help articles.
func (s *Searcher) Articles(ctx context.Context, req Request, limit int) ([]catalog.Article, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		out  []catalog.Article
		seen = map[string]bool{}
	)
	add := func(as ...catalog.Article) {
		for _, a := range as {
			if len(out) < limit && !seen[a.ID] {
				seen[a.ID] = true
				out = append(out, a)
			}
		}
	}

	if s.semanticReady() {
		ids, err := s.semantic(ctx, req, vectordb.KindArticle, limit)
		if err != nil {
			return nil, classify(ctx, "retrieval.semantic_articles", err)
		}
		if len(ids) == 0 {
			return nil, nil
		}
		all, err := s.catalog.SearchArticles(ctx, catalog.ArticleFilter{ApplianceType: req.ApplianceType})
		if err != nil {
			return nil, classify(ctx, "retrieval.load_articles", err)
		}
		byID := make(map[string]catalog.Article, len(all))
		for _, a := range all {
			byID[a.ID] = a
		}
		for _, id := range ids {
			if a, ok := byID[id]; ok {
				add(a)
			}
		}
		return out, nil
	}

	for _, term := range keywords(req.Query, req.Symptoms) {
		found, err := s.catalog.SearchArticles(ctx, catalog.ArticleFilter{Query: term, ApplianceType: req.ApplianceType, Limit: limit})
		if err != nil {
			return nil, classify(ctx, "retrieval.search_articles", err)
		}
		add(found...)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// classify maps a collaborator error onto the failure taxonomy. Caller
// cancellation is passed through untouched.
func classify(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return failure.New(failure.CollaboratorTimeout, op, err)
	}
	return failure.New(failure.CollaboratorUnavailable, op, err)
}

type partSet struct {
	items []catalog.Part
	seen  map[string]bool
}

func (s *partSet) add(limit int, parts ...catalog.Part) {
	if s.seen == nil {
		s.seen = map[string]bool{}
	}
	for _, p := range parts {
		if len(s.items) < limit && !s.seen[p.PartNumber] {
			s.seen[p.PartNumber] = true
			s.items = append(s.items, p)
		}
	}
}

func (s *partSet) len() int { return len(s.items) }
