// Package orchestrator runs the research tier: concurrent catalog searches,
// grounded text generation and the ordered stream of results.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/partsdesk/internal/catalog"
	"github.com/ziadkadry99/partsdesk/internal/convctx"
	"github.com/ziadkadry99/partsdesk/internal/failure"
	"github.com/ziadkadry99/partsdesk/internal/llm"
	"github.com/ziadkadry99/partsdesk/internal/logging"
	"github.com/ziadkadry99/partsdesk/internal/retrieval"
	"github.com/ziadkadry99/partsdesk/internal/stream"
	"github.com/ziadkadry99/partsdesk/internal/triage"
)

// Searcher finds catalog records. retrieval.Searcher implements it.
type Searcher interface {
	Parts(ctx context.Context, req retrieval.Request, limit int) ([]catalog.Part, error)
	Repairs(ctx context.Context, req retrieval.Request, limit int) ([]catalog.Repair, error)
	Articles(ctx context.Context, req retrieval.Request, limit int) ([]catalog.Article, error)
}

// Limits caps the records of each kind in one answer.
type Limits struct {
	Parts    int
	Repairs  int
	Articles int
}

// DefaultLimits are the per-kind caps.
var DefaultLimits = Limits{Parts: 5, Repairs: 3, Articles: 2}

const genericDegraded = "I could not write a full answer right now, but these resources match your question."

// Orchestrator is safe for concurrent use.
type Orchestrator struct {
	searcher    Searcher
	provider    llm.Provider
	limits      Limits
	maxTokens   int
	temperature float64
	logger      *zap.Logger
	now         func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLimits overrides the per-kind caps. Non-positive values keep defaults.
func WithLimits(l Limits) Option {
	return func(o *Orchestrator) {
		if l.Parts > 0 {
			o.limits.Parts = l.Parts
		}
		if l.Repairs > 0 {
			o.limits.Repairs = l.Repairs
		}
		if l.Articles > 0 {
			o.limits.Articles = l.Articles
		}
	}
}

// WithGeneration sets generation parameters.
func WithGeneration(maxTokens int, temperature float64) Option {
	return func(o *Orchestrator) {
		o.maxTokens = maxTokens
		o.temperature = temperature
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = logging.OrNop(l) }
}

// WithClock replaces time.Now for elapsed-time measurement.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an orchestrator. A nil provider always yields the degraded
// answer.
func New(searcher Searcher, provider llm.Provider, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		searcher:    searcher,
		provider:    provider,
		limits:      DefaultLimits,
		maxTokens:   llm.DefaultMaxTokens,
		temperature: 0.2,
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type results struct {
	parts    []catalog.Part
	repairs  []catalog.Repair
	articles []catalog.Article

	partsErr, repairsErr, articlesErr error
}

func (r results) empty() bool {
	return len(r.parts) == 0 && len(r.repairs) == 0 && len(r.articles) == 0
}

func (r results) allFailed() bool {
	return r.partsErr != nil && r.repairsErr != nil && r.articlesErr != nil
}

// firstErr prefers a non-timeout error so the reason names the real cause.
func (r results) firstErr() error {
	var timeout error
	for _, err := range []error{r.partsErr, r.repairsErr, r.articlesErr} {
		if err == nil {
			continue
		}
		if failure.Is(err, failure.CollaboratorTimeout) {
			timeout = err
			continue
		}
		return err
	}
	return timeout
}

// Resolve answers query and writes thinking, answer_text, parts, repairs,
// articles and done to sink in that order. On failure it returns an error
// and emits no terminal fragment; the caller turns the error into a failed
// fragment. Context errors are returned as is.
func (o *Orchestrator) Resolve(ctx context.Context, query string, conv *convctx.Context, sink stream.Sink) error {
	start := o.now()
	if err := sink.Emit(ctx, stream.Thinking(thinkingMessage(conv))); err != nil {
		return err
	}

	found := o.search(ctx, query, conv)
	if err := ctx.Err(); err != nil {
		return err
	}
	if found.allFailed() && !failure.IsRecoverable(found.firstErr()) {
		return found.firstErr()
	}

	if err := o.answer(ctx, query, conv, found, sink); err != nil {
		return err
	}

	if len(found.parts) > 0 {
		if err := sink.Emit(ctx, stream.Parts(found.parts)); err != nil {
			return err
		}
	}
	if len(found.repairs) > 0 {
		if err := sink.Emit(ctx, stream.Repairs(found.repairs)); err != nil {
			return err
		}
	}
	if len(found.articles) > 0 {
		if err := sink.Emit(ctx, stream.Articles(found.articles)); err != nil {
			return err
		}
	}
	return sink.Emit(ctx, stream.Done(o.now().Sub(start)))
}

// search runs the three searches concurrently. A failed search leaves its
// slot empty; it does not cancel the others.
func (o *Orchestrator) search(ctx context.Context, query string, conv *convctx.Context) results {
	req := retrieval.Request{Query: query}
	if conv != nil {
		req.ApplianceType = conv.ApplianceType
		req.Brand = conv.Brand
		req.ModelNumber = conv.ModelNumber
		req.Symptoms = append([]string(nil), conv.Symptoms...)
	}

	var r results
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.parts, r.partsErr = o.searcher.Parts(gctx, req, o.limits.Parts)
		return nil
	})
	g.Go(func() error {
		r.repairs, r.repairsErr = o.searcher.Repairs(gctx, req, o.limits.Repairs)
		return nil
	})
	g.Go(func() error {
		r.articles, r.articlesErr = o.searcher.Articles(gctx, req, o.limits.Articles)
		return nil
	})
	_ = g.Wait()

	for name, err := range map[string]error{"parts": r.partsErr, "repairs": r.repairsErr, "articles": r.articlesErr} {
		if err != nil && !errors.Is(err, context.Canceled) {
			o.logger.Warn("search failed", zap.String("search", name), zap.String("kind", string(failure.KindOf(err))), zap.Error(err))
		}
	}
	return r
}

// answer streams generated text, or the degraded text when generation is
// unavailable. With every search failed, generation is the last collaborator
// left and its failure fails the request.
func (o *Orchestrator) answer(ctx context.Context, query string, conv *convctx.Context, found results, sink stream.Sink) error {
	var genErr error
	if o.provider == nil {
		genErr = failure.New(failure.CollaboratorUnavailable, "orchestrator.generate", errors.New("no text generator configured"))
	} else {
		emitted := false
		_, genErr = o.provider.Stream(ctx, llm.CompletionRequest{
			Messages: []llm.Message{
				{Role: llm.RoleSystem, Content: buildPrompt(conv, found)},
				{Role: llm.RoleUser, Content: query},
			},
			MaxTokens:   o.maxTokens,
			Temperature: o.temperature,
		}, func(chunk string) error {
			emitted = true
			return sink.Emit(ctx, stream.AnswerText(chunk))
		})
		if genErr == nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if errors.Is(genErr, stream.ErrClosed) || errors.Is(genErr, stream.ErrTerminated) {
			return genErr
		}
		if emitted {
			o.logger.Warn("generation stopped mid-answer", zap.Error(genErr))
			return nil
		}
	}
	if found.allFailed() {
		o.logger.Warn("searches and generation all failed", zap.Error(genErr))
		return found.firstErr()
	}
	o.logger.Warn("generation unavailable, using degraded answer", zap.Error(genErr))

	var symptoms []string
	var appliance catalog.ApplianceType
	if conv != nil {
		symptoms, appliance = conv.Symptoms, conv.ApplianceType
	}
	text := triage.Fallback(symptoms, appliance, found.parts, found.repairs)
	if text == "" {
		if found.empty() {
			if e := found.firstErr(); e != nil {
				return e
			}
			if o.provider == nil {
				return failure.New(failure.NoResults, "orchestrator.resolve", nil)
			}
			return failure.New(failure.KindOf(genErr), "orchestrator.generate", genErr)
		}
		text = genericDegraded
	}
	return sink.Emit(ctx, stream.AnswerText(text))
}

func thinkingMessage(conv *convctx.Context) string {
	if conv == nil || conv.ApplianceType == "" {
		return "Searching parts, repair guides and articles..."
	}
	if conv.ModelNumber != "" {
		return fmt.Sprintf("Searching parts and repair guides for your %s %s...", conv.ApplianceType, conv.ModelNumber)
	}
	return fmt.Sprintf("Searching parts and repair guides for your %s...", conv.ApplianceType)
}
