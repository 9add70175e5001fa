// Package router runs one chat request through the resolution cascade:
// context update, response cache, fast structured lookup and finally the
// research pipeline. Every tier writes to the same fragment sink.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ziadkadry99/partsdesk/internal/audit"
	"github.com/ziadkadry99/partsdesk/internal/catalog"
	"github.com/ziadkadry99/partsdesk/internal/compat"
	"github.com/ziadkadry99/partsdesk/internal/convctx"
	"github.com/ziadkadry99/partsdesk/internal/failure"
	"github.com/ziadkadry99/partsdesk/internal/logging"
	"github.com/ziadkadry99/partsdesk/internal/metrics"
	"github.com/ziadkadry99/partsdesk/internal/respcache"
	"github.com/ziadkadry99/partsdesk/internal/stream"
	"github.com/ziadkadry99/partsdesk/internal/triage"
)

// DefaultRequestTimeout bounds one request end to end.
const DefaultRequestTimeout = 30 * time.Second

const (
	cacheStoreTimeout = 2 * time.Second
	auditTimeout      = 2 * time.Second
)

// Request is one inbound question.
type Request struct {
	ConversationID string
	Query          string
}

// Classification describes how a request was handled.
type Classification struct {
	ConversationID string        `json:"conversation_id"`
	Tier           Tier          `json:"tier"`
	Confidence     float64       `json:"confidence"`
	Intent         triage.Intent `json:"intent"`
	InScope        bool          `json:"in_scope"`
	PartTokens     []string      `json:"part_tokens,omitempty"`
	ModelTokens    []string      `json:"model_tokens,omitempty"`
	Ambiguous      bool          `json:"ambiguous,omitempty"`
}

// Checker decides part and model compatibility. compat.Engine implements it.
type Checker interface {
	Check(ctx context.Context, partID, modelID string) compat.Fact
}

// PartFetcher loads part records. catalog.Store implements it.
type PartFetcher interface {
	GetPart(ctx context.Context, partNumber string) (*catalog.Part, error)
	PartsForModel(ctx context.Context, modelNumber string, limit int) ([]catalog.Part, error)
}

// Pipeline is the research tier. orchestrator.Orchestrator implements it.
type Pipeline interface {
	Resolve(ctx context.Context, query string, conv *convctx.Context, sink stream.Sink) error
}

// AuditLog records resolved turns. audit.Store implements it.
type AuditLog interface {
	Log(ctx context.Context, entry audit.Entry) error
}

// Deps are the collaborators a Router needs. Cache may be nil to disable
// caching.
type Deps struct {
	Contexts *convctx.Store
	Cache    respcache.Cache
	Compat   Checker
	Parts    PartFetcher
	Pipeline Pipeline
}

// Router is safe for concurrent use. Requests share state only through the
// context store and the cache.
type Router struct {
	deps    Deps
	timeout time.Duration
	logger  *zap.Logger
	metrics metrics.Observer
	audit   AuditLog
	now     func() time.Time
}

// Option configures a Router.
type Option func(*Router)

// WithRequestTimeout sets the per-request deadline. Zero disables it.
func WithRequestTimeout(d time.Duration) Option {
	return func(r *Router) { r.timeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Router) { r.logger = logging.OrNop(l) }
}

// WithMetrics sets the lifecycle observer.
func WithMetrics(m metrics.Observer) Option {
	return func(r *Router) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithAudit records every turn's outcome in l.
func WithAudit(l AuditLog) Option {
	return func(r *Router) { r.audit = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// New validates deps and builds a router.
func New(deps Deps, opts ...Option) (*Router, error) {
	switch {
	case deps.Contexts == nil:
		return nil, eris.New("router: context store is required")
	case deps.Compat == nil:
		return nil, eris.New("router: compatibility checker is required")
	case deps.Parts == nil:
		return nil, eris.New("router: part fetcher is required")
	case deps.Pipeline == nil:
		return nil, eris.New("router: pipeline is required")
	}
	r := &Router{
		deps:    deps,
		timeout: DefaultRequestTimeout,
		logger:  zap.NewNop(),
		metrics: metrics.Nop{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Handle runs req to completion, writing fragments to sink. The sequence
// ends in exactly one done or failed fragment unless ctx is cancelled or the
// sink reports that its consumer went away, in which case nothing terminal
// is written and the context error or stream.ErrClosed is returned.
func (r *Router) Handle(ctx context.Context, req Request, sink stream.Sink) (Classification, error) {
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}
	logger := r.logger.With(zap.String("conversation_id", req.ConversationID))

	r.metrics.StreamStarted()
	defer r.metrics.StreamEnded()

	reqCtx, cancel := ctx, context.CancelFunc(func() {})
	if r.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, r.timeout)
	}
	defer cancel()

	t := &task{
		router: r,
		req:    req,
		start:  r.now(),
		logger: logger,
		state:  StateStart,
		class:  Classification{ConversationID: req.ConversationID, Tier: TierToolPipeline},
	}
	counted := stream.SinkFunc(func(ctx context.Context, f stream.Fragment) error {
		if err := sink.Emit(ctx, f); err != nil {
			return err
		}
		r.metrics.Fragment(string(f.Kind))
		return nil
	})
	t.rec = stream.NewRecorder(counted)

	err := t.run(reqCtx)
	return t.class, t.finish(ctx, reqCtx, err)
}

// task is the state of one request.
type task struct {
	router *Router
	req    Request
	start  time.Time
	logger *zap.Logger
	rec    *stream.Recorder

	state State
	class Classification
	conv  *convctx.Context
	fp    string
}

func (t *task) transition(s State) {
	t.logger.Debug("request state", zap.String("from", string(t.state)), zap.String("to", string(s)))
	t.state = s
}

func (t *task) elapsed() time.Duration { return t.router.now().Sub(t.start) }

func (t *task) emit(ctx context.Context, frags ...stream.Fragment) error {
	for _, f := range frags {
		if err := t.rec.Emit(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

// run walks the states until one tier terminates the request or an error
// stops it.
func (t *task) run(ctx context.Context) error {
	r := t.router

	t.conv = r.deps.Contexts.Update(ctx, t.req.ConversationID, t.req.Query)
	t.transition(StateContextUpdated)

	ex := convctx.Extract(t.req.Query)
	tri := triage.Classify(t.req.Query, ex)
	t.class.Intent, t.class.InScope = tri.Intent, tri.InScope
	t.class.PartTokens, t.class.ModelTokens = ex.PartTokens, ex.ModelTokens

	t.fp = respcache.Fingerprint(t.req.Query, t.conv.Slots())
	if r.deps.Cache != nil {
		frags, hit := r.deps.Cache.Lookup(ctx, t.fp)
		r.metrics.CacheLookup(hit)
		if hit {
			t.transition(StateCacheChecked)
			t.class.Tier, t.class.Confidence = TierCache, 1
			return t.emit(ctx, frags...)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t.transition(StateCacheChecked)

	handled, err := t.fastPath(ctx, ex, tri)
	t.transition(StateFastPathAttempted)
	if err != nil || handled {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	t.transition(StateToolPipeline)
	t.class.Tier, t.class.Confidence = TierToolPipeline, t.conv.Completeness
	return r.deps.Pipeline.Resolve(ctx, t.req.Query, t.conv.Clone(), t.rec)
}

// fastPath answers without research when the query allows it. It reports
// false when the request should fall through to the pipeline.
func (t *task) fastPath(ctx context.Context, ex convctx.Extraction, tri triage.Classification) (bool, error) {
	if !tri.InScope {
		t.class.Tier, t.class.Confidence = TierFastPath, 1
		return true, t.emit(ctx, stream.AnswerText(triage.Refusal), stream.Done(t.elapsed()))
	}

	parts, models := ex.PartTokens, ex.ModelTokens
	if tri.Intent == triage.IntentMeta && len(parts)+len(models) == 0 {
		t.class.Tier, t.class.Confidence = TierFastPath, 1
		return true, t.emit(ctx, stream.AnswerText(triage.Capabilities), stream.Done(t.elapsed()))
	}
	if len(parts) > 1 || len(models) > 1 {
		t.class.Ambiguous = true
		t.logger.Debug("fast path skipped",
			zap.Error(failure.New(failure.ClassificationAmbiguous, "router.fast_path", nil)),
			zap.Strings("parts", parts), zap.Strings("models", models))
		return false, nil
	}
	// A symptom needs diagnosis, not a catalog record.
	if tri.Intent == triage.IntentTroubleshooting {
		return false, nil
	}
	if len(parts) == 0 {
		if len(models) == 1 && triage.AsksForModelParts(t.req.Query) {
			return t.modelParts(ctx, models[0])
		}
		return false, nil
	}

	model := ""
	if len(models) == 1 {
		model = models[0]
	} else if tri.Intent == triage.IntentCompatibility && t.conv.ModelNumber != "" {
		// "Does PS11701542 fit my dishwasher?" after the model was given earlier.
		model = t.conv.ModelNumber
	}

	if model != "" {
		fact := t.router.deps.Compat.Check(ctx, parts[0], model)
		if !fact.Definitive() {
			t.logger.Debug("compatibility not definitive", zap.String("status", string(fact.Status)), zap.String("source", fact.Source))
			return false, nil
		}
		t.class.Tier, t.class.Confidence = TierFastPath, fact.Confidence
		return true, t.emit(ctx, stream.AnswerText(fact.Summary()), stream.Done(t.elapsed()))
	}
	// Fit against an unknown model is the pipeline's question.
	if tri.Intent == triage.IntentCompatibility {
		return false, nil
	}

	part, err := t.router.deps.Parts.GetPart(ctx, parts[0])
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return false, nil
	case err != nil:
		return false, t.storageErr(ctx, "router.get_part", err)
	}
	text := describePart(part)
	if tri.Intent == triage.IntentInstallation {
		text = describeInstallation(part)
	}
	t.class.Tier, t.class.Confidence = TierFastPath, 1
	return true, t.emit(ctx,
		stream.AnswerText(text),
		stream.Parts([]catalog.Part{*part}),
		stream.Done(t.elapsed()),
	)
}

// modelPartsLimit caps the parts listed for a model on the fast path.
const modelPartsLimit = 5

// modelParts lists the parts known to fit model. A model with no recorded
// parts falls through.
func (t *task) modelParts(ctx context.Context, model string) (bool, error) {
	parts, err := t.router.deps.Parts.PartsForModel(ctx, model, modelPartsLimit)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return false, nil
	case err != nil:
		return false, t.storageErr(ctx, "router.parts_for_model", err)
	case len(parts) == 0:
		return false, nil
	}
	t.class.Tier, t.class.Confidence = TierFastPath, 1
	return true, t.emit(ctx,
		stream.AnswerText(describeModelParts(model, parts)),
		stream.Parts(parts),
		stream.Done(t.elapsed()),
	)
}

// storageErr reports a catalog failure, preferring the context's own error
// when the request was cancelled or timed out.
func (t *task) storageErr(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return failure.New(failure.CollaboratorUnavailable, op, err)
}

// finish turns the outcome of run into the terminal fragment, records
// metrics and stores successful sequences.
func (t *task) finish(parent, reqCtx context.Context, err error) error {
	r := t.router
	t.transition(StateTerminated)
	tier := string(t.class.Tier)

	if err == nil {
		if !t.rec.Succeeded() {
			err = failure.New(failure.MalformedFragment, "router.finish", eris.New("tier ended without a terminal fragment"))
		} else {
			r.metrics.Resolved(tier, string(audit.OutcomeDone), t.elapsed())
			t.store(parent)
			t.record(parent, audit.OutcomeDone, nil)
			return nil
		}
	}

	// The caller went away: emit nothing further.
	if parent.Err() != nil || errors.Is(err, stream.ErrClosed) {
		r.metrics.Resolved(tier, string(audit.OutcomeCancelled), t.elapsed())
		t.record(parent, audit.OutcomeCancelled, nil)
		t.logger.Debug("request abandoned", zap.Error(err))
		if parent.Err() != nil {
			return parent.Err()
		}
		return err
	}

	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		err = failure.New(failure.RequestTimeout, "router.handle", err)
	}
	r.metrics.Resolved(tier, string(audit.OutcomeFailed), t.elapsed())
	t.record(parent, audit.OutcomeFailed, err)
	t.logger.Warn("request failed",
		zap.String("state", string(t.state)),
		zap.String("kind", string(failure.KindOf(err))),
		zap.Error(err))

	if emitErr := t.rec.Emit(parent, stream.Failed(failure.Reason(err))); emitErr != nil && !errors.Is(emitErr, stream.ErrTerminated) {
		t.logger.Debug("failed fragment not delivered", zap.Error(emitErr))
	}
	return err
}

func (t *task) store(parent context.Context) {
	cache := t.router.deps.Cache
	if cache == nil || t.class.Tier == TierCache {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), cacheStoreTimeout)
	defer cancel()
	if err := cache.Store(ctx, t.fp, t.rec.Fragments()); err != nil {
		t.logger.Warn("cache store failed", zap.Error(err))
	}
}

func (t *task) record(parent context.Context, outcome audit.Outcome, err error) {
	log := t.router.audit
	if log == nil {
		return
	}
	entry := audit.Entry{
		Timestamp:      t.start,
		ConversationID: t.req.ConversationID,
		Query:          t.req.Query,
		Tier:           string(t.class.Tier),
		Intent:         string(t.class.Intent),
		Confidence:     t.class.Confidence,
		Outcome:        outcome,
		ElapsedMS:      t.elapsed().Milliseconds(),
	}
	if err != nil {
		entry.FailureKind = string(failure.KindOf(err))
		entry.Reason = failure.Reason(err)
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), auditTimeout)
	defer cancel()
	if logErr := log.Log(ctx, entry); logErr != nil {
		t.logger.Warn("audit log failed", zap.Error(logErr))
	}
}

func describePart(p *catalog.Part) string {
	stock := "in stock"
	if !p.InStock {
		stock = "currently out of stock"
	}
	text := fmt.Sprintf("%s is the %s %s for %s appliances, priced at $%.2f and %s.",
		p.PartNumber, p.Brand, p.Name, p.ApplianceType, p.Price, stock)
	if p.InstallDifficulty != "" {
		text += fmt.Sprintf(" Installation is %s", strings.ToLower(p.InstallDifficulty))
		if p.InstallTime != "" {
			text += fmt.Sprintf(" and takes about %s", p.InstallTime)
		}
		text += "."
	}
	return text
}

func describeInstallation(p *catalog.Part) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The %s (%s) is a genuine %s replacement part.", p.Name, p.PartNumber, p.Brand)
	if p.InstallDifficulty != "" {
		fmt.Fprintf(&b, " Difficulty: %s.", p.InstallDifficulty)
	}
	if p.InstallTime != "" {
		fmt.Fprintf(&b, " Estimated time: %s.", p.InstallTime)
	}
	b.WriteString(" Disconnect power and water before you start, remove the old part, fit the new one and test a full cycle.")
	if p.URL != "" {
		fmt.Fprintf(&b, " Step-by-step instructions: %s", p.URL)
	}
	return b.String()
}

func describeModelParts(model string, parts []catalog.Part) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d parts for model %s:", len(parts), model)
	for i, p := range parts {
		fmt.Fprintf(&b, "\n%d. %s (%s) - $%.2f", i+1, p.Name, p.PartNumber, p.Price)
	}
	b.WriteString("\nTell me the symptom and I can narrow it down.")
	return b.String()
}

