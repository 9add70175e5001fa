// Package compat decides whether a part fits an appliance model.
package compat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ziadkadry99/partsdesk/internal/catalog"
	"github.com/ziadkadry99/partsdesk/internal/logging"
)

// Status is the outcome of a compatibility check.
type Status string

const (
	Exact        Status = "exact"
	Compatible   Status = "compatible"
	Incompatible Status = "incompatible"
	Unknown      Status = "unknown"
)

// Source tags say which rule produced a Fact.
const (
	SourceCatalog           = "catalog"
	SourceApplianceType     = "appliance_type"
	SourceBrandMatch        = "brand_match"
	SourceBrandRelationship = "brand_relationship"
	SourceDefaultPolicy     = "default_policy"
)

// DefaultCrossBrandConfidence is used for differing brands with no rule.
const DefaultCrossBrandConfidence = 0.6

// Fact is a derived compatibility verdict.
type Fact struct {
	PartID     string  `json:"part_id"`
	ModelID    string  `json:"model_id"`
	Status     Status  `json:"status"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`

	Part  *catalog.Part  `json:"-"`
	Model *catalog.Model `json:"-"`
}

// Definitive reports whether the fact settles the question without further
// research.
func (f Fact) Definitive() bool {
	return f.Status == Exact || f.Status == Incompatible
}

// Lookup is the catalog subset the engine reads.
type Lookup interface {
	GetPart(ctx context.Context, partNumber string) (*catalog.Part, error)
	GetModel(ctx context.Context, modelNumber string) (*catalog.Model, error)
	BrandRelationship(ctx context.Context, parent, subsidiary string, appliance catalog.ApplianceType) (*catalog.BrandRelationship, error)
}

// Engine applies the compatibility rules.
type Engine struct {
	lookup            Lookup
	defaultConfidence float64
	logger            *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithDefaultConfidence sets the confidence for differing brands with no
// relationship rule.
func WithDefaultConfidence(c float64) Option {
	return func(e *Engine) {
		if c >= 0 && c <= 1 {
			e.defaultConfidence = c
		}
	}
}

// WithLogger sets the engine's logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = logging.OrNop(l) }
}

// NewEngine creates an engine over lookup.
func NewEngine(lookup Lookup, opts ...Option) *Engine {
	e := &Engine{
		lookup:            lookup,
		defaultConfidence: DefaultCrossBrandConfidence,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Check decides whether partID fits modelID. It never returns an error or
// panics; any failed lookup yields Unknown with confidence 0.
func (e *Engine) Check(ctx context.Context, partID, modelID string) (fact Fact) {
	fact = Fact{
		PartID:  catalog.NormalizeID(partID),
		ModelID: catalog.NormalizeID(modelID),
		Status:  Unknown,
		Source:  SourceCatalog,
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("compatibility check panicked", zap.Any("panic", r))
			fact.Status, fact.Confidence, fact.Source = Unknown, 0, SourceCatalog
		}
	}()

	part, err := e.lookup.GetPart(ctx, fact.PartID)
	if err != nil {
		e.logLookup("part", fact.PartID, err)
		return fact
	}
	model, err := e.lookup.GetModel(ctx, fact.ModelID)
	if err != nil {
		e.logLookup("model", fact.ModelID, err)
		return fact
	}
	fact.Part, fact.Model = part, model

	partType, modelType := part.ApplianceType, model.ApplianceType
	if partType == "" || modelType == "" {
		return fact
	}

	if partType != modelType && partType != catalog.Universal && modelType != catalog.Universal {
		fact.Status, fact.Confidence, fact.Source = Incompatible, 1.0, SourceApplianceType
		return fact
	}

	if strings.EqualFold(part.Brand, model.Brand) {
		fact.Status, fact.Confidence, fact.Source = Exact, 1.0, SourceBrandMatch
		return fact
	}

	scope := modelType
	if scope == catalog.Universal {
		scope = partType
	}
	rel, err := e.lookup.BrandRelationship(ctx, part.Brand, model.Brand, scope)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		fact.Status, fact.Confidence, fact.Source = Incompatible, e.defaultConfidence, SourceDefaultPolicy
	case err != nil:
		e.logLookup("brand relationship", part.Brand+"/"+model.Brand, err)
	case rel.Interchangeable:
		fact.Status, fact.Confidence, fact.Source = Compatible, rel.Confidence, SourceBrandRelationship
	default:
		fact.Status, fact.Confidence, fact.Source = Incompatible, rel.Confidence, SourceBrandRelationship
	}
	return fact
}

func (e *Engine) logLookup(what, id string, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		e.logger.Debug("compatibility lookup: not found", zap.String("kind", what), zap.String("id", id))
		return
	}
	e.logger.Warn("compatibility lookup failed", zap.String("kind", what), zap.String("id", id), zap.Error(err))
}

// Summary renders a fact as a short customer-facing answer.
func (f Fact) Summary() string {
	partName := f.PartID
	if f.Part != nil && f.Part.Name != "" {
		partName = fmt.Sprintf("%s (%s)", f.PartID, f.Part.Name)
	}
	modelDesc := f.ModelID
	if f.Model != nil {
		modelDesc = fmt.Sprintf("%s %s %s", f.Model.Brand, f.Model.ApplianceType, f.ModelID)
	}

	switch f.Status {
	case Exact:
		return fmt.Sprintf("Yes. Part %s is compatible with your %s. It is an exact brand and appliance match.", partName, modelDesc)
	case Compatible:
		return fmt.Sprintf("Part %s should fit your %s through a shared brand platform (confidence %.0f%%).",
			partName, modelDesc, f.Confidence*100)
	case Incompatible:
		if f.Source == SourceApplianceType && f.Part != nil && f.Model != nil {
			return fmt.Sprintf("No. Part %s is incompatible with model %s: the part is for a %s, but %s is a %s.",
				partName, f.ModelID, f.Part.ApplianceType, f.ModelID, f.Model.ApplianceType)
		}
		if f.Source == SourceDefaultPolicy {
			return fmt.Sprintf("Part %s is likely incompatible with your %s. The brands differ and no cross-brand fit is on record.",
				partName, modelDesc)
		}
		return fmt.Sprintf("No. Part %s is incompatible with your %s.", partName, modelDesc)
	default:
		return fmt.Sprintf("I could not verify whether part %s fits model %s.", f.PartID, f.ModelID)
	}
}
