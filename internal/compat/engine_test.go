package compat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/partsdesk/internal/catalog"
	"github.com/ziadkadry99/partsdesk/internal/db"
)

// fakeLookup serves canned records.
type fakeLookup struct {
	parts  map[string]catalog.Part
	models map[string]catalog.Model
	rels   map[string]catalog.BrandRelationship
	err    error
	panics bool
}

func (f *fakeLookup) GetPart(_ context.Context, id string) (*catalog.Part, error) {
	if f.panics {
		panic("boom")
	}
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.parts[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &p, nil
}

func (f *fakeLookup) GetModel(_ context.Context, id string) (*catalog.Model, error) {
	m, ok := f.models[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &m, nil
}

func (f *fakeLookup) BrandRelationship(_ context.Context, parent, sub string, at catalog.ApplianceType) (*catalog.BrandRelationship, error) {
	r, ok := f.rels[parent+"/"+sub+"/"+string(at)]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &r, nil
}

func newFake() *fakeLookup {
	return &fakeLookup{
		parts: map[string]catalog.Part{
			"PFRIDGE": {PartNumber: "PFRIDGE", Brand: "Whirlpool", ApplianceType: catalog.Refrigerator},
			"PDISH":   {PartNumber: "PDISH", Brand: "Whirlpool", ApplianceType: catalog.Dishwasher},
			"PUNI":    {PartNumber: "PUNI", Brand: "Samsung", ApplianceType: catalog.Universal},
			"PGE":     {PartNumber: "PGE", Brand: "GE", ApplianceType: catalog.Dishwasher},
			"PBLANK":  {PartNumber: "PBLANK", Brand: "Whirlpool"},
		},
		models: map[string]catalog.Model{
			"MDISH":    {ModelNumber: "MDISH", Brand: "Whirlpool", ApplianceType: catalog.Dishwasher},
			"MADMIRAL": {ModelNumber: "MADMIRAL", Brand: "Admiral", ApplianceType: catalog.Dishwasher},
			"MFRIDGE":  {ModelNumber: "MFRIDGE", Brand: "whirlpool", ApplianceType: catalog.Refrigerator},
			"MLG":      {ModelNumber: "MLG", Brand: "LG", ApplianceType: catalog.Dishwasher},
			"MBOSCH":   {ModelNumber: "MBOSCH", Brand: "Bosch", ApplianceType: catalog.Dishwasher},
		},
		rels: map[string]catalog.BrandRelationship{
			"Whirlpool/Admiral/dishwasher": {Parent: "Whirlpool", Subsidiary: "Admiral", ApplianceType: catalog.Dishwasher, Interchangeable: true, Confidence: 0.95},
			"Whirlpool/Admiral/refrigerator": {Parent: "Whirlpool", Subsidiary: "Admiral", ApplianceType: catalog.Refrigerator, Interchangeable: true, Confidence: 0.95},
			"GE/Bosch/dishwasher":          {Parent: "GE", Subsidiary: "Bosch", ApplianceType: catalog.Dishwasher, Interchangeable: false, Confidence: 0.9},
			// Even a rule claiming cross-appliance interchange must not matter.
			"Whirlpool/Whirlpool/dishwasher": {Interchangeable: true, Confidence: 1},
		},
	}
}

func TestCheckRules(t *testing.T) {
	tests := []struct {
		name       string
		part       string
		model      string
		status     Status
		confidence float64
		source     string
	}{
		{"cross appliance always incompatible", "PFRIDGE", "MDISH", Incompatible, 1.0, SourceApplianceType},
		{"same type same brand", "PDISH", "MDISH", Exact, 1.0, SourceBrandMatch},
		{"brand match ignores case", "PFRIDGE", "MFRIDGE", Exact, 1.0, SourceBrandMatch},
		{"interchangeable subsidiary", "PDISH", "MADMIRAL", Compatible, 0.95, SourceBrandRelationship},
		{"explicit non interchangeable", "PGE", "MBOSCH", Incompatible, 0.9, SourceBrandRelationship},
		{"no rule uses default", "PDISH", "MLG", Incompatible, DefaultCrossBrandConfidence, SourceDefaultPolicy},
		{"universal skips appliance check", "PUNI", "MFRIDGE", Incompatible, DefaultCrossBrandConfidence, SourceDefaultPolicy},
		{"unknown part", "NOPE", "MDISH", Unknown, 0, SourceCatalog},
		{"unknown model", "PDISH", "NOPE", Unknown, 0, SourceCatalog},
		{"part without appliance type", "PBLANK", "MDISH", Unknown, 0, SourceCatalog},
	}

	engine := NewEngine(newFake())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fact := engine.Check(context.Background(), tt.part, tt.model)
			assert.Equal(t, tt.status, fact.Status)
			assert.InDelta(t, tt.confidence, fact.Confidence, 1e-9)
			assert.Equal(t, tt.source, fact.Source)
		})
	}
}

func TestCrossApplianceIgnoresBrandData(t *testing.T) {
	fake := newFake()
	// Admiral relationship exists for both appliances, yet types differ.
	fake.parts["PADMFRIDGE"] = catalog.Part{PartNumber: "PADMFRIDGE", Brand: "Whirlpool", ApplianceType: catalog.Refrigerator}

	fact := NewEngine(fake).Check(context.Background(), "PADMFRIDGE", "MADMIRAL")
	assert.Equal(t, Incompatible, fact.Status)
	assert.Equal(t, 1.0, fact.Confidence)
}

func TestDefaultConfidenceIsConfigurable(t *testing.T) {
	fact := NewEngine(newFake(), WithDefaultConfidence(0.4)).Check(context.Background(), "PDISH", "MLG")
	assert.Equal(t, Incompatible, fact.Status)
	assert.InDelta(t, 0.4, fact.Confidence, 1e-9)

	// Out-of-range values are ignored.
	fact = NewEngine(newFake(), WithDefaultConfidence(3)).Check(context.Background(), "PDISH", "MLG")
	assert.InDelta(t, DefaultCrossBrandConfidence, fact.Confidence, 1e-9)
}

func TestLookupErrorDegradesToUnknown(t *testing.T) {
	fake := newFake()
	fake.err = errors.New("database is locked")

	fact := NewEngine(fake).Check(context.Background(), "PDISH", "MDISH")
	assert.Equal(t, Unknown, fact.Status)
	assert.Zero(t, fact.Confidence)
}

func TestPanicDegradesToUnknown(t *testing.T) {
	fake := newFake()
	fake.panics = true

	fact := NewEngine(fake).Check(context.Background(), "PDISH", "MDISH")
	assert.Equal(t, Unknown, fact.Status)
}

func TestSeededCatalogScenario(t *testing.T) {
	database, err := db.OpenMemory()
	require.NoError(t, err)
	defer database.Close()
	store := catalog.NewSQLiteStore(database)
	require.NoError(t, catalog.Seed(context.Background(), store))

	engine := NewEngine(store)
	ctx := context.Background()

	fact := engine.Check(ctx, "PS11739035", "WDT780SAEM1")
	assert.Equal(t, Incompatible, fact.Status)
	assert.Equal(t, 1.0, fact.Confidence)
	assert.True(t, fact.Definitive())
	assert.Contains(t, fact.Summary(), "incompatible")
	assert.Contains(t, fact.Summary(), "refrigerator")

	latch := engine.Check(ctx, "ps11701542", "wdt780saem1")
	assert.Equal(t, Exact, latch.Status)

	admiral := engine.Check(ctx, "PS11701542", "ADB1400AWW0")
	assert.Equal(t, Compatible, admiral.Status)
	assert.InDelta(t, 0.95, admiral.Confidence, 1e-9)
	assert.False(t, admiral.Definitive())
}
