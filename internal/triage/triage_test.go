package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ziadkadry99/partsdesk/internal/catalog"
	"github.com/ziadkadry99/partsdesk/internal/convctx"
)

func classify(q string) Classification {
	return Classify(q, convctx.Extract(q))
}

func TestScope(t *testing.T) {
	tests := []struct {
		query   string
		inScope bool
	}{
		{"What's the weather like in Chicago tomorrow?", false},
		{"Give me a recipe for banana bread", false},
		{"My washing machine is broken", true}, // "broken" is repair vocabulary
		{"Can you fix my microwave", true},
		{"Which microwave should I buy?", false},
		{"Tell me a joke", false},
		{"hello", true},
		{"Is PS11739035 compatible with WDT780SAEM1?", true},
		{"My dishwasher is not draining", true},
		{"It's a Whirlpool", true},
		{"WDT780SAEM1", true},
		{"I need a new door gasket", true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.inScope, classify(tt.query).InScope)
		})
	}
}

func TestIntent(t *testing.T) {
	tests := map[string]Intent{
		"Is PS11739035 compatible with WDT780SAEM1?": IntentCompatibility,
		"PS11701542 WDT780SAEM1":                     IntentCompatibility,
		"How do I install PS11701542?":               IntentInstallation,
		"How much does the drain pump cost?":         IntentPurchase,
		"What can you help with?":                    IntentMeta,
		"My fridge is not cooling":                   IntentTroubleshooting,
		"hello there":                                IntentGeneral,
	}
	for q, want := range tests {
		assert.Equal(t, want, classify(q).Intent, q)
	}
}

func TestAsksForModelParts(t *testing.T) {
	assert.True(t, AsksForModelParts("What parts do I need for WDT780SAEM1?"))
	assert.True(t, AsksForModelParts("Which parts fit my WRS325SDHZ"))
	assert.True(t, AsksForModelParts("show me parts for WDT780SAEM1"))
	assert.False(t, AsksForModelParts("It's a Whirlpool WDT780SAEM1"))
	assert.False(t, AsksForModelParts("Is PS11739035 compatible with WDT780SAEM1?"))
}

func TestDiagnosticFor(t *testing.T) {
	d, ok := DiagnosticFor(convctx.SymptomNotDraining, catalog.Dishwasher)
	assert.True(t, ok)
	assert.Contains(t, d.Response, "drain pump")
	assert.InDelta(t, 0.95, d.Confidence, 1e-9)

	_, ok = DiagnosticFor(convctx.SymptomNotDraining, catalog.Refrigerator)
	assert.False(t, ok)

	_, ok = DiagnosticFor(convctx.SymptomLeaking, "")
	assert.True(t, ok)

	// The returned slice is a copy.
	ds := Diagnostics()
	ds[0].Response = "changed"
	assert.NotEqual(t, "changed", Diagnostics()[0].Response)
}

func TestFallback(t *testing.T) {
	assert.Empty(t, Fallback(nil, "", nil, nil))

	parts := []catalog.Part{{PartNumber: "PS11746591", Name: "Dishwasher Drain Pump"}}
	repairs := []catalog.Repair{{Title: "Dishwasher not draining", Description: "Clean the filter."}}

	text := Fallback([]string{convctx.SymptomNotDraining}, catalog.Dishwasher, parts, repairs)
	assert.Contains(t, text, "clogged filter")
	assert.Contains(t, text, `"Dishwasher not draining"`)
	assert.Contains(t, text, "Dishwasher Drain Pump (PS11746591)")

	onlyParts := Fallback(nil, "", parts, nil)
	assert.Equal(t, "Parts that commonly fix this: Dishwasher Drain Pump (PS11746591).", onlyParts)
}
