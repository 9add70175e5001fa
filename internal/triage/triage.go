// Package triage holds the rule-based judgements made before any research:
// scope, intent and canned diagnostics for common symptoms.
package triage

import (
	"regexp"
	"strings"

	"github.com/ziadkadry99/partsdesk/internal/catalog"
	"github.com/ziadkadry99/partsdesk/internal/convctx"
)

// Refusal is the reply to questions outside refrigerator and dishwasher parts.
const Refusal = "Sorry, I can only help with refrigerator and dishwasher parts and repairs. " +
	"Ask me about a part number, a model number or a problem with your appliance."

// Intent is what the customer is trying to do.
type Intent string

const (
	IntentTroubleshooting Intent = "troubleshooting"
	IntentInstallation    Intent = "installation"
	IntentCompatibility   Intent = "compatibility"
	IntentPurchase        Intent = "purchase"
	IntentMeta            Intent = "meta"
	IntentGeneral         Intent = "general"
)

// intentRules are checked in order; the first match wins.
var intentRules = []struct {
	intent Intent
	re     *regexp.Regexp
}{
	{IntentCompatibility, regexp.MustCompile(`\b(compatible|compatibility|fit|fits|work with|works with|interchangeable)\b`)},
	{IntentInstallation, regexp.MustCompile(`\b(install|installing|installation|replace|replacing|remove|removing|put in)\b`)},
	{IntentPurchase, regexp.MustCompile(`\b(buy|order|price|cost|in stock|ship|shipping)\b`)},
	{IntentMeta, regexp.MustCompile(`\b(what can you (do|help)|what do you support|categories|who are you)\b`)},
}

// inScopeVocabulary marks a query as being about appliance repair even when
// no appliance, brand or identifier was extracted.
var inScopeVocabulary = regexp.MustCompile(`\b(appliance|parts?|repairs?|fix|broken|install|drain|leak\w*|clean\w*|seal|gasket|compressor|defrost|filter|spray arm|rack|shelf|bin)\b`)

// offTopic lists subjects that are clearly not appliance parts, including
// appliances this service does not cover.
var offTopic = regexp.MustCompile(`\b(weather|forecast|recipes?|cook\w*|bake|sports?|football|soccer|basketball|stocks?|crypto|bitcoin|movies?|music|songs?|poems?|jokes?|politics|election|news|homework|travel|flights?|hotel|washing machine|washer|dryer|oven|stove|microwave|air conditioner|furnace|vacuum|car|truck)\b`)

// modelParts matches requests to list the parts that fit a model.
var modelParts = regexp.MustCompile(`\b(parts for|what parts|which parts|need for)\b`)

// AsksForModelParts reports whether query asks which parts fit a model.
func AsksForModelParts(query string) bool {
	return modelParts.MatchString(strings.ToLower(query))
}

// Classification summarises a single query.
type Classification struct {
	Intent  Intent
	InScope bool
}

// Classify looks at the raw query and what was extracted from it.
func Classify(query string, ex convctx.Extraction) Classification {
	text := strings.ToLower(query)
	return Classification{Intent: intentOf(text, ex), InScope: inScope(text, ex)}
}

func intentOf(text string, ex convctx.Extraction) Intent {
	for _, r := range intentRules {
		if r.re.MatchString(text) {
			return r.intent
		}
	}
	if len(ex.PartTokens) > 0 && len(ex.ModelTokens) > 0 {
		return IntentCompatibility
	}
	if len(ex.Symptoms) > 0 {
		return IntentTroubleshooting
	}
	return IntentGeneral
}

// inScope refuses only queries that carry no appliance signal at all and
// name an unrelated subject. Small talk with neither stays in scope.
func inScope(text string, ex convctx.Extraction) bool {
	if len(ex.PartTokens)+len(ex.ModelTokens)+len(ex.Appliances)+len(ex.Brands)+len(ex.Symptoms) > 0 {
		return true
	}
	if inScopeVocabulary.MatchString(text) {
		return true
	}
	return !offTopic.MatchString(text)
}

// Diagnostic is a canned first answer for a common symptom.
type Diagnostic struct {
	Symptom    string
	Appliances []catalog.ApplianceType
	Response   string
	Confidence float64
}

var both = []catalog.ApplianceType{catalog.Refrigerator, catalog.Dishwasher}

var diagnostics = []Diagnostic{
	{Symptom: convctx.SymptomNotCooling, Appliances: []catalog.ApplianceType{catalog.Refrigerator}, Confidence: 0.95,
		Response: "A refrigerator that is not cooling usually has blocked airflow, dirty condenser coils or a failing fan or sensor. " +
			"Can you hear the compressor running? Are the vents inside blocked by food? When were the coils last cleaned? " +
			"With your model number I can point you to the exact parts."},
	{Symptom: convctx.SymptomIceMaker, Appliances: []catalog.ApplianceType{catalog.Refrigerator}, Confidence: 0.95,
		Response: "Most ice maker problems come from the water supply or the ice maker assembly itself. " +
			"Is water reaching the refrigerator, is the ice maker getting power, and when did it last make ice? " +
			"Share your model number and I will find the matching assembly or inlet valve."},
	{Symptom: convctx.SymptomNotDraining, Appliances: []catalog.ApplianceType{catalog.Dishwasher}, Confidence: 0.95,
		Response: "A dishwasher that is not draining is most often a clogged filter, a blocked drain hose or a failed drain pump. " +
			"Check the filter at the bottom of the tub first, and make sure the garbage disposal is clear if one is connected. " +
			"Tell me your brand and model number and I can find the right drain pump."},
	{Symptom: convctx.SymptomNotCleaning, Appliances: []catalog.ApplianceType{catalog.Dishwasher}, Confidence: 0.9,
		Response: "Poor cleaning usually means clogged spray arms or a dirty filter. " +
			"Do the spray arms spin freely, is the water reaching about 120F, and are you using rinse aid? " +
			"Your model number will let me match spray arms or a wash pump."},
	{Symptom: convctx.SymptomNotStarting, Appliances: both, Confidence: 0.9,
		Response: "An appliance that will not start is usually a door latch, a control board or a power problem. " +
			"Do any lights come on, is there an error code, and did it stop suddenly? " +
			"With the model number I can check which latch or board fits."},
	{Symptom: convctx.SymptomLeaking, Appliances: both, Confidence: 0.85,
		Response: "Most leaks come from a worn door seal or a loose water connection. " +
			"Where exactly is the water coming from, and does it leak all the time or only while running? " +
			"Send your model number and I will look up the gasket or valve for it."},
}

// Capabilities answers questions about what the assistant covers.
const Capabilities = "I help with refrigerator and dishwasher parts and repairs. I can find the right part for your appliance, " +
	"troubleshoot common problems, check whether a part fits your model and explain how to install it. " +
	"Tell me your appliance brand, model number and what is going wrong."

// Diagnostics returns the canned diagnostics.
func Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(diagnostics))
	copy(out, diagnostics)
	return out
}

// DiagnosticFor returns the diagnostic for symptom on appliance. An empty
// appliance matches any.
func DiagnosticFor(symptom string, appliance catalog.ApplianceType) (Diagnostic, bool) {
	for _, d := range diagnostics {
		if d.Symptom != symptom {
			continue
		}
		if appliance == "" {
			return d, true
		}
		for _, a := range d.Appliances {
			if a == appliance {
				return d, true
			}
		}
	}
	return Diagnostic{}, false
}
