package convctx

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ziadkadry99/partsdesk/internal/catalog"
)

// Stage is where a conversation stands.
type Stage string

const (
	StageInitial            Stage = "initial"
	StageGatheringInfo      Stage = "gathering_info"
	StageDiagnosis          Stage = "diagnosis"
	StagePartSelection      Stage = "part_selection"
	StageCompatibilityCheck Stage = "compatibility_check"
)

// Slot weights for the completeness score. They sum to 1.
const (
	weightAppliance = 0.3
	weightBrand     = 0.2
	weightModel     = 0.3
	weightSymptoms  = 0.2
)

// Context is the slot-filled state of one conversation.
type Context struct {
	ID                 string                `json:"id"`
	ApplianceType      catalog.ApplianceType `json:"appliance_type,omitempty"`
	Brand              string                `json:"brand,omitempty"`
	ModelNumber        string                `json:"model_number,omitempty"`
	Series             string                `json:"series,omitempty"`
	Symptoms           []string              `json:"symptoms"`
	MentionedParts     []string              `json:"mentioned_parts"`
	ProblemDescription string                `json:"problem_description,omitempty"`
	Stage              Stage                 `json:"stage"`
	MessageCount       int                   `json:"message_count"`
	Completeness       float64               `json:"completeness"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

// newContext returns an empty context for id.
func newContext(id string, now time.Time) *Context {
	return &Context{
		ID:             id,
		Symptoms:       []string{},
		MentionedParts: []string{},
		Stage:          StageInitial,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Clone returns a deep copy.
func (c *Context) Clone() *Context {
	if c == nil {
		return nil
	}
	out := *c
	out.Symptoms = append([]string{}, c.Symptoms...)
	out.MentionedParts = append([]string{}, c.MentionedParts...)
	return &out
}

// apply merges one turn into the context. An extraction overwrites a slot
// only when it produced exactly one candidate for it.
func (c *Context) apply(query string, ex Extraction, now time.Time) {
	c.MessageCount++
	c.UpdatedAt = now

	if len(ex.Appliances) == 1 {
		c.ApplianceType = ex.Appliances[0]
	}
	if len(ex.ModelTokens) == 1 {
		c.ModelNumber = ex.ModelTokens[0]
		c.Series = SeriesFromModel(c.ModelNumber)
		if c.ApplianceType == "" {
			c.ApplianceType = ApplianceFromModel(c.ModelNumber)
		}
	}
	if len(ex.Brands) == 1 {
		c.Brand = ex.Brands[0]
	} else if c.Brand == "" && c.ModelNumber != "" {
		c.Brand = BrandFromModel(c.ModelNumber)
	}

	for _, s := range ex.Symptoms {
		c.Symptoms = appendUnique(c.Symptoms, s)
	}
	for _, p := range ex.PartTokens {
		c.MentionedParts = appendUnique(c.MentionedParts, p)
	}

	q := strings.TrimSpace(query)
	if len(q) > 20 && len(q) > len(c.ProblemDescription) {
		c.ProblemDescription = q
	}

	c.Stage = c.deriveStage()
	c.Completeness = c.completeness()
}

func (c *Context) completeness() float64 {
	var score float64
	if c.ApplianceType != "" {
		score += weightAppliance
	}
	if c.Brand != "" {
		score += weightBrand
	}
	if c.ModelNumber != "" {
		score += weightModel
	}
	if len(c.Symptoms) > 0 {
		score += weightSymptoms
	}
	if score > 1 {
		score = 1
	}
	return score
}

func (c *Context) deriveStage() Stage {
	switch {
	case len(c.MentionedParts) > 0 && c.ModelNumber != "":
		return StageCompatibilityCheck
	case len(c.MentionedParts) > 0:
		return StagePartSelection
	case len(c.Symptoms) > 0 && c.ApplianceType != "":
		return StageDiagnosis
	case c.ApplianceType != "" || c.Brand != "" || c.ModelNumber != "" || len(c.Symptoms) > 0:
		return StageGatheringInfo
	default:
		return StageInitial
	}
}

// MissingInfo names the empty slots.
func (c *Context) MissingInfo() []string {
	var missing []string
	if c.ApplianceType == "" {
		missing = append(missing, "appliance_type")
	}
	if c.Brand == "" {
		missing = append(missing, "brand")
	}
	if c.ModelNumber == "" {
		missing = append(missing, "model_number")
	}
	if len(c.Symptoms) == 0 {
		missing = append(missing, "symptoms")
	}
	return missing
}

var followUpQuestions = map[string]string{
	"appliance_type": "Is this for a refrigerator or a dishwasher?",
	"brand":          "What brand is your appliance?",
	"model_number":   "What is the model number? It is usually on a tag inside the door frame.",
	"symptoms":       "What problem are you seeing with the appliance?",
}

// FollowUps returns questions that would fill the missing slots, most
// useful first.
func (c *Context) FollowUps() []string {
	var out []string
	for _, slot := range c.MissingInfo() {
		out = append(out, followUpQuestions[slot])
	}
	return out
}

// Slots returns the slot subset that shapes an answer, for cache
// fingerprinting. Symptoms are order-independent.
func (c *Context) Slots() map[string]string {
	symptoms := append([]string(nil), c.Symptoms...)
	sort.Strings(symptoms)
	return map[string]string{
		"appliance_type": string(c.ApplianceType),
		"brand":          c.Brand,
		"model_number":   c.ModelNumber,
		"symptoms":       strings.Join(symptoms, ","),
	}
}

// Prompt renders the context for a generation prompt.
func (c *Context) Prompt() string {
	var sb strings.Builder
	sb.WriteString("Conversation context:\n")
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&sb, "- %s: %s\n", label, value)
		}
	}
	line("Appliance", string(c.ApplianceType))
	line("Brand", c.Brand)
	if c.ModelNumber != "" && c.Series != "" {
		line("Model", fmt.Sprintf("%s (series %s)", c.ModelNumber, c.Series))
	} else {
		line("Model", c.ModelNumber)
	}
	line("Symptoms", strings.Join(c.Symptoms, ", "))
	line("Parts mentioned", strings.Join(c.MentionedParts, ", "))
	line("Problem", c.ProblemDescription)
	line("Stage", string(c.Stage))
	line("Missing", strings.Join(c.MissingInfo(), ", "))
	return sb.String()
}
