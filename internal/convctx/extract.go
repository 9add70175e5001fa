package convctx

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ziadkadry99/partsdesk/internal/catalog"
)

// Part-number shapes, checked in order against whole tokens.
var partPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^PS\d{8,}$`),
	regexp.MustCompile(`^WP[A-Z]?\d{8,}$`),
	regexp.MustCompile(`^W\d{8,}$`),
	regexp.MustCompile(`^[A-Z]{2,3}\d{6,}$`),
}

// Model-number shapes. A token matching a part shape is never a model.
var modelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[A-Z]{2,}[\dA-Z]{4,}$`),
	regexp.MustCompile(`^\d{3}\.\d{8,}$`),
	regexp.MustCompile(`^[A-Z]+\d+[A-Z]+\d*$`),
}

var tokenSplit = regexp.MustCompile(`[^A-Za-z0-9.\-]+`)

type alias struct {
	canonical string
	re        *regexp.Regexp
}

func wordAliases(canonical string, words ...string) []alias {
	out := make([]alias, len(words))
	for i, w := range words {
		out[i] = alias{canonical: canonical, re: regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`)}
	}
	return out
}

var brandAliases = concat(
	wordAliases("Whirlpool", "whirlpool"),
	wordAliases("GE", "ge", "general electric"),
	wordAliases("Samsung", "samsung"),
	wordAliases("LG", "lg"),
	wordAliases("Bosch", "bosch"),
	wordAliases("KitchenAid", "kitchenaid", "kitchen aid"),
	wordAliases("Maytag", "maytag"),
	wordAliases("Kenmore", "kenmore"),
	wordAliases("Frigidaire", "frigidaire"),
	wordAliases("Admiral", "admiral"),
	wordAliases("Amana", "amana"),
	wordAliases("Estate", "estate"),
	wordAliases("Inglis", "inglis"),
)

var applianceAliases = concat(
	wordAliases(string(catalog.Refrigerator), "refrigerator", "fridge", "freezer", "ice maker", "icemaker"),
	wordAliases(string(catalog.Dishwasher), "dishwasher", "dish washer"),
)

// Symptom labels are the values stored in a context.
const (
	SymptomNotCooling  = "not cooling"
	SymptomNotDraining = "not draining"
	SymptomLeaking     = "leaking"
	SymptomNoisy       = "noisy"
	SymptomNotStarting = "not starting"
	SymptomNotCleaning = "not cleaning"
	SymptomIceMaker    = "ice maker not working"
	SymptomDoor        = "door won't close"
)

var symptomAliases = concat(
	wordAliases(SymptomNotCooling, "not cooling", "not cold", "too warm", "not getting cold", "warm inside"),
	wordAliases(SymptomNotDraining, "not draining", "won't drain", "wont drain", "doesn't drain", "standing water", "water in the bottom"),
	wordAliases(SymptomLeaking, "leak", "leaks", "leaking", "water on the floor", "puddle"),
	wordAliases(SymptomNoisy, "noisy", "noise", "loud", "grinding", "buzzing", "rattling"),
	wordAliases(SymptomNotStarting, "not starting", "won't start", "wont start", "doesn't start", "not turning on", "won't turn on"),
	wordAliases(SymptomNotCleaning, "not cleaning", "dirty dishes", "not washing", "residue"),
	wordAliases(SymptomIceMaker, "no ice", "not making ice", "ice maker not working", "ice maker broken", "ice maker stopped"),
	wordAliases(SymptomDoor, "door won't close", "door wont close", "door doesn't close", "door won't latch", "door seal", "latch"),
)

// modelPrefixes maps model-number prefixes to appliance types. Longer
// prefixes are checked first.
var modelPrefixes = map[string]catalog.ApplianceType{
	"WDT": catalog.Dishwasher, "WDF": catalog.Dishwasher, "DU": catalog.Dishwasher,
	"GDT": catalog.Dishwasher, "DDT": catalog.Dishwasher, "PDT": catalog.Dishwasher,
	"KUDS": catalog.Dishwasher, "KDFE": catalog.Dishwasher, "KDTE": catalog.Dishwasher,
	"665.": catalog.Dishwasher,
	"WRF": catalog.Refrigerator, "WRS": catalog.Refrigerator, "RF": catalog.Refrigerator,
	"RS": catalog.Refrigerator, "RT": catalog.Refrigerator, "GTS": catalog.Refrigerator,
	"GNE": catalog.Refrigerator, "GSS": catalog.Refrigerator, "KRFF": catalog.Refrigerator,
	"KRMF": catalog.Refrigerator, "KFCS": catalog.Refrigerator, "106.": catalog.Refrigerator,
}

var sortedPrefixes = func() []string {
	keys := make([]string, 0, len(modelPrefixes))
	for k := range modelPrefixes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

// Kenmore model numbers start with a three-digit manufacturer code.
var kenmorePrefixes = []string{"106.", "665."}

func concat(groups ...[]alias) []alias {
	var out []alias
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Extraction is what one query yields before it is merged into a context.
// Every list is deduplicated and in first-seen order.
type Extraction struct {
	PartTokens  []string
	ModelTokens []string
	Brands      []string
	Appliances  []catalog.ApplianceType
	Symptoms    []string
}

// IsPartNumber reports whether tok has a part-number shape.
func IsPartNumber(tok string) bool {
	tok = strings.ToUpper(tok)
	for _, re := range partPatterns {
		if re.MatchString(tok) {
			return true
		}
	}
	return false
}

// IsModelNumber reports whether tok has a model-number shape and is not a
// part number.
func IsModelNumber(tok string) bool {
	tok = strings.ToUpper(tok)
	if len(tok) < 5 || IsPartNumber(tok) || !strings.ContainsAny(tok, "0123456789") {
		return false
	}
	for _, re := range modelPatterns {
		if re.MatchString(tok) {
			return true
		}
	}
	return false
}

// Extract scans query left to right. It never fails; text that matches
// nothing yields an empty Extraction.
func Extract(query string) Extraction {
	var ex Extraction
	for _, raw := range tokenSplit.Split(query, -1) {
		tok := strings.ToUpper(strings.Trim(raw, ".-"))
		if tok == "" {
			continue
		}
		switch {
		case IsPartNumber(tok):
			ex.PartTokens = appendUnique(ex.PartTokens, tok)
		case IsModelNumber(tok):
			ex.ModelTokens = appendUnique(ex.ModelTokens, tok)
		}
	}

	text := normalizeText(query)
	ex.Brands = matchAliases(text, brandAliases)
	for _, a := range matchAliases(text, applianceAliases) {
		ex.Appliances = append(ex.Appliances, catalog.ApplianceType(a))
	}
	ex.Symptoms = matchAliases(text, symptomAliases)
	return ex
}

// ApplianceFromModel infers the appliance type from a model prefix.
func ApplianceFromModel(model string) catalog.ApplianceType {
	model = strings.ToUpper(model)
	for _, p := range sortedPrefixes {
		if strings.HasPrefix(model, p) {
			return modelPrefixes[p]
		}
	}
	return ""
}

// SeriesFromModel returns the leading letters of a model, or the numeric
// manufacturer code for dotted Kenmore models.
func SeriesFromModel(model string) string {
	model = strings.ToUpper(model)
	if i := strings.IndexByte(model, '.'); i == 3 {
		return model[:4]
	}
	end := strings.IndexFunc(model, func(r rune) bool { return r < 'A' || r > 'Z' })
	if end <= 0 {
		return ""
	}
	return model[:end]
}

// BrandFromModel infers a brand from a model prefix.
func BrandFromModel(model string) string {
	for _, p := range kenmorePrefixes {
		if strings.HasPrefix(model, p) {
			return "Kenmore"
		}
	}
	return ""
}

func normalizeText(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("’", "'", "‘", "'").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// matchAliases returns canonical names in order of first occurrence in text.
func matchAliases(text string, aliases []alias) []string {
	type hit struct {
		canonical string
		pos       int
	}
	best := map[string]int{}
	for _, a := range aliases {
		loc := a.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if pos, ok := best[a.canonical]; !ok || loc[0] < pos {
			best[a.canonical] = loc[0]
		}
	}
	hits := make([]hit, 0, len(best))
	for c, pos := range best {
		hits = append(hits, hit{c, pos})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].pos != hits[j].pos {
			return hits[i].pos < hits[j].pos
		}
		return hits[i].canonical < hits[j].canonical
	})
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.canonical
	}
	return out
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
