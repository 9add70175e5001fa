package catalog

import "strings"

// ApplianceType classifies what a part or model belongs to.
type ApplianceType string

const (
	Refrigerator ApplianceType = "refrigerator"
	Dishwasher   ApplianceType = "dishwasher"
	// Universal parts fit any appliance type.
	Universal ApplianceType = "universal"
)

// Part is a replacement part record.
type Part struct {
	PartNumber         string        `json:"part_number"`
	ManufacturerNumber string        `json:"manufacturer_number,omitempty"`
	Name               string        `json:"name"`
	Brand              string        `json:"brand"`
	ApplianceType      ApplianceType `json:"appliance_type"`
	Price              float64       `json:"price"`
	InStock            bool          `json:"in_stock"`
	Description        string        `json:"description,omitempty"`
	InstallDifficulty  string        `json:"install_difficulty,omitempty"`
	InstallTime        string        `json:"install_time,omitempty"`
	URL                string        `json:"url,omitempty"`
}

// Model is an appliance model record.
type Model struct {
	ModelNumber   string        `json:"model_number"`
	Brand         string        `json:"brand"`
	ApplianceType ApplianceType `json:"appliance_type"`
	Series        string        `json:"series,omitempty"`
	Description   string        `json:"description,omitempty"`
}

// BrandRelationship records whether parts of a parent brand interchange with a
// subsidiary brand for one appliance type.
type BrandRelationship struct {
	Parent          string        `json:"parent"`
	Subsidiary      string        `json:"subsidiary"`
	ApplianceType   ApplianceType `json:"appliance_type"`
	Interchangeable bool          `json:"interchangeable"`
	Confidence      float64       `json:"confidence"`
}

// Repair is a troubleshooting guide for a symptom.
type Repair struct {
	ID            string        `json:"id"`
	ApplianceType ApplianceType `json:"appliance_type"`
	Symptom       string        `json:"symptom"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Difficulty    string        `json:"difficulty,omitempty"`
	PartNames     []string      `json:"part_names,omitempty"`
	URL           string        `json:"url,omitempty"`
}

// Article is a how-to or blog article.
type Article struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Summary       string        `json:"summary"`
	ApplianceType ApplianceType `json:"appliance_type,omitempty"`
	URL           string        `json:"url,omitempty"`
}

// PartFilter narrows SearchParts. Zero values match everything.
type PartFilter struct {
	Query         string
	Brand         string
	ApplianceType ApplianceType
	Limit         int
}

// RepairFilter narrows SearchRepairs.
type RepairFilter struct {
	Query         string
	ApplianceType ApplianceType
	Limit         int
}

// ArticleFilter narrows SearchArticles.
type ArticleFilter struct {
	Query         string
	ApplianceType ApplianceType
	Limit         int
}

// NormalizeID upper-cases and trims a part or model identifier.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// ParseApplianceType maps free text to a known appliance type. Unknown text
// yields "".
func ParseApplianceType(s string) ApplianceType {
	switch ApplianceType(strings.ToLower(strings.TrimSpace(s))) {
	case Refrigerator:
		return Refrigerator
	case Dishwasher:
		return Dishwasher
	case Universal:
		return Universal
	default:
		return ""
	}
}

// keywordPattern builds a LIKE pattern for a free-text query.
func keywordPattern(q string) string {
	q = strings.TrimSpace(strings.ToLower(q))
	if q == "" {
		return "%"
	}
	return "%" + q + "%"
}
