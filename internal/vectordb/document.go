package vectordb

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ziadkadry99/partsdesk/internal/catalog"
)

// DocumentKind categorizes the catalog record a document was built from.
type DocumentKind string

const (
	KindPart    DocumentKind = "part"
	KindRepair  DocumentKind = "repair"
	KindArticle DocumentKind = "article"
)

// Document represents a piece of content to be stored and searched.
type Document struct {
	ID       string
	Content  string
	Metadata DocumentMetadata
}

// DocumentMetadata holds structured information about a document.
type DocumentMetadata struct {
	Kind          DocumentKind
	RecordID      string
	ApplianceType catalog.ApplianceType
	Brand         string
	Title         string
	ContentHash   string
	IndexedAt     time.Time
}

// SearchResult pairs a document with its similarity score.
type SearchResult struct {
	Document   Document
	Similarity float32
}

// SearchFilter allows narrowing search results by metadata fields. Universal
// documents match any appliance type.
type SearchFilter struct {
	Kind          DocumentKind
	ApplianceType catalog.ApplianceType
}

// DocumentID is the stable id for a record of the given kind.
func DocumentID(kind DocumentKind, recordID string) string {
	return string(kind) + ":" + recordID
}

func newDocument(kind DocumentKind, id string, at catalog.ApplianceType, brand, title string, lines ...string) Document {
	content := strings.Join(nonEmpty(lines), "\n")
	sum := sha256.Sum256([]byte(content))
	return Document{
		ID:      DocumentID(kind, id),
		Content: content,
		Metadata: DocumentMetadata{
			Kind:          kind,
			RecordID:      id,
			ApplianceType: at,
			Brand:         brand,
			Title:         title,
			ContentHash:   hex.EncodeToString(sum[:8]),
		},
	}
}

// PartDocument renders a part for embedding.
func PartDocument(p catalog.Part) Document {
	return newDocument(KindPart, p.PartNumber, p.ApplianceType, p.Brand, p.Name,
		fmt.Sprintf("%s %s (%s)", p.Brand, p.Name, p.PartNumber),
		fmt.Sprintf("Appliance: %s", p.ApplianceType),
		p.Description,
		installLine(p),
	)
}

// RepairDocument renders a repair guide for embedding.
func RepairDocument(r catalog.Repair) Document {
	return newDocument(KindRepair, r.ID, r.ApplianceType, "", r.Title,
		r.Title,
		fmt.Sprintf("Symptom: %s (%s)", r.Symptom, r.ApplianceType),
		r.Description,
		partsLine(r.PartNames),
	)
}

// ArticleDocument renders a help article for embedding.
func ArticleDocument(a catalog.Article) Document {
	return newDocument(KindArticle, a.ID, a.ApplianceType, "", a.Title, a.Title, a.Summary)
}

func installLine(p catalog.Part) string {
	if p.InstallDifficulty == "" {
		return ""
	}
	return fmt.Sprintf("Install: %s, %s", p.InstallDifficulty, p.InstallTime)
}

func partsLine(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return "Parts: " + strings.Join(names, ", ")
}

func nonEmpty(lines []string) []string {
	out := lines[:0:0]
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}
