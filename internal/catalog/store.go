// Package catalog is the structured lookup over parts, models, brand
// relationships, repair guides and articles.
package catalog

import (
	"context"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned when a lookup by identifier has no record. It is
// distinct from a lookup error.
var ErrNotFound = eris.New("catalog: not found")

// Store is the read side of the catalog.
type Store interface {
	GetPart(ctx context.Context, partNumber string) (*Part, error)
	GetModel(ctx context.Context, modelNumber string) (*Model, error)
	// BrandRelationship returns ErrNotFound when no rule exists.
	BrandRelationship(ctx context.Context, parent, subsidiary string, appliance ApplianceType) (*BrandRelationship, error)
	SearchParts(ctx context.Context, f PartFilter) ([]Part, error)
	SearchRepairs(ctx context.Context, f RepairFilter) ([]Repair, error)
	SearchArticles(ctx context.Context, f ArticleFilter) ([]Article, error)
	PartsForModel(ctx context.Context, modelNumber string, limit int) ([]Part, error)
}

// Writer loads reference data into a catalog.
type Writer interface {
	UpsertPart(ctx context.Context, p Part) error
	UpsertModel(ctx context.Context, m Model) error
	UpsertBrandRelationship(ctx context.Context, r BrandRelationship) error
	UpsertRepair(ctx context.Context, r Repair) error
	UpsertArticle(ctx context.Context, a Article) error
	LinkPartModel(ctx context.Context, partNumber, modelNumber string) error
}
