package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ziadkadry99/partsdesk/internal/db"
)

// SQLiteStore implements Store and Writer on the local SQLite database.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a catalog store backed by the given database.
func NewSQLiteStore(database *db.DB) *SQLiteStore {
	return &SQLiteStore{db: database}
}

const partColumns = `part_number, manufacturer_number, name, brand, appliance_type, price, in_stock,
	description, install_difficulty, install_time, url`

func scanPart(row interface{ Scan(...any) error }) (Part, error) {
	var p Part
	var appliance string
	var inStock int
	err := row.Scan(&p.PartNumber, &p.ManufacturerNumber, &p.Name, &p.Brand, &appliance, &p.Price, &inStock,
		&p.Description, &p.InstallDifficulty, &p.InstallTime, &p.URL)
	p.ApplianceType = ApplianceType(appliance)
	p.InStock = inStock != 0
	return p, err
}

func (s *SQLiteStore) GetPart(ctx context.Context, partNumber string) (*Part, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+partColumns+` FROM parts WHERE part_number = ? OR manufacturer_number = ? LIMIT 1`,
		NormalizeID(partNumber), NormalizeID(partNumber))
	p, err := scanPart(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: get part %s", partNumber)
	}
	return &p, nil
}

func (s *SQLiteStore) GetModel(ctx context.Context, modelNumber string) (*Model, error) {
	var m Model
	var appliance string
	err := s.db.QueryRowContext(ctx,
		`SELECT model_number, brand, appliance_type, series, description FROM models WHERE model_number = ?`,
		NormalizeID(modelNumber),
	).Scan(&m.ModelNumber, &m.Brand, &appliance, &m.Series, &m.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: get model %s", modelNumber)
	}
	m.ApplianceType = ApplianceType(appliance)
	return &m, nil
}

func (s *SQLiteStore) BrandRelationship(ctx context.Context, parent, subsidiary string, appliance ApplianceType) (*BrandRelationship, error) {
	var r BrandRelationship
	var at string
	var interchangeable int
	err := s.db.QueryRowContext(ctx,
		`SELECT parent, subsidiary, appliance_type, interchangeable, confidence FROM brand_relationships
		 WHERE lower(parent) = lower(?) AND lower(subsidiary) = lower(?) AND appliance_type = ?`,
		parent, subsidiary, string(appliance),
	).Scan(&r.Parent, &r.Subsidiary, &at, &interchangeable, &r.Confidence)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "catalog: brand relationship")
	}
	r.ApplianceType = ApplianceType(at)
	r.Interchangeable = interchangeable != 0
	return &r, nil
}

func (s *SQLiteStore) SearchParts(ctx context.Context, f PartFilter) ([]Part, error) {
	var (
		where []string
		args  []any
	)
	if f.Query != "" {
		where = append(where, `(lower(name) LIKE ? OR lower(description) LIKE ? OR part_number LIKE ?)`)
		pat := keywordPattern(f.Query)
		args = append(args, pat, pat, strings.ToUpper(pat))
	}
	if f.Brand != "" {
		where = append(where, `lower(brand) = lower(?)`)
		args = append(args, f.Brand)
	}
	if f.ApplianceType != "" {
		where = append(where, `(appliance_type = ? OR appliance_type = 'universal')`)
		args = append(args, string(f.ApplianceType))
	}
	q := `SELECT ` + partColumns + ` FROM parts`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY in_stock DESC, part_number`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	return s.queryParts(ctx, q, args...)
}

func (s *SQLiteStore) PartsForModel(ctx context.Context, modelNumber string, limit int) ([]Part, error) {
	q := `SELECT p.part_number, p.manufacturer_number, p.name, p.brand, p.appliance_type, p.price, p.in_stock,
		p.description, p.install_difficulty, p.install_time, p.url
		FROM parts p JOIN part_models pm ON pm.part_number = p.part_number
		WHERE pm.model_number = ? ORDER BY p.part_number`
	args := []any{NormalizeID(modelNumber)}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryParts(ctx, q, args...)
}

func (s *SQLiteStore) queryParts(ctx context.Context, q string, args ...any) ([]Part, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: query parts")
	}
	defer rows.Close()

	var parts []Part
	for rows.Next() {
		p, err := scanPart(rows)
		if err != nil {
			return nil, eris.Wrap(err, "catalog: scan part")
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

func (s *SQLiteStore) SearchRepairs(ctx context.Context, f RepairFilter) ([]Repair, error) {
	var (
		where []string
		args  []any
	)
	if f.Query != "" {
		where = append(where, `(lower(symptom) LIKE ? OR lower(title) LIKE ? OR lower(description) LIKE ?)`)
		pat := keywordPattern(f.Query)
		args = append(args, pat, pat, pat)
	}
	if f.ApplianceType != "" {
		where = append(where, `appliance_type = ?`)
		args = append(args, string(f.ApplianceType))
	}
	q := `SELECT id, appliance_type, symptom, title, description, difficulty, part_names, url FROM repairs`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY id`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: query repairs")
	}
	defer rows.Close()

	var repairs []Repair
	for rows.Next() {
		var r Repair
		var at, partNames string
		if err := rows.Scan(&r.ID, &at, &r.Symptom, &r.Title, &r.Description, &r.Difficulty, &partNames, &r.URL); err != nil {
			return nil, eris.Wrap(err, "catalog: scan repair")
		}
		r.ApplianceType = ApplianceType(at)
		_ = json.Unmarshal([]byte(partNames), &r.PartNames)
		repairs = append(repairs, r)
	}
	return repairs, rows.Err()
}

func (s *SQLiteStore) SearchArticles(ctx context.Context, f ArticleFilter) ([]Article, error) {
	var (
		where []string
		args  []any
	)
	if f.Query != "" {
		where = append(where, `(lower(title) LIKE ? OR lower(summary) LIKE ?)`)
		pat := keywordPattern(f.Query)
		args = append(args, pat, pat)
	}
	if f.ApplianceType != "" {
		where = append(where, `(appliance_type = ? OR appliance_type = '')`)
		args = append(args, string(f.ApplianceType))
	}
	q := `SELECT id, title, summary, appliance_type, url FROM articles`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY id`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: query articles")
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		var a Article
		var at string
		if err := rows.Scan(&a.ID, &a.Title, &a.Summary, &at, &a.URL); err != nil {
			return nil, eris.Wrap(err, "catalog: scan article")
		}
		a.ApplianceType = ApplianceType(at)
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// --- Writer ---

func (s *SQLiteStore) UpsertPart(ctx context.Context, p Part) error {
	inStock := 0
	if p.InStock {
		inStock = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO parts (`+partColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(part_number) DO UPDATE SET manufacturer_number = excluded.manufacturer_number,
		   name = excluded.name, brand = excluded.brand, appliance_type = excluded.appliance_type,
		   price = excluded.price, in_stock = excluded.in_stock, description = excluded.description,
		   install_difficulty = excluded.install_difficulty, install_time = excluded.install_time, url = excluded.url`,
		NormalizeID(p.PartNumber), NormalizeID(p.ManufacturerNumber), p.Name, p.Brand, string(p.ApplianceType),
		p.Price, inStock, p.Description, p.InstallDifficulty, p.InstallTime, p.URL)
	return eris.Wrapf(err, "catalog: upsert part %s", p.PartNumber)
}

func (s *SQLiteStore) UpsertModel(ctx context.Context, m Model) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO models (model_number, brand, appliance_type, series, description) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(model_number) DO UPDATE SET brand = excluded.brand, appliance_type = excluded.appliance_type,
		   series = excluded.series, description = excluded.description`,
		NormalizeID(m.ModelNumber), m.Brand, string(m.ApplianceType), m.Series, m.Description)
	return eris.Wrapf(err, "catalog: upsert model %s", m.ModelNumber)
}

func (s *SQLiteStore) UpsertBrandRelationship(ctx context.Context, r BrandRelationship) error {
	interchangeable := 0
	if r.Interchangeable {
		interchangeable = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO brand_relationships (parent, subsidiary, appliance_type, interchangeable, confidence)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(parent, subsidiary, appliance_type) DO UPDATE SET
		   interchangeable = excluded.interchangeable, confidence = excluded.confidence`,
		r.Parent, r.Subsidiary, string(r.ApplianceType), interchangeable, r.Confidence)
	return eris.Wrapf(err, "catalog: upsert brand relationship %s/%s", r.Parent, r.Subsidiary)
}

func (s *SQLiteStore) UpsertRepair(ctx context.Context, r Repair) error {
	partNames, _ := json.Marshal(r.PartNames)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO repairs (id, appliance_type, symptom, title, description, difficulty, part_names, url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET appliance_type = excluded.appliance_type, symptom = excluded.symptom,
		   title = excluded.title, description = excluded.description, difficulty = excluded.difficulty,
		   part_names = excluded.part_names, url = excluded.url`,
		r.ID, string(r.ApplianceType), r.Symptom, r.Title, r.Description, r.Difficulty, string(partNames), r.URL)
	return eris.Wrapf(err, "catalog: upsert repair %s", r.ID)
}

func (s *SQLiteStore) UpsertArticle(ctx context.Context, a Article) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO articles (id, title, summary, appliance_type, url) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title, summary = excluded.summary,
		   appliance_type = excluded.appliance_type, url = excluded.url`,
		a.ID, a.Title, a.Summary, string(a.ApplianceType), a.URL)
	return eris.Wrapf(err, "catalog: upsert article %s", a.ID)
}

func (s *SQLiteStore) LinkPartModel(ctx context.Context, partNumber, modelNumber string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO part_models (part_number, model_number) VALUES (?, ?)`,
		NormalizeID(partNumber), NormalizeID(modelNumber))
	return eris.Wrapf(err, "catalog: link %s to %s", partNumber, modelNumber)
}
