package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore. pgxmock pools
// satisfy it in tests.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore implements Store against a shared Postgres catalog.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres connects a pool and verifies it with a ping.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Close releases the pool when the store owns it.
func (s *PostgresStore) Close() {
	if s.closeFn != nil {
		s.closeFn()
	}
}

// Ping verifies the pool can run a statement.
func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

const pgPartSelect = `SELECT part_number, manufacturer_number, name, brand, appliance_type, price, in_stock,
	description, install_difficulty, install_time, url FROM parts`

func scanPGPart(row pgx.Row) (Part, error) {
	var p Part
	var appliance string
	err := row.Scan(&p.PartNumber, &p.ManufacturerNumber, &p.Name, &p.Brand, &appliance, &p.Price, &p.InStock,
		&p.Description, &p.InstallDifficulty, &p.InstallTime, &p.URL)
	p.ApplianceType = ApplianceType(appliance)
	return p, err
}

func (s *PostgresStore) GetPart(ctx context.Context, partNumber string) (*Part, error) {
	id := NormalizeID(partNumber)
	p, err := scanPGPart(s.pool.QueryRow(ctx, pgPartSelect+` WHERE part_number = $1 OR manufacturer_number = $1 LIMIT 1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get part %s", id)
	}
	return &p, nil
}

func (s *PostgresStore) GetModel(ctx context.Context, modelNumber string) (*Model, error) {
	var m Model
	var appliance string
	id := NormalizeID(modelNumber)
	err := s.pool.QueryRow(ctx,
		`SELECT model_number, brand, appliance_type, series, description FROM models WHERE model_number = $1`, id,
	).Scan(&m.ModelNumber, &m.Brand, &appliance, &m.Series, &m.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get model %s", id)
	}
	m.ApplianceType = ApplianceType(appliance)
	return &m, nil
}

func (s *PostgresStore) BrandRelationship(ctx context.Context, parent, subsidiary string, appliance ApplianceType) (*BrandRelationship, error) {
	var r BrandRelationship
	var at string
	err := s.pool.QueryRow(ctx,
		`SELECT parent, subsidiary, appliance_type, interchangeable, confidence FROM brand_relationships
		 WHERE lower(parent) = lower($1) AND lower(subsidiary) = lower($2) AND appliance_type = $3`,
		parent, subsidiary, string(appliance),
	).Scan(&r.Parent, &r.Subsidiary, &at, &r.Interchangeable, &r.Confidence)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: brand relationship")
	}
	r.ApplianceType = ApplianceType(at)
	return &r, nil
}

// pgArgs accumulates positional arguments and returns their $n placeholders.
type pgArgs []any

func (a *pgArgs) add(v any) string {
	*a = append(*a, v)
	return fmt.Sprintf("$%d", len(*a))
}

func (s *PostgresStore) SearchParts(ctx context.Context, f PartFilter) ([]Part, error) {
	var args pgArgs
	var where []string
	if f.Query != "" {
		p := args.add(keywordPattern(f.Query))
		where = append(where, fmt.Sprintf(`(lower(name) LIKE %s OR lower(description) LIKE %s OR lower(part_number) LIKE %s)`, p, p, p))
	}
	if f.Brand != "" {
		where = append(where, `lower(brand) = lower(`+args.add(f.Brand)+`)`)
	}
	if f.ApplianceType != "" {
		where = append(where, `(appliance_type = `+args.add(string(f.ApplianceType))+` OR appliance_type = 'universal')`)
	}
	q := pgPartSelect
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY in_stock DESC, part_number`
	if f.Limit > 0 {
		q += ` LIMIT ` + args.add(f.Limit)
	}
	return s.queryParts(ctx, q, args...)
}

func (s *PostgresStore) PartsForModel(ctx context.Context, modelNumber string, limit int) ([]Part, error) {
	args := pgArgs{NormalizeID(modelNumber)}
	q := pgPartSelect + ` WHERE part_number IN (SELECT part_number FROM part_models WHERE model_number = $1) ORDER BY part_number`
	if limit > 0 {
		q += ` LIMIT ` + args.add(limit)
	}
	return s.queryParts(ctx, q, args...)
}

func (s *PostgresStore) queryParts(ctx context.Context, q string, args ...any) ([]Part, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query parts")
	}
	defer rows.Close()

	var parts []Part
	for rows.Next() {
		p, err := scanPGPart(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan part")
		}
		parts = append(parts, p)
	}
	return parts, eris.Wrap(rows.Err(), "postgres: iterate parts")
}

func (s *PostgresStore) SearchRepairs(ctx context.Context, f RepairFilter) ([]Repair, error) {
	var args pgArgs
	var where []string
	if f.Query != "" {
		p := args.add(keywordPattern(f.Query))
		where = append(where, fmt.Sprintf(`(lower(symptom) LIKE %s OR lower(title) LIKE %s OR lower(description) LIKE %s)`, p, p, p))
	}
	if f.ApplianceType != "" {
		where = append(where, `appliance_type = `+args.add(string(f.ApplianceType)))
	}
	q := `SELECT id, appliance_type, symptom, title, description, difficulty, part_names, url FROM repairs`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY id`
	if f.Limit > 0 {
		q += ` LIMIT ` + args.add(f.Limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query repairs")
	}
	defer rows.Close()

	var repairs []Repair
	for rows.Next() {
		var r Repair
		var at string
		if err := rows.Scan(&r.ID, &at, &r.Symptom, &r.Title, &r.Description, &r.Difficulty, &r.PartNames, &r.URL); err != nil {
			return nil, eris.Wrap(err, "postgres: scan repair")
		}
		r.ApplianceType = ApplianceType(at)
		repairs = append(repairs, r)
	}
	return repairs, eris.Wrap(rows.Err(), "postgres: iterate repairs")
}

func (s *PostgresStore) SearchArticles(ctx context.Context, f ArticleFilter) ([]Article, error) {
	var args pgArgs
	var where []string
	if f.Query != "" {
		p := args.add(keywordPattern(f.Query))
		where = append(where, fmt.Sprintf(`(lower(title) LIKE %s OR lower(summary) LIKE %s)`, p, p))
	}
	if f.ApplianceType != "" {
		where = append(where, `(appliance_type = `+args.add(string(f.ApplianceType))+` OR appliance_type = '')`)
	}
	q := `SELECT id, title, summary, appliance_type, url FROM articles`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY id`
	if f.Limit > 0 {
		q += ` LIMIT ` + args.add(f.Limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query articles")
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		var a Article
		var at string
		if err := rows.Scan(&a.ID, &a.Title, &a.Summary, &at, &a.URL); err != nil {
			return nil, eris.Wrap(err, "postgres: scan article")
		}
		a.ApplianceType = ApplianceType(at)
		articles = append(articles, a)
	}
	return articles, eris.Wrap(rows.Err(), "postgres: iterate articles")
}
