package db

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB holding the parts catalog and conversation state.
type DB struct {
	*sql.DB
	path string
}

// Open creates or opens a SQLite database at the given path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrap(err, "creating database directory")
	}

	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, eris.Wrap(err, "opening database")
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, eris.Wrap(err, "pinging database")
	}

	d := &DB{DB: sqlDB, path: path}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, eris.Wrap(err, "running migrations")
	}

	return d, nil
}

// OpenMemory creates an in-memory SQLite database (useful for testing).
// Every pooled connection would get its own empty database, so the pool is
// pinned to one connection.
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, eris.Wrap(err, "opening in-memory database")
	}
	sqlDB.SetMaxOpenConns(1)

	d := &DB{DB: sqlDB, path: ":memory:"}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, eris.Wrap(err, "running migrations")
	}

	return d, nil
}

// Path returns the file the database was opened from.
func (d *DB) Path() string { return d.path }

// migrate runs all schema migrations.
func (d *DB) migrate() error {
	_, err := d.Exec(schema)
	return err
}

// schema contains the full database schema. New tables are added here.
const schema = `
CREATE TABLE IF NOT EXISTS parts (
    part_number TEXT PRIMARY KEY,
    manufacturer_number TEXT NOT NULL DEFAULT '',
    name TEXT NOT NULL,
    brand TEXT NOT NULL DEFAULT '',
    appliance_type TEXT NOT NULL CHECK(appliance_type IN ('refrigerator','dishwasher','universal')),
    price REAL NOT NULL DEFAULT 0,
    in_stock INTEGER NOT NULL DEFAULT 1,
    description TEXT NOT NULL DEFAULT '',
    install_difficulty TEXT NOT NULL DEFAULT '',
    install_time TEXT NOT NULL DEFAULT '',
    url TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_parts_appliance ON parts(appliance_type);
CREATE INDEX IF NOT EXISTS idx_parts_brand ON parts(brand);

CREATE TABLE IF NOT EXISTS models (
    model_number TEXT PRIMARY KEY,
    brand TEXT NOT NULL,
    appliance_type TEXT NOT NULL CHECK(appliance_type IN ('refrigerator','dishwasher','universal')),
    series TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS part_models (
    part_number TEXT NOT NULL REFERENCES parts(part_number) ON DELETE CASCADE,
    model_number TEXT NOT NULL REFERENCES models(model_number) ON DELETE CASCADE,
    PRIMARY KEY (part_number, model_number)
);

CREATE INDEX IF NOT EXISTS idx_part_models_model ON part_models(model_number);

CREATE TABLE IF NOT EXISTS brand_relationships (
    parent TEXT NOT NULL,
    subsidiary TEXT NOT NULL,
    appliance_type TEXT NOT NULL,
    interchangeable INTEGER NOT NULL DEFAULT 0,
    confidence REAL NOT NULL DEFAULT 0 CHECK(confidence >= 0 AND confidence <= 1),
    PRIMARY KEY (parent, subsidiary, appliance_type)
);

CREATE TABLE IF NOT EXISTS repairs (
    id TEXT PRIMARY KEY,
    appliance_type TEXT NOT NULL,
    symptom TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    difficulty TEXT NOT NULL DEFAULT '',
    part_names TEXT NOT NULL DEFAULT '[]',
    url TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_repairs_appliance ON repairs(appliance_type);

CREATE TABLE IF NOT EXISTS articles (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    summary TEXT NOT NULL DEFAULT '',
    appliance_type TEXT NOT NULL DEFAULT '',
    url TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS conversation_contexts (
    id TEXT PRIMARY KEY,
    state TEXT NOT NULL DEFAULT '{}',
    created_at DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS turn_audit (
    id TEXT PRIMARY KEY,
    timestamp TEXT NOT NULL,
    conversation_id TEXT NOT NULL DEFAULT '',
    query TEXT NOT NULL DEFAULT '',
    tier TEXT NOT NULL,
    intent TEXT NOT NULL DEFAULT '',
    confidence REAL NOT NULL DEFAULT 0,
    outcome TEXT NOT NULL CHECK(outcome IN ('done','failed','cancelled')),
    failure_kind TEXT NOT NULL DEFAULT '',
    reason TEXT NOT NULL DEFAULT '',
    elapsed_ms INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_turn_audit_timestamp ON turn_audit(timestamp);
CREATE INDEX IF NOT EXISTS idx_turn_audit_conversation ON turn_audit(conversation_id);
`
