package convctx

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/ziadkadry99/partsdesk/internal/db"
)

// Repository persists contexts. Load returns nil, nil for an unknown id.
type Repository interface {
	Load(ctx context.Context, id string) (*Context, error)
	Save(ctx context.Context, c *Context) error
	Delete(ctx context.Context, id string) error
}

// SQLRepository stores contexts as JSON in the conversation_contexts table.
type SQLRepository struct {
	db *db.DB
}

func NewSQLRepository(database *db.DB) *SQLRepository {
	return &SQLRepository{db: database}
}

func (r *SQLRepository) Load(ctx context.Context, id string) (*Context, error) {
	var state string
	err := r.db.QueryRowContext(ctx, `SELECT state FROM conversation_contexts WHERE id = ?`, id).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "loading context %s", id)
	}
	var c Context
	if err := json.Unmarshal([]byte(state), &c); err != nil {
		return nil, eris.Wrapf(err, "decoding context %s", id)
	}
	return &c, nil
}

func (r *SQLRepository) Save(ctx context.Context, c *Context) error {
	state, err := json.Marshal(c)
	if err != nil {
		return eris.Wrap(err, "encoding context")
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO conversation_contexts (id, state, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		c.ID, string(state), c.CreatedAt, c.UpdatedAt)
	return eris.Wrapf(err, "saving context %s", c.ID)
}

func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM conversation_contexts WHERE id = ?`, id)
	return eris.Wrapf(err, "deleting context %s", id)
}

// MemoryRepository keeps contexts in process memory.
type MemoryRepository struct {
	mu   sync.RWMutex
	data map[string]*Context
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{data: make(map[string]*Context)}
}

func (r *MemoryRepository) Load(_ context.Context, id string) (*Context, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data[id].Clone(), nil
}

func (r *MemoryRepository) Save(_ context.Context, c *Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[c.ID] = c.Clone()
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, id)
	return nil
}
