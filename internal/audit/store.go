package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/ziadkadry99/partsdesk/internal/db"
)

// ErrNotFound is returned by GetByID for unknown ids.
var ErrNotFound = eris.New("audit entry not found")

// Timestamps are stored as fixed-width UTC text so range filters compare
// lexically.
const timeLayout = "2006-01-02 15:04:05.000000"

// Store persists turn entries in the local database.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Log inserts a new entry. An empty ID gets a UUID and a zero Timestamp
// gets the current time.
func (s *Store) Log(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turn_audit (
			id, timestamp, conversation_id, query, tier, intent,
			confidence, outcome, failure_kind, reason, elapsed_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Timestamp.UTC().Format(timeLayout),
		entry.ConversationID,
		entry.Query,
		entry.Tier,
		entry.Intent,
		entry.Confidence,
		string(entry.Outcome),
		entry.FailureKind,
		entry.Reason,
		entry.ElapsedMS,
	)
	if err != nil {
		return eris.Wrap(err, "inserting audit entry")
	}
	return nil
}

const selectColumns = `SELECT id, timestamp, conversation_id, query, tier, intent,
	confidence, outcome, failure_kind, reason, elapsed_ms FROM turn_audit`

// GetByID retrieves a single entry.
func (s *Store) GetByID(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	e, err := scanInto(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "reading audit entry %s", id)
	}
	return e, nil
}

// QueryFilter controls which entries Query returns. Zero fields match
// everything.
type QueryFilter struct {
	ConversationID string
	Tier           string
	Outcome        Outcome
	Since          *time.Time
	Until          *time.Time
	Limit          int
	Offset         int
}

func (f QueryFilter) where() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.ConversationID != "" {
		clauses = append(clauses, "conversation_id = ?")
		args = append(args, f.ConversationID)
	}
	if f.Tier != "" {
		clauses = append(clauses, "tier = ?")
		args = append(args, f.Tier)
	}
	if f.Outcome != "" {
		clauses = append(clauses, "outcome = ?")
		args = append(args, string(f.Outcome))
	}
	if f.Since != nil {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, f.Since.UTC().Format(timeLayout))
	}
	if f.Until != nil {
		clauses = append(clauses, "timestamp <= ?")
		args = append(args, f.Until.UTC().Format(timeLayout))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// Query returns matching entries, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	where, args := filter.where()
	query := selectColumns + where + " ORDER BY timestamp DESC, rowid DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "querying audit entries")
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanInto(rows)
		if err != nil {
			return nil, eris.Wrap(err, "scanning audit entry")
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Summarize aggregates matching entries per tier. Limit and Offset are
// ignored.
func (s *Store) Summarize(ctx context.Context, filter QueryFilter) ([]TierSummary, error) {
	where, args := filter.where()
	rows, err := s.db.QueryContext(ctx, `
		SELECT tier, COUNT(*),
			SUM(CASE WHEN outcome = 'failed' THEN 1 ELSE 0 END),
			SUM(CASE WHEN outcome = 'cancelled' THEN 1 ELSE 0 END),
			AVG(elapsed_ms)
		FROM turn_audit`+where+`
		GROUP BY tier ORDER BY tier`, args...)
	if err != nil {
		return nil, eris.Wrap(err, "summarizing audit entries")
	}
	defer rows.Close()

	out := []TierSummary{}
	for rows.Next() {
		var ts TierSummary
		if err := rows.Scan(&ts.Tier, &ts.Turns, &ts.Failed, &ts.Cancelled, &ts.AvgElapsedMS); err != nil {
			return nil, eris.Wrap(err, "scanning tier summary")
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

// DeleteBefore removes entries older than before and returns how many went.
func (s *Store) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM turn_audit WHERE timestamp < ?",
		before.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, eris.Wrap(err, "deleting old audit entries")
	}
	return res.RowsAffected()
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (*Entry, error) {
	var (
		e       Entry
		ts      string
		outcome string
	)
	err := sc.Scan(
		&e.ID, &ts, &e.ConversationID, &e.Query, &e.Tier, &e.Intent,
		&e.Confidence, &outcome, &e.FailureKind, &e.Reason, &e.ElapsedMS,
	)
	if err != nil {
		return nil, err
	}
	e.Outcome = Outcome(outcome)
	if t, parseErr := time.Parse(timeLayout, ts); parseErr == nil {
		e.Timestamp = t
	}
	return &e, nil
}
