// Package respcache stores complete fragment sequences of successful requests
// and replays them for identical questions.
package respcache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ziadkadry99/partsdesk/internal/stream"
)

// DefaultTTL is how long an entry stays servable.
const DefaultTTL = time.Hour

// ErrNotCacheable is returned by Store for sequences that do not end in done.
var ErrNotCacheable = eris.New("respcache: only sequences ending in done are cached")

// Cache is a fingerprint-keyed store of fragment sequences. Lookup and Store
// are independently safe for concurrent use. Identical in-flight requests are
// not coalesced.
type Cache interface {
	// Lookup returns the whole sequence or nothing.
	Lookup(ctx context.Context, fingerprint string) ([]stream.Fragment, bool)
	Store(ctx context.Context, fingerprint string, frags []stream.Fragment) error
	InvalidateAll(ctx context.Context) error
	Stats(ctx context.Context) Stats
}

// Entry is one cached sequence.
type Entry struct {
	Fingerprint string            `json:"fingerprint"`
	Fragments   []stream.Fragment `json:"fragments"`
	CreatedAt   time.Time         `json:"created_at"`
	ExpiresAt   time.Time         `json:"expires_at"`
}

// Stats summarises cache effectiveness.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Stores  int64   `json:"stores"`
	Entries int     `json:"entries"`
	HitRate float64 `json:"hit_rate"`
}

type counters struct {
	hits, misses, stores atomic.Int64
}

func (c *counters) snapshot(entries int) Stats {
	s := Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Stores: c.stores.Load(), Entries: entries}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// cacheable validates a sequence and strips conversation ids, which belong
// to the request that replays it.
func cacheable(frags []stream.Fragment) ([]stream.Fragment, error) {
	if len(frags) == 0 || frags[len(frags)-1].Kind != stream.KindDone {
		return nil, ErrNotCacheable
	}
	out := make([]stream.Fragment, len(frags))
	for i, f := range frags {
		if err := f.Validate(); err != nil {
			return nil, err
		}
		if f.IsTerminal() && i != len(frags)-1 {
			return nil, ErrNotCacheable
		}
		f.ConversationID = ""
		out[i] = f
	}
	return out, nil
}

// Memory is an in-process Cache with lazy expiry.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]Entry
	counters
}

// NewMemory creates a memory cache. ttl <= 0 uses DefaultTTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{ttl: ttl, now: time.Now, entries: make(map[string]Entry)}
}

func (m *Memory) Lookup(_ context.Context, fp string) ([]stream.Fragment, bool) {
	m.mu.RLock()
	e, ok := m.entries[fp]
	m.mu.RUnlock()

	if ok && !m.now().Before(e.ExpiresAt) {
		m.mu.Lock()
		if cur, still := m.entries[fp]; still && cur.ExpiresAt.Equal(e.ExpiresAt) {
			delete(m.entries, fp)
		}
		m.mu.Unlock()
		ok = false
	}
	if !ok {
		m.misses.Add(1)
		return nil, false
	}
	m.hits.Add(1)
	out := make([]stream.Fragment, len(e.Fragments))
	copy(out, e.Fragments)
	return out, true
}

func (m *Memory) Store(_ context.Context, fp string, frags []stream.Fragment) error {
	clean, err := cacheable(frags)
	if err != nil {
		return err
	}
	now := m.now()
	m.mu.Lock()
	m.entries[fp] = Entry{Fingerprint: fp, Fragments: clean, CreatedAt: now, ExpiresAt: now.Add(m.ttl)}
	m.mu.Unlock()
	m.stores.Add(1)
	return nil
}

func (m *Memory) InvalidateAll(_ context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string]Entry)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Stats(_ context.Context) Stats {
	m.mu.RLock()
	n := len(m.entries)
	m.mu.RUnlock()
	return m.snapshot(n)
}

// WarmEntry is a pre-computed answer loaded at start-up.
type WarmEntry struct {
	Query     string
	Slots     map[string]string
	Fragments []stream.Fragment
}

// Warm stores each entry under its fingerprint and returns how many were
// stored.
func Warm(ctx context.Context, c Cache, entries []WarmEntry) (int, error) {
	n := 0
	for _, e := range entries {
		if err := c.Store(ctx, Fingerprint(e.Query, e.Slots), e.Fragments); err != nil {
			return n, eris.Wrapf(err, "warming %q", e.Query)
		}
		n++
	}
	return n, nil
}
