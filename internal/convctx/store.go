// Package convctx keeps per-conversation slot state: appliance type, brand,
// model number and the symptoms reported so far.
package convctx

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/partsdesk/internal/logging"
)

// Store updates contexts. Updates to one conversation are serialised;
// different conversations proceed in parallel.
type Store struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*convLock
	live  map[string]*Context
}

type convLock struct {
	mu   sync.Mutex
	refs int
}

// NewStore creates a store persisting through repo. A nil repo keeps state
// in memory only.
func NewStore(repo Repository, logger *zap.Logger) *Store {
	if repo == nil {
		repo = NewMemoryRepository()
	}
	return &Store{
		repo:   repo,
		logger: logging.OrNop(logger),
		now:    time.Now,
		locks:  make(map[string]*convLock),
		live:   make(map[string]*Context),
	}
}

func (s *Store) lock(id string) func() {
	s.mu.Lock()
	l := s.locks[id]
	if l == nil {
		l = &convLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

// Update merges query into the conversation's context and returns a copy of
// the result. It does not fail: unparsable input leaves slots unchanged and
// persistence errors are logged.
func (s *Store) Update(ctx context.Context, conversationID, query string) *Context {
	unlock := s.lock(conversationID)
	defer unlock()

	c := s.load(ctx, conversationID)
	c.apply(query, Extract(query), s.now())

	s.mu.Lock()
	s.live[conversationID] = c
	s.mu.Unlock()

	if err := s.repo.Save(ctx, c); err != nil {
		s.logger.Warn("persisting conversation context",
			zap.String("conversation_id", conversationID), zap.Error(err))
	}
	return c.Clone()
}

// Get returns a copy of the conversation's context, or nil if it has none.
func (s *Store) Get(ctx context.Context, conversationID string) *Context {
	s.mu.Lock()
	c, ok := s.live[conversationID]
	s.mu.Unlock()
	if ok {
		return c.Clone()
	}
	stored, err := s.repo.Load(ctx, conversationID)
	if err != nil {
		s.logger.Warn("loading conversation context",
			zap.String("conversation_id", conversationID), zap.Error(err))
		return nil
	}
	return stored
}

// Reset drops a conversation's context.
func (s *Store) Reset(ctx context.Context, conversationID string) error {
	unlock := s.lock(conversationID)
	defer unlock()

	s.mu.Lock()
	delete(s.live, conversationID)
	s.mu.Unlock()
	return s.repo.Delete(ctx, conversationID)
}

// load returns the working copy for id. Callers hold the conversation lock.
func (s *Store) load(ctx context.Context, id string) *Context {
	s.mu.Lock()
	c, ok := s.live[id]
	s.mu.Unlock()
	if ok {
		return c.Clone()
	}

	stored, err := s.repo.Load(ctx, id)
	if err != nil {
		s.logger.Warn("loading conversation context",
			zap.String("conversation_id", id), zap.Error(err))
	}
	if stored != nil {
		return stored
	}
	return newContext(id, s.now())
}
