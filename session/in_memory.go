// Package session provides SessionStore implementations. The in-memory
// store backs tests and single-process deployments; the redis subpackage
// persists sessions across restarts.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/caseflow-io/caseflow/core"
)

// InMemoryStore keeps sessions in a map guarded by a mutex. Get and Save
// exchange deep copies so callers can mutate freely and commit atomically.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
}

// NewInMemoryStore creates an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*core.Session)}
}

// Create implements core.SessionStore.
func (s *InMemoryStore) Create(ctx context.Context, customer core.Customer) (*core.Session, error) {
	sess := core.NewSession(customer)

	s.mu.Lock()
	s.sessions[sess.ID] = sess.Clone()
	s.mu.Unlock()

	return sess, nil
}

// Get implements core.SessionStore.
func (s *InMemoryStore) Get(ctx context.Context, id string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// Save implements core.SessionStore. The stored copy is replaced wholesale,
// so a session mutated off a Get either commits fully or not at all.
func (s *InMemoryStore) Save(ctx context.Context, sess *core.Session) error {
	clone := sess.Clone()
	clone.Updated = time.Now().UTC()

	s.mu.Lock()
	s.sessions[clone.ID] = clone
	s.mu.Unlock()

	return nil
}

var _ core.SessionStore = (*InMemoryStore)(nil)
