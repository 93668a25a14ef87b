package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/yurt/pkg/domain"
)

// Store implements ports.SessionStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Session
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Session),
	}
}

// Find retrieves a copy of the session, so callers can't mutate the store by pointer.
func (s *Store) Find(ctx context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.data[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Clone(), nil
}

// Insert stores a copy of the session.
func (s *Store) Insert(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[session.ID]; ok {
		return domain.ErrWriteConflict
	}
	session.Version = 1
	s.data[session.ID] = session.Clone()
	return nil
}

// Update replaces the stored copy of the session.
func (s *Store) Update(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.data[session.ID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if session.Version > 0 && session.Version != current.Version {
		return domain.ErrWriteConflict
	}
	session.Version = current.Version + 1
	s.data[session.ID] = session.Clone()
	return nil
}

// Remove deletes the session.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns the stored session IDs, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	slices.Sort(sessions)
	return sessions, nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return nil
}
