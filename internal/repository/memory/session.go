// Package memory holds in-process repositories for single-instance deployments
package memory

import (
	"context"
	"sync"

	"github.com/Rrens/groqchat/internal/domain"
)

// SessionStore keeps sessions in a map keyed by client key. Sessions are
// cloned on the way in and out so callers never share backing arrays.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewSessionStore creates an empty store
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*domain.Session)}
}

func (s *SessionStore) Get(ctx context.Context, clientKey string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[clientKey]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (s *SessionStore) Save(ctx context.Context, clientKey string, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[clientKey] = session.Clone()
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, clientKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, clientKey)
	return nil
}

// Len returns the number of stored sessions
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
