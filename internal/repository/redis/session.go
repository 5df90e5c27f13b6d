package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/groqchat/internal/domain"
	"github.com/redis/go-redis/v9"
)

const sessionPrefix = "chat:session:"

// SessionStore keeps one serialized session per client key. Keys expire
// after ttl so abandoned conversations do not pile up; rotation itself is
// still decided by the service on access.
type SessionStore struct {
	client *Client
	ttl    time.Duration
}

// NewSessionStore creates a Redis-backed session repository
func NewSessionStore(client *Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func sessionKey(clientKey string) string {
	return sessionPrefix + clientKey
}

// Get loads the session for a client
func (s *SessionStore) Get(ctx context.Context, clientKey string) (*domain.Session, error) {
	data, err := s.client.rdb.Get(ctx, sessionKey(clientKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// Save stores the session and refreshes its expiry
func (s *SessionStore) Save(ctx context.Context, clientKey string, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.client.rdb.Set(ctx, sessionKey(clientKey), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete removes the stored session
func (s *SessionStore) Delete(ctx context.Context, clientKey string) error {
	if err := s.client.rdb.Del(ctx, sessionKey(clientKey)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
