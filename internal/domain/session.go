package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultRetention is how long a session lives before it is rotated
const DefaultRetention = 24 * time.Hour

// ErrSessionNotFound is returned by repositories when a client has no stored session
var ErrSessionNotFound = errors.New("session not found")

// Session is one client's conversation. Messages always starts with exactly
// one system message and only grows by appending.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Messages  []Message `json:"messages"`
}

// NewSession creates a session holding only the system preamble
func NewSession(systemPrompt string, now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		Messages: []Message{
			{Role: RoleSystem, Content: systemPrompt, Timestamp: now},
		},
	}
}

// ResetSession discards the conversation on explicit user request
func ResetSession(systemPrompt string, now time.Time) *Session {
	return NewSession(systemPrompt, now)
}

// Append adds a message to the end of the conversation
func (s *Session) Append(role MessageRole, content string, now time.Time) {
	s.Messages = append(s.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: now,
	})
}

// Expired reports whether the session is older than the retention window.
// A session exactly retention old is still live.
func (s *Session) Expired(now time.Time, retention time.Duration) bool {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return now.Sub(s.CreatedAt) > retention
}

// MaybeRotate returns a fresh session when s has outlived retention,
// otherwise s itself. Rotation is only evaluated when called; there is no timer.
func (s *Session) MaybeRotate(now time.Time, systemPrompt string, retention time.Duration) (*Session, bool) {
	if !s.Expired(now, retention) {
		return s, false
	}
	return NewSession(systemPrompt, now), true
}

// Window returns the messages sent to the completion gateway. With
// maxHistory <= 0 the whole conversation is returned; otherwise the system
// preamble followed by the newest maxHistory messages.
func (s *Session) Window(maxHistory int) []Message {
	if maxHistory <= 0 || len(s.Messages)-1 <= maxHistory {
		out := make([]Message, len(s.Messages))
		copy(out, s.Messages)
		return out
	}

	out := make([]Message, 0, maxHistory+1)
	out = append(out, s.Messages[0])
	out = append(out, s.Messages[len(s.Messages)-maxHistory:]...)
	return out
}

// LastMessage returns the most recent message
func (s *Session) LastMessage() Message {
	return s.Messages[len(s.Messages)-1]
}

// ExchangeCount is the number of messages excluding the system preamble
func (s *Session) ExchangeCount() int {
	return len(s.Messages) - 1
}

// Clone returns a deep copy so callers can hand out snapshots
func (s *Session) Clone() *Session {
	msgs := make([]Message, len(s.Messages))
	copy(msgs, s.Messages)
	return &Session{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Messages:  msgs,
	}
}

// SessionRepository stores one session per client key
type SessionRepository interface {
	Get(ctx context.Context, clientKey string) (*Session, error)
	Save(ctx context.Context, clientKey string, session *Session) error
	Delete(ctx context.Context, clientKey string) error
}
