package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rrens/groqchat/internal/chatlog"
	"github.com/Rrens/groqchat/internal/config"
	"github.com/Rrens/groqchat/internal/domain"
	"github.com/Rrens/groqchat/internal/metrics"
	"github.com/rs/zerolog/log"
)

// ErrEmptyMessage is returned when a submission has no visible text
var ErrEmptyMessage = errors.New("message is empty")

// errorPrefix marks assistant messages that carry a gateway failure
const errorPrefix = "[Error] "

// CompletionGateway turns a conversation into the assistant's next reply
type CompletionGateway interface {
	Complete(ctx context.Context, messages []domain.Message) (string, error)
}

// Reply is the outcome of one chat submission
type Reply struct {
	Session       *domain.Session `json:"session"`
	Answer        string          `json:"answer"`
	Rotated       bool            `json:"rotated"`
	GatewayFailed bool            `json:"gateway_failed"`
	Warnings      []string        `json:"warnings,omitempty"`
}

// ChatService owns the per-client conversation lifecycle
type ChatService struct {
	sessions domain.SessionRepository
	gateway  CompletionGateway
	sink     chatlog.Sink
	metrics  *metrics.Metrics
	cfg      config.ChatConfig
	locks    *keyedMutex
	now      func() time.Time
}

// NewChatService creates a new chat service. A nil sink disables transcript logging.
func NewChatService(
	sessions domain.SessionRepository,
	gateway CompletionGateway,
	sink chatlog.Sink,
	m *metrics.Metrics,
	cfg config.ChatConfig,
) *ChatService {
	if sink == nil {
		sink = chatlog.NopSink{}
	}
	return &ChatService{
		sessions: sessions,
		gateway:  gateway,
		sink:     sink,
		metrics:  m,
		cfg:      cfg,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

// Current returns the client's session, creating or rotating it as needed
func (s *ChatService) Current(ctx context.Context, clientKey string) (*domain.Session, error) {
	unlock := s.locks.Lock(clientKey)
	defer unlock()

	session, state, err := s.load(ctx, clientKey)
	if err != nil {
		return nil, err
	}

	if state != loadedStored {
		if err := s.sessions.Save(ctx, clientKey, session); err != nil {
			return nil, fmt.Errorf("failed to save session: %w", err)
		}
	}

	return session.Clone(), nil
}

// Send appends the user's text, asks the gateway for a reply and appends it.
// Gateway failures become the assistant message; log failures become warnings.
// Only session repository failures are returned as errors.
func (s *ChatService) Send(ctx context.Context, clientKey, text string) (*Reply, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	unlock := s.locks.Lock(clientKey)
	defer unlock()

	session, state, err := s.load(ctx, clientKey)
	if err != nil {
		return nil, err
	}
	reply := &Reply{Rotated: state == loadedRotated}

	session.Append(domain.RoleUser, text, s.now())
	s.metrics.RecordMessage(string(domain.RoleUser))

	answer, err := s.gateway.Complete(ctx, session.Window(s.cfg.MaxHistory))
	if err != nil {
		log.Error().Err(err).Str("session_id", session.ID).Msg("completion failed")
		answer = errorPrefix + err.Error()
		reply.GatewayFailed = true
	}

	session.Append(domain.RoleAssistant, answer, s.now())
	s.metrics.RecordMessage(string(domain.RoleAssistant))

	n := len(session.Messages)
	reply.Warnings = s.writeLog(ctx, session.ID, session.Messages[n-2:])

	if err := s.sessions.Save(ctx, clientKey, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	reply.Session = session.Clone()
	reply.Answer = answer
	return reply, nil
}

// Reset discards the client's conversation and starts a fresh one
func (s *ChatService) Reset(ctx context.Context, clientKey string) (*domain.Session, error) {
	unlock := s.locks.Lock(clientKey)
	defer unlock()

	session := domain.ResetSession(s.cfg.SystemPrompt, s.now())
	if err := s.sessions.Save(ctx, clientKey, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	s.metrics.RecordReset()

	log.Info().Str("session_id", session.ID).Msg("session reset")
	return session.Clone(), nil
}

type loadState int

const (
	loadedStored loadState = iota
	loadedNew
	loadedRotated
)

// load fetches the stored session and applies the rotation guard
func (s *ChatService) load(ctx context.Context, clientKey string) (*domain.Session, loadState, error) {
	now := s.now()

	session, err := s.sessions.Get(ctx, clientKey)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.NewSession(s.cfg.SystemPrompt, now), loadedNew, nil
	}
	if err != nil {
		return nil, loadedStored, fmt.Errorf("failed to load session: %w", err)
	}

	fresh, rotated := session.MaybeRotate(now, s.cfg.SystemPrompt, s.cfg.Retention)
	if !rotated {
		return session, loadedStored, nil
	}

	s.metrics.RecordRotation()
	log.Info().
		Str("previous_session_id", session.ID).
		Str("session_id", fresh.ID).
		Msg("session rotated")
	return fresh, loadedRotated, nil
}

func (s *ChatService) writeLog(ctx context.Context, sessionID string, msgs []domain.Message) []string {
	records := make([]chatlog.Record, len(msgs))
	for i, m := range msgs {
		records[i] = chatlog.NewRecord(sessionID, m)
	}

	err := s.sink.Append(ctx, records...)
	if err == nil {
		return nil
	}

	failures := chatlog.WriteErrors(err)
	warnings := make([]string, 0, len(failures))
	for _, f := range failures {
		log.Warn().Err(f.Err).Str("sink", f.Sink).Str("session_id", sessionID).Msg("failed to write chat log")
		s.metrics.RecordLogFailure(f.Sink)
		warnings = append(warnings, fmt.Sprintf("chat log (%s) not saved: %v", f.Sink, f.Err))
	}
	return warnings
}

// IsErrorReply reports whether an assistant message carries a gateway failure
func IsErrorReply(content string) bool {
	return strings.HasPrefix(content, errorPrefix)
}
