package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/Rrens/groqchat/internal/chatlog"
	"github.com/jackc/pgx/v5/pgconn"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ChatLogSink appends transcript records to the chat_log table
type ChatLogSink struct {
	db execer
}

// NewChatLogSink creates a sink backed by db, usually a *pgxpool.Pool
func NewChatLogSink(db execer) *ChatLogSink {
	return &ChatLogSink{db: db}
}

func (s *ChatLogSink) Name() string { return "postgres" }

// Append inserts all records in a single statement
func (s *ChatLogSink) Append(ctx context.Context, records ...chatlog.Record) error {
	if len(records) == 0 {
		return nil
	}

	query, args := buildInsert(records)
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert chat log: %w", err)
	}
	return nil
}

// Close is a no-op; the pool is owned by DB
func (s *ChatLogSink) Close() error { return nil }

func buildInsert(records []chatlog.Record) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO chat_log (session_id, role, content, created_at) VALUES ")

	args := make([]any, 0, len(records)*4)
	for i, r := range records {
		if i > 0 {
			b.WriteString(", ")
		}
		n := i * 4
		fmt.Fprintf(&b, "($%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4)
		args = append(args, r.SessionID, r.Role, r.Content, r.Timestamp)
	}
	return b.String(), args
}
