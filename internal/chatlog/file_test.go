package chatlog_test

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Rrens/groqchat/internal/chatlog"
	"github.com/Rrens/groqchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestFileSink_DailyFiles(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC)

	sink, err := chatlog.NewFileSink(dir, chatlog.WithClock(chatlog.ClockFunc(func() time.Time { return now })))
	require.NoError(t, err)
	defer sink.Close()

	ctx := context.Background()
	require.NoError(t, sink.Append(ctx,
		chatlog.Record{Timestamp: now, Role: "user", Content: "hi", SessionID: "s1"},
		chatlog.Record{Timestamp: now, Role: "assistant", Content: "<b>hello</b>", SessionID: "s1"},
	))
	require.NoError(t, sink.Append(ctx, chatlog.Record{Timestamp: now, Role: "user", Content: "other", SessionID: "s2"}))

	day1 := filepath.Join(dir, "chat_log_2025-06-01.jsonl")
	assert.Equal(t, day1, sink.CurrentPath())

	lines := readLines(t, day1)
	require.Len(t, lines, 3)
	assert.Equal(t, "user", lines[0]["role"])
	assert.Equal(t, "<b>hello</b>", lines[1]["content"])
	assert.Equal(t, "s2", lines[2]["session_id"])
	assert.Equal(t, "2025-06-01T23:59:00Z", lines[0]["timestamp"])

	now = now.Add(2 * time.Minute)
	require.NoError(t, sink.Append(ctx, chatlog.Record{Timestamp: now, Role: "user", Content: "tomorrow", SessionID: "s1"}))

	day2 := filepath.Join(dir, "chat_log_2025-06-02.jsonl")
	assert.Equal(t, day2, sink.CurrentPath())
	assert.Len(t, readLines(t, day2), 1)
	assert.Len(t, readLines(t, day1), 3)
}

func TestFileSink_AppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	clock := chatlog.ClockFunc(func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) })
	ctx := context.Background()

	first, err := chatlog.NewFileSink(dir, chatlog.WithClock(clock))
	require.NoError(t, err)
	require.NoError(t, first.Append(ctx, chatlog.Record{Role: "user", Content: "one"}))
	require.NoError(t, first.Close())

	second, err := chatlog.NewFileSink(dir, chatlog.WithClock(clock))
	require.NoError(t, err)
	require.NoError(t, second.Append(ctx, chatlog.Record{Role: "user", Content: "two"}))
	require.NoError(t, second.Close())

	lines := readLines(t, filepath.Join(dir, "chat_log_2025-06-01.jsonl"))
	require.Len(t, lines, 2)
	assert.Equal(t, "one", lines[0]["content"])
	assert.Equal(t, "two", lines[1]["content"])
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "chat_log_2024-02-29.jsonl", chatlog.FileName(time.Date(2024, 2, 29, 8, 0, 0, 0, time.UTC)))
}

func TestNewRecord(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := chatlog.NewRecord("sess", domain.Message{Role: domain.RoleAssistant, Content: "ok", Timestamp: ts})
	assert.Equal(t, chatlog.Record{Timestamp: ts, Role: "assistant", Content: "ok", SessionID: "sess"}, rec)
}
