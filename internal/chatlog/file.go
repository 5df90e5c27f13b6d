package chatlog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
)

// FilePattern names one transcript file per calendar day
const FilePattern = "chat_log_%Y-%m-%d.jsonl"

const defaultMaxAge = 90 * 24 * time.Hour

// Clock supplies the time used to pick the daily file
type Clock interface {
	Now() time.Time
}

type clockFunc func() time.Time

func (f clockFunc) Now() time.Time { return f() }

// ClockFunc adapts a function to Clock
func ClockFunc(f func() time.Time) Clock {
	return clockFunc(f)
}

// FileSink appends JSON lines to a file that rolls over at midnight
type FileSink struct {
	dir    string
	writer *rotatelogs.RotateLogs
	clock  Clock
	mu     sync.Mutex
}

// FileOption configures a FileSink
type FileOption func(*fileOptions)

type fileOptions struct {
	clock  Clock
	maxAge time.Duration
}

// WithClock overrides the clock used for file naming
func WithClock(c Clock) FileOption {
	return func(o *fileOptions) { o.clock = c }
}

// WithMaxAge sets how long old daily files are kept
func WithMaxAge(d time.Duration) FileOption {
	return func(o *fileOptions) { o.maxAge = d }
}

// NewFileSink creates the log directory and the rotating writer
func NewFileSink(dir string, opts ...FileOption) (*FileSink, error) {
	o := fileOptions{clock: rotatelogs.Local, maxAge: defaultMaxAge}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxAge <= 0 {
		o.maxAge = defaultMaxAge
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	writer, err := rotatelogs.New(
		filepath.Join(dir, FilePattern),
		rotatelogs.WithClock(o.clock),
		rotatelogs.WithRotationTime(24*time.Hour),
		rotatelogs.WithMaxAge(o.maxAge),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rotating log writer: %w", err)
	}

	return &FileSink{dir: dir, writer: writer, clock: o.clock}, nil
}

func (s *FileSink) Name() string {
	return "file"
}

// Append writes records as one contiguous block of lines
func (s *FileSink) Append(ctx context.Context, records ...Record) error {
	if len(records) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode log record: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.writer.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write log file: %w", err)
	}
	return nil
}

// CurrentPath returns the file written by the latest Append, or the path
// today's file will have if nothing has been written yet
func (s *FileSink) CurrentPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fn := s.writer.CurrentFileName(); fn != "" {
		return fn
	}
	return filepath.Join(s.dir, FileName(s.clock.Now()))
}

func (s *FileSink) Close() error {
	return s.writer.Close()
}

// FileName returns the daily file name for t
func FileName(t time.Time) string {
	return fmt.Sprintf("chat_log_%s.jsonl", t.Format("2006-01-02"))
}
