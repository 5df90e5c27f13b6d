// Package chatlog records every appended conversation message to durable,
// append-only stores: daily JSONL files, a remote folder and an optional
// database archive.
package chatlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/groqchat/internal/domain"
)

// Record is one line of the transcript
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	SessionID string    `json:"session_id"`
}

// NewRecord builds a record for a message of the given session
func NewRecord(sessionID string, m domain.Message) Record {
	return Record{
		Timestamp: m.Timestamp,
		Role:      string(m.Role),
		Content:   m.Content,
		SessionID: sessionID,
	}
}

// Sink appends records to a durable store. Records passed in one call belong
// to the same exchange and are written in order.
type Sink interface {
	Name() string
	Append(ctx context.Context, records ...Record) error
	Close() error
}

// WriteError attributes a failed write to a sink
type WriteError struct {
	Sink string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Sink, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// WriteErrors flattens err into the per-sink failures it contains
func WriteErrors(err error) []*WriteError {
	if err == nil {
		return nil
	}

	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []*WriteError
		for _, e := range joined.Unwrap() {
			out = append(out, WriteErrors(e)...)
		}
		return out
	}

	var we *WriteError
	if errors.As(err, &we) {
		return []*WriteError{we}
	}
	return []*WriteError{{Sink: "chatlog", Err: err}}
}

// MultiSink writes to every sink and joins their failures
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink fans out to sinks, skipping nil entries
func NewMultiSink(sinks ...Sink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *MultiSink) Name() string {
	return "multi"
}

// Len returns the number of wrapped sinks
func (m *MultiSink) Len() int {
	return len(m.sinks)
}

func (m *MultiSink) Append(ctx context.Context, records ...Record) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Append(ctx, records...); err != nil {
			var we *WriteError
			if !errors.As(err, &we) {
				err = &WriteError{Sink: s.Name(), Err: err}
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s sink: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// NopSink discards everything
type NopSink struct{}

func (NopSink) Name() string                            { return "nop" }
func (NopSink) Append(context.Context, ...Record) error { return nil }
func (NopSink) Close() error                            { return nil }
