package service

import (
	"context"

	"github.com/Rrens/groqchat/internal/chatlog"
	"github.com/Rrens/groqchat/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockSessionRepository mocks the SessionRepository interface
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Get(ctx context.Context, clientKey string) (*domain.Session, error) {
	args := m.Called(ctx, clientKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionRepository) Save(ctx context.Context, clientKey string, session *domain.Session) error {
	args := m.Called(ctx, clientKey, session)
	return args.Error(0)
}

func (m *MockSessionRepository) Delete(ctx context.Context, clientKey string) error {
	args := m.Called(ctx, clientKey)
	return args.Error(0)
}

// MockGateway mocks the CompletionGateway interface
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

// MockSink mocks chatlog.Sink
type MockSink struct {
	mock.Mock
}

func (m *MockSink) Name() string { return "mock" }

func (m *MockSink) Append(ctx context.Context, records ...chatlog.Record) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockSink) Close() error { return nil }
