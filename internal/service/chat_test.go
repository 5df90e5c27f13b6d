package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Rrens/groqchat/internal/chatlog"
	"github.com/Rrens/groqchat/internal/config"
	"github.com/Rrens/groqchat/internal/domain"
	"github.com/Rrens/groqchat/internal/metrics"
	"github.com/Rrens/groqchat/internal/repository/memory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testPrompt = "Hi! I'm your Groq-powered chatbot. Say something!"

var t0 = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func testChatConfig() config.ChatConfig {
	return config.ChatConfig{SystemPrompt: testPrompt, Retention: domain.DefaultRetention}
}

func newTestService(repo domain.SessionRepository, gw CompletionGateway, sink chatlog.Sink, m *metrics.Metrics) (*ChatService, *time.Time) {
	svc := NewChatService(repo, gw, sink, m, testChatConfig())
	now := t0
	svc.now = func() time.Time { return now }
	return svc, &now
}

func roles(msgs []domain.Message) []domain.MessageRole {
	out := make([]domain.MessageRole, len(msgs))
	for i, m := range msgs {
		out[i] = m.Role
	}
	return out
}

func TestChatService_SendNewClient(t *testing.T) {
	repo := new(MockSessionRepository)
	gw := new(MockGateway)
	sink := new(MockSink)
	svc, _ := newTestService(repo, gw, sink, nil)
	ctx := context.Background()

	repo.On("Get", ctx, "client-1").Return(nil, domain.ErrSessionNotFound)
	gw.On("Complete", ctx, mock.MatchedBy(func(msgs []domain.Message) bool {
		return len(msgs) == 2 && msgs[0].Role == domain.RoleSystem && msgs[1].Content == "hello"
	})).Return("Hi there!", nil)
	sink.On("Append", ctx, mock.MatchedBy(func(recs []chatlog.Record) bool {
		return len(recs) == 2 && recs[0].Role == "user" && recs[1].Role == "assistant" &&
			recs[0].SessionID == recs[1].SessionID
	})).Return(nil)
	repo.On("Save", ctx, "client-1", mock.AnythingOfType("*domain.Session")).Return(nil)

	reply, err := svc.Send(ctx, "client-1", "hello")
	require.NoError(t, err)

	assert.Equal(t, "Hi there!", reply.Answer)
	assert.False(t, reply.GatewayFailed)
	assert.False(t, reply.Rotated)
	assert.Empty(t, reply.Warnings)
	assert.Equal(t, []domain.MessageRole{domain.RoleSystem, domain.RoleUser, domain.RoleAssistant}, roles(reply.Session.Messages))
	assert.Equal(t, testPrompt, reply.Session.Messages[0].Content)

	repo.AssertExpectations(t)
	gw.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestChatService_SendGatewayError(t *testing.T) {
	repo := memory.NewSessionStore()
	gw := new(MockGateway)
	sink := new(MockSink)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc, _ := newTestService(repo, gw, sink, m)
	ctx := context.Background()

	gw.On("Complete", ctx, mock.Anything).Return("", errors.New("connection refused"))
	sink.On("Append", ctx, mock.Anything).Return(nil)

	reply, err := svc.Send(ctx, "client-1", "hello")
	require.NoError(t, err)

	assert.True(t, reply.GatewayFailed)
	assert.Equal(t, "[Error] connection refused", reply.Answer)
	last := reply.Session.LastMessage()
	assert.Equal(t, domain.RoleAssistant, last.Role)
	assert.Equal(t, "[Error] connection refused", last.Content)
	assert.True(t, IsErrorReply(last.Content))

	stored, err := repo.Get(ctx, "client-1")
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 3)

	// the error text is logged like any other reply
	recs := sink.Calls[0].Arguments.Get(1).([]chatlog.Record)
	assert.Equal(t, "[Error] connection refused", recs[1].Content)
}

func TestChatService_LogFailureLeavesSessionUntouched(t *testing.T) {
	ctx := context.Background()

	run := func(sinkErr error) *Reply {
		gw := new(MockGateway)
		gw.On("Complete", ctx, mock.Anything).Return("answer", nil)
		sink := new(MockSink)
		sink.On("Append", ctx, mock.Anything).Return(sinkErr)

		reg := prometheus.NewRegistry()
		m := metrics.New(reg)
		svc, _ := newTestService(memory.NewSessionStore(), gw, sink, m)

		reply, err := svc.Send(ctx, "client-1", "question")
		require.NoError(t, err)

		if sinkErr != nil {
			assert.Equal(t, 1.0, testutil.ToFloat64(m.LogWriteFailuresTotal.WithLabelValues("file")))
		}
		return reply
	}

	ok := run(nil)
	failed := run(&chatlog.WriteError{Sink: "file", Err: errors.New("permission denied")})

	require.Len(t, failed.Warnings, 1)
	assert.Contains(t, failed.Warnings[0], "file")
	assert.Contains(t, failed.Warnings[0], "permission denied")
	assert.Empty(t, ok.Warnings)

	assert.Equal(t, ok.Answer, failed.Answer)
	assert.Equal(t, ok.Session.Messages, failed.Session.Messages)
}

func TestChatService_LogFailurePerSink(t *testing.T) {
	ctx := context.Background()
	gw := new(MockGateway)
	gw.On("Complete", ctx, mock.Anything).Return("answer", nil)

	sink := new(MockSink)
	sink.On("Append", ctx, mock.Anything).Return(errors.Join(
		&chatlog.WriteError{Sink: "upload", Err: errors.New("quota")},
		&chatlog.WriteError{Sink: "postgres", Err: errors.New("down")},
	))

	svc, _ := newTestService(memory.NewSessionStore(), gw, sink, nil)
	reply, err := svc.Send(ctx, "c", "q")
	require.NoError(t, err)
	assert.Len(t, reply.Warnings, 2)
}

func TestChatService_Rotation(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSessionStore()
	gw := new(MockGateway)
	gw.On("Complete", ctx, mock.Anything).Return("ok", nil)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc, now := newTestService(repo, gw, chatlog.NopSink{}, m)

	first, err := svc.Send(ctx, "c", "first")
	require.NoError(t, err)

	*now = t0.Add(23 * time.Hour)
	second, err := svc.Send(ctx, "c", "second")
	require.NoError(t, err)
	assert.False(t, second.Rotated)
	assert.Equal(t, first.Session.ID, second.Session.ID)
	assert.Len(t, second.Session.Messages, 5)

	*now = t0.Add(25 * time.Hour)
	third, err := svc.Send(ctx, "c", "third")
	require.NoError(t, err)
	assert.True(t, third.Rotated)
	assert.NotEqual(t, first.Session.ID, third.Session.ID)
	require.Len(t, third.Session.Messages, 3)
	assert.Equal(t, "third", third.Session.Messages[1].Content)
	assert.Equal(t, t0.Add(25*time.Hour), third.Session.CreatedAt)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionRotationsTotal))

	// the gateway only saw the fresh conversation
	lastCall := gw.Calls[len(gw.Calls)-1].Arguments.Get(1).([]domain.Message)
	assert.Len(t, lastCall, 2)
}

func TestChatService_CurrentRotatesOnRead(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSessionStore()
	svc, now := newTestService(repo, new(MockGateway), nil, nil)

	old := domain.NewSession(testPrompt, t0)
	old.Append(domain.RoleUser, "hi", t0)
	require.NoError(t, repo.Save(ctx, "c", old))

	*now = t0.Add(time.Hour)
	same, err := svc.Current(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, old.ID, same.ID)
	assert.Len(t, same.Messages, 2)

	*now = t0.Add(25 * time.Hour)
	fresh, err := svc.Current(ctx, "c")
	require.NoError(t, err)
	assert.NotEqual(t, old.ID, fresh.ID)
	assert.Len(t, fresh.Messages, 1)

	stored, err := repo.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, stored.ID)
}

func TestChatService_CurrentSavesOnlyWhenChanged(t *testing.T) {
	ctx := context.Background()
	repo := new(MockSessionRepository)
	svc, _ := newTestService(repo, new(MockGateway), nil, nil)

	existing := domain.NewSession(testPrompt, t0)
	repo.On("Get", ctx, "c").Return(existing, nil)

	got, err := svc.Current(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, got.ID)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestChatService_Reset(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSessionStore()
	gw := new(MockGateway)
	gw.On("Complete", ctx, mock.Anything).Return("ok", nil)
	svc, now := newTestService(repo, gw, nil, nil)

	for i := 0; i < 5; i++ {
		_, err := svc.Send(ctx, "c", fmt.Sprintf("q%d", i))
		require.NoError(t, err)
	}
	before, err := svc.Current(ctx, "c")
	require.NoError(t, err)
	require.Len(t, before.Messages, 11)

	*now = t0.Add(time.Minute)
	reset, err := svc.Reset(ctx, "c")
	require.NoError(t, err)

	fresh := domain.NewSession(testPrompt, *now)
	assert.NotEqual(t, before.ID, reset.ID)
	assert.Equal(t, fresh.Messages, reset.Messages)
	assert.Equal(t, *now, reset.CreatedAt)

	after, err := svc.Current(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, reset.ID, after.ID)
}

func TestChatService_RepositoryErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("get", func(t *testing.T) {
		repo := new(MockSessionRepository)
		gw := new(MockGateway)
		repo.On("Get", ctx, "c").Return(nil, errors.New("redis down"))
		svc, _ := newTestService(repo, gw, nil, nil)

		_, err := svc.Send(ctx, "c", "hi")
		assert.ErrorContains(t, err, "failed to load session")
		gw.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
	})

	t.Run("save", func(t *testing.T) {
		repo := new(MockSessionRepository)
		gw := new(MockGateway)
		repo.On("Get", ctx, "c").Return(nil, domain.ErrSessionNotFound)
		repo.On("Save", ctx, "c", mock.Anything).Return(errors.New("redis down"))
		gw.On("Complete", ctx, mock.Anything).Return("ok", nil)
		svc, _ := newTestService(repo, gw, nil, nil)

		_, err := svc.Send(ctx, "c", "hi")
		assert.ErrorContains(t, err, "failed to save session")
	})
}

func TestChatService_EmptyMessage(t *testing.T) {
	svc, _ := newTestService(memory.NewSessionStore(), new(MockGateway), nil, nil)
	_, err := svc.Send(context.Background(), "c", "  \n\t")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestChatService_MaxHistory(t *testing.T) {
	ctx := context.Background()
	gw := new(MockGateway)
	gw.On("Complete", ctx, mock.Anything).Return("ok", nil)

	svc := NewChatService(memory.NewSessionStore(), gw, nil, nil, config.ChatConfig{
		SystemPrompt: testPrompt,
		Retention:    domain.DefaultRetention,
		MaxHistory:   3,
	})

	for i := 0; i < 4; i++ {
		_, err := svc.Send(ctx, "c", fmt.Sprintf("q%d", i))
		require.NoError(t, err)
	}

	sent := gw.Calls[3].Arguments.Get(1).([]domain.Message)
	require.Len(t, sent, 4)
	assert.Equal(t, domain.RoleSystem, sent[0].Role)
	assert.Equal(t, "q3", sent[3].Content)
}

type serialGateway struct {
	inFlight atomic.Int32
	overlap  atomic.Bool
}

func (g *serialGateway) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	if g.inFlight.Add(1) > 1 {
		g.overlap.Store(true)
	}
	defer g.inFlight.Add(-1)
	time.Sleep(time.Millisecond)
	return messages[len(messages)-1].Content, nil
}

func TestChatService_OneCallPerClient(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSessionStore()
	gw := &serialGateway{}
	svc := NewChatService(repo, gw, nil, nil, testChatConfig())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Send(ctx, "same-client", fmt.Sprintf("m%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.False(t, gw.overlap.Load())
	session, err := repo.Get(ctx, "same-client")
	require.NoError(t, err)
	assert.Len(t, session.Messages, 41)
	for i := 1; i < len(session.Messages); i += 2 {
		assert.Equal(t, domain.RoleUser, session.Messages[i].Role)
		assert.Equal(t, session.Messages[i].Content, session.Messages[i+1].Content)
	}
	assert.Equal(t, 0, svc.locks.len())
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	k := newKeyedMutex()
	unlockA := k.Lock("a")

	done := make(chan struct{})
	go func() {
		unlockB := k.Lock("b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}
	unlockA()
	assert.Equal(t, 0, k.len())
}
