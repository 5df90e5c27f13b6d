package anthropic_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Rrens/groqchat/internal/domain"
	"github.com/Rrens/groqchat/internal/llm"
	"github.com/Rrens/groqchat/internal/llm/anthropic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"content":[{"type":"text","text":"Hi!"}],"usage":{"input_tokens":10,"output_tokens":2}}`))
	}))
	defer srv.Close()

	p := anthropic.NewProviderWithBaseURL("sk-ant", "", srv.URL)
	resp, err := p.Complete(context.Background(), llm.Request{
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: "Be brief"},
			{Role: domain.RoleUser, Content: "hello"},
		},
	}, "")
	require.NoError(t, err)

	assert.Equal(t, "Hi!", resp.Content)
	assert.Equal(t, 12, resp.TokensUsed)
	assert.Equal(t, "Be brief", got["system"])
	assert.Equal(t, float64(1024), got["max_tokens"])

	msgs := got["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
}

func TestProvider_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error"}}`))
	}))
	defer srv.Close()

	p := anthropic.NewProviderWithBaseURL("sk-ant", "", srv.URL)
	_, err := p.Complete(context.Background(), llm.Request{}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}
