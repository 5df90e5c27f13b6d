package llm

import (
	"context"

	"github.com/Rrens/groqchat/internal/domain"
)

// Request contains chat completion parameters
type Request struct {
	Messages    []domain.Message
	Temperature float32
	MaxTokens   int
}

// Response contains LLM generation result
type Response struct {
	Content    string
	Model      string
	TokensUsed int
	LatencyMs  int64
}

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// AvailableModels returns list of supported models
	AvailableModels() []string

	// DefaultModel returns the default model
	DefaultModel() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Complete produces the next assistant turn for the conversation
	Complete(ctx context.Context, req Request, model string) (*Response, error)
}
