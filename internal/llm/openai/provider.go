package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/Rrens/groqchat/internal/domain"
	"github.com/Rrens/groqchat/internal/llm"
	goopenai "github.com/sashabaranov/go-openai"
)

// Endpoint describes one OpenAI-compatible chat completions service
type Endpoint struct {
	Name         string
	APIKey       string
	BaseURL      string
	DefaultModel string
	Models       []string
}

// Groq returns the endpoint settings for Groq's OpenAI-compatible API
func Groq(apiKey, baseURL, model string) Endpoint {
	return Endpoint{
		Name:         "groq",
		APIKey:       apiKey,
		BaseURL:      orDefault(baseURL, "https://api.groq.com/openai/v1"),
		DefaultModel: orDefault(model, "llama3-8b-8192"),
		Models: []string{
			"llama3-8b-8192",
			"llama3-70b-8192",
			"llama-3.1-8b-instant",
			"llama-3.3-70b-versatile",
			"mixtral-8x7b-32768",
			"gemma2-9b-it",
		},
	}
}

// OpenAI returns the endpoint settings for api.openai.com
func OpenAI(apiKey, baseURL, model string) Endpoint {
	return Endpoint{
		Name:         "openai",
		APIKey:       apiKey,
		BaseURL:      orDefault(baseURL, "https://api.openai.com/v1"),
		DefaultModel: orDefault(model, "gpt-4o-mini"),
		Models: []string{
			"gpt-4o",
			"gpt-4o-mini",
			"gpt-4-turbo",
			"gpt-3.5-turbo",
		},
	}
}

// DeepSeek returns the endpoint settings for DeepSeek
func DeepSeek(apiKey, baseURL, model string) Endpoint {
	return Endpoint{
		Name:         "deepseek",
		APIKey:       apiKey,
		BaseURL:      orDefault(baseURL, "https://api.deepseek.com/v1"),
		DefaultModel: orDefault(model, "deepseek-chat"),
		Models:       []string{"deepseek-chat", "deepseek-reasoner"},
	}
}

// Provider implements llm.Provider for OpenAI-compatible APIs
type Provider struct {
	endpoint Endpoint
	client   *goopenai.Client
}

// NewProvider creates a provider for the given endpoint
func NewProvider(ep Endpoint) llm.Provider {
	cfg := goopenai.DefaultConfig(ep.APIKey)
	cfg.BaseURL = ep.BaseURL
	return &Provider{
		endpoint: ep,
		client:   goopenai.NewClientWithConfig(cfg),
	}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return p.endpoint.Name
}

// AvailableModels returns list of supported models
func (p *Provider) AvailableModels() []string {
	return p.endpoint.Models
}

// DefaultModel returns the default model
func (p *Provider) DefaultModel() string {
	return p.endpoint.DefaultModel
}

// IsConfigured checks if provider has valid credentials
func (p *Provider) IsConfigured() bool {
	return p.endpoint.APIKey != ""
}

// Complete sends the conversation as chat completion messages
func (p *Provider) Complete(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	if model == "" {
		model = p.endpoint.DefaultModel
	}

	chatReq := goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    toChatMessages(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", p.endpoint.Name, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from %s", p.endpoint.Name)
	}

	return &llm.Response{
		Content:    resp.Choices[0].Message.Content,
		Model:      model,
		TokensUsed: resp.Usage.TotalTokens,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

func toChatMessages(messages []domain.Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := goopenai.ChatMessageRoleUser
		switch m.Role {
		case domain.RoleSystem:
			role = goopenai.ChatMessageRoleSystem
		case domain.RoleAssistant:
			role = goopenai.ChatMessageRoleAssistant
		}
		out = append(out, goopenai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
