package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/groqchat/internal/domain"
	"github.com/Rrens/groqchat/internal/metrics"
	"github.com/rs/zerolog/log"
)

// GatewayConfig binds a provider and generation settings
type GatewayConfig struct {
	Provider    string
	Model       string
	Temperature float32
	MaxTokens   int
}

// Gateway turns a message sequence into a reply using one routed provider
type Gateway struct {
	router  *Router
	cfg     GatewayConfig
	metrics *metrics.Metrics
}

// NewGateway creates a completion gateway. m may be nil.
func NewGateway(router *Router, cfg GatewayConfig, m *metrics.Metrics) *Gateway {
	if cfg.Provider == "" {
		cfg.Provider = router.DefaultProvider()
	}
	return &Gateway{router: router, cfg: cfg, metrics: m}
}

// ProviderName returns the provider the gateway routes to
func (g *Gateway) ProviderName() string {
	return g.cfg.Provider
}

// Complete sends the whole sequence to the provider and returns its reply
func (g *Gateway) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	provider, err := g.router.GetProvider(g.cfg.Provider)
	if err != nil {
		return "", fmt.Errorf("failed to get LLM provider: %w", err)
	}

	model := g.cfg.Model
	if model == "" {
		model = provider.DefaultModel()
	}

	start := time.Now()
	resp, err := provider.Complete(ctx, Request{
		Messages:    messages,
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
	}, model)
	if err == nil && CleanReply(resp.Content) == "" {
		err = errors.New("empty response from model")
	}
	g.metrics.RecordGatewayRequest(provider.Name(), err, time.Since(start))
	if err != nil {
		return "", err
	}

	log.Debug().
		Str("provider", provider.Name()).
		Str("model", resp.Model).
		Int("messages", len(messages)).
		Int("tokens_used", resp.TokensUsed).
		Int64("latency_ms", resp.LatencyMs).
		Msg("LLM response received")

	return CleanReply(resp.Content), nil
}
