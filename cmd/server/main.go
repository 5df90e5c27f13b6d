package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Rrens/groqchat/internal/api"
	"github.com/Rrens/groqchat/internal/api/handler"
	"github.com/Rrens/groqchat/internal/chatlog"
	"github.com/Rrens/groqchat/internal/config"
	"github.com/Rrens/groqchat/internal/domain"
	"github.com/Rrens/groqchat/internal/llm"
	"github.com/Rrens/groqchat/internal/llm/anthropic"
	"github.com/Rrens/groqchat/internal/llm/gemini"
	"github.com/Rrens/groqchat/internal/llm/ollama"
	"github.com/Rrens/groqchat/internal/llm/openai"
	"github.com/Rrens/groqchat/internal/logger"
	"github.com/Rrens/groqchat/internal/metrics"
	"github.com/Rrens/groqchat/internal/repository/memory"
	"github.com/Rrens/groqchat/internal/repository/postgres"
	"github.com/Rrens/groqchat/internal/repository/redis"
	"github.com/Rrens/groqchat/internal/security"
	"github.com/Rrens/groqchat/internal/service"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file - try multiple locations
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.Logging, os.Stderr)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("provider", cfg.LLM.DefaultProvider).
		Msg("Starting chat server")

	ctx := context.Background()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	readiness := map[string]handler.Pinger{}

	// Initialize database
	var db *postgres.DB
	if cfg.Database.Enabled {
		db, err = postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()
		readiness["database"] = db
	}

	// Initialize Redis
	var redisClient *redis.Client
	if cfg.Session.Store == "redis" || cfg.Security.RateLimit.Enabled {
		redisClient, err = redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
		readiness["redis"] = redisClient
	}

	// Session repository
	var sessions domain.SessionRepository
	switch cfg.Session.Store {
	case "redis":
		sessions = redis.NewSessionStore(redisClient, 2*cfg.Chat.Retention)
	default:
		sessions = memory.NewSessionStore()
	}

	// Completion gateway
	llmRouter := llm.NewRouter(cfg.LLM.DefaultProvider)
	registerProviders(cfg.LLM, llmRouter)

	provider, err := llmRouter.GetProvider(cfg.LLM.DefaultProvider)
	if err != nil {
		log.Fatal().Err(err).Msg("Default LLM provider is not available")
	}
	model := cfg.LLM.Model
	if model == "" {
		model = provider.DefaultModel()
	}

	gateway := llm.NewGateway(llmRouter, llm.GatewayConfig{
		Provider:    cfg.LLM.DefaultProvider,
		Model:       model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}, m)

	// Chat log
	sink, err := buildSink(ctx, cfg.ChatLog, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open chat log")
	}
	defer func() {
		if err := sink.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close chat log")
		}
	}()

	chatService := service.NewChatService(sessions, gateway, sink, m, cfg.Chat)

	deps := api.Dependencies{
		Config:    cfg,
		Chat:      chatService,
		LLMRouter: llmRouter,
		Tokens:    security.NewSessionTokenManager(cfg.Session.TokenSecret, cfg.Session.TokenTTL),
		Metrics:   m,
		Gatherer:  reg,
		Readiness: readiness,
		Page: handler.PageInfo{
			Title:    cfg.Chat.Title,
			Provider: cfg.LLM.DefaultProvider,
			Model:    model,
		},
	}
	if cfg.Security.RateLimit.Enabled {
		deps.RateLimiter = redis.NewRateLimiter(
			redisClient,
			cfg.Security.RateLimit.RequestsPerMinute,
			cfg.Security.RateLimit.Burst,
		)
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func registerProviders(cfg config.LLMConfig, router *llm.Router) {
	if cfg.Groq.APIKey != "" {
		router.RegisterProvider(openai.NewProvider(openai.Groq(cfg.Groq.APIKey, cfg.Groq.BaseURL, cfg.Groq.Model)))
	}
	if cfg.OpenAI.APIKey != "" {
		router.RegisterProvider(openai.NewProvider(openai.OpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model)))
	}
	if cfg.DeepSeek.APIKey != "" {
		router.RegisterProvider(openai.NewProvider(openai.DeepSeek(cfg.DeepSeek.APIKey, cfg.DeepSeek.BaseURL, cfg.DeepSeek.Model)))
	}
	if cfg.Anthropic.APIKey != "" {
		router.RegisterProvider(anthropic.NewProvider(cfg.Anthropic.APIKey, cfg.Anthropic.Model))
	}
	if cfg.Gemini.APIKey != "" {
		router.RegisterProvider(gemini.NewProvider(cfg.Gemini))
	}
	if cfg.Ollama.Host != "" {
		log.Info().Str("host", cfg.Ollama.Host).Msg("Registering Ollama provider")
		router.RegisterProvider(ollama.NewProvider(cfg.Ollama.Host, cfg.Ollama.DefaultModel))
	}

	log.Info().Strs("providers", router.ListProviders()).Msg("LLM providers registered")
}

// buildSink assembles the transcript sinks enabled in cfg. db may be nil.
func buildSink(ctx context.Context, cfg config.ChatLogConfig, db *postgres.DB) (chatlog.Sink, error) {
	var sinks []chatlog.Sink

	if cfg.Enabled {
		file, err := chatlog.NewFileSink(cfg.Dir, chatlog.WithMaxAge(cfg.MaxAge))
		if err != nil {
			return nil, err
		}

		if cfg.Drive.Enabled {
			uploader, err := chatlog.NewDriveUploader(ctx, cfg.Drive.FolderID, cfg.Drive.CredentialsFile)
			if err != nil {
				file.Close()
				return nil, err
			}
			sinks = append(sinks, chatlog.NewUploadingSink(file, uploader))
		} else {
			sinks = append(sinks, file)
		}
	}

	if db != nil {
		sinks = append(sinks, postgres.NewChatLogSink(db.Pool))
	}

	if len(sinks) == 0 {
		log.Warn().Msg("Chat log disabled")
		return chatlog.NopSink{}, nil
	}
	return chatlog.NewMultiSink(sinks...), nil
}
