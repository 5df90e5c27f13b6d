package api

import (
	"net/http"

	"github.com/Rrens/groqchat/internal/api/handler"
	customMiddleware "github.com/Rrens/groqchat/internal/api/middleware"
	"github.com/Rrens/groqchat/internal/config"
	"github.com/Rrens/groqchat/internal/llm"
	"github.com/Rrens/groqchat/internal/metrics"
	"github.com/Rrens/groqchat/internal/security"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the collaborators the HTTP surface is built from
type Dependencies struct {
	Config      *config.Config
	Chat        handler.ChatService
	LLMRouter   *llm.Router
	Tokens      *security.SessionTokenManager
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	RateLimiter customMiddleware.Limiter
	Readiness   map[string]handler.Pinger
	Page        handler.PageInfo
}

// NewRouter creates and configures the HTTP router
func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	if deps.Metrics != nil {
		r.Use(customMiddleware.Metrics(deps.Metrics))
	}
	if cfg.Server.MiddlewareTimeout > 0 {
		r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))
	}

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	sessionMiddleware := customMiddleware.NewSessionMiddleware(
		deps.Tokens,
		cfg.Session.CookieName,
		cfg.Session.CookieSecure,
	)

	// limit is a no-op unless a limiter is configured
	limit := func(next http.Handler) http.Handler { return next }
	if deps.RateLimiter != nil {
		limit = customMiddleware.NewRateLimitMiddleware(deps.RateLimiter).Limit
	}

	chatHandler := handler.NewChatHandler(deps.Chat)
	pageHandler := handler.NewPageHandler(deps.Chat, deps.Page)

	if cfg.Metrics.Enabled && deps.Gatherer != nil {
		r.Method(http.MethodGet, cfg.Metrics.Path, promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	// Browser page
	r.Group(func(r chi.Router) {
		r.Use(sessionMiddleware.Identify)

		r.Get("/", pageHandler.Index)
		r.With(limit).Post("/chat", pageHandler.Submit)
		r.Post("/chat/reset", pageHandler.Reset)
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(deps.Readiness))

		// LLM providers
		r.Get("/llm-providers", handler.ListLLMProviders(deps.LLMRouter))

		r.Route("/chat", func(r chi.Router) {
			r.Use(sessionMiddleware.Identify)

			r.Get("/session", chatHandler.GetSession)
			r.With(limit).Post("/messages", chatHandler.SendMessage)
			r.Post("/reset", chatHandler.ResetSession)
		})
	})

	return r
}
