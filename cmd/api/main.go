// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/streamchat-ai/chat-backend/internal/admission"
	"github.com/streamchat-ai/chat-backend/internal/config"
	"github.com/streamchat-ai/chat-backend/internal/extract"
	"github.com/streamchat-ai/chat-backend/internal/handler"
	"github.com/streamchat-ai/chat-backend/internal/journal"
	"github.com/streamchat-ai/chat-backend/internal/llm"
	"github.com/streamchat-ai/chat-backend/internal/middleware"
	"github.com/streamchat-ai/chat-backend/internal/service"
	"github.com/streamchat-ai/chat-backend/internal/store"
	"github.com/streamchat-ai/chat-backend/pkg/logger"
	"github.com/streamchat-ai/chat-backend/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "chat-backend", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Select the conversation store
	var st store.ConversationStore
	switch cfg.StoreBackend {
	case "memory":
		st = store.NewMemory()
		log.Warn("using in-memory store, conversations will not survive restarts")
	default:
		st, err = store.NewSQLite(cfg.SQLitePath)
		if err != nil {
			log.Error("failed to open store", zap.Error(err))
			os.Exit(1)
		}
	}
	defer st.Close()

	// Connect the turn journal when configured
	var jnl journal.Journal = journal.Nop{}
	if cfg.NATSURL != "" {
		natsJournal, err := journal.Connect(ctx, journal.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Warn("failed to connect journal, turn events disabled", zap.Error(err))
		} else {
			jnl = natsJournal
			defer natsJournal.Close()
		}
	}

	// Register provider backends
	registry := llm.NewRegistry()
	var nvidia *llm.OpenAIClient

	if cfg.AnthropicAPIKey != "" {
		client, err := llm.NewAnthropicClient(cfg.AnthropicAPIKey)
		if err != nil {
			log.Warn("failed to create Anthropic client", zap.Error(err))
		} else {
			registry.Register(client, "claude")
		}
	}
	if cfg.OpenAIAPIKey != "" {
		client, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey)
		if err != nil {
			log.Warn("failed to create OpenAI client", zap.Error(err))
		} else {
			registry.Register(client, "gpt", "openai")
		}
	}
	if cfg.NVIDIAAPIKey != "" {
		nvidia, err = llm.NewOpenAICompatibleClient("nvidia", cfg.NVIDIAAPIKey,
			"https://integrate.api.nvidia.com/v1",
			[]string{"meta/llama-3.2-3b-instruct", "meta/llama-3.1-70b-instruct", cfg.VisionModel},
		)
		if err != nil {
			log.Warn("failed to create NVIDIA client", zap.Error(err))
		} else {
			registry.Register(nvidia, "nvidia", "llama", "nemotron")
			registry.SetFallback(nvidia)
		}
	}
	if cfg.XAIAPIKey != "" {
		client, err := llm.NewOpenAICompatibleClient("xai", cfg.XAIAPIKey,
			"https://api.x.ai/v1",
			[]string{"grok-2-latest", "grok-2-vision-latest"},
		)
		if err != nil {
			log.Warn("failed to create xAI client", zap.Error(err))
		} else {
			registry.Register(client, "grok", "xai")
		}
	}
	if cfg.DeepSeekAPIKey != "" {
		client, err := llm.NewOpenAICompatibleClient("deepseek", cfg.DeepSeekAPIKey,
			"https://api.deepseek.com/v1",
			[]string{"deepseek-chat", "deepseek-coder"},
		)
		if err != nil {
			log.Warn("failed to create DeepSeek client", zap.Error(err))
		} else {
			registry.Register(client, "deepseek")
		}
	}

	// Vision extraction runs through the NVIDIA backend
	var vision llm.Client
	if nvidia != nil {
		vision = nvidia
	}
	extractor := extract.NewService(vision, cfg.VisionModel)

	// Initialize core services
	assembler := service.NewHistoryAssembler(st, cfg.ContextWindowSize, cfg.ContextTokenBudget)
	admitter := admission.NewFixedWindow(cfg.RateLimitRequests, cfg.RateLimitWindow)
	pipeline := service.NewTurnPipeline(st, assembler, registry, extractor, admitter, jnl, log, service.TurnConfig{
		MaxMessageChars:   cfg.MaxMessageChars,
		MaxUploadBytes:    cfg.MaxUploadBytes,
		AllowedExtensions: cfg.AllowedExtensions,
		DefaultModel:      cfg.DefaultModel,
		ProviderTimeout:   cfg.ProviderTimeout,
		RetryAttempts:     cfg.RetryAttempts,
		RetryBackoff:      cfg.RetryBackoff,
	})
	conversationSvc := service.NewConversationService(st, registry, log, cfg.DefaultModel)

	// Initialize handlers
	chatHandler := handler.NewChatHandler(conversationSvc, log)
	turnHandler := handler.NewTurnHandler(pipeline, log, cfg.MaxUploadBytes)
	healthHandler := handler.NewHealthHandler(registry, jnl, cfg.StoreBackend, vision != nil)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Open endpoints
	r.Get("/api/health", healthHandler.Health)
	r.Get("/api/models", healthHandler.Models)
	r.Handle("/metrics", promhttp.Handler())

	// Chat endpoints require authentication
	r.Route("/api/chats", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))

		r.Get("/", chatHandler.List)
		r.Post("/", chatHandler.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", chatHandler.Delete)
			r.Get("/messages", chatHandler.Messages)

			// Turn endpoints carry the edge rate limit
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
				r.Post("/messages", turnHandler.Send)
				r.Post("/upload", turnHandler.Upload)
			})
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
