// Package app wires configuration, storage, index and features into the HTTP
// surface and owns the server lifecycle.
package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"reactor/backend/features/chat"
	"reactor/backend/features/document"
	"reactor/backend/internal/config"
	"reactor/backend/internal/corpus"
	"reactor/backend/internal/embed"
	"reactor/backend/internal/index"
	"reactor/backend/internal/llm"
	"reactor/backend/internal/middleware"
	"reactor/backend/internal/retrieval"
	"reactor/backend/internal/text"
	"reactor/backend/internal/worker"
)

type App struct {
	Handler          http.Handler
	DocumentService  *document.Service
	RetrievalService *retrieval.Service

	cfg *config.Config
	db  *sql.DB
}

func New(
	ctx context.Context,
	cfg *config.Config,
	db *sql.DB,
	idx index.Index,
	pub worker.EventPublisher,
	logger *slog.Logger,
) (*App, error) {
	repo := corpus.NewPostgresRepo(db)

	embedder, err := buildEmbedder(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("embedder init: %w", err)
	}

	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}

	chunker := text.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	retrievalService := retrieval.NewService(repo, embedder, idx, chunker, retrieval.Options{
		TopK:             cfg.RetrieveTopK,
		MinScore:         cfg.RetrieveMinScore,
		EmbedTimeout:     time.Duration(cfg.EmbedTimeoutSeconds) * time.Second,
		EmbedConcurrency: cfg.EmbedConcurrency,
		EmbedBatchSize:   cfg.EmbedBatchSize,
	}, queryLogger)

	events := worker.NewIngestEvents(pub, logger)

	docService := document.NewService(repo, retrievalService, idx, events)
	docHandler := document.NewHandler(docService, cfg.MaxUploadSizeMB<<20)

	var llmClient llm.Client
	if cfg.LLMBaseURL != "" {
		llmClient = llm.NewOpenAIClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel)
	}
	chatService := chat.NewService(retrievalService, llmClient, chat.Options{
		TopK:                cfg.RetrieveTopK,
		MinScore:            cfg.RetrieveMinScore,
		ContextBudget:       cfg.ContextBudget,
		DegradeOnEmbedError: cfg.DegradeOnEmbedError,
	})
	chatHandler := chat.NewHandler(chatService)

	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	app := &App{
		DocumentService:  docService,
		RetrievalService: retrievalService,
		cfg:              cfg,
		db:               db,
	}

	mux := http.NewServeMux()

	mux.Handle("POST /documents", middleware.CorrelationID(enableCORS(docHandler.Create)))
	mux.Handle("POST /documents/upload", middleware.CorrelationID(enableCORS(docHandler.Upload)))
	mux.Handle("GET /documents", middleware.CorrelationID(enableCORS(docHandler.List)))
	mux.Handle("GET /documents/{id}", middleware.CorrelationID(enableCORS(docHandler.Get)))
	mux.Handle("DELETE /documents/{id}", middleware.CorrelationID(enableCORS(docHandler.Delete)))

	mux.Handle("POST /chat", middleware.CorrelationID(enableCORS(chatHandler.Chat)))
	mux.Handle("GET /models", middleware.CorrelationID(enableCORS(chatHandler.Models)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("GET /ready", app.handleReady)

	app.Handler = mux
	return app, nil
}

func buildEmbedder(ctx context.Context, cfg *config.Config) (embed.Embedder, error) {
	switch cfg.EmbedderBackend {
	case "openai":
		return embed.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.EmbedDimension), nil
	default:
		return embed.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.EmbedDimension)
	}
}

// handleReady reports whether the document store and similarity index are
// initialized and reachable. Liveness stays on /health.
func (a *App) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	ready := a.db.PingContext(ctx) == nil

	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(map[string]bool{"is_ready": ready}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.ServerPort),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.cfg.ServerPort)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
