package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/kbgate/internal/config"
	dbRedis "github.com/kailas-cloud/kbgate/internal/db/redis"
	logpkg "github.com/kailas-cloud/kbgate/internal/logger"
	"github.com/kailas-cloud/kbgate/internal/metrics"
	"github.com/kailas-cloud/kbgate/internal/repository/promptcache"
	"github.com/kailas-cloud/kbgate/internal/repository/staging"
	"github.com/kailas-cloud/kbgate/internal/repository/vectorindex"
	chiTransport "github.com/kailas-cloud/kbgate/internal/transport/chi"
	"github.com/kailas-cloud/kbgate/internal/transport/kendra"
	openaiProvider "github.com/kailas-cloud/kbgate/internal/transport/openai"
	answeruc "github.com/kailas-cloud/kbgate/internal/usecase/answer"
	chunkuc "github.com/kailas-cloud/kbgate/internal/usecase/chunk"
	healthuc "github.com/kailas-cloud/kbgate/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/kbgate/internal/usecase/ingest"
	retrievaluc "github.com/kailas-cloud/kbgate/internal/usecase/retrieval"
	"github.com/kailas-cloud/kbgate/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting kbgate API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register domain metrics explicitly (no init())
	metrics.RegisterRetrievalMetrics()

	// Model provider — one config, two clients
	providerCfg := &openaiProvider.Config{
		APIKey:         cfg.OpenAI.APIKey,
		BaseURL:        cfg.OpenAI.BaseURL,
		EmbeddingModel: cfg.OpenAI.EmbeddingModel,
		ChatModel:      cfg.OpenAI.ChatModel,
		Dimensions:     cfg.OpenAI.Dimensions,
		Logger:         logger,
	}
	embedder := openaiProvider.NewEmbedder(providerCfg)
	completer := openaiProvider.NewCompleter(providerCfg)
	logger.Info("Model provider clients created",
		zap.String("embedding_model", cfg.OpenAI.EmbeddingModel),
		zap.String("chat_model", cfg.OpenAI.ChatModel),
		zap.Int("dimensions", cfg.OpenAI.Dimensions),
	)

	// Repositories
	vecRepo := vectorindex.New(store, embedder, cfg.Backends.VectorIndex.IndexName, logger)
	stagingRepo := staging.New(store)
	cache := promptcache.New(
		time.Duration(cfg.Cache.PromptTTLMin)*time.Minute,
		metrics.PromptCacheTotal,
	)

	// Secondary index is optional; pass nil interface (not typed nil
	// pointer!) when it is not configured.
	var keywordIdx retrievaluc.KeywordIndex
	var kendraClient *kendra.Client
	if cfg.Backends.KeywordIndex.BaseURL != "" {
		kendraClient = kendra.New(kendra.Config{
			BaseURL: cfg.Backends.KeywordIndex.BaseURL,
			APIKey:  cfg.Backends.KeywordIndex.APIKey,
			Timeout: time.Duration(cfg.Backends.KeywordIndex.TimeoutSec) * time.Second,
		}, logger)
		keywordIdx = kendraClient
		logger.Info("Keyword index enabled", zap.String("base_url", cfg.Backends.KeywordIndex.BaseURL))
	}

	// Use case services
	retrievalSvc := retrievaluc.New(
		vecRepo, keywordIdx,
		time.Duration(cfg.Backends.TimeoutSec)*time.Second,
		logger,
	)
	answerSvc := answeruc.New(completer, cache, logger)
	healthSvc := healthuc.New(store, embedder)

	// Ingestion pulls from the keyword index; without it there is
	// nothing to sync.
	var ingestSvc *ingestuc.Service
	if kendraClient != nil {
		ingestSvc = ingestuc.New(kendraClient, stagingRepo, vecRepo, logger)
	}

	splitter := chunkuc.New(stagingRepo, chunkuc.NewTextParser(), cfg.Ingestion.PageLimit, logger)

	server := chiTransport.NewServer(retrievalSvc, answerSvc, ingestSvc, healthSvc)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.RegisterRoutes(r)

	// Background sync loop
	syncCtx, stopSync := context.WithCancel(ctx)
	defer stopSync()
	if ingestSvc != nil && cfg.Ingestion.SyncIntervalMin > 0 {
		go runSyncLoop(syncCtx, ingestSvc, splitter,
			time.Duration(cfg.Ingestion.SyncIntervalMin)*time.Minute, logger)
	}

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")
	stopSync()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// runSyncLoop splits any waiting uploads and pulls the source index on
// a fixed interval until ctx is canceled.
func runSyncLoop(
	ctx context.Context,
	ingestSvc *ingestuc.Service,
	splitter *chunkuc.Service,
	interval time.Duration,
	logger *zap.Logger,
) {
	logger.Info("Background sync enabled", zap.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if n, err := splitter.Sweep(ctx); err != nil {
			logger.Warn("chunk sweep failed", zap.Error(err))
		} else if n > 0 {
			logger.Info("chunk sweep complete", zap.Int("processed", n))
		}

		report, err := ingestSvc.Sync(ctx)
		if err != nil {
			logger.Warn("scheduled sync failed", zap.Error(err))
			continue
		}
		logger.Info("scheduled sync complete",
			zap.String("job_id", report.JobID),
			zap.Int("processed", report.Processed),
			zap.Int("failed", report.Failed))
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
