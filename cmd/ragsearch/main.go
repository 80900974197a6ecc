package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragsearch/internal/config"
	"github.com/kailas-cloud/ragsearch/internal/db"
	dbRedis "github.com/kailas-cloud/ragsearch/internal/db/redis"
	logpkg "github.com/kailas-cloud/ragsearch/internal/logger"
	"github.com/kailas-cloud/ragsearch/internal/metrics"
	"github.com/kailas-cloud/ragsearch/internal/repository/cache"
	"github.com/kailas-cloud/ragsearch/internal/repository/querylog"
	ratelimitrepo "github.com/kailas-cloud/ragsearch/internal/repository/ratelimit"
	"github.com/kailas-cloud/ragsearch/internal/repository/vectorindex"
	chiTransport "github.com/kailas-cloud/ragsearch/internal/transport/chi"
	openaiProvider "github.com/kailas-cloud/ragsearch/internal/transport/openai"
	"github.com/kailas-cloud/ragsearch/internal/transport/pinecone"
	healthuc "github.com/kailas-cloud/ragsearch/internal/usecase/health"
	queryuc "github.com/kailas-cloud/ragsearch/internal/usecase/query"
	ratelimituc "github.com/kailas-cloud/ragsearch/internal/usecase/ratelimit"
	"github.com/kailas-cloud/ragsearch/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()
	if *cfg.Logging.MaskPII {
		logger = logpkg.WithMasking(logger, logpkg.MaskPII, logpkg.QueryFields...)
	}

	logger.Info("Starting ragsearch API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("vector_index", cfg.VectorIndex.Driver),
		zap.String("site", cfg.Site.Domain),
	)
	if cfg.Site.Domain == "" {
		logger.Warn("site.domain is empty; queries will fail as not configured")
	}

	// Redis and Valkey speak the same protocol; rueidis serves both.
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, config.Seconds(cfg.Database.ReadinessTimeout)); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterProviderMetrics()
	metrics.RegisterPipelineMetrics()

	provider := openaiProvider.NewClient(&openaiProvider.Config{
		APIKey:            cfg.OpenAI.APIKey,
		BaseURL:           cfg.OpenAI.BaseURL,
		EmbeddingModel:    cfg.OpenAI.EmbeddingModel,
		Dimensions:        cfg.OpenAI.EmbeddingDimensions,
		ChatModel:         cfg.OpenAI.ChatModel,
		Timeout:           config.Seconds(cfg.OpenAI.TimeoutSec),
		RequestsPerSecond: cfg.OpenAI.RequestsPerSecond,
		Logger:            logger,
	})

	index, err := buildVectorIndex(ctx, cfg, store, logger)
	if err != nil {
		logger.Fatal("Failed to prepare vector index", zap.Error(err))
	}

	// Pass nil interfaces (not typed nil pointers) when a dependency is not configured.
	var embedder queryuc.Embedder
	if cfg.OpenAI.APIKey != "" {
		embedder = provider
	} else {
		logger.Warn("openai.api_key is empty; queries will fail as not configured")
	}
	var completer queryuc.ChatCompleter = provider

	if *cfg.Cache.Enabled && embedder != nil {
		c := cache.New(store, cfg.Cache.KeyPrefix, logger)
		embedder = cache.NewEmbedder(provider, c, config.Seconds(cfg.Cache.WarmTTL))
		if index != nil {
			index = cache.NewIndex(index, c, config.Seconds(cfg.Cache.HotTTL))
		}
	}

	var recorder *querylog.Recorder
	if cfg.QueryLog.Enabled {
		recorder = querylog.New(store, querylog.Config{
			Buffer:     cfg.QueryLog.Buffer,
			MaxEntries: int64(cfg.QueryLog.MaxEntries),
			Mask:       logpkg.Masker(*cfg.Logging.MaskPII),
		}, logger)
		defer recorder.Close()
	}

	counters := ratelimitrepo.New(store)
	window := config.Seconds(cfg.RateLimit.WindowSec)
	pipelineOpts := func(profile queryuc.Profile, limit int) []queryuc.Option {
		var opts []queryuc.Option
		if *cfg.RateLimit.Enabled {
			opts = append(opts, queryuc.WithLimiter(
				ratelimituc.NewLimiter(counters, string(profile), limit, window, logger),
			))
		}
		if recorder != nil {
			opts = append(opts, queryuc.WithRecorder(recorder))
		}
		return opts
	}

	searchCfg := cfg.SearchPipeline()
	if err := searchCfg.Validate(); err != nil {
		logger.Fatal("Invalid search pipeline config", zap.Error(err))
	}
	search := queryuc.New(searchCfg, embedder, index, completer,
		logger.Named("search"), pipelineOpts(queryuc.ProfileSearch, cfg.RateLimit.Limit)...)

	var chat chiTransport.Querier
	if *cfg.Chat.Enabled {
		chatCfg := cfg.ChatPipeline()
		if err := chatCfg.Validate(); err != nil {
			logger.Fatal("Invalid chat pipeline config", zap.Error(err))
		}
		chat = queryuc.New(chatCfg, embedder, index, completer,
			logger.Named("chat"), pipelineOpts(queryuc.ProfileChat, cfg.RateLimit.ChatLimit)...)
	}

	healthSvc := healthuc.New(healthuc.DefaultTimeout,
		healthuc.Probe{Name: "database", Checker: healthuc.CheckerFunc(store.Ping), Critical: true},
		healthuc.Probe{Name: "embedding", Checker: provider},
	)

	trusted, err := ratelimituc.ParseTrustedProxies(cfg.TrustedProxies())
	if err != nil {
		logger.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	server := chiTransport.NewServer(search, chat, healthSvc, trusted, logger)
	router := chiTransport.NewRouter(server, chiTransport.RouterConfig{APIKeys: cfg.Auth.APIKeys}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  config.Seconds(cfg.HTTP.ReadTimeoutSec),
		WriteTimeout: config.Seconds(cfg.HTTP.WriteTimeoutSec),
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Seconds(cfg.HTTP.ShutdownSec))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildVectorIndex selects the similarity backend. The redis backend creates its
// FT index on first start.
func buildVectorIndex(ctx context.Context, cfg config.Config, store db.Store, logger *zap.Logger) (queryuc.VectorIndex, error) {
	switch cfg.VectorIndex.Driver {
	case "pinecone":
		if cfg.VectorIndex.PineconeAPIKey == "" {
			logger.Warn("vector_index.pinecone_api_key is empty; queries will fail as not configured")
			return nil, nil
		}
		return pinecone.NewClient(&pinecone.Config{
			Host:              cfg.VectorIndex.PineconeHost,
			APIKey:            cfg.VectorIndex.PineconeAPIKey,
			Namespace:         cfg.VectorIndex.PineconeNamespace,
			Timeout:           config.Seconds(cfg.VectorIndex.TimeoutSec),
			RequestsPerSecond: cfg.VectorIndex.RequestsPerSecond,
			Logger:            logger,
		}), nil
	default:
		repo := vectorindex.New(store, vectorindex.Config{
			IndexName:          cfg.VectorIndex.IndexName,
			KeyPrefix:          cfg.VectorIndex.KeyPrefix,
			Dimensions:         cfg.OpenAI.EmbeddingDimensions,
			HNSWM:              cfg.VectorIndex.HNSWM,
			HNSWEFConstruction: cfg.VectorIndex.HNSWEFConstruct,
			EFRuntime:          cfg.VectorIndex.EFRuntime,
		})
		if err := repo.EnsureIndex(ctx); err != nil {
			return nil, fmt.Errorf("ensure index: %w", err)
		}
		logger.Info("Vector index ready", zap.String("index", cfg.VectorIndex.IndexName))
		return repo, nil
	}
}
