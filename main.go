package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/migrations"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/audit"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/config"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/database"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/embedding"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/extraction"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/handlers"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/intent"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/llm"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/logging"
	mcpserver "github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/mcp"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/mcp/tools"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/middleware"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/repositories"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.String("error", logging.SanitizeError(err)))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.URL())),
		zap.String("narrative_provider", cfg.Narrative.Provider),
		zap.Bool("embedding_provider", cfg.Embedding.UsesProvider()),
		zap.Bool("redis", cfg.Redis.Host != ""),
		zap.String("home_country_code", cfg.Search.HomeCountryCode),
	)

	db, err := database.NewConnection(ctx, &database.Config{
		URL:              cfg.Database.URL(),
		MaxConnections:   cfg.Database.MaxConnections,
		StatementTimeout: cfg.Database.StatementTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := database.RunMigrations(stdlib.OpenDBFromPool(db.Pool), migrations.FS, logger); err != nil {
		return err
	}

	redisClient, err := database.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	embedder, err := newEmbedder(cfg, redisClient, logger)
	if err != nil {
		return err
	}

	narrator, err := llm.NewNarrativeGenerator(&cfg.Narrative, llm.NewCircuitBreaker(llm.CircuitBreakerConfig{
		Name:       "narrative",
		Threshold:  cfg.CircuitBreaker.Threshold,
		ResetAfter: cfg.CircuitBreaker.ResetAfter,
	}), logger)
	if err != nil {
		return err
	}

	scopes := database.NewScopeProvider(db)
	phones := extraction.NewPhoneClassifier(cfg.Search.HomeCountryCode)

	caseRepo := repositories.NewCaseRepository()
	chatRepo := repositories.NewChatRepository()
	callRepo := repositories.NewCallRepository()
	contactRepo := repositories.NewContactRepository()
	mediaRepo := repositories.NewMediaRepository()
	entityRepo := repositories.NewEntityRepository()
	queryRepo := repositories.NewQueryRepository()

	retrieval := services.NewRetrievalService(
		chatRepo, callRepo, contactRepo, mediaRepo, entityRepo,
		embedder, extraction.NewExtractor(), phones,
		services.RetrievalConfig{
			SemanticThreshold: cfg.Search.SemanticThreshold,
			ScanLimit:         cfg.Search.ScanLimit,
		},
		logger,
	)
	var summaryGen services.NarrativeGenerator
	if narrator != nil {
		summaryGen = narrator
	}
	queryService := services.NewQueryService(
		scopes, caseRepo, queryRepo, retrieval,
		intent.NewKeywordClassifier(nil),
		services.NewSummaryComposer(summaryGen, logger),
		audit.NewSecurityAuditor(logger),
		logger,
	)
	analyticsService := services.NewAnalyticsService(
		caseRepo, chatRepo, callRepo, contactRepo, mediaRepo,
		phones, cfg.Search.Location(), cfg.Search.ScanLimit, logger,
	)
	historyService := services.NewHistoryService(caseRepo, queryRepo, logger)
	entityService := services.NewEntityService(entityRepo, logger)
	backfillService := services.NewBackfillService(
		caseRepo, chatRepo, embedder,
		llm.NewWorkerPool(llm.WorkerPoolConfig{MaxConcurrent: cfg.Search.BackfillConcurrency}, logger),
		0, logger,
	)

	mux := http.NewServeMux()
	scoped := database.WithScopedConnection(scopes, logger)

	checks := map[string]handlers.PingFunc{"database": db.Ping}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	handlers.NewHealthHandler(cfg, checks, logger).RegisterRoutes(mux)
	handlers.NewQueriesHandler(queryService, logger).RegisterRoutes(mux)
	handlers.NewCasesHandler(historyService, analyticsService, backfillService, logger).RegisterRoutes(mux, scoped)
	handlers.NewEntityHandler(entityService, logger).RegisterRoutes(mux, scoped)
	mux.Handle("GET /metrics", promhttp.Handler())

	auditor := mcpserver.NewToolAuditor(logger)
	mcp := mcpserver.NewServer("forensic-query-engine", cfg.Version, auditor.Hooks(), logger)
	tools.RegisterForensicTools(mcp.MCP(), &tools.ForensicToolDeps{
		Query:     queryService,
		Analytics: analyticsService,
		Scopes:    scopes,
		Logger:    logger,
	})
	tools.RegisterHealthTool(mcp.MCP(), cfg.Version, tools.Capabilities{
		Narrative:      narrator != nil,
		SemanticSearch: cfg.Embedding.UsesProvider(),
	})
	mux.Handle("/mcp", middleware.MCPRequestLogger(logger)(mcp.NewStreamableHTTPServer()))

	srv := &http.Server{
		Addr: net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler: middleware.Chain(mux,
			middleware.ClientIP(),
			middleware.Metrics(),
			middleware.RequestLogger(logger),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting forensic query engine",
			zap.String("addr", srv.Addr),
			zap.String("version", cfg.Version))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newEmbedder picks the vector cache (redis when configured, otherwise
// in-process LRU) and wraps the configured provider in a Gateway. Without an
// endpoint the gateway embeds with the local hashing embedder.
func newEmbedder(cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) (embedding.Embedder, error) {
	var cache embedding.Cache
	if redisClient != nil {
		cache = embedding.NewRedisCache(redisClient, cfg.Embedding.CacheTTL, logger)
	} else {
		lru, err := embedding.NewLRUCache(cfg.Embedding.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create embedding cache: %w", err)
		}
		cache = lru
	}

	var provider embedding.Provider
	if cfg.Embedding.UsesProvider() {
		client, err := llm.NewClient(&llm.Config{
			Endpoint: cfg.Embedding.Endpoint,
			Model:    cfg.Embedding.Model,
			APIKey:   cfg.Embedding.APIKey,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("create embedding client: %w", err)
		}
		provider = client
	}

	breaker := llm.NewCircuitBreaker(llm.CircuitBreakerConfig{
		Name:       "embedding",
		Threshold:  cfg.CircuitBreaker.Threshold,
		ResetAfter: cfg.CircuitBreaker.ResetAfter,
	})
	return embedding.NewGateway(provider, cache, breaker, embedding.GatewayConfig{
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    cfg.Embedding.Timeout,
	}, logger), nil
}
