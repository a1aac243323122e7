package main

import (
	"context"
	"log"
	"os"
	"strings"

	"discoverydraft-backend/config"
	"discoverydraft-backend/handlers"
	"discoverydraft-backend/metrics"
	"discoverydraft-backend/pipeline"
	"discoverydraft-backend/renderer"
	"discoverydraft-backend/repository"
	"discoverydraft-backend/service"
	"discoverydraft-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Load .env file from project root (relative to cmd/server/)
	// Try current directory first, then project root
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			log.Printf("Warning: No .env file found, using environment variables")
		}
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Run store: Postgres unless RUN_STORE=memory
	var runs service.RunStore
	if strings.EqualFold(os.Getenv("RUN_STORE"), "memory") {
		runs = repository.NewMemoryRunRepository()
		logger.Warn("using in-memory run store; runs are lost on restart")
	} else {
		db, err := initPostgres(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to initialize Postgres", zap.Error(err))
		}
		defer db.Close()
		runs = repository.NewRunRepository(db)
		logger.Info("postgres connection established")
	}

	// Initialize storage
	archive, err := storage.NewStorageFromEnv()
	if err != nil {
		logger.Fatal("failed to initialize storage", zap.Error(err))
	}
	logger.Info("storage initialized")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	pipelineOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(collector),
	}
	if cfg.Pipeline.RendererEndpoint != "" {
		client, err := renderer.NewClient(cfg.Pipeline.RendererEndpoint,
			renderer.WithToken(cfg.Pipeline.RendererToken),
			renderer.WithLogger(logger),
		)
		if err != nil {
			logger.Fatal("failed to initialize renderer client", zap.Error(err))
		}
		pipelineOpts = append(pipelineOpts, pipeline.WithRenderer(client))
	} else {
		logger.Warn("RENDERER_URL not set; runs will fail at dispatch")
	}

	p, err := pipeline.New(cfg.Pipeline, pipelineOpts...)
	if err != nil {
		logger.Fatal("failed to build pipeline", zap.Error(err))
	}

	// Initialize services
	discoveryService := service.NewDiscoveryService(
		service.WithRunStore(runs),
		service.WithArchive(archive),
		service.WithPipeline(p),
		service.WithLogger(logger),
		service.WithContinueOnFailure(cfg.Pipeline.ContinueOnFailure),
	)

	// Initialize handlers
	discoveryHandler := handlers.NewDiscoveryHandler(discoveryService, handlers.WithHandlerLogger(logger))
	r := handlers.NewRouter(discoveryHandler, reg)

	logger.Info("server starting",
		zap.String("port", cfg.Port),
		zap.String("taxonomy_version", p.Registry().Version()),
	)
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func initPostgres(connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
