package main

// @title           ttpmap-core API
// @version         1.0
// @description     Threat report to ATT&CK technique mapping service. Ingests documents, segments them into sentences and proposes technique mappings for analyst review.

// @contact.name   Veridian Labs
// @contact.url    https://github.com/veridian-labs/ttpmap-core/issues

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Format: "Bearer {token}"

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/veridian-labs/ttpmap-core/internal/adapters/driven/auth"
	"github.com/veridian-labs/ttpmap-core/internal/adapters/driven/postgres"
	postgresqueue "github.com/veridian-labs/ttpmap-core/internal/adapters/driven/queue/postgres"
	redisqueue "github.com/veridian-labs/ttpmap-core/internal/adapters/driven/queue/redis"
	apihttp "github.com/veridian-labs/ttpmap-core/internal/adapters/driving/http"
	"github.com/veridian-labs/ttpmap-core/internal/classify"
	"github.com/veridian-labs/ttpmap-core/internal/config"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driven"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driving"
	"github.com/veridian-labs/ttpmap-core/internal/core/services"
	"github.com/veridian-labs/ttpmap-core/internal/extract"
	"github.com/veridian-labs/ttpmap-core/internal/observability/metrics"
	"github.com/veridian-labs/ttpmap-core/internal/runtime"
	"github.com/veridian-labs/ttpmap-core/internal/segment"
	"github.com/veridian-labs/ttpmap-core/internal/worker"
)

var version = "dev"

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// The first argument overrides the configured run mode and adds the
	// one-shot admin commands.
	mode := cfg.RunMode
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("ttpmap-core starting", "version", version, "mode", mode)

	if err := cfg.Validate(); err != nil && isServeMode(mode) {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	// ===== PostgreSQL =====
	db, err := postgres.Connect(ctx, postgres.DefaultConfig(cfg.DatabaseURL))
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.InitSchema(ctx); err != nil {
		logger.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}
	logger.Info("postgres connected")

	// ===== Redis (optional) =====
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("failed to parse redis url", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		logger.Info("redis connected")
	}

	// ===== Stores =====
	attackStore := postgres.NewAttackObjectStore(db)
	documentStore := postgres.NewDocumentStore(db)
	reportStore := postgres.NewReportStore(db)
	jobStore := postgres.NewJobStore(db)
	userStore := postgres.NewUserStore(db)

	// ===== Task queue (Redis if available, otherwise PostgreSQL) =====
	var taskQueue driven.TaskQueue
	if redisClient != nil {
		taskQueue, err = redisqueue.NewQueue(redisClient, fmt.Sprintf("worker-%d", os.Getpid()))
		if err != nil {
			logger.Error("failed to create task queue", "error", err)
			os.Exit(1)
		}
		logger.Info("using redis task queue")
	} else {
		taskQueue = postgresqueue.NewQueue(db.DB)
		logger.Info("using postgres task queue")
	}
	defer taskQueue.Close()

	// ===== Model registry =====
	models := runtime.NewModels()
	if model, err := classify.ReadFile(cfg.ModelPath); err == nil {
		models.Set(model, model.Info())
		logger.Info("classifier model loaded", "version", model.Version(), "path", cfg.ModelPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to load classifier model", "path", cfg.ModelPath, "error", err)
	} else {
		logger.Warn("no classifier model found; processing jobs will fail until one is trained", "path", cfg.ModelPath)
	}

	// ===== Services =====
	catalogService := services.NewCatalogService(attackStore, logger)
	if err := catalogService.Refresh(ctx); err != nil {
		logger.Warn("failed to load catalog snapshot", "error", err)
	}

	pipeline := services.NewPipeline(services.PipelineConfig{
		Extractors:       extract.Default(),
		Segmenter:        segment.New(),
		Models:           models,
		Policy:           services.NewDecisionPolicy(cfg.ConfidenceThreshold),
		ReportStore:      reportStore,
		DocumentStore:    documentStore,
		JobStore:         jobStore,
		Logger:           logger,
		InferConcurrency: cfg.InferConcurrency,
	})

	authAdapter := auth.NewAdapter(cfg.JWTSecret)
	authService := services.NewAuthService(userStore, authAdapter, logger)
	jobService := services.NewJobService(jobStore, documentStore, taskQueue, logger)
	reportService := services.NewReportService(reportStore, pipeline)
	trainingService := services.NewTrainingService(reportStore, catalogService, models, cfg.ModelPath, logger)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := authService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			logger.Error("failed to bootstrap admin user", "error", err)
			os.Exit(1)
		}
	}

	switch mode {
	case "api":
		m := metrics.New("api")
		runAPI(ctx, cfg, logger, m, authService, jobService, reportService, catalogService, trainingService, taskQueue, db)

	case "worker":
		m := metrics.New("worker")
		runWorkerMode(ctx, cfg, logger, m, taskQueue, pipeline)

	case "all":
		m := metrics.New("all")
		go runWorkerMode(ctx, cfg, logger, m, taskQueue, pipeline)
		runAPI(ctx, cfg, logger, m, authService, jobService, reportService, catalogService, trainingService, taskQueue, db)

	case "load-attack":
		runLoad(ctx, logger, os.Args, "usage: ttpmap-core load-attack <bundle.json>", func(f *os.File) error {
			count, err := catalogService.LoadBundle(ctx, f)
			if err != nil {
				return err
			}
			logger.Info("attack catalog loaded", "objects", count)
			return nil
		})

	case "load-training":
		runLoad(ctx, logger, os.Args, "usage: ttpmap-core load-training <corpus.json>", func(f *os.File) error {
			stats, err := trainingService.LoadCorpus(ctx, f)
			if err != nil {
				return err
			}
			logger.Info("training corpus loaded",
				"reports", stats.Reports,
				"sentences", stats.Sentences,
				"mappings", stats.Mappings,
			)
			return nil
		})

	case "train":
		info, err := trainingService.Train(ctx)
		if err != nil {
			logger.Error("training failed", "error", err)
			os.Exit(1)
		}
		logger.Info("model trained",
			"version", info.Version,
			"classes", info.Classes,
			"examples", info.Examples,
			"path", cfg.ModelPath,
		)

	default:
		logger.Error("unknown mode", "mode", mode,
			"valid", "api, worker, all, load-attack, load-training, train")
		os.Exit(1)
	}
}

func isServeMode(mode string) bool {
	return mode == "api" || mode == "worker" || mode == "all"
}

func runAPI(
	ctx context.Context,
	cfg config.Config,
	logger *slog.Logger,
	m *metrics.Metrics,
	authService driving.AuthService,
	jobService driving.JobService,
	reportService driving.ReportService,
	catalogService driving.CatalogService,
	trainingService driving.TrainingService,
	taskQueue driven.TaskQueue,
	db *postgres.DB,
) {
	port, err := strconv.Atoi(cfg.Port)
	if err != nil {
		logger.Error("invalid port", "port", cfg.Port)
		os.Exit(1)
	}

	server := apihttp.NewServer(
		apihttp.Config{
			Host:           "0.0.0.0",
			Port:           port,
			Version:        version,
			MaxUploadBytes: cfg.MaxUploadBytes,
		},
		logger,
		authService,
		jobService,
		reportService,
		catalogService,
		trainingService,
		taskQueue,
		db,
		m,
	)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Stop(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func runWorkerMode(
	ctx context.Context,
	cfg config.Config,
	logger *slog.Logger,
	m *metrics.Metrics,
	taskQueue driven.TaskQueue,
	pipeline *services.Pipeline,
) {
	w := worker.New(worker.Config{
		TaskQueue:   taskQueue,
		Pipeline:    pipeline,
		Metrics:     m,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
	})

	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	w.Stop()
}

func runLoad(ctx context.Context, logger *slog.Logger, args []string, usage string, fn func(*os.File) error) {
	if len(args) < 3 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	f, err := os.Open(args[2])
	if err != nil {
		logger.Error("failed to open input file", "path", args[2], "error", err)
		os.Exit(1)
	}
	defer f.Close()

	if err := fn(f); err != nil {
		logger.Error("load failed", "path", args[2], "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
