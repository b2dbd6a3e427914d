package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-statements/internal/app"
	jobmetrics "github.com/odyssey-erp/odyssey-statements/internal/jobs"
	"github.com/odyssey-erp/odyssey-statements/internal/ledger"
	"github.com/odyssey-erp/odyssey-statements/internal/observability"
	"github.com/odyssey-erp/odyssey-statements/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-statements/internal/platform/db"
	"github.com/odyssey-erp/odyssey-statements/internal/statements"
	"github.com/odyssey-erp/odyssey-statements/internal/statements/classify"
	"github.com/odyssey-erp/odyssey-statements/internal/statements/ratios"
	"github.com/odyssey-erp/odyssey-statements/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{
		MaxConns:        int32(cfg.WorkerConcurrency) + 2,
		ConnectTimeout:  10 * time.Second,
		ApplicationName: "statements-worker",
	})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	rules, err := classify.LoadRules(cfg.StatementsRulesFile)
	if err != nil {
		logger.Error("load classifier rules", slog.String("path", cfg.StatementsRulesFile), slog.Any("error", err))
		os.Exit(1)
	}

	ledgerRepo := ledger.NewRepository(pool)
	store := statements.NewCachedStore(statements.NewRepository(pool), redisClient, cfg.StatementsCacheTTL)
	if err := store.ListenForInvalidation(ctx); err != nil {
		logger.Warn("statement cache invalidation listener", slog.Any("error", err))
	}

	policy := statements.OrphanPolicyFail
	if cfg.ReportOrphans() {
		policy = statements.OrphanPolicyReport
	}
	service := statements.NewService(ledgerRepo, ledgerRepo, store,
		statements.WithLogger(logger),
		statements.WithClassifier(rules),
		statements.WithOrphanPolicy(policy),
		statements.WithAutoChain(cfg.StatementsAutoChain),
	)
	ratioEngine := ratios.NewEngine(service, rules)

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	generateJob := jobs.NewGenerateJob(service, logger, jobMetrics)
	closureJob := jobs.NewClosureCheckJob(service, cfg.DefaultBalanceteVersion, logger, jobMetrics)
	ratiosJob := jobs.NewRatiosJob(ratioEngine, cfg.DefaultBalanceteVersion, logger, jobMetrics)

	var cron []jobs.CronRegistration
	if cfg.ClosureCheckCron != "" {
		closureTask, err := jobs.NewClosureCheckTask(jobs.PeriodPayload{})
		if err != nil {
			logger.Error("build closure check task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{Spec: cfg.ClosureCheckCron, Task: closureTask})
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskGenerateStatement, Handler: generateJob.Handle},
			{Type: jobs.TaskClosureCheck, Handler: closureJob.Handle},
			{Type: jobs.TaskComputeRatios, Handler: ratiosJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	opsRouter := observability.NewRouter(metrics, map[string]observability.Check{
		"postgres": pool.Ping,
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	}, func(r chi.Router) {
		r.Route("/jobs", jobHandler.MountRoutes)
	})
	go func() {
		if err := observability.Serve(ctx, cfg.MetricsAddr, opsRouter, logger); err != nil {
			logger.Error("ops server", slog.Any("error", err))
			stop()
		}
	}()

	logger.Info("statements worker started",
		slog.Int("concurrency", cfg.WorkerConcurrency),
		slog.String("orphan_policy", string(policy)),
		slog.Bool("auto_chain", cfg.StatementsAutoChain),
	)
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
