package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ai-secretary/internal/api/http"
	"github.com/spec-kit/ai-secretary/internal/api/http/handlers"
	"github.com/spec-kit/ai-secretary/internal/apartment"
	"github.com/spec-kit/ai-secretary/internal/auth"
	"github.com/spec-kit/ai-secretary/internal/classifier"
	"github.com/spec-kit/ai-secretary/internal/config"
	"github.com/spec-kit/ai-secretary/internal/events"
	"github.com/spec-kit/ai-secretary/internal/observability"
	"github.com/spec-kit/ai-secretary/internal/persistence"
	"github.com/spec-kit/ai-secretary/internal/pii"
	"github.com/spec-kit/ai-secretary/internal/repository"
	"github.com/spec-kit/ai-secretary/internal/service"
	"github.com/spec-kit/ai-secretary/internal/sla"
	"github.com/spec-kit/ai-secretary/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ref, err := config.LoadReferenceData(cfg.ReferenceData)
	if err != nil {
		logger.Fatal("failed to load reference data", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()
	readiness := map[string]handlers.Pinger{}

	var (
		messageRepo repository.MessageRepository
		ticketRepo  repository.TicketRepository
	)
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()

		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		messageRepo = repository.NewMessageRepository(pg.PoolHandle())
		ticketRepo = repository.NewTicketRepository(pg.PoolHandle())
		readiness["postgres"] = pg
	default:
		logger.Info("using in-memory storage")
		messageRepo = repository.NewMemoryMessageRepository()
		ticketRepo = repository.NewMemoryTicketRepository()
	}

	var redisClient *goredis.Client
	if cfg.Redis.Enabled {
		rdb := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer rdb.Close()
		redisClient = rdb.Client
		readiness["redis"] = rdb
	}

	staffRepo := repository.NewStaffRepository(ref.Staff)
	dispatcher := events.NewInMemoryDispatcher(logger)

	var (
		llm      *classifier.LLMClassifier
		fallback classifier.Fallback
	)
	if cfg.LLM.Enabled {
		llm = classifier.NewLLMClassifier(classifier.LLMConfig{
			Enabled: true,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			APIKey:  cfg.LLM.APIKey,
		}, logger)
		fallback = llm
		if redisClient != nil {
			fallback = classifier.NewCachedFallback(llm, redisClient, cfg.LLM.CacheTTL(), logger)
		}
	}
	rules := classifier.NewRuleBased(nil)
	cls := classifier.New(rules, fallback, classifier.Options{
		Threshold:       cfg.LLM.Threshold,
		FallbackTimeout: cfg.LLM.Timeout(),
	}, logger, metrics)

	numbers := service.NewMemoryTicketNumberGenerator(ticketRepo)
	if redisClient != nil {
		numbers = service.NewRedisTicketNumberGenerator(redisClient, ticketRepo, logger)
	}

	assignment := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo: ticketRepo,
		StaffRepo:  staffRepo,
		Logger:     logger,
	})
	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		StaffRepo:  staffRepo,
		Assignment: assignment,
		SLA:        sla.NewEngine(ref.SLARules, logger),
		Rules:      rules,
		Numbers:    numbers,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	intake := service.NewIntakeService(service.IntakeDependencies{
		MessageRepo: messageRepo,
		Masker:      pii.NewMasker(logger, pii.WithFailClosed(cfg.PII.FailClosed)),
		Parser:      apartment.NewParser(logger),
		Classifier:  cls,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})
	integration := service.NewTicketIntegration(intake, tickets, logger)
	notifications := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartEventWorkers(dispatcher, integration, notifications)

	var monitor *worker.SLAMonitor
	if cfg.SLA.MonitorEnabled {
		monitor = worker.NewSLAMonitor(worker.SLAMonitorDependencies{
			Tickets:    tickets,
			Dispatcher: dispatcher,
			Metrics:    metrics,
			Logger:     logger,
		})
		if err := monitor.Start(cfg.SLA.MonitorCron); err != nil {
			logger.Fatal("failed to start sla monitor", zap.Error(err))
		}
	}

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{StaffRepo: staffRepo})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), staffRepo)

	var llmBackend handlers.LLMBackend
	if llm != nil {
		llmBackend = llm
	}

	app := httptransport.NewApp(cfg.App.Name)
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness),
		Intake:         handlers.NewIntakeHandler(intake),
		Tickets:        handlers.NewTicketsHandler(tickets, integration, cfg.SLA.UpcomingWindow()),
		Staff:          handlers.NewStaffHandler(authService, assignment),
		LLM:            handlers.NewLLMHandler(llmBackend),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("storage", cfg.Storage.Driver))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if monitor != nil {
		monitor.Stop(shutdownCtx)
	}
	_ = app.ShutdownWithContext(shutdownCtx)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
