// Package app wires the process together: config, storage, clients,
// services, handlers, and the background worker.
package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/launchsignal/validator-backend/internal/data/db"
	"github.com/launchsignal/validator-backend/internal/data/repos"
	httpserver "github.com/launchsignal/validator-backend/internal/http"
	httpH "github.com/launchsignal/validator-backend/internal/http/handlers"
	httpMW "github.com/launchsignal/validator-backend/internal/http/middleware"
	"github.com/launchsignal/validator-backend/internal/jobs/pipeline"
	"github.com/launchsignal/validator-backend/internal/jobs/runtime"
	"github.com/launchsignal/validator-backend/internal/jobs/worker"
	"github.com/launchsignal/validator-backend/internal/modules/validator"
	"github.com/launchsignal/validator-backend/internal/modules/validator/regen"
	"github.com/launchsignal/validator-backend/internal/modules/validator/scorer"
	"github.com/launchsignal/validator-backend/internal/observability"
	"github.com/launchsignal/validator-backend/internal/platform/envutil"
	"github.com/launchsignal/validator-backend/internal/platform/gemini"
	"github.com/launchsignal/validator-backend/internal/platform/logger"
	"github.com/launchsignal/validator-backend/internal/realtime"
	"github.com/launchsignal/validator-backend/internal/realtime/bus"
	"github.com/launchsignal/validator-backend/internal/services"
)

type App struct {
	Log    *logger.Logger
	Cfg    Config
	DB     *gorm.DB
	Hub    *realtime.SSEHub
	Server *httpserver.Server
	Worker *worker.Worker

	bus          bus.Bus
	traceCleanup func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	traceCleanup := observability.InitTracing(context.Background(), log, observability.TracingConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	gdb := pg.DB()
	if err := db.AutoMigrateAll(gdb); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}

	reposet := repos.New(gdb, log)
	hub := realtime.NewSSEHub(log)

	// SSE event routing: with a Redis bus configured, workers publish and
	// the API process forwards into its hub, so a worker-only process never
	// holds client connections. Without one, everything stays in-process.
	var sseBus bus.Bus
	if envutil.String("REDIS_ADDR", "") != "" {
		sseBus, err = bus.NewRedisBus(log)
		if err != nil {
			log.Sync()
			return nil, fmt.Errorf("init redis bus: %w", err)
		}
	}
	var emitter services.SSEEmitter
	switch {
	case sseBus != nil && cfg.RunWorker && !cfg.RunServer:
		emitter = &services.RedisEmitter{Bus: sseBus}
	default:
		emitter = &services.HubEmitter{Hub: hub}
	}

	jobNotifier := services.NewJobNotifier(emitter)
	pipelineNotifier := services.NewPipelineNotifier(emitter)

	oracle, err := gemini.New(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	dimensionScorer := scorer.New(oracle, scorer.DefaultPolicy(), cfg.CallTimeout, log)
	validatorService := validator.NewService(
		log,
		dimensionScorer,
		cfg.Scoring,
		cfg.ScorerStagger,
		reposet.Session,
		reposet.Report,
		pipelineNotifier,
	)
	regenController := regen.NewController(log, validatorService)

	registry := runtime.NewRegistry()
	if err := pipeline.RegisterAll(registry, log, validatorService, regenController); err != nil {
		log.Sync()
		return nil, fmt.Errorf("register job handlers: %w", err)
	}
	jobWorker := worker.NewWorker(gdb, log, reposet.JobRun, registry, jobNotifier)

	app := &App{
		Log:          log,
		Cfg:          cfg,
		DB:           gdb,
		Hub:          hub,
		Worker:       jobWorker,
		bus:          sseBus,
		traceCleanup: traceCleanup,
	}

	if cfg.RunServer {
		authService, err := services.NewAuthService(log, cfg.JWTSecret, cfg.JWTIssuer)
		if err != nil {
			log.Sync()
			return nil, err
		}
		sessionService := services.NewSessionService(log, reposet.Session)
		jobService := services.NewJobService(log, reposet.JobRun, jobNotifier)

		sessionHandler := httpH.NewSessionHandler(sessionService, jobService)
		app.Server = httpserver.NewServer(httpserver.RouterConfig{
			Log:             log,
			ServiceName:     cfg.ServiceName,
			AuthMiddleware:  httpMW.NewAuthMiddleware(log, authService),
			HealthHandler:   httpH.NewHealthHandler(),
			SessionHandler:  sessionHandler,
			ReportHandler:   httpH.NewReportHandler(sessionHandler, reposet.Report, cfg.Scoring),
			JobHandler:      httpH.NewJobHandler(jobService),
			RealtimeHandler: httpH.NewRealtimeHandler(log, hub),
		})
	}

	return app, nil
}

// Start launches the background pieces: the worker pool and, for an API
// process with a bus, the forwarder that moves bus events into the hub.
func (a *App) Start() error {
	if a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Cfg.RunServer && a.bus != nil {
		if err := a.bus.StartForwarder(ctx, a.Hub.Broadcast); err != nil {
			return fmt.Errorf("start bus forwarder: %w", err)
		}
	}
	if a.Cfg.RunWorker {
		a.Worker.Start(ctx)
	}
	return nil
}

// Run blocks serving HTTP. Worker-only processes block on the context
// instead.
func (a *App) Run() error {
	if a.Server == nil {
		select {}
	}
	a.Log.Info("server listening", "port", a.Cfg.Port)
	return a.Server.Run(":" + a.Cfg.Port)
}

func (a *App) Close(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			a.Log.Warn("server shutdown", "error", err)
		}
	}
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.Log.Warn("bus close", "error", err)
		}
	}
	if a.traceCleanup != nil {
		if err := a.traceCleanup(ctx); err != nil {
			a.Log.Warn("trace shutdown", "error", err)
		}
	}
	a.Log.Sync()
}
