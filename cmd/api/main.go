package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/fixmycar/diagnostic-service/internal/api/http"
	"github.com/fixmycar/diagnostic-service/internal/api/http/handlers"
	"github.com/fixmycar/diagnostic-service/internal/auth"
	"github.com/fixmycar/diagnostic-service/internal/config"
	"github.com/fixmycar/diagnostic-service/internal/events"
	"github.com/fixmycar/diagnostic-service/internal/mlclient"
	"github.com/fixmycar/diagnostic-service/internal/oauth"
	"github.com/fixmycar/diagnostic-service/internal/observability"
	"github.com/fixmycar/diagnostic-service/internal/persistence"
	"github.com/fixmycar/diagnostic-service/internal/repository"
	"github.com/fixmycar/diagnostic-service/internal/service"
	"github.com/fixmycar/diagnostic-service/internal/worker"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	vehicleRepo := repository.NewVehicleRepository(pool)
	diagnosisRepo := repository.NewDiagnosisRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authService := service.NewAuthService(cfg.Session, service.AuthDependencies{
		UserRepo:   userRepo,
		Google:     oauth.NewGoogleClient(cfg.Google),
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	diagnosisService := service.NewDiagnosisService(cfg.Diagnosis, service.DiagnosisDependencies{
		Model:         mlclient.New(cfg.Diagnosis),
		DiagnosisRepo: diagnosisRepo,
		VehicleRepo:   vehicleRepo,
		Cache:         redis.Client,
		Dispatcher:    dispatcher,
		Logger:        logger,
	})

	sessionStore := auth.NewSessionStore(cfg.Session, cfg.App.IsProduction())
	resolver := auth.NewIdentityResolver(sessionStore, authService.TokenManager(), userRepo, logger)
	gate := auth.NewGate(auth.DefaultPolicy(), sessionStore, authService.TokenManager(), logger)

	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:    handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, diagnosisService),
		Auth:      handlers.NewAuthHandler(authService, sessionStore, resolver),
		Diagnosis: handlers.NewDiagnosisHandler(diagnosisService),
		Dashboard: handlers.NewDashboardHandler(diagnosisService, vehicleRepo),
		Gate:      gate,
		Resolver:  resolver,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
