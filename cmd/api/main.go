package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/kuyruklab/notify-engine/internal/audit"
	"github.com/kuyruklab/notify-engine/internal/config"
	"github.com/kuyruklab/notify-engine/internal/handler"
	"github.com/kuyruklab/notify-engine/internal/infra/postgresql"
	"github.com/kuyruklab/notify-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/kuyruklab/notify-engine/internal/infra/redis"
	"github.com/kuyruklab/notify-engine/internal/messaging"
	"github.com/kuyruklab/notify-engine/internal/observability"
	"github.com/kuyruklab/notify-engine/internal/push"
	"github.com/kuyruklab/notify-engine/internal/repository"
	"github.com/kuyruklab/notify-engine/internal/service"
	"github.com/kuyruklab/notify-engine/internal/template"
	"github.com/kuyruklab/notify-engine/internal/transport"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	metrics := observability.NewMetrics()

	preferenceRepo := repository.NewGormPreferenceRepo(db)
	subscriptionRepo := repository.NewGormSubscriptionRepo(db)
	sessionRepo := repository.NewGormSessionRepo(db)
	deliveryLogRepo := repository.NewGormDeliveryLogRepo(db)
	gatewayRepo := repository.NewGormGatewayConfigRepo(db)
	templateRepo := repository.NewGormTemplateRepo(db)
	ticketRepo := repository.NewGormTicketContextRepo(db)

	auditor := audit.NewBestEffortLogger(deliveryLogRepo, logger)
	renderer := template.NewRenderer(templateRepo, ticketRepo, logger)

	quota, err := infraredis.NewDailyQuota(rdb, cfg.DailyMessageLimit)
	if err != nil {
		logger.Fatal("daily quota initialization failed", zap.Error(err))
	}

	pushEngine, err := push.NewEngine(subscriptionRepo, cfg.VAPIDSubscriber, cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, logger)
	if err != nil {
		logger.Fatal("push engine initialization failed", zap.Error(err))
	}
	pushEngine.SetMetrics(metrics)
	registry := push.NewRegistry(subscriptionRepo, preferenceRepo, logger)

	gatewayClient, err := messaging.NewGatewayClient(cfg.GatewayBaseURL)
	if err != nil {
		logger.Fatal("gateway client initialization failed", zap.Error(err))
	}
	instanceManager, err := messaging.NewInstanceManager(gatewayRepo, gatewayClient, logger)
	if err != nil {
		logger.Fatal("gateway instance manager initialization failed", zap.Error(err))
	}
	sender, err := messaging.NewSender(renderer, instanceManager, gatewayClient, quota, ticketRepo, auditor, logger)
	if err != nil {
		logger.Fatal("messaging sender initialization failed", zap.Error(err))
	}
	sender.SetMetrics(metrics)

	preferenceService, err := service.NewPreferenceService(preferenceRepo, logger)
	if err != nil {
		logger.Fatal("preference service initialization failed", zap.Error(err))
	}
	sessionService, err := service.NewSessionService(sessionRepo, logger)
	if err != nil {
		logger.Fatal("session service initialization failed", zap.Error(err))
	}

	dispatcher, err := service.NewDispatcher(
		preferenceService,
		sessionService,
		registry,
		pushEngine,
		sender,
		renderer,
		ticketRepo,
		auditor,
		logger,
	)
	if err != nil {
		logger.Fatal("dispatcher initialization failed", zap.Error(err))
	}
	dispatcher.SetMetrics(metrics)

	sweeper, err := service.NewSessionSweeper(sessionService, time.Duration(cfg.SessionSweepInterval)*time.Second, logger)
	if err != nil {
		logger.Fatal("session sweeper initialization failed", zap.Error(err))
	}
	sweeper.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	if err := handler.RegisterDispatchRoutes(app, dispatcher); err != nil {
		logger.Fatal("failed to register dispatch routes", zap.Error(err))
	}
	if err := handler.RegisterSubscriptionRoutes(app, subscriptionRepo, preferenceService, ticketRepo); err != nil {
		logger.Fatal("failed to register subscription routes", zap.Error(err))
	}
	if err := handler.RegisterWebhookRoutes(app, sessionService, ticketRepo, instanceManager, gatewayClient, cfg.WebhookToken, logger); err != nil {
		logger.Fatal("failed to register webhook routes", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweeper.Start(ctx)

	go func() {
		logger.Info("notify-engine api started", zap.Int("port", cfg.APIPort))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
			logger.Error("http server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
