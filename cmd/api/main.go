package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"barbeapp/internal/api"
	"barbeapp/internal/config"
	"barbeapp/internal/database"
	"barbeapp/internal/domain"
	"barbeapp/internal/events"
	"barbeapp/internal/locale"
	"barbeapp/internal/logging"
	"barbeapp/internal/mail"
	"barbeapp/internal/metrics"
	"barbeapp/internal/models"
	"barbeapp/internal/repository"
	"barbeapp/internal/service"
	"barbeapp/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(cfg.Database.Path, logging.Component(logger, "database"))
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()
	db.SetFilesURL(cfg.App.FilesURL)

	health := api.NewHealth()
	health.Add("sqlite", db.PingContext)

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer (func() { _ = repository.Close(redisClient) })()
		health.Add("redis", func(ctx context.Context) error { return repository.Ping(ctx, redisClient) })
	}

	notificationStore, mongoClient, err := initNotificationStore(ctx, cfg, redisClient, logger)
	if err != nil {
		return err
	}
	if mongoClient != nil {
		defer (func() { _ = mongoClient.Disconnect(context.Background()) })()
		health.Add("mongo", func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) })
	}

	formatter, err := locale.New(cfg.Booking.Locale, cfg.Booking.Timezone)
	if err != nil {
		return fmt.Errorf("init locale: %w", err)
	}

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
	}

	mailWorker := worker.NewMailWorker(db, redisClient, worker.RetryPolicyFromConfig(cfg.Mail.Retry), logging.Component(logger, "mail-worker"))
	sender := mail.NewSender(cfg.Mail, logging.Component(logger, "mail"))
	mailWorker.Register(models.JobCancellationMail, mail.NewCancellationHandler(sender, formatter).Handle)

	eventBus := events.NewEventBus(logging.Component(logger, "events"))
	subscribeMetrics(eventBus)

	userService := service.NewUserService(db, logging.Component(logger, "users"))
	notificationService := service.NewNotificationService(notificationStore, userService, logging.Component(logger, "notifications"))
	appointmentService := service.NewAppointmentService(
		db,
		userService,
		notificationService,
		formatter,
		mailWorker,
		eventBus,
		cfg.Booking,
		logging.Component(logger, "appointments"),
	)

	services := api.Services{
		Appointments:  appointmentService,
		Notifications: notificationService,
		Health:        health,
	}
	httpServer := api.NewHTTPServer(cfg.API, services, logging.Component(logger, "http"))

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(cfg.API, services, logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
	}

	if cfg.Mail.WorkerEnabled {
		go mailWorker.Start(ctx)
	} else {
		logger.Warn().Msg("mail worker disabled, cancellation mails stay queued")
	}

	backupService := database.NewBackupService(db, cfg.Backup, logging.Component(logger, "backup"))
	go backupService.Start(ctx)

	startMetrics(ctx, cfg, logger)

	return startServers(ctx, grpcServer, httpServer, health, cfg, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logging.Component(baseLogger, "api-main"), closer, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		// с redis-бэкендом уведомлений клиент нужен даже недоступным: failover разберётся
		if cfg.Notifications.Backend == config.NotificationBackendRedis {
			logger.Warn().Err(err).Msg("redis connection failed, notifications will fail over")
			return redisClient
		}
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = repository.Close(redisClient)
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initNotificationStore(
	ctx context.Context,
	cfg *config.Config,
	redisClient *redis.Client,
	logger *zerolog.Logger,
) (domain.NotificationStore, *mongo.Client, error) {
	var (
		primary     domain.NotificationStore
		mongoClient *mongo.Client
	)

	switch cfg.Notifications.Backend {
	case config.NotificationBackendMemory:
		logger.Info().Msg("notifications stored in memory")
		return repository.NewMemoryNotificationRepository(), nil, nil
	case config.NotificationBackendMongo:
		client, err := repository.NewMongoClient(ctx, cfg.Notifications.Mongo)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		repo := repository.NewMongoNotificationRepository(client, cfg.Notifications.Mongo)
		if err := repo.EnsureIndexes(ctx); err != nil {
			logger.Warn().Err(err).Msg("mongo notification indexes not created")
		}
		primary, mongoClient = repo, client
	default:
		if redisClient == nil {
			return nil, nil, errors.New("redis notifications backend requires a redis connection")
		}
		primary = repository.NewRedisNotificationRepository(redisClient)
	}

	logger.Info().Str("backend", cfg.Notifications.Backend).Bool("failover", cfg.Notifications.Failover).Msg("notifications store ready")
	if cfg.Notifications.Failover {
		fallback := repository.NewMemoryNotificationRepository()
		return repository.NewFailoverNotificationRepository(primary, fallback, logging.Component(logger, "notifications-failover")), mongoClient, nil
	}
	return primary, mongoClient, nil
}

func subscribeMetrics(bus *events.EventBus) {
	for _, eventType := range []string{events.EventAppointmentCreated, events.EventAppointmentCanceled} {
		bus.Subscribe(eventType, func(e *events.Event) error {
			metrics.IncAppointment(e.Type)
			return nil
		})
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	health *api.Health,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	if grpcServer != nil {
		go health.Watch(ctx, grpcServer.HealthServer(), 15*time.Second, logger)
		go func() {
			if err := grpcServer.Start(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Bool("grpc", grpcServer != nil).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
