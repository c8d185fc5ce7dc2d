package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/table-booking/internal/config"
	"github.com/iliyamo/table-booking/internal/database"
	"github.com/iliyamo/table-booking/internal/handler"
	"github.com/iliyamo/table-booking/internal/logging"
	"github.com/iliyamo/table-booking/internal/model"
	"github.com/iliyamo/table-booking/internal/queue"
	"github.com/iliyamo/table-booking/internal/realtime"
	"github.com/iliyamo/table-booking/internal/repository"
	"github.com/iliyamo/table-booking/internal/router"
	"github.com/iliyamo/table-booking/internal/service"
	"github.com/iliyamo/table-booking/internal/utils"
)

// reservationStore is what the service and the health check need.
type reservationStore interface {
	service.ReservationStore
	handler.Pinger
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("err", err))
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, logging.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "table-booking",
	})
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	var closers []func(context.Context)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i](sctx)
		}
	}()

	clock := utils.SystemClock{Location: cfg.Location()}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		logger.Warn("redis unavailable; using in-process lock and settings, rate limiting and caching disabled")
	} else {
		closers = append(closers, func(context.Context) { _ = rdb.Close() })
	}

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	closers = append(closers, closeStore)

	settings := openSettings(cfg, rdb, logger)
	locker := openLocker(cfg, rdb, logger)

	hub := realtime.NewHub(logger)
	closers = append(closers, func(context.Context) { hub.Close() })
	publishers := service.MultiPublisher{hub}
	if len(cfg.KafkaBrokers) > 0 {
		kb := realtime.NewKafkaBridge(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		publishers = append(publishers, kb)
		closers = append(closers, func(context.Context) { _ = kb.Close() })
	}
	if cfg.NATSURL != "" {
		nb, err := realtime.NewNATSBridge(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			logger.Warn("nats bridge disabled", slog.Any("err", err))
		} else {
			publishers = append(publishers, nb)
			closers = append(closers, func(context.Context) { _ = nb.Close() })
		}
	}

	var mail service.Sender
	smtpCfg := service.SMTPConfig{Host: cfg.SMTPHost, Port: cfg.SMTPPort, Username: cfg.SMTPUser, Password: cfg.SMTPPass}
	if smtpCfg.Enabled() {
		mail = service.NewSMTPSender(smtpCfg)
	} else {
		logger.Info("email not configured; mail notifications disabled")
	}
	dispatcher := service.NewDispatcher(
		service.LogSender{Channel: "sms", Logger: logger},
		mail,
		service.DispatcherConfig{StaffPhones: cfg.StaffPhones(), StaffEmail: cfg.StaffEmail},
		logger,
	)

	var outbox service.Outbox
	switch cfg.OutboxDriver {
	case "amqp":
		outbox = service.NewAMQPOutbox(cfg.RabbitURL, service.NotificationQueue, logger)
		consumer := queue.NewConsumer(cfg.RabbitURL, service.NotificationQueue, dispatcher, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("notification consumer stopped", slog.Any("err", err))
			}
		}()
	default:
		local := queue.NewLocalOutbox(dispatcher, cfg.OutboxWorkers, 256, logger)
		outbox = local
		closers = append(closers, func(ctx context.Context) { _ = local.Close(ctx) })
	}

	lifecycle := service.NewLifecycle(service.LifecycleDeps{
		Store:    store,
		Settings: settings,
		Locker:   locker,
		Events:   publishers,
		Outbox:   outbox,
		Clock:    clock,
		Logger:   logger,
	})
	ledger := service.NewLedger(store, settings)
	admission := service.NewAdmission(ledger, lifecycle)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	router.RegisterRoutes(e, router.Handlers{
		Reservations: handler.NewReservationHandler(admission, lifecycle, store, logger),
		Occupancy:    handler.NewOccupancyHandler(ledger, clock, logger),
		Settings:     handler.NewSettingsHandler(settings, logger),
		Realtime:     handler.NewRealtimeHandler(hub, logger),
		Health:       handler.Health(store),
	}, router.Options{
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Logger:    logger,
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			slog.String("addr", addr),
			slog.String("env", cfg.Env),
			slog.String("store", cfg.StoreDriver),
			slog.String("outbox", cfg.OutboxDriver),
			slog.String("tz", cfg.TimeZone))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(sctx)
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (reservationStore, func(context.Context), error) {
	switch cfg.StoreDriver {
	case "mysql":
		db, err := database.OpenMySQL(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewReservationRepo(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		logger.Info("using mysql reservation store", slog.String("host", cfg.DBHost), slog.String("db", cfg.DBName))
		return repo, func(context.Context) { _ = db.Close() }, nil
	case "memory":
		logger.Warn("using in-memory reservation store; data is lost on restart")
		return repository.NewMemoryReservationStore(), func(context.Context) {}, nil
	default:
		client, db, err := database.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewMongoReservationStore(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			logger.Warn("reservation indexes not created", slog.Any("err", err))
		}
		logger.Info("using mongo reservation store", slog.String("db", cfg.MongoDatabase))
		return repo, func(ctx context.Context) { _ = client.Disconnect(ctx) }, nil
	}
}

func openSettings(cfg config.Config, rdb *redis.Client, logger *slog.Logger) service.SettingsStore {
	if cfg.SettingsDriver == "redis" {
		if rdb != nil {
			return repository.NewRedisSettingsStore(rdb, "", model.DefaultSettings())
		}
		logger.Warn("SETTINGS_DRIVER=redis but redis is unavailable; settings are per-process")
	}
	return repository.NewMemorySettingsStore(model.DefaultSettings())
}

func openLocker(cfg config.Config, rdb *redis.Client, logger *slog.Logger) service.AdmissionLocker {
	if cfg.AdmissionLock == "redis" {
		if rdb != nil {
			return service.NewRedisLocker(rdb, "", cfg.LockTTL)
		}
		logger.Warn("ADMISSION_LOCK=redis but redis is unavailable; admission is only serialised within this process")
	}
	return service.NewLocalLocker()
}
