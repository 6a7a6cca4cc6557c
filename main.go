package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inhouse-league/archive"
	"inhouse-league/config"
	"inhouse-league/database"
	"inhouse-league/handlers"
	"inhouse-league/metrics"
	"inhouse-league/notify"
	"inhouse-league/services"
	"inhouse-league/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	logger := cfg.NewLogger()
	log := logrus.NewEntry(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("failed to migrate database")
	}

	gameConfig, err := config.LoadGameConfig(cfg.GameConfigFile)
	if err != nil {
		log.WithError(err).Fatal("failed to load game config")
	}
	settings := services.NewSettingsService(db, gameConfig)
	if err := settings.Load(ctx); err != nil {
		log.WithError(err).Fatal("failed to load settings")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheus(registry)

	// Without Redis the engine publishes straight into the local hub. With
	// Redis every instance publishes to the channel and relays it back, so
	// each event reaches each hub exactly once.
	hub := notify.NewHub(64)
	var bus notify.Bus = hub
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("invalid REDIS_URL")
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		relay, err := notify.NewRelay(ctx, rdb, cfg.RedisChannel, log.WithField("component", "relay"))
		if err != nil {
			log.WithError(err).Fatal("failed to subscribe to redis")
		}
		go relay.Run(ctx, hub)
		bus = notify.NewRedisBus(rdb, cfg.RedisChannel, log.WithField("component", "redis_bus"))
		log.Infof("✅ Redis fan-out on channel %s", cfg.RedisChannel)
	}

	engine := services.NewEngine(db, settings,
		services.WithBus(bus),
		services.WithMetrics(recorder),
		services.WithLogger(log.WithField("component", "engine")),
		services.WithBetWindow(cfg.BetWindow),
	)

	sweeper, err := engine.Draft.StartStallSweep(ctx, cfg.DraftStallTimeout, cfg.DraftSweepInterval)
	if err != nil {
		log.WithError(err).Fatal("failed to start draft sweep")
	}
	if sweeper != nil {
		defer sweeper.Shutdown()
		log.Infof("✅ Stalled drafts auto-fill after %s", cfg.DraftStallTimeout)
	}

	if cfg.ArchiveEnabled() {
		store, err := archive.New(ctx, archive.Options{
			Bucket:          cfg.ArchiveBucket,
			Endpoint:        cfg.ArchiveEndpoint,
			Region:          cfg.ArchiveRegion,
			AccessKeyID:     cfg.ArchiveAccessKeyID,
			SecretAccessKey: cfg.ArchiveSecretAccessKey,
			Prefix:          cfg.ArchivePrefix,
		})
		if err != nil {
			log.WithError(err).Fatal("failed to initialize archive client")
		}
		worker := workers.NewArchiveWorker(db, store, log.WithField("component", "archive"))
		go worker.Poll(ctx, cfg.ArchiveInterval)
		log.Infof("✅ Settlement archive polling every %s", cfg.ArchiveInterval)
	}

	app := fiber.New(fiber.Config{
		AppName:      "inhouse-league",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE streams stay open
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Origins(),
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Admin-Token, X-Player-ID",
		MaxAge:       86400,
	}))

	handlers.SetupSystemRoutes(app, hub, registry, log)
	handlers.SetupPlayerRoutes(app, engine, log)
	handlers.SetupAdminRoutes(app, engine, cfg.AdminToken, log)
	handlers.SetupMatchRoutes(app, engine, log)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.WithError(err).Error("server error")
			stop()
		}
	}()
	log.Infof("✅ Server running on http://localhost:%s", cfg.Port)

	<-ctx.Done()
	log.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.WithError(err).Warn("shutdown")
	}
}
