package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/lockyolinks/lockyolinks/config"
	"github.com/lockyolinks/lockyolinks/internal/app/identity"
	appmodel "github.com/lockyolinks/lockyolinks/internal/app/model"
	apprepository "github.com/lockyolinks/lockyolinks/internal/app/repository"
	appserver "github.com/lockyolinks/lockyolinks/internal/app/server"
	appservice "github.com/lockyolinks/lockyolinks/internal/app/service"
	"github.com/lockyolinks/lockyolinks/internal/infra/logger"
	infraNATS "github.com/lockyolinks/lockyolinks/internal/infra/nats"
	infraPostgres "github.com/lockyolinks/lockyolinks/internal/infra/postgres"
	infraPrometheus "github.com/lockyolinks/lockyolinks/internal/infra/prometheus"
	infraRedis "github.com/lockyolinks/lockyolinks/internal/infra/redis"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	isDev := os.Getenv("APP_ENV") != "production"
	log := logger.MustInit(logger.Config{
		Development: isDev,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.String("base_url", cfg.App.BaseURL),
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.String("redis_host", cfg.Redis.Host),
		zap.Int("redis_port", cfg.Redis.Port),
		zap.String("nats_host", cfg.NATS.Host),
		zap.Int("nats_port", cfg.NATS.Port),
	)

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := infraPostgres.AutoMigrate(ctx, gormDB,
		&appmodel.Link{}, &appmodel.AccessToken{}, &appmodel.ClickEvent{}); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()

	log.Info("Connected to Postgres successfully")

	redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("Connected to Redis successfully")

	natsConn, js, err := infraNATS.Connect(cfg.NATS)
	if err != nil {
		log.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer natsConn.Drain()
	log.Info("Connected to NATS successfully", zap.Bool("jetstream_ready", js != nil))

	if !isDev {
		promServer := infraPrometheus.NewServer(cfg.Prometheus)
		go func() {
			log.Info("Starting Prometheus metrics server",
				zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Skipping Prometheus metrics server in development mode")
	}

	cacheTTL := time.Duration(cfg.App.CacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}

	linkRepo := apprepository.NewLinkRepository(gormDB)
	cachedLinks := apprepository.NewCachedLinkRepository(linkRepo, redisClient, cacheTTL, log)
	tokenRepo := apprepository.NewAccessTokenRepository(gormDB)
	mutator := apprepository.NewClickMutator(pool)

	shortIDFilter := appservice.NewShortIDFilter(cfg.App.ExpectedLinks, 0.001)
	if err := shortIDFilter.Warm(ctx, linkRepo); err != nil {
		log.Fatal("Failed to warm short id filter", zap.Error(err))
	}

	clickPublisher := appservice.NewClickPublisher(js)
	inviteNotifier := appservice.NewInviteNotifier(natsConn, log)

	clickConsumer := appservice.NewClickConsumer(js, log, gormDB)
	if err := clickConsumer.Start(); err != nil {
		log.Fatal("Failed to start click consumer", zap.Error(err))
	}

	tokenSweeper := appservice.NewTokenSweeper(log, tokenRepo)
	tokenSweeper.Start()
	defer tokenSweeper.Stop()

	accessService := appservice.NewAccessService(appservice.AccessServiceDeps{
		Logger:    log,
		Links:     cachedLinks,
		Mutator:   mutator,
		Cache:     cachedLinks,
		Filter:    shortIDFilter,
		Publisher: clickPublisher,
		TokenTTL:  time.Duration(cfg.App.TokenTTLHours) * time.Hour,
	})
	gateService := appservice.NewGateService(tokenRepo)
	linkService := appservice.NewLinkService(appservice.LinkServiceDeps{
		Logger:   log,
		Repo:     cachedLinks,
		Cache:    cachedLinks,
		Recorder: shortIDFilter,
		Invites:  inviteNotifier,
	})

	server := appserver.New(appserver.Dependencies{
		Logger:    log,
		Redis:     redisClient,
		Identity:  identity.NewHeaderProvider(),
		Links:     linkService,
		Access:    accessService,
		Gates:     gateService,
		Secret:    []byte(cfg.App.Secret),
		BaseURL:   cfg.App.BaseURL,
		SignInURL: cfg.App.SignInURL,
	})

	if err := server.Listen(":8080"); err != nil {
		log.Fatal("Fiber server exited", zap.Error(err))
	}
}
