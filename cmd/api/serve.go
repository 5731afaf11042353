package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bloodlinkbd/bloodlink-api/internal/adapters/ai"
	"github.com/bloodlinkbd/bloodlink-api/internal/adapters/cache"
	"github.com/bloodlinkbd/bloodlink-api/internal/adapters/handler"
	"github.com/bloodlinkbd/bloodlink-api/internal/adapters/identity"
	"github.com/bloodlinkbd/bloodlink-api/internal/adapters/messaging"
	"github.com/bloodlinkbd/bloodlink-api/internal/adapters/middleware"
	"github.com/bloodlinkbd/bloodlink-api/internal/adapters/repository"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/flows"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/ports"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/services"
	"github.com/bloodlinkbd/bloodlink-api/internal/metrics"
)

const (
	keyPrefix   = "bloodlink"
	inFlightTTL = 30 * time.Second

	requestEventTTL = 24 * time.Hour

	assistantIdleTTL = 30 * time.Minute
	maxConversations = 10000
)

func openDatabase(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return db, nil
}

func migrate(ctx context.Context) error {
	db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repository.NewSQLRepository(db, logger).Migrate(ctx); err != nil {
		return err
	}
	logger.Info("schema applied")
	return nil
}

func serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.LoadKeys(); err != nil {
		return err
	}
	m := metrics.New()

	db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	store := repository.NewSQLRepository(db, logger)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info("connected to redis", zap.String("address", cfg.RedisAddress))

	sessions := cache.NewSessionStore(redisClient, keyPrefix, cfg.SessionTTL.Duration, logger)
	source := cache.NewSessionSource(redisClient, sessions, logger)
	guard := cache.NewInFlightGuard(redisClient, keyPrefix, inFlightTTL)

	provider := identity.NewProvider(store, sessions, identity.Options{
		Issuer:     cfg.Identity.AuthDomain,
		Audience:   cfg.Identity.ProjectID,
		TTL:        cfg.SessionTTL.Duration,
		PrivateKey: cfg.JWTPrivateKey,
		PublicKey:  cfg.JWTPublicKey,
	}, logger)

	var publisher ports.RequestEventPublisher
	deps := []handler.Dependency{
		{Name: "database", Ping: store.Ping},
		{Name: "redis", Ping: sessions.Ping},
	}
	if cfg.RabbitMQURL != "" {
		broker, err := messaging.NewRabbitMQBroker(messaging.BrokerOptions{
			URL:        cfg.RabbitMQURL,
			Queue:      cfg.RequestQueue,
			AppID:      cfg.Identity.AppID,
			SenderID:   cfg.Identity.MessagingSenderID,
			MessageTTL: requestEventTTL,
		}, logger)
		if err != nil {
			logger.Warn("request events disabled: rabbitmq unavailable", zap.Error(err))
		} else {
			defer broker.Close()
			publisher = broker
			deps = append(deps, handler.Dependency{Name: "rabbitmq", Ping: broker.Ping})
		}
	}

	var gen ports.Generator
	gemini, err := ai.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
	if err != nil {
		logger.Warn("AI flows disabled", zap.Error(err))
	} else {
		gen = gemini
	}

	registry := services.NewSyncRegistry(source, store, logger, m).WithIdleTTL(cfg.SessionTTL.Duration)
	submitter := services.NewSubmitter(guard, logger, m)
	donors := services.NewDonorDirectory(store, logger, m)
	registration := services.NewRegistrationService(registry, submitter, logger)
	requests := services.NewBloodRequestService(store, publisher, submitter, logger)

	authMiddleware := middleware.NewAuthMiddleware(provider, logger)
	mux := handler.NewMux(handler.Routes{
		Auth:           handler.NewAuthHandler(services.NewAuthService(provider, registry, submitter, logger), logger),
		Registration:   handler.NewRegistrationHandler(registration, logger),
		Requests:       handler.NewRequestHandler(requests, services.NewRequestBoard(store, logger, m), registration, logger),
		Directory:      handler.NewDirectoryHandler(donors, services.NewHospitalDirectory(cfg.Identity.StorageBucket), logger),
		Assistant:      handler.NewAssistantHandler(services.NewAssistant(flows.NewSupportFlow(gen, m), logger).WithLimits(assistantIdleTTL, maxConversations), logger),
		Matcher:        handler.NewMatcherHandler(services.NewMatchService(flows.NewMatchingFlow(gen, m), store, donors), logger),
		Config:         handler.NewConfigHandler(cfg.PublicConfig(), logger),
		Health:         handler.NewHealthHandler(logger, deps...),
		Metrics:        promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}),
		RequireSession: authMiddleware.RequireSession,
	})

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: handler.Chain(mux,
			middleware.Observe(m, logger),
			middleware.CORSMiddleware(cfg.AllowedOrigins),
			middleware.APIKeyMiddleware(cfg.Identity.APIKey, handler.PublicPaths...),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		return errors.Join(err, registry.Close())
	})

	return g.Wait()
}
