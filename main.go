package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"farmledger/auth"
	"farmledger/batches"
	"farmledger/config"
	"farmledger/db"
	"farmledger/feed"
	"farmledger/handlers"
	"farmledger/history"
	"farmledger/identity"
	"farmledger/ledger"
	"farmledger/logger"
	"farmledger/metrics"
	"farmledger/middleware"
	"farmledger/mq"
	"farmledger/ratelim"
	"farmledger/rdx"
	"farmledger/routes"
	"farmledger/store"
	"farmledger/store/memstore"
)

// Set up all routes and middleware layers
func setupRouter(cfg *config.Config, log *zap.Logger, deps routes.Deps) http.Handler {
	router := routes.NewRouter(deps)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
	})

	return middleware.Chain(c.Handler(router),
		middleware.RequestID,
		middleware.Recover(log),
		metrics.InstrumentHandler,
		middleware.Logging(log),
		middleware.SecurityHeaders,
	)
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.Store, func(context.Context) error, error) {
	if cfg.Store == config.StoreMemory {
		log.Warn("using in-memory store, data is lost on restart")
		return memstore.New(), func(context.Context) error { return nil }, nil
	}

	database, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, nil, err
	}
	log.Info("connected to MongoDB", zap.String("database", cfg.MongoDatabase))
	if err := database.EnsureIndexes(ctx); err != nil {
		_ = database.Close(ctx)
		return nil, nil, err
	}
	return database, database.Close, nil
}

func openGateway(ctx context.Context, cfg *config.Config, log *zap.Logger) (identity.Gateway, func() error, error) {
	var gw identity.Gateway
	switch cfg.IdentityProvider {
	case config.ProviderLocal:
		log.Warn("using local identity provider, identities are lost on restart")
		gw = identity.NewLocal(cfg.LocalJWTSecret)
	default:
		sb, err := identity.NewSupabase(identity.SupabaseConfig{
			URL:            cfg.SupabaseURL,
			ServiceRoleKey: cfg.SupabaseServiceRoleKey,
			AnonKey:        cfg.SupabaseAnonKey,
			JWTSecret:      cfg.SupabaseJWTSecret,
			HTTPClient:     &http.Client{Timeout: cfg.GatewayTimeout},
		})
		if err != nil {
			return nil, nil, err
		}
		gw = sb
	}

	if cfg.RedisAddr == "" {
		return gw, func() error { return nil }, nil
	}
	client, err := rdx.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return nil, nil, err
	}
	log.Info("token cache enabled", zap.String("redis", cfg.RedisAddr), zap.Duration("ttl", cfg.TokenCacheTTL))
	return identity.NewCached(gw, rdx.TokenCache{Client: client}, cfg.TokenCacheTTL, log), client.Close, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("invalid configuration", zap.Error(err))
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		zap.NewExample().Fatal("logger setup failed", zap.Error(err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	st, closeStore, err := openStore(bootCtx, cfg, log)
	if err != nil {
		cancel()
		log.Fatal("store setup failed", zap.Error(err))
	}
	gw, closeGateway, err := openGateway(bootCtx, cfg, log)
	cancel()
	if err != nil {
		log.Fatal("identity provider setup failed", zap.Error(err))
	}

	hub := feed.NewHub(log.Named("feed"))
	events := mq.Fanout{metrics.Events{}, hub}

	registry := batches.NewRegistry(st, log, batches.WithEmitter(events))
	logs := ledger.New(registry, st, st, log, ledger.WithEmitter(events))
	orchestrator := auth.NewOrchestrator(gw, st, log.Named("auth"), auth.WithEmitter(events))
	aggregator := history.NewAggregator(st, log.Named("history"))

	var limitOpts []ratelim.Option
	if cfg.TrustProxy {
		limitOpts = append(limitOpts, ratelim.WithTrustedProxy())
	}
	rateLimiter := ratelim.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, limitOpts...)
	go rateLimiter.Run(ctx, time.Minute)

	handler := setupRouter(cfg, log, routes.Deps{
		Handlers:    handlers.New(orchestrator, registry, logs, aggregator, log.Named("http")),
		Auth:        middleware.NewAuth(gw, log.Named("auth")),
		RateLimiter: rateLimiter,
		Feed:        hub,
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	server.RegisterOnShutdown(func() {
		log.Info("cleaning up resources before shutdown")
	})

	go func() {
		log.Info("server started", zap.String("addr", cfg.Addr()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("could not listen", zap.String("addr", cfg.Addr()), zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, shutting down gracefully")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
	if err := closeGateway(); err != nil {
		log.Warn("redis close failed", zap.Error(err))
	}
	if err := closeStore(shutdownCtx); err != nil {
		log.Warn("store close failed", zap.Error(err))
	}
	log.Info("server stopped cleanly")
}
