package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"featurehost/internal/cache"
	"featurehost/internal/features/dcabot"
	"featurehost/internal/features/gastracker"
	"featurehost/internal/pipeline"
	"featurehost/internal/platform/config"
	"featurehost/internal/platform/httpserver"
	"featurehost/internal/platform/logger"
	"featurehost/internal/platform/metrics"
	platformredis "featurehost/internal/platform/redis"
	"featurehost/internal/ratelimit"
	"featurehost/internal/registry"
	"featurehost/internal/token"
	httptransport "featurehost/internal/transport/http"
)

// main wires high-level dependencies, registers the built-in features, and
// keeps the server lifecycle small. Feature logic lives in internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}

	// Backends: Redis when configured, in-memory otherwise.
	var (
		cacheStore cache.Store
		rateStore  ratelimit.Store
	)
	if redisClient != nil {
		cacheStore = cache.NewRedisStore(redisClient.Client)
		rateStore = ratelimit.NewRedisStore(redisClient.Client)
		log.Info("using redis backends")
	} else {
		memStore := cache.NewMemoryStore(time.Minute)
		defer memStore.Close()
		cacheStore = memStore
		rateStore = ratelimit.NewMemoryStore()
		log.Info("using in-memory backends")
	}

	m := metrics.New()
	limiter := ratelimit.NewService(rateStore, cfg.RateLimit.Limit, cfg.RateLimit.Window, log,
		ratelimit.WithDisabled(cfg.RateLimit.Disabled))
	fetcher := cache.NewFetcher(cacheStore, log, cache.WithMetrics(m))
	credentials := token.NewValidator(cfg.JWTSigningKey, "featurehost")

	reg := registry.New(pipeline.Config{
		Limiter:        limiter,
		Credentials:    credentials,
		Logger:         log,
		Metrics:        m,
		HandlerTimeout: cfg.HandlerTimeout,
	}, log)

	if err := registerBuiltins(reg, fetcher, cfg); err != nil {
		log.Error("feature registration failed", "error", err)
		os.Exit(1)
	}

	handler := httptransport.NewHandler(reg, log)
	router := httptransport.NewRouter(handler)
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting featurehost", "addr", cfg.Addr, "features", reg.Count())

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

// registerBuiltins onboards the features that ship with the host.
func registerBuiltins(reg *registry.Registry, fetcher *cache.Fetcher, cfg config.Config) error {
	gasManifest, err := gastracker.Manifest()
	if err != nil {
		return err
	}
	gasBaseURL := os.Getenv("GAS_PROVIDER_URL")
	mock := gasBaseURL == "" || gasManifest.Testing.MockData
	if err := reg.Register(gasManifest, gastracker.New(fetcher, gasBaseURL, cfg.DefaultCacheTTL, mock)); err != nil {
		return err
	}

	dcaManifest, err := dcabot.Manifest()
	if err != nil {
		return err
	}
	return reg.Register(dcaManifest, dcabot.New())
}
