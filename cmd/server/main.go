package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aryan0dhankhar/eventcrm/internal/app"
	"github.com/aryan0dhankhar/eventcrm/internal/featureflags"
	"github.com/aryan0dhankhar/eventcrm/internal/handler"
	"github.com/aryan0dhankhar/eventcrm/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/eventcrm/internal/observability/tracing"
	"github.com/aryan0dhankhar/eventcrm/internal/security/ratelimit"
	"github.com/aryan0dhankhar/eventcrm/internal/worker"
	"github.com/aryan0dhankhar/eventcrm/pkg/config"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	log.Info("starting eventcrm API", slog.String("environment", cfg.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Tracing (no-op without an OTLP endpoint)
	shutdownTracing, err := tracing.Init(ctx, log, "eventcrm-api", cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Storage, credentials and services
	crm, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer crm.Close()

	if crm.Revocations != nil {
		go worker.NewSweepWorker(crm.Revocations, log, 10*time.Minute).Start(ctx)
	}

	checks := map[string]handler.Check{"database": crm.Pool.Health}
	if crm.Redis != nil {
		checks["redis"] = crm.Redis.Ping
	}

	// 5. HTTP surface
	loginLimiter := ratelimit.NewLimiter(cfg.LoginRateLimit, time.Minute)
	defer loginLimiter.Stop()

	router := handler.NewRouter(handler.Services{
		Auth:      crm.Auth,
		Users:     crm.Users,
		Clients:   crm.Clients,
		Contracts: crm.Contracts,
		Events:    crm.Events,
	}, handler.RouterConfig{
		Logger:       log,
		DevErrors:    cfg.IsDevelopment() && featureflags.Enabled(featureflags.DevErrors),
		LoginLimiter: loginLimiter,
		Health:       handler.NewHealthHandler(checks, log),
		Metrics:      promhttp.Handler(),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("jwt_algorithm", crm.Tokens.Algorithm()),
		slog.String("database", string(crm.Pool.Dialect())),
		slog.Bool("redis_revocation", crm.Redis != nil),
		slog.Int("login_rate_limit", cfg.LoginRateLimit),
	)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}
