package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sundai-club/shop/internal/di"
	"github.com/sundai-club/shop/internal/handlers"
	"github.com/sundai-club/shop/internal/platform/config"
	"github.com/sundai-club/shop/internal/platform/idempotency"
	"github.com/sundai-club/shop/internal/platform/observability"
)

func serveCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the storefront HTTP API",
		Long: `Run the storefront HTTP API under /api/v1 with health probes at /healthz and /readyz.

The server drains in-flight requests on SIGINT or SIGTERM before exiting.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), *envFile)
		},
	}
}

func runServe(ctx context.Context, envFile string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := bootstrap(ctx, "api", envFile)
	if err != nil {
		return err
	}
	defer rt.Close()

	logger := rt.logger
	cfg := rt.cfg
	ctx = observability.WithLogger(ctx, logger)

	container, err := di.NewContainer(ctx, cfg,
		di.WithLogger(logger),
		di.WithBuildInfo(rt.build),
		di.WithSecretFetcher(rt.fetcher),
	)
	if err != nil {
		return fmt.Errorf("build dependencies: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("dependency close error", zap.Error(err))
		}
	}()

	if _, err := container.Services.Catalog.Sync(ctx); err != nil {
		logger.Warn("initial catalog sync failed; products load on first request", zap.Error(err))
	}

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	var cleanupWG sync.WaitGroup
	cleanupWG.Add(1)
	go func() {
		defer cleanupWG.Done()
		idempotency.RunCleanup(cleanupCtx, container.Idempotency, cfg.Idempotency.CleanupInterval,
			cfg.Idempotency.CleanupBatchSize, observability.EventLogger(logger.Named("idempotency")))
	}()

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      newRouter(container, cfg, rt, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	serverErr := make(chan error, 1)
	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("merch shop api listening",
			zap.String("version", rt.build.Version),
			zap.String("storage", cfg.Storage.Backend),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-shutdown:
		logger.Info("shutdown signal received; draining requests")
	case <-ctx.Done():
		logger.Info("context cancelled; draining requests")
	case err, ok := <-serverErr:
		if ok {
			serverLogger.Error("http server error", zap.Error(err))
			runErr = err
		}
	}

	cleanupCancel()
	cleanupWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}

func newRouter(container *di.Container, cfg config.Config, rt *runtime, logger *zap.Logger) http.Handler {
	svc := container.Services
	projectID := traceProjectID(cfg)

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(projectID),
	}

	idempotencyMiddleware := idempotency.Middleware(container.Idempotency,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(observability.EventLogger(logger.Named("idempotency"))),
	)

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(rt.build),
		handlers.WithHealthSystemService(svc.System),
	)

	return handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithAPIMiddlewares(container.Sessions.Middleware, idempotencyMiddleware),
		handlers.WithProductRoutes(handlers.NewProductHandlers(svc.Catalog).Routes),
		handlers.WithCartRoutes(handlers.NewCartHandlers(svc.Cart).Routes),
		handlers.WithPricingRoutes(handlers.NewPricingHandlers(svc.Cart, svc.Costs, svc.Fulfillment).Routes),
		handlers.WithCheckoutRoutes(handlers.NewCheckoutHandlers(svc.Checkout).Routes),
		handlers.WithCheckoutMiddlewares(handlers.RateLimitMiddleware(cfg.Checkout.RateLimitPerMinute, time.Minute, time.Now)),
		handlers.WithFulfillmentRoutes(handlers.NewFulfillmentHandlers(svc.Fulfillment).Routes),
		handlers.WithOrderRoutes(handlers.NewOrderHistoryHandlers(svc.OrderLog).Routes),
	)
}
