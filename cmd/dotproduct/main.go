package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"dotproduct/internal/activity"
	"dotproduct/internal/api"
	"dotproduct/internal/cache"
	"dotproduct/internal/charts"
	"dotproduct/internal/cli"
	"dotproduct/internal/config"
	apphttp "dotproduct/internal/http"
	"dotproduct/internal/log"
	"dotproduct/internal/session"
	"dotproduct/internal/transactions"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentApp)
	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", log.FieldError, err)
		os.Exit(1)
	}
}

// run owns the server's resources. Deferred cleanups run on every return.
func run(cfg *config.Config, logger *log.Logger) error {
	client, err := api.NewClient(api.Config{BaseURL: cfg.APIBaseURL, Timeout: cfg.APITimeout}, logger)
	if err != nil {
		return fmt.Errorf("initialize API client for %s: %w", cfg.APIBaseURL, err)
	}

	manager := session.NewManager(client, session.CookiePolicy{
		SessionName: cfg.SessionCookieName,
		CSRFName:    cfg.CSRFCookieName,
		MaxAge:      cfg.SessionMaxAge,
		Secure:      cfg.SecureCookies(),
	}, logger)
	client.OnUnauthorized(manager.ExpireFromContext)

	controllers := cache.NewLRUCache[*transactions.Controller](cfg.ControllerCacheSize, cfg.ControllerIdleTTL)
	cacheManager := cache.NewManager(logger)
	cacheManager.Register(controllers)
	cacheManager.StartCleanup(5 * time.Minute)
	defer cacheManager.Stop()

	act, err := activity.NewBackend(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize %s activity log: %w", cfg.ActivityBackend, err)
	}
	defer func() {
		if err := act.Close(); err != nil {
			logger.Error("Failed to close activity log", log.FieldError, err)
		}
	}()

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Backend:            client,
		Sessions:           manager,
		Registry:           transactions.NewRegistry(client, controllers),
		Charts:             charts.NewLoader(client, logger),
		Activity:           act,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})
	if err != nil {
		return fmt.Errorf("initialize HTTP server: %w", err)
	}

	ctx := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting dotproduct server",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"api_base_url", cfg.APIBaseURL,
		"activity_backend", act.Type.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on port %s: %w", cfg.Port, err)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
	return nil
}
