package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/escrowd/config"
	"github.com/guttosm/escrowd/internal/api"
	"github.com/guttosm/escrowd/internal/auth"
	"github.com/guttosm/escrowd/internal/ledger"
	"github.com/guttosm/escrowd/internal/logger"
	"github.com/guttosm/escrowd/internal/middleware"
	"github.com/guttosm/escrowd/internal/notify"
	"github.com/guttosm/escrowd/internal/service"
)

const shutdownTimeout = 10 * time.Second

// InitializeApp sets up all application dependencies and returns
// a fully configured Gin router, a cleanup function for graceful shutdown,
// and any error encountered during initialization.
//
// Responsibilities:
//   - Opens the storage backend chosen by STORAGE_DRIVER.
//   - Starts the settlement notification dispatcher and its sinks.
//   - Builds the ledger, the exchange service and the HTTP handlers.
//   - Configures the Gin router with JWT-protected routes and health probes.
//   - Provides a cleanup function that drains notifications and closes storage.
func InitializeApp() (*gin.Engine, func(), error) {
	cfg := config.AppConfig

	repos, err := OpenStorage(cfg)
	if err != nil {
		return nil, nil, err
	}

	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		_ = repos.Close()
		return nil, nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	sinks, err := buildSinks(cfg.Notify)
	if err != nil {
		_ = repos.Close()
		return nil, nil, fmt.Errorf("failed to initialize notifications: %w", err)
	}
	dispatcher := notify.NewDispatcher(notify.DispatcherConfig{
		QueueSize:       cfg.Notify.QueueSize,
		Workers:         cfg.Notify.Workers,
		DeliveryTimeout: cfg.Notify.DeliveryTimeout,
	}, sinks...)

	l := ledger.New(repos, ledger.WithNotifier(dispatcher))
	svc := service.NewExchangeService(l)
	handler := api.NewHandler(svc)

	middleware.SetRateLimit(cfg.Server.RateLimitPerMinute)
	router := api.NewRouter(handler, tokens)

	api.NewHealthHandler(repos.Ping).Register(router)

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := dispatcher.Close(ctx); err != nil {
			logger.L().Warn().Err(err).Msg("pending notifications not delivered")
		}
		if err := repos.Close(); err != nil {
			logger.L().Warn().Err(err).Msg("storage close failed")
		}
	}

	return router, cleanup, nil
}
