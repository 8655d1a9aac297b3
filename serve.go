package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/metalyz/backend/api"
)

// shutdownTimeout bounds how long in-flight requests get on shutdown.
const shutdownTimeout = 30 * time.Second

// ServeCmd is the "serve" subcommand.
type ServeCmd struct{}

// Run starts the API and blocks until the context is cancelled.
func (c *ServeCmd) Run(deps *Dependencies) error {
	cfg := deps.Config
	logger := deps.Logger
	gin.SetMode(cfg.GinMode)

	svc, err := buildServices(deps.Ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("failed to close services", "err", err)
		}
	}()

	opts := []api.Option{
		api.WithRequests(svc.Requests),
		api.WithStorage(svc.Storage),
		api.WithGatherer(svc.Registry),
		api.WithLogger(logger),
	}
	if svc.History != nil {
		opts = append(opts, api.WithHistory(svc.History))
	}

	server := api.NewServer(api.Config{
		Addr:       cfg.Addr(),
		DevMode:    cfg.DevMode,
		CORSOrigin: cfg.CORSOrigin,
		RateLimit:  cfg.RateLimit,
		RateBurst:  cfg.RateBurst,
	}, svc.Analyzer, opts...)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run()
	}()

	logger.Info("metalyz listening",
		"url", fmt.Sprintf("http://localhost:%s", cfg.Port),
		"cache", cfg.CacheBackend,
		"devMode", cfg.DevMode,
	)

	select {
	case err := <-errCh:
		return err
	case <-deps.Ctx.Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
