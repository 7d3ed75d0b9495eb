// Package main provides the entry point for the daily quest worker. It runs
// the quest assignment loop and exposes a small health endpoint.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mathapp/internal/config"
	"mathapp/internal/di"
	"mathapp/internal/observability"
	"mathapp/internal/version"
	"mathapp/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	tp, mp, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "mathapp-worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := observability.ShutdownTracerProvider(shutdownCtx, tp); err != nil {
			logger.Warn(ctx, "Error shutting down tracer provider", map[string]interface{}{"error": err.Error()})
		}
		if mp != nil {
			if err := mp.Shutdown(shutdownCtx); err != nil {
				logger.Warn(ctx, "Error shutting down meter provider", map[string]interface{}{"error": err.Error()})
			}
		}
	}()

	container := di.NewServiceContainer(cfg, logger)
	if err := container.Initialize(ctx); err != nil {
		logger.Error(ctx, "Failed to initialize services", err, nil)
		os.Exit(1)
	}

	exerciseService, err := container.GetExerciseService()
	if err != nil {
		logger.Error(ctx, "Failed to get exercise service", err, nil)
		os.Exit(1)
	}
	progressService, err := container.GetProgressService()
	if err != nil {
		logger.Error(ctx, "Failed to get progress service", err, nil)
		os.Exit(1)
	}

	instance, _ := os.Hostname()
	w := worker.NewWorker(container.GetDatabase(), exerciseService, progressService, instance, cfg, logger)

	go w.Start(ctx)

	// Health and status endpoint
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(observability.GinMiddleware("mathapp-worker"))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "worker"})
	})
	router.GET("/v1/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, w.GetStatus())
	})
	router.GET("/v1/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":   "worker",
			"version":   version.Version,
			"commit":    version.Commit,
			"buildTime": version.BuildTime,
		})
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := router.Run(":" + cfg.Server.WorkerPort); err != nil {
			serverErr <- err
		}
	}()

	logger.Info(ctx, "Worker started", map[string]interface{}{
		"instance": instance,
		"port":     cfg.Server.WorkerPort,
	})

	select {
	case <-shutdownCh:
		logger.Info(ctx, "Received shutdown signal, shutting down gracefully", nil)
	case err := <-serverErr:
		logger.Error(ctx, "Worker health server failed", err, nil)
	}

	w.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.WorkerShutdownTimeout)
	defer shutdownCancel()
	if err := container.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Error during worker shutdown", err, nil)
		os.Exit(1)
	}

	logger.Info(ctx, "Worker shutdown completed", nil)
}
