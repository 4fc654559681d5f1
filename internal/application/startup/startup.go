// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/atomic-builder-go/internal/application/container"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/atomic-builder-go/internal/presentation/http/server"
	"github.com/AtRiskMedia/atomic-builder-go/pkg/config"
)

// Initialize performs the complete startup sequence and blocks until the
// process receives SIGINT or SIGTERM.
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	log.Println("\033[32m" + `
  ┌─┐┌┬┐┌─┐┌┬┐┬┌─┐  ┌┐ ┬ ┬┬┬  ┌┬┐┌─┐┬─┐
  ├─┤ │ │ ││││││    ├┴┐│ │││   ││├┤ ├┬┘
  ┴ ┴ ┴ └─┘┴ ┴┴└─┘  └─┘└─┘┴┴─┘─┴┘└─┘┴└─
` + "\033[97m" + `
  made by At Risk Media
` + "\033[0m")

	// Step 1: Initialize logging
	log.Println("Initializing channeled logger...")
	logBroadcaster := logging.NewLogBroadcaster(config.LogStreamBuffer)
	logger, err := newLogger(logBroadcaster)
	if err != nil {
		logBroadcaster.Shutdown()
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()
	logger.Startup().Info("Logger initialized - switching to channeled logging",
		"level", config.LogLevel, "json", config.LogJSON, "toFile", config.LogToFile)

	// Step 2: Create dependency injection container
	phaseStart := time.Now()
	appContainer := container.NewContainer(logger, logBroadcaster)
	logger.LogStartupPhase("container", time.Since(phaseStart), true, map[string]any{
		"renderFormat":  appContainer.ImageProcessor.Format(),
		"renderWorkers": config.RenderWorkers,
	})

	// Step 3: Start background workers
	logger.Startup().Info("Starting background workers...")
	phaseStart = time.Now()

	broadcasterDone := make(chan struct{})
	go func() {
		defer close(broadcasterDone)
		appContainer.ProjectBroadcaster.Run(ctx)
	}()

	cleanupDone := make(chan struct{})
	go func() {
		defer close(cleanupDone)
		appContainer.CleanupWorker.Start(ctx)
	}()

	logger.LogStartupPhase("workers", time.Since(phaseStart), true, nil)

	// Step 4: Start HTTP server
	logger.Startup().Info("Starting HTTP server...")
	phaseStart = time.Now()

	httpServer := server.New(config.Port, appContainer)

	logger.Startup().Info("HTTP server initialized", "port", config.Port, "duration", time.Since(phaseStart))

	// Step 5: Setup graceful shutdown
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	serverFailed := make(chan error, 1)
	go func() {
		logger.System().Info("Starting HTTP server", "address", ":"+config.Port)
		if err := httpServer.Start(); err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
			serverFailed <- err
		}
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"port", config.Port)

	// Wait for shutdown signal
	var runErr error
	select {
	case sig := <-gracefulShutdown:
		logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...", "signal", sig.String())
	case runErr = <-serverFailed:
		logger.Shutdown().Error("HTTP server stopped unexpectedly, shutting down", "error", runErr.Error())
	}

	shutdownStart := time.Now()

	// Stop server first so no new mutations arrive
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Shutdown().Info("Stopping HTTP server...")
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	// Cancel background tasks
	cancelBackgroundTasks()
	<-broadcasterDone
	<-cleanupDone

	logger.Shutdown().Info("Waiting for crop jobs...")
	if err := appContainer.RenderService.Wait(shutdownCtx); err != nil {
		logger.Shutdown().Warn("Crop jobs still running at shutdown", "pending", appContainer.RenderService.Pending(), "error", err.Error())
	}

	logBroadcaster.Shutdown()

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"revision", appContainer.Store.Revision(),
		"shutdownDuration", time.Since(shutdownStart))

	return runErr
}

func newLogger(broadcaster *logging.LogBroadcaster) (*logging.ChanneledLogger, error) {
	cfg := logging.DefaultLoggerConfig()
	cfg.OutputToFile = config.LogToFile
	cfg.LogDirectory = config.LogDirectory
	cfg.JSONFormat = config.LogJSON
	cfg.Broadcaster = broadcaster

	level, err := logging.ParseLevel(config.LogLevel)
	if err != nil {
		log.Printf("Invalid LOG_LEVEL %q, using INFO: %v", config.LogLevel, err)
	}
	cfg.DefaultLevel = level

	return logging.NewChanneledLogger(cfg)
}

// setupLogging configures application logging
func setupLogging() {
	switch config.GinMode {
	case gin.DebugMode, gin.TestMode:
		gin.SetMode(config.GinMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
