package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"bakingai/internal/api"
	"bakingai/internal/config"
	"bakingai/internal/container"
	"bakingai/internal/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	if !config.LoadEnvFile(".env.local", ".env") {
		logger.Get().Info("No .env file found, using system environment variables")
	}
	logger.Init(config.GetEnv("LOG_LEVEL", "info"))
	log := logger.Get()

	if config.GetEnv("GIN_MODE", "") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.APIConfig()
	c, err := container.NewAPI(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize recipe API")
	}
	defer c.Close()

	go c.Reloader.Run(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.SetupRouter(c.Handler, cfg.CORSOrigins, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("catalog", cfg.CatalogSource).Infof("Recipe API starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down recipe API...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}
