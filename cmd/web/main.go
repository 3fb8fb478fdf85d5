package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"bakingai/internal/config"
	"bakingai/internal/container"
	"bakingai/internal/logger"
)

func main() {
	if !config.LoadEnvFile(".env.local", ".env") {
		logger.Get().Info("No .env file found, using system environment variables")
	}
	logger.Init(config.GetEnv("LOG_LEVEL", "info"))
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.WebConfig()
	c, err := container.NewWeb(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize web front")
	}
	defer c.Close()

	go c.Sessions.Run(ctx, time.Hour)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      c.Handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("api", cfg.RecipeAPIURL).Infof("Web front starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down web front...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}
