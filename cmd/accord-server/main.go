package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"accord/internal/app"
	"accord/internal/config"
	"accord/internal/logging"
)

func main() {
	logger := logging.NewComponentLogger("Main")
	logger.Info("Starting accord consensus server...")

	cfg, err := config.Load(os.Getenv("ACCORD_CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	logger.Info("=== Server Configuration ===")
	logger.Info("Primary model: %s", cfg.OpenAI.Model)
	logger.Info("Secondary model: %s", cfg.Anthropic.Model)
	logger.Info("Default mode: %s (iterations %d)", cfg.Mode, cfg.Iterations)
	logger.Info("Port: %d", cfg.Server.Port)
	logger.Info("===========================")

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      application.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // No timeout for SSE
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("Server listening on :%d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server stopped")
}
