package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/Dhoini/billing-backoffice/internal/app"
	"github.com/Dhoini/billing-backoffice/internal/config"
	"github.com/Dhoini/billing-backoffice/pkg/logger"
)

func main() {
	envPath := flag.String("env", ".env", "path to .env file")
	configDir := flag.String("config", ".", "directory with config.yaml")
	flag.Parse()

	// Загружаем конфигурацию
	cfg, err := config.LoadConfig(*envPath, *configDir)
	if err != nil {
		logger.New(logger.INFO).Fatalw("Failed to load configuration", "error", err)
	}

	// Инициализируем логгер
	log := initLogger(cfg)
	defer func() { _ = log.Sync() }()

	log.Infow("Billing back-office starting up...", "env", cfg.App.Env)

	// Контекст отменяется по SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalw("Failed to initialize application", "error", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Errorw("Error releasing resources", "error", err)
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- application.Server.Start()
	}()

	select {
	case <-ctx.Done():
		log.Infow("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			log.Errorw("HTTP server stopped", "error", err)
		}
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := application.Server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Server forced to shutdown", "error", err)
	}

	log.Infow("Server stopped gracefully")
}

// initLogger в production пишет JSON, иначе цветной консольный вывод
func initLogger(cfg *config.Config) *logger.Logger {
	level := logger.ParseLevel(cfg.Log.Level)
	if cfg.IsProduction() {
		return logger.NewProduction(level)
	}
	return logger.New(level)
}
