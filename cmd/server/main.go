package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nemanja-m/memr/internal/api/rest"
	"github.com/nemanja-m/memr/internal/runner"
	"github.com/nemanja-m/memr/internal/shared/config"
	"github.com/nemanja-m/memr/internal/shared/logging"
	"github.com/nemanja-m/memr/pkg/local"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.LoadServer(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		slog.Error("Failed to create logger", "error", err)
		os.Exit(1)
	}

	engine := local.Config{
		Mode:    local.Mode(cfg.Engine.Mode),
		Workers: cfg.Engine.Workers,
	}
	if _, err := local.ParseMode(cfg.Engine.Mode); err != nil {
		logger.Fatal("Invalid engine configuration", "error", err)
	}

	service := runner.NewService(
		runner.NewInMemoryRunStore(),
		logger,
		runner.WithInputRoot(cfg.REST.InputRoot),
	)
	server := rest.NewServer(cfg.REST, service, engine, logger)

	go func() {
		logger.Info("Starting REST API server",
			"addr", cfg.REST.Addr,
			"mode", cfg.Engine.Mode,
			"workers", cfg.Engine.Workers,
			"input_root", cfg.REST.InputRoot,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("REST server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.REST.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("Server stopped")
}
