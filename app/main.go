package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tasks-api/app/config"
	"tasks-api/app/controllers"
	"tasks-api/app/logging"
	"tasks-api/app/routes"
	"tasks-api/app/services"

	"github.com/charmbracelet/log"
)

func main() {
	cfg, err := config.Load(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatal("Failed to load configuration", "err", err)
	}

	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize the task store
	store, err := config.OpenStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open task store", "store", cfg.Store, "err", err)
	}
	defer store.Close(context.Background())

	taskService := services.NewTaskService(store, logger)
	taskController := controllers.NewTaskController(taskService, logger)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           routes.NewHandler(taskController, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server is running", "addr", cfg.Addr, "store", cfg.Store)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped", "err", err)
		}
		return
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "err", err)
	}
}
