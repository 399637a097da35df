package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"moneta/internal/amqp"
	"moneta/internal/cli"
	apphttp "moneta/internal/http"
	"moneta/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// AMQP is optional for the API server: without it the mirror worker
	// falls back to polling the pending rows.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, mirror falls back to polling", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
		}
	}

	service := services.NewLedgerService(repo, publisher)

	// Catch up the recurring window before serving; the worker keeps it
	// sliding afterwards.
	if inserted, err := service.RunMaterialization(context.Background()); err != nil {
		logger.Error("Startup materialization failed", "error", err)
	} else if inserted > 0 {
		logger.Info("Startup materialization complete", "inserted", inserted)
	}

	srv := apphttp.NewServer(":"+cfg.Port, service)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting moneta server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
