package main

import (
	"context"
	"os/signal"
	"syscall"

	"moneta/internal/amqp"
	"moneta/internal/cli"
	"moneta/internal/services"
	"moneta/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	logger.Info("Starting moneta-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Publishing is best effort: without a broker the materialized rows stay
	// pending and the mirror worker picks them up by polling.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without publishing", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
		}
	}

	service := services.NewLedgerService(repo, publisher)
	w := worker.NewMaterializeWorker(service, cfg.MaterializeInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Materialize worker configured",
		"interval", cfg.MaterializeInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	if err := w.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("Materialize worker stopped with error", "error", err)
	}
	logger.Info("Moneta-worker shutdown complete")
}
