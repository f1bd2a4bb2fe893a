package main

import (
	"os"

	"github.com/LiftThanakorn/income-expense-tracker/internal/amqp"
	"github.com/LiftThanakorn/income-expense-tracker/internal/cli"
	"github.com/LiftThanakorn/income-expense-tracker/internal/log"
	"github.com/LiftThanakorn/income-expense-tracker/internal/services"
	"github.com/LiftThanakorn/income-expense-tracker/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentWorker)
	logger.Info("Starting tracker-worker")

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the report worker")
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	be := cli.OpenBackend(ctx, cfg, logger)
	if be.Cleanup != nil {
		defer be.Cleanup()
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	// The worker completes reports itself, so it never publishes
	reports := services.NewReportService(be.Backend, be.Backend.Remotes().Transactions,
		cli.NewAnalyzer(ctx, cfg, logger), nil, cfg.Location(), logger)

	wcfg := worker.DefaultConfig()
	wcfg.SweepInterval = cfg.ReportSweepInterval

	if err := worker.NewReportWorker(reports, client, wcfg, logger).Run(ctx); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
