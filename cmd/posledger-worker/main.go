package main

import (
	"context"
	"errors"
	"os"
	"time"

	"posledger/internal/cli"
	"posledger/internal/log"
	"posledger/internal/report"
	"posledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()
	logger.Info("Starting posledger-worker", "report_dir", cfg.ReportDir)

	if cfg.StorageBackend == "memory" {
		logger.Error("The worker needs a shared storage backend (sqlite or redis)")
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	store, cleanup := cli.OpenTransactionStore(ctx, logger, cfg)
	defer cleanup()

	amqpClient := cli.ConnectAMQP(logger, cfg, true)
	defer amqpClient.Close()

	reports := worker.NewReportWorker(store,
		report.NewRenderer(report.WithCurrency(cfg.CurrencySymbol)),
		cfg.ReportDir, time.Local, logger)

	if err := reports.RenderToday(ctx); err != nil {
		// not fatal, the next ledger change renders again
		logger.Error("Startup render failed", log.FieldOperation, log.OpStartup, log.FieldError, err.Error())
	}

	err := amqpClient.ConsumeWithRetry(ctx, reports.HandleLedgerChanged)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
