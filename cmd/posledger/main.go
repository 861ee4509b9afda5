package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"posledger/internal/cli"
	apphttp "posledger/internal/http"
	"posledger/internal/log"
	"posledger/internal/report"
	"posledger/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()

	ctx, stop := cli.SignalContext()
	defer stop()

	store, cleanup := cli.OpenTransactionStore(ctx, logger, cfg)
	defer func() {
		if err := cleanup(); err != nil {
			logger.Error("Failed to close storage backend", log.FieldError, err.Error())
		}
	}()

	opts := []services.Option{services.WithLogger(logger)}
	if amqpClient := cli.ConnectAMQP(logger, cfg, false); amqpClient != nil {
		defer amqpClient.Close()
		opts = append(opts, services.WithNotifier(amqpClient))
	}

	ledger := services.NewLedgerService(ctx, store, opts...)

	srv := apphttp.NewServer(":"+cfg.Port, ledger, apphttp.Options{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ReportCacheSize:    cfg.ReportCacheSize,
		ReportCacheTTL:     cfg.ReportCacheTTL,
		Renderer:           report.NewRenderer(report.WithCurrency(cfg.CurrencySymbol)),
		Logger:             logger,
	})
	srv.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting posledger server",
			"port", cfg.Port,
			"backend", cfg.StorageBackend,
			"amqp", cfg.AMQPEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cli.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully", "at", time.Now().Format(time.RFC3339))
}
