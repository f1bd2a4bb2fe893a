package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/LiftThanakorn/income-expense-tracker/internal/amqp"
	"github.com/LiftThanakorn/income-expense-tracker/internal/auth"
	"github.com/LiftThanakorn/income-expense-tracker/internal/cache"
	"github.com/LiftThanakorn/income-expense-tracker/internal/cli"
	apphttp "github.com/LiftThanakorn/income-expense-tracker/internal/http"
	"github.com/LiftThanakorn/income-expense-tracker/internal/log"
	"github.com/LiftThanakorn/income-expense-tracker/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentApp)
	ctx, stop := cli.SignalContext()
	defer stop()

	be := cli.OpenBackend(ctx, cfg, logger)
	if be.Cleanup != nil {
		defer func() {
			if err := be.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err)
			}
		}()
	}
	loc := cfg.Location()

	ledger := services.NewLedgerService(be.Backend.Remotes(), services.LedgerOptions{
		SessionCacheSize: cfg.SessionCacheSize,
		SessionTTL:       cfg.SessionTTL,
		Location:         loc,
	}, logger)

	authenticator := auth.NewAuthenticator(be.Backend, auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiresIn), logger)

	analyzer := cli.NewAnalyzer(ctx, cfg, logger)
	archive, closeArchive := cli.NewSlipArchive(ctx, cfg, logger)
	defer closeArchive()

	// Without a broker reports run inside the request
	var publisher services.ReportPublisher
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
	}
	reports := services.NewReportService(be.Backend, be.Backend.Remotes().Transactions, analyzer, publisher, loc, logger)

	caches := cache.NewManager()
	for _, c := range ledger.Caches() {
		caches.Register(c)
	}
	caches.Register(reports.Cache())
	caches.StartCleanup(5 * time.Minute)
	defer caches.Stop()

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Location:           loc,
	}, apphttp.Deps{
		Ledger:  ledger,
		Auth:    authenticator,
		Slips:   services.NewSlipService(analyzer, archive, logger),
		Reports: reports,
		Ping:    be.Backend.Ping,
	}, logger)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	}()

	logger.Info("Starting tracker server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"async_reports", reports.Async(),
		"timezone", loc.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
