package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"invoicer/internal/amqp"
	"invoicer/internal/cli"
	"invoicer/internal/currency"
	apphttp "invoicer/internal/http"
	applog "invoicer/internal/log"
	"invoicer/internal/middleware/ratelimit"
	"invoicer/internal/pdf"
	"invoicer/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	result := cli.OpenBackend(context.Background(), logger, cfg)
	defer cli.CloseBackend(logger, result)

	// AMQP is optional; without it the worker polls the sync status instead.
	var publisher services.SyncPublisher
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(amqp.Config{
			URL:           cfg.AMQPURL,
			Exchange:      cfg.AMQPExchange,
			SyncQueue:     cfg.AMQPQueue,
			ReminderQueue: cfg.AMQPReminderQueue,
		})
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - invoice changes will not be published")
	}

	invoices := services.NewInvoiceService(result.Repository, publisher)
	dashboard := services.NewDashboardService(result.Repository, result.Repository, cfg.ReminderWindow)
	invoices.OnChange(dashboard.Invalidate)

	money, err := currency.NewFixed(cfg.Currency)
	if err != nil {
		logger.Error("Failed to initialize currency formatter", "error", err, "currency", cfg.Currency)
		os.Exit(1)
	}

	receiptStore, receiptDir, err := cli.NewReceiptStore(cfg)
	if err != nil {
		logger.Error("Failed to initialize receipt store", "error", err, "store", cfg.ReceiptStore)
		os.Exit(1)
	}

	checks := map[string]apphttp.Pinger{}
	if p, ok := result.Repository.(apphttp.Pinger); ok {
		checks["database"] = p
	}

	limiter := ratelimit.DefaultConfig()
	limiter.RequestsPerMinute = cfg.RateLimitPerMinute

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Invoices:       invoices,
		Dashboard:      dashboard,
		Receipts:       receiptStore,
		ReceiptDir:     receiptDir,
		Currency:       money,
		Seller:         pdf.Seller{Name: cfg.SellerName, Address: cfg.SellerAddress, OrgNr: cfg.SellerOrgNr},
		DefaultVATRate: cfg.DefaultVATRate,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Checks:         checks,
		Caches:         map[string]apphttp.SizedCache{"revenue": dashboard.Cache()},
		Logger:         logger,
		Limiter:        limiter,
		TrustedProxies: cfg.TrustedProxies,
	})
	if err != nil {
		logger.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	// Configure server timeouts and limits
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.WithComponent(applog.ComponentHTTP).Info("Starting invoicer server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"currency", cfg.Currency,
		"receipts", cfg.ReceiptStore,
		"amqp", cfg.AMQPEnabled())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
