package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"invoicer/internal/amqp"
	"invoicer/internal/cli"
	applog "invoicer/internal/log"
	"invoicer/internal/services"
	gsheet "invoicer/internal/sheets/google"
	"invoicer/internal/worker"
)

// localReminders hands reminders straight to the worker when no broker
// is configured.
type localReminders struct {
	worker *worker.SyncWorker
}

func (l localReminders) PublishReminder(ctx context.Context, msg amqp.ReminderMessage) error {
	return l.worker.HandleReminder(ctx, &msg)
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger().WithComponent(applog.ComponentWorker)
	logger.Info("Starting invoicer-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	result := cli.OpenBackend(context.Background(), logger, cfg)
	defer cli.CloseBackend(logger, result)

	// Google Sheets export is optional; reminders run without it.
	var exporter services.InvoiceExporter
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		var err error
		amqpClient, err = amqp.NewClient(amqp.Config{
			URL:           cfg.AMQPURL,
			Exchange:      cfg.AMQPExchange,
			SyncQueue:     cfg.AMQPQueue,
			ReminderQueue: cfg.AMQPReminderQueue,
		})
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
	}

	syncWorker := worker.NewSyncWorker(result.Repository, exporter, cfg.SyncBatchSize)

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, nil)
	g, gctx := errgroup.WithContext(ctx)

	// Reminders: published to the broker when present, handled in-process otherwise.
	var publisher services.ReminderPublisher = localReminders{worker: syncWorker}
	if amqpClient != nil {
		publisher = amqpClient
	}
	reminders := services.NewReminderService(result.Repository, publisher, cfg.ReminderWindow)
	scheduler := cron.New()
	if _, err := reminders.Schedule(gctx, scheduler, cfg.ReminderSchedule); err != nil {
		logger.Error("Failed to schedule reminders", "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	logger.Info("Payment reminders scheduled", "schedule", cfg.ReminderSchedule, "window", cfg.ReminderWindow)
	g.Go(func() error {
		<-gctx.Done()
		<-scheduler.Stop().Done()
		return nil
	})

	if amqpClient != nil {
		g.Go(func() error {
			return amqpClient.ConsumeReminders(gctx, func(msg *amqp.ReminderMessage) error {
				return syncWorker.HandleReminder(gctx, msg)
			})
		})
	}

	if exporter != nil {
		logger.Info("Performing startup sync check...")
		if err := syncWorker.StartupSyncCheck(gctx); err != nil {
			// Pending invoices are retried by the consumer or processor below.
			logger.Error("Failed startup sync check", "error", err)
		}

		switch {
		case amqpClient != nil:
			g.Go(func() error {
				return amqpClient.ConsumeInvoiceSync(gctx, func(msg *amqp.InvoiceSyncMessage) error {
					return syncWorker.HandleSyncMessage(gctx, msg)
				})
			})
		case result.SQLite != nil:
			processor := services.NewSyncProcessor(result.SQLite, exporter, services.SyncProcessorConfig{
				PollInterval: cfg.SyncInterval,
				BatchSize:    cfg.SyncBatchSize,
				MaxRetries:   services.DefaultSyncProcessorConfig().MaxRetries,
			})
			if err := processor.Start(gctx); err != nil {
				logger.Error("Failed to start sync processor", "error", err)
				os.Exit(1)
			}
			g.Go(func() error {
				<-gctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return processor.Stop(stopCtx)
			})
			logger.Info("Polling for pending invoices", "interval", cfg.SyncInterval)
		default:
			logger.Info("No broker and no sync-tracking backend - invoices are only exported at startup")
		}
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
	}

	if ctx.Err() != nil {
		cli.WaitForShutdown(ctx, done)
	}
	logger.Info("Worker shutdown complete")
}
