package main

import (
	"context"
	"errors"

	"expenses/internal/amqp"
	"expenses/internal/cli"
	"expenses/internal/config"
	applog "expenses/internal/log"
	gsheet "expenses/internal/sheets/google"
	"expenses/internal/worker"
)

func main() {
	cfg, err := cli.LoadConfig((*config.Config).ValidateWorker)
	logger := cli.SetupLogger(cfg.LogLevel)
	if err != nil {
		cli.Fatal(logger, "Configuration validation failed", err)
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	sheet, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
	}
	if err := sheet.EnsureHeader(ctx); err != nil {
		logger.Warn("Could not write sheet header", applog.FieldError, err)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer client.Close()

	w := worker.NewSyncWorker(sheet, logger)
	logger.Info("Starting expenses-worker", "queue", cfg.AMQPQueue, "sheet", cfg.GoogleSheetName)

	if err := w.Run(ctx, client); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Event consumption failed", applog.FieldError, err)
	}

	st := w.Stats()
	logger.Info("Worker stopped", "processed", st.Processed, "skipped", st.Skipped, "failed", st.Failed)
}
