package main

import (
	"context"
	"errors"
	"fmt"

	"expensetracker/internal/amqp"
	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	applog "expensetracker/internal/log"
	gsheet "expensetracker/internal/sheets/google"
	"expensetracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	if err := run(); err != nil {
		cli.Exit("expense-worker", err)
	}
}

func run() error {
	cfg, err := cli.LoadConfig((*config.Config).ValidateMirror)
	if err != nil {
		return err
	}

	logger, err := cli.SetupLogger(cfg, applog.ComponentWorker)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := cli.SignalContext()
	defer stop()

	sheets, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return fmt.Errorf("google sheets: %w", err)
	}
	if err := sheets.EnsureHeader(ctx); err != nil {
		return err
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("connect amqp: %w", err)
	}
	defer client.Close()

	mirror := worker.NewMirrorWorker(sheets)
	logger.Info("Starting activity mirror",
		"queue", cfg.AMQPQueue,
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	err = client.ConsumeExpenseEvents(ctx, mirror.HandleExpenseEvent)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consume expense events: %w", err)
	}
	logger.Info("Activity mirror stopped")
	return nil
}
