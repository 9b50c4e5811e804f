// Package worker consumes expense events and mirrors them into a spreadsheet.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"expenses/internal/amqp"
	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/sheets"
)

// EventSource is satisfied by *amqp.Client.
type EventSource interface {
	ConsumeEvents(ctx context.Context, handler func(context.Context, *amqp.ExpenseEvent) error) error
}

// SyncWorker applies expense events to a sheets.Mirror. Events carry the
// full row, so the worker never reads the database.
type SyncWorker struct {
	mirror sheets.Mirror
	logger *applog.Logger

	processed atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
}

// Stats counts handled events since start.
type Stats struct {
	Processed int64
	Skipped   int64
	Failed    int64
}

func NewSyncWorker(mirror sheets.Mirror, logger *applog.Logger) *SyncWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &SyncWorker{mirror: mirror, logger: logger.WithComponent(applog.ComponentWorker)}
}

// Run consumes events from src until ctx is cancelled.
func (w *SyncWorker) Run(ctx context.Context, src EventSource) error {
	return src.ConsumeEvents(ctx, w.HandleEvent)
}

// HandleEvent mirrors one event. A returned error asks the broker to redeliver;
// events that can never succeed are logged and dropped.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	if ev == nil {
		w.skipped.Add(1)
		return nil
	}
	if ev.Type == amqp.EventLimitExceeded {
		w.logger.InfoContext(ctx, "Limit exceeded",
			applog.FieldUserID, ev.UserID,
			applog.FieldCategory, ev.Category,
			applog.FieldAmountCents, ev.AmountCents,
			applog.FieldLimitCents, ev.LimitCents)
		w.skipped.Add(1)
		return nil
	}
	if ev.ExpenseID <= 0 {
		w.logger.WarnContext(ctx, "Dropping event without expense id", applog.FieldEventType, ev.Type)
		w.skipped.Add(1)
		return nil
	}

	var err error
	switch ev.Type {
	case amqp.EventExpenseCreated:
		err = w.mirror.Append(ctx, RowFromEvent(ev))
	case amqp.EventExpenseUpdated:
		err = w.mirror.Update(ctx, RowFromEvent(ev))
	case amqp.EventExpenseDeleted:
		err = w.mirror.Clear(ctx, ev.ExpenseID)
	default:
		w.logger.WarnContext(ctx, "Dropping unknown event type", applog.FieldEventType, ev.Type)
		w.skipped.Add(1)
		return nil
	}
	if err != nil {
		w.failed.Add(1)
		return fmt.Errorf("mirror %s %d: %w", ev.Type, ev.ExpenseID, err)
	}

	w.processed.Add(1)
	w.logger.InfoContext(ctx, "Expense mirrored",
		applog.FieldEventType, ev.Type,
		applog.FieldExpenseID, ev.ExpenseID,
		applog.FieldOperation, applog.OpMirror)
	return nil
}

func (w *SyncWorker) Stats() Stats {
	return Stats{
		Processed: w.processed.Load(),
		Skipped:   w.skipped.Load(),
		Failed:    w.failed.Load(),
	}
}

// RowFromEvent maps an event onto a sheet row.
func RowFromEvent(ev *amqp.ExpenseEvent) sheets.Row {
	return sheets.Row{
		ID:          ev.ExpenseID,
		UserID:      ev.UserID,
		Date:        ev.Date,
		Amount:      core.Money{Cents: ev.AmountCents},
		Category:    ev.Category,
		Description: ev.Description,
	}
}
