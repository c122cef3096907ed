package worker

import (
	"context"
	"fmt"
	"log/slog"

	"expensetracker/internal/amqp"
	"expensetracker/internal/sheets"
)

// MirrorWorker appends one activity row per affected expense for every
// event it receives.
type MirrorWorker struct {
	writer sheets.ActivityWriter
}

func NewMirrorWorker(writer sheets.ActivityWriter) *MirrorWorker {
	return &MirrorWorker{writer: writer}
}

// HandleExpenseEvent is the consumer callback. A returned error requeues the
// event.
func (w *MirrorWorker) HandleExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	rows := RowsFromEvent(ev)
	if len(rows) == 0 {
		slog.DebugContext(ctx, "Event has nothing to mirror", "type", ev.Type, "owner_id", ev.OwnerID)
		return nil
	}

	n, err := w.writer.AppendRows(ctx, rows)
	if err != nil {
		return fmt.Errorf("mirror %s event: %w", ev.Type, err)
	}

	slog.InfoContext(ctx, "Mirrored expense event",
		"type", ev.Type,
		"owner_id", ev.OwnerID,
		"rows", n)
	return nil
}

// RowsFromEvent flattens an event into activity rows, one per expense.
func RowsFromEvent(ev *amqp.ExpenseEvent) []sheets.ActivityRow {
	base := sheets.ActivityRow{
		Timestamp: ev.Timestamp,
		Event:     string(ev.Type),
		OwnerID:   ev.OwnerID,
	}

	switch ev.Type {
	case amqp.EventDeleted:
		rows := make([]sheets.ActivityRow, 0, len(ev.IDs))
		for _, id := range ev.IDs {
			r := base
			r.ExpenseID = id
			rows = append(rows, r)
		}
		return rows

	case amqp.EventCreated, amqp.EventUpdated:
		rows := make([]sheets.ActivityRow, 0, len(ev.Expenses))
		for _, e := range ev.Expenses {
			amount := e.Amount
			r := base
			r.ExpenseID = e.ID
			r.Amount = &amount
			r.Category = e.Category
			r.PaymentMethod = string(e.PaymentMethod)
			rows = append(rows, r)
		}
		return rows
	}
	return nil
}
