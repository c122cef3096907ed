// Package sheets defines the activity mirror port. The google subpackage
// implements it on a Google Sheets spreadsheet.
package sheets

import (
	"context"
	"time"
)

// Header is the column layout of the activity sheet.
var Header = []string{"timestamp", "event", "ownerId", "expenseId", "amount", "category", "paymentMethod"}

// ActivityRow is one mirrored line. Expense fields are empty for deletions.
type ActivityRow struct {
	Timestamp     time.Time
	Event         string
	OwnerID       string
	ExpenseID     string
	Amount        *float64
	Category      string
	PaymentMethod string
}

// Values returns the row in Header order.
func (r ActivityRow) Values() []any {
	var amount any = ""
	if r.Amount != nil {
		amount = *r.Amount
	}
	return []any{
		r.Timestamp.UTC().Format(time.RFC3339),
		r.Event,
		r.OwnerID,
		r.ExpenseID,
		amount,
		r.Category,
		r.PaymentMethod,
	}
}

// Ports for outbound adapters.
type (
	ActivityWriter interface {
		// AppendRows appends rows in order and returns the number written.
		AppendRows(ctx context.Context, rows []ActivityRow) (int, error)
	}
)
