package sqlite

import (
	"fmt"
	"strings"
	"time"

	"expensetracker/internal/query"
)

// timeLayout is fixed width so that text comparison orders like time.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var columns = map[query.Field]string{
	query.FieldID:            "id",
	query.FieldOwner:         "owner_id",
	query.FieldAmount:        "amount",
	query.FieldCategory:      "category",
	query.FieldPaymentMethod: "payment_method",
	query.FieldCreatedAt:     "created_at",
	query.FieldUpdatedAt:     "updated_at",
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// compileWhere turns a filter into a WHERE clause body and its arguments.
func compileWhere(f query.Filter) (string, []any, error) {
	var (
		parts []string
		args  []any
	)
	for _, c := range f.Clauses() {
		col, ok := columns[c.Field]
		if !ok {
			return "", nil, fmt.Errorf("unsupported filter field %q", c.Field)
		}
		switch c.Op {
		case query.OpEq:
			parts = append(parts, col+" = ?")
			args = append(args, c.Value)
		case query.OpRange:
			if c.From != nil {
				parts = append(parts, col+" >= ?")
				args = append(args, formatTime(*c.From))
			}
			if c.To != nil {
				parts = append(parts, col+" <= ?")
				args = append(args, formatTime(*c.To))
			}
		}
	}
	if len(parts) == 0 {
		return "", nil, fmt.Errorf("empty filter")
	}
	return strings.Join(parts, " AND "), args, nil
}

// compileOrder renders ORDER BY with id as the final tie breaker.
func compileOrder(s query.Sort) (string, error) {
	keys := make([]string, 0, len(s)+1)
	for _, k := range s {
		col, ok := columns[k.Field]
		if !ok {
			return "", fmt.Errorf("unsupported sort field %q", k.Field)
		}
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		keys = append(keys, col+" "+dir)
	}
	keys = append(keys, "id ASC")
	return strings.Join(keys, ", "), nil
}
