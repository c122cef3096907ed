// Package ingest turns bulk upload bodies into candidate expense rows.
//
// Parsing never fails on a single bad row: such rows come back with Err set
// and the caller reports them as rejected. Only a body that cannot be read
// as a batch at all (not an array, no header, no rows) is an error.
package ingest

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"expensetracker/internal/core"
)

var (
	ErrNotArray    = errors.New("body must be a JSON array of expenses")
	ErrInvalidJSON = errors.New("body is not valid JSON")
	ErrNoHeader    = errors.New("csv file has no header row")
)

// Row is one candidate record and its position in the source.
type Row struct {
	Line  int
	Input core.ExpenseInput
	Err   error
}

// Reject converts a failed row into its report.
func (r Row) Reject(err error) core.RowError {
	return core.RowError{Row: r.Line, Reason: err.Error()}
}

// ParseJSON reads a JSON array. Each element is decoded on its own so one
// malformed element does not spoil the rest.
func ParseJSON(r io.Reader) ([]Row, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &core.ValidationError{Field: "body", Err: ErrNotArray}
		}
		if errors.Is(err, io.EOF) {
			return nil, &core.ValidationError{Field: "body", Err: core.ErrEmptyBatch}
		}
		return nil, &core.ValidationError{Field: "body", Err: ErrInvalidJSON}
	}
	if len(raw) == 0 {
		return nil, &core.ValidationError{Field: "body", Err: core.ErrEmptyBatch}
	}

	rows := make([]Row, 0, len(raw))
	for i, msg := range raw {
		row := Row{Line: i + 1}
		if err := json.Unmarshal(msg, &row.Input); err != nil {
			row.Err = fmt.Errorf("invalid row: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type column int

const (
	colIgnored column = iota
	colAmount
	colCategory
	colPaymentMethod
)

func headerColumn(name string) column {
	name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
	switch strings.NewReplacer("_", "", " ", "", "-", "").Replace(name) {
	case "amount":
		return colAmount
	case "category":
		return colCategory
	case "paymentmethod":
		return colPaymentMethod
	default:
		return colIgnored
	}
}

// ParseCSV reads a header record followed by data records. Cells are zipped
// with the header by position; missing trailing cells count as absent.
// Amount, category and paymentMethod are required in every row.
func ParseCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &core.ValidationError{Field: "file", Err: ErrNoHeader}
	}
	if err != nil {
		return nil, &core.ValidationError{Field: "file", Err: fmt.Errorf("read csv header: %w", err)}
	}
	cols := make([]column, len(header))
	for i, h := range header {
		cols[i] = headerColumn(h)
	}

	var rows []Row
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return nil, &core.ValidationError{Field: "file", Err: fmt.Errorf("read csv: %w", err)}
			}
			rows = append(rows, Row{Line: pe.StartLine, Err: fmt.Errorf("malformed csv: %w", pe.Err)})
			continue
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, csvRow(line, cols, record))
	}

	if len(rows) == 0 {
		return nil, &core.ValidationError{Field: "file", Err: core.ErrEmptyBatch}
	}
	return rows, nil
}

func csvRow(line int, cols []column, record []string) Row {
	row := Row{Line: line}
	var amount, category, method string
	for i, cell := range record {
		if i >= len(cols) {
			break
		}
		cell = strings.TrimSpace(cell)
		switch cols[i] {
		case colAmount:
			amount = cell
		case colCategory:
			category = cell
		case colPaymentMethod:
			method = cell
		}
	}

	switch {
	case amount == "":
		row.Err = &core.ValidationError{Field: "amount", Err: core.ErrRequired}
	case category == "":
		row.Err = &core.ValidationError{Field: "category", Err: core.ErrRequired}
	case method == "":
		row.Err = &core.ValidationError{Field: "paymentMethod", Err: core.ErrRequired}
	}
	if row.Err != nil {
		return row
	}

	v, err := core.ParseAmount(amount)
	if err != nil {
		row.Err = &core.ValidationError{Field: "amount", Err: err}
		return row
	}
	row.Input = core.ExpenseInput{
		Amount:        core.Some(v),
		Category:      core.Some(category),
		PaymentMethod: core.Some(method),
	}
	return row
}
