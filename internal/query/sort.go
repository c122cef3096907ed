package query

import (
	"cmp"
	"errors"
	"fmt"
	"strings"

	"expensetracker/internal/core"
)

var ErrInvalidSort = errors.New("invalid sort field")

// SortKey orders by one field.
type SortKey struct {
	Field Field
	Desc  bool
}

// Sort is an ordered list of keys; earlier keys take precedence.
type Sort []SortKey

var sortable = map[Field]bool{
	FieldAmount:        true,
	FieldCategory:      true,
	FieldPaymentMethod: true,
	FieldCreatedAt:     true,
	FieldUpdatedAt:     true,
}

// DefaultSort is newest first.
func DefaultSort() Sort {
	return Sort{{Field: FieldCreatedAt, Desc: true}}
}

// ParseSort reads "-createdAt", "amount", or several keys separated by commas
// or spaces. A leading '-' sorts descending, '+' or nothing ascending.
// An empty string yields DefaultSort.
func ParseSort(s string) (Sort, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(parts) == 0 {
		return DefaultSort(), nil
	}

	out := make(Sort, 0, len(parts))
	seen := make(map[Field]bool, len(parts))
	for _, p := range parts {
		key := SortKey{}
		switch {
		case strings.HasPrefix(p, "-"):
			key.Desc = true
			p = p[1:]
		case strings.HasPrefix(p, "+"):
			p = p[1:]
		}
		key.Field = Field(p)
		if !sortable[key.Field] {
			return nil, &core.ValidationError{Field: "sort", Err: fmt.Errorf("%w %q", ErrInvalidSort, p)}
		}
		if seen[key.Field] {
			continue
		}
		seen[key.Field] = true
		out = append(out, key)
	}
	return out, nil
}

func (s Sort) String() string {
	parts := make([]string, len(s))
	for i, k := range s {
		if k.Desc {
			parts[i] = "-" + string(k.Field)
		} else {
			parts[i] = string(k.Field)
		}
	}
	return strings.Join(parts, ",")
}

// Compare orders two expenses by s, for use with slices.SortStableFunc.
func (s Sort) Compare(a, b core.Expense) int {
	for _, k := range s {
		c := compareField(a, b, k.Field)
		if k.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

func compareField(a, b core.Expense, f Field) int {
	switch f {
	case FieldAmount:
		return cmp.Compare(a.Amount, b.Amount)
	case FieldCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case FieldUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		return strings.Compare(stringValue(a, f), stringValue(b, f))
	}
}
