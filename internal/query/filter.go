// Package query builds store-independent expense queries.
//
// A Filter is an ordered list of typed clauses (equality and range) that each
// storage adapter compiles into its own query language. Filters can also be
// evaluated in memory with Match, which is what the memory store and the tests
// use, so the query engine can be exercised without a live database.
package query

import (
	"time"

	"expensetracker/internal/core"
)

// Field names a queryable expense attribute, using its JSON name.
type Field string

const (
	FieldID            Field = "id"
	FieldOwner         Field = "ownerId"
	FieldAmount        Field = "amount"
	FieldCategory      Field = "category"
	FieldPaymentMethod Field = "paymentMethod"
	FieldCreatedAt     Field = "createdAt"
	FieldUpdatedAt     Field = "updatedAt"
)

// Op is a clause operator.
type Op int

const (
	OpEq Op = iota
	OpRange
)

// Clause is a single predicate. Eq clauses carry Value; Range clauses carry
// From and/or To, both inclusive.
type Clause struct {
	Field Field
	Op    Op
	Value string
	From  *time.Time
	To    *time.Time
}

// Filter is a conjunction of clauses.
type Filter struct {
	clauses []Clause
}

// Builder accumulates clauses. The owner clause is always first.
type Builder struct {
	f Filter
}

// ForOwner starts a filter scoped to ownerID.
func ForOwner(ownerID string) *Builder {
	b := &Builder{}
	b.f.clauses = append(b.f.clauses, Clause{Field: FieldOwner, Op: OpEq, Value: ownerID})
	return b
}

// Eq adds an equality clause on a string field.
func (b *Builder) Eq(field Field, value string) *Builder {
	b.f.clauses = append(b.f.clauses, Clause{Field: field, Op: OpEq, Value: value})
	return b
}

// Range adds a time range clause. A nil bound is open; both nil is a no-op.
func (b *Builder) Range(field Field, from, to *time.Time) *Builder {
	if from == nil && to == nil {
		return b
	}
	b.f.clauses = append(b.f.clauses, Clause{Field: field, Op: OpRange, From: from, To: to})
	return b
}

func (b *Builder) Build() Filter {
	out := Filter{clauses: make([]Clause, len(b.f.clauses))}
	copy(out.clauses, b.f.clauses)
	return out
}

// Clauses returns a copy of the filter clauses in insertion order.
func (f Filter) Clauses() []Clause {
	out := make([]Clause, len(f.clauses))
	copy(out, f.clauses)
	return out
}

// Owner returns the owner the filter is scoped to.
func (f Filter) Owner() string {
	for _, c := range f.clauses {
		if c.Field == FieldOwner && c.Op == OpEq {
			return c.Value
		}
	}
	return ""
}

// Match evaluates the filter against e. A filter without an owner clause
// matches nothing.
func (f Filter) Match(e core.Expense) bool {
	if f.Owner() == "" {
		return false
	}
	for _, c := range f.clauses {
		if !c.match(e) {
			return false
		}
	}
	return true
}

func (c Clause) match(e core.Expense) bool {
	switch c.Op {
	case OpEq:
		return stringValue(e, c.Field) == c.Value
	case OpRange:
		t, ok := timeValue(e, c.Field)
		if !ok {
			return false
		}
		if c.From != nil && t.Before(*c.From) {
			return false
		}
		if c.To != nil && t.After(*c.To) {
			return false
		}
		return true
	default:
		return false
	}
}

func stringValue(e core.Expense, f Field) string {
	switch f {
	case FieldID:
		return e.ID
	case FieldOwner:
		return e.OwnerID
	case FieldCategory:
		return e.Category
	case FieldPaymentMethod:
		return string(e.PaymentMethod)
	default:
		return ""
	}
}

func timeValue(e core.Expense, f Field) (time.Time, bool) {
	switch f {
	case FieldCreatedAt:
		return e.CreatedAt, true
	case FieldUpdatedAt:
		return e.UpdatedAt, true
	default:
		return time.Time{}, false
	}
}
