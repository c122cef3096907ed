// Package storage defines the persistence ports implemented by the memory,
// sqlite, mongo and postgres adapters.
//
// Every method that touches expenses takes the owner explicitly; adapters must
// add it to the store query so a guessed id can never reach another user's
// record. Adapters wrap driver failures in core.StoreError and report missing
// records with core.NotFoundError.
package storage

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/query"

	mapset "github.com/deckarep/golang-set/v2"
)

const ExpenseResource = "expense"

// Ports for outbound adapters.
type (
	ExpenseRepository interface {
		// Insert stores e and returns it with its generated id.
		Insert(ctx context.Context, e core.Expense) (core.Expense, error)
		// InsertMany stores a batch without ordering guarantees and returns the
		// records that were persisted, with their ids, also when it fails part
		// way.
		InsertMany(ctx context.Context, es []core.Expense) ([]core.Expense, error)
		Find(ctx context.Context, q query.Query) ([]core.Expense, error)
		Get(ctx context.Context, ownerID, id string) (core.Expense, error)
		// Update applies c to the record matching (id, ownerID).
		Update(ctx context.Context, ownerID, id string, c core.ExpenseChanges, at time.Time) (core.Expense, error)
		// Delete removes the record matching (id, ownerID) and returns the
		// number removed (0 or 1).
		Delete(ctx context.Context, ownerID, id string) (int64, error)
		// DeleteMany removes the records of ownerID among ids and returns the
		// ids actually removed. On failure it returns those removed so far.
		DeleteMany(ctx context.Context, ownerID string, ids []string) ([]string, error)
	}

	// ExpenseAggregator computes grouped totals for one owner.
	ExpenseAggregator interface {
		// MonthlyTotals is ascending by (year, month).
		MonthlyTotals(ctx context.Context, ownerID string) ([]core.MonthlyTotal, error)
		// CategoryTotals is descending by total.
		CategoryTotals(ctx context.Context, ownerID string) ([]core.CategoryTotal, error)
	}

	UserRepository interface {
		// CreateUser returns core.ErrConflict when the email is taken.
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
	}

	// Store is a complete backend.
	Store interface {
		ExpenseRepository
		ExpenseAggregator
		UserRepository
		Ping(ctx context.Context) error
		Close() error
	}
)

// DedupeIDs drops blank and repeated ids, keeping first-seen order.
func DedupeIDs(ids []string) []string {
	seen := mapset.NewThreadUnsafeSetWithSize[string](len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || !seen.Add(id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

func NotFound(id string) error {
	return &core.NotFoundError{Resource: ExpenseResource, ID: id}
}

// SortCategoryTotals orders totals descending, ties by category name.
func SortCategoryTotals(totals []core.CategoryTotal) {
	slices.SortFunc(totals, func(a, b core.CategoryTotal) int {
		if c := cmp.Compare(b.TotalExpenses, a.TotalExpenses); c != 0 {
			return c
		}
		return strings.Compare(a.Category, b.Category)
	})
}
