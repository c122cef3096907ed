// Package storagetest holds a conformance suite run against every storage
// adapter that can be started inside a unit test.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/query"
	"expensetracker/internal/storage"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// StoreSuite exercises a storage.Store. NewStore is called before every test.
type StoreSuite struct {
	suite.Suite
	NewStore func(t *testing.T) storage.Store

	store storage.Store
	ctx   context.Context
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.NewStore(s.T())
}

func (s *StoreSuite) TearDownTest() {
	if s.store != nil {
		s.store.Close()
	}
}

func at(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 9, 30, 0, 0, time.UTC)
}

func expense(owner string, amount float64, category string, pm core.PaymentMethod, created time.Time) core.Expense {
	return core.Expense{
		OwnerID:       owner,
		Amount:        amount,
		Category:      category,
		PaymentMethod: pm,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

func (s *StoreSuite) insert(es ...core.Expense) []core.Expense {
	out := make([]core.Expense, 0, len(es))
	for _, e := range es {
		created, err := s.store.Insert(s.ctx, e)
		require.NoError(s.T(), err)
		out = append(out, created)
	}
	return out
}

func (s *StoreSuite) TestInsertAndGet() {
	created := s.insert(expense("alice", 12.5, "Food", core.Credit, at(2024, 1, 15)))[0]

	require.NotEmpty(s.T(), created.ID)
	got, err := s.store.Get(s.ctx, "alice", created.ID)
	require.NoError(s.T(), err)
	s.Equal(created.ID, got.ID)
	s.Equal("alice", got.OwnerID)
	s.Equal(12.5, got.Amount)
	s.Equal("Food", got.Category)
	s.Equal(core.Credit, got.PaymentMethod)
	s.True(got.CreatedAt.Equal(at(2024, 1, 15)), "createdAt %v", got.CreatedAt)

	_, err = s.store.Get(s.ctx, "bob", created.ID)
	s.True(core.IsNotFound(err), "another owner must not see the record: %v", err)
}

func (s *StoreSuite) TestGetUnknownID() {
	_, err := s.store.Get(s.ctx, "alice", "does-not-exist")
	s.True(core.IsNotFound(err), "got %v", err)
}

func (s *StoreSuite) TestFindFiltersSortsAndPaginates() {
	s.insert(
		expense("alice", 1, "Food", core.Cash, at(2024, 1, 1)),
		expense("alice", 2, "Food", core.Credit, at(2024, 1, 2)),
		expense("alice", 3, "Rent", core.Cash, at(2024, 1, 3)),
		expense("alice", 4, "Food", core.Cash, at(2024, 1, 4)),
		expense("alice", 5, "Food", core.Cash, at(2024, 1, 5)),
		expense("bob", 99, "Food", core.Cash, at(2024, 1, 3)),
	)

	all, err := s.store.Find(s.ctx, query.ListParams{}.Build("alice"))
	require.NoError(s.T(), err)
	require.Len(s.T(), all, 5)
	s.Equal(5.0, all[0].Amount, "default order is newest first")
	s.Equal(1.0, all[4].Amount)

	page, err := s.store.Find(s.ctx, query.ListParams{
		Sort: query.Sort{{Field: query.FieldCreatedAt}},
		Page: query.ParsePage("2", "2"),
	}.Build("alice"))
	require.NoError(s.T(), err)
	require.Len(s.T(), page, 2)
	s.Equal(3.0, page[0].Amount)
	s.Equal(4.0, page[1].Amount)

	food, err := s.store.Find(s.ctx, query.ListParams{Category: "Food", PaymentMethod: core.Cash}.Build("alice"))
	require.NoError(s.T(), err)
	s.Len(food, 3)

	from, to := at(2024, 1, 2), at(2024, 1, 4)
	ranged, err := s.store.Find(s.ctx, query.ListParams{StartDate: &from, EndDate: &to}.Build("alice"))
	require.NoError(s.T(), err)
	s.Len(ranged, 3)

	open, err := s.store.Find(s.ctx, query.ListParams{StartDate: &to}.Build("alice"))
	require.NoError(s.T(), err)
	s.Len(open, 2)

	byAmount, err := s.store.Find(s.ctx, query.ListParams{Sort: query.Sort{{Field: query.FieldAmount, Desc: true}}}.Build("alice"))
	require.NoError(s.T(), err)
	s.Equal(5.0, byAmount[0].Amount)

	none, err := s.store.Find(s.ctx, query.ListParams{Category: "Travel"}.Build("alice"))
	require.NoError(s.T(), err)
	s.NotNil(none)
	s.Empty(none)
}

func (s *StoreSuite) TestInsertManyReturnsStoredRecords() {
	stored, err := s.store.InsertMany(s.ctx, []core.Expense{
		expense("alice", 10, "Food", core.Cash, at(2024, 3, 1)),
		expense("alice", 20, "Food", core.Credit, at(2024, 3, 2)),
		expense("alice", 30, "Rent", core.Cash, at(2024, 3, 3)),
	})
	require.NoError(s.T(), err)
	require.Len(s.T(), stored, 3)

	ids := map[string]bool{}
	for _, e := range stored {
		s.NotEmpty(e.ID)
		ids[e.ID] = true
		got, err := s.store.Get(s.ctx, "alice", e.ID)
		require.NoError(s.T(), err, "returned id must be readable")
		s.Equal(e.Amount, got.Amount)
	}
	s.Len(ids, 3, "ids must be unique")

	all, err := s.store.Find(s.ctx, query.ListParams{}.Build("alice"))
	require.NoError(s.T(), err)
	s.Len(all, 3)
}

func (s *StoreSuite) TestUpdateIsOwnerScoped() {
	created := s.insert(expense("alice", 10, "Food", core.Cash, at(2024, 1, 1)))[0]
	amount := 15.0
	category := "Groceries"
	when := at(2024, 2, 1)

	updated, err := s.store.Update(s.ctx, "alice", created.ID, core.ExpenseChanges{Amount: &amount, Category: &category}, when)
	require.NoError(s.T(), err)
	s.Equal(15.0, updated.Amount)
	s.Equal("Groceries", updated.Category)
	s.Equal(core.Cash, updated.PaymentMethod, "absent field unchanged")
	s.True(updated.UpdatedAt.Equal(when), "updatedAt %v", updated.UpdatedAt)
	s.True(updated.CreatedAt.Equal(created.CreatedAt))

	_, err = s.store.Update(s.ctx, "bob", created.ID, core.ExpenseChanges{Amount: &amount}, when)
	s.True(core.IsNotFound(err), "got %v", err)

	_, err = s.store.Update(s.ctx, "alice", "missing", core.ExpenseChanges{Amount: &amount}, when)
	s.True(core.IsNotFound(err), "got %v", err)
}

func (s *StoreSuite) TestDeleteIsIdempotentAndScoped() {
	created := s.insert(expense("alice", 10, "Food", core.Cash, at(2024, 1, 1)))[0]

	n, err := s.store.Delete(s.ctx, "bob", created.ID)
	require.NoError(s.T(), err)
	s.Zero(n)

	n, err = s.store.Delete(s.ctx, "alice", created.ID)
	require.NoError(s.T(), err)
	s.EqualValues(1, n)

	n, err = s.store.Delete(s.ctx, "alice", created.ID)
	require.NoError(s.T(), err)
	s.Zero(n)
}

func (s *StoreSuite) TestDeleteManyReturnsOnlyOwnedIDs() {
	mine := s.insert(
		expense("alice", 1, "Food", core.Cash, at(2024, 1, 1)),
		expense("alice", 2, "Food", core.Cash, at(2024, 1, 2)),
	)
	theirs := s.insert(expense("bob", 3, "Food", core.Cash, at(2024, 1, 3)))

	deleted, err := s.store.DeleteMany(s.ctx, "alice", []string{mine[0].ID, mine[1].ID, theirs[0].ID, "garbage"})
	require.NoError(s.T(), err)
	s.ElementsMatch([]string{mine[0].ID, mine[1].ID}, deleted)

	again, err := s.store.DeleteMany(s.ctx, "alice", []string{mine[0].ID})
	require.NoError(s.T(), err)
	s.Empty(again)

	left, err := s.store.Find(s.ctx, query.ListParams{}.Build("bob"))
	require.NoError(s.T(), err)
	s.Len(left, 1)
}

func (s *StoreSuite) TestMonthlyTotals() {
	s.insert(
		expense("alice", 50, "Food", core.Cash, at(2024, 1, 15)),
		expense("alice", 30, "Food", core.Cash, at(2024, 1, 20)),
		expense("alice", 10, "Food", core.Cash, at(2024, 2, 1)),
		expense("bob", 1000, "Food", core.Cash, at(2024, 1, 15)),
	)

	got, err := s.store.MonthlyTotals(s.ctx, "alice")
	require.NoError(s.T(), err)
	s.Equal([]core.MonthlyTotal{
		{Year: 2024, Month: 1, TotalExpenses: 80},
		{Year: 2024, Month: 2, TotalExpenses: 10},
	}, got)

	empty, err := s.store.MonthlyTotals(s.ctx, "nobody")
	require.NoError(s.T(), err)
	s.Empty(empty)
}

func (s *StoreSuite) TestCategoryTotals() {
	s.insert(
		expense("alice", 20, "Transport", core.Cash, at(2024, 1, 1)),
		expense("alice", 50, "Food", core.Cash, at(2024, 1, 2)),
		expense("alice", 30, "Food", core.Credit, at(2024, 1, 3)),
		expense("bob", 500, "Transport", core.Cash, at(2024, 1, 3)),
	)

	got, err := s.store.CategoryTotals(s.ctx, "alice")
	require.NoError(s.T(), err)
	s.Equal([]core.CategoryTotal{
		{Category: "Food", TotalExpenses: 80},
		{Category: "Transport", TotalExpenses: 20},
	}, got)

	empty, err := s.store.CategoryTotals(s.ctx, "nobody")
	require.NoError(s.T(), err)
	s.Empty(empty)
}

func (s *StoreSuite) TestUsers() {
	u, err := s.store.CreateUser(s.ctx, core.User{Email: "Ann@Example.com", Username: "ann", PasswordHash: "hash", Role: core.RoleUser})
	require.NoError(s.T(), err)
	s.NotEmpty(u.ID)

	got, err := s.store.GetUserByEmail(s.ctx, "ann@example.com")
	require.NoError(s.T(), err)
	s.Equal(u.ID, got.ID)
	s.Equal("ann", got.Username)
	s.Equal("hash", got.PasswordHash)
	s.Equal(core.RoleUser, got.Role)

	_, err = s.store.CreateUser(s.ctx, core.User{Email: "ann@example.com", Username: "other", PasswordHash: "x", Role: core.RoleUser})
	s.True(errors.Is(err, core.ErrConflict), "got %v", err)

	_, err = s.store.GetUserByEmail(s.ctx, "missing@example.com")
	s.True(core.IsNotFound(err), "got %v", err)
}

func (s *StoreSuite) TestPing() {
	s.NoError(s.store.Ping(s.ctx))
}
