package memory

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/query"
	"expensetracker/internal/storage"

	"github.com/google/uuid"
)

// Store keeps expenses and users in process memory. It is the default backend
// for local development and the engine tests.
type Store struct {
	mu       sync.Mutex
	items    []core.Expense
	users    map[string]core.User // by normalized email
	now      func() time.Time
	closed   bool
	failNext error
}

var _ storage.Store = (*Store)(nil)

var errClosed = errors.New("memory store closed")

func New() *Store {
	return &Store{
		users: make(map[string]core.User),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// NewWithExpenses seeds the store, keeping ids and timestamps that are set.
func NewWithExpenses(seed ...core.Expense) *Store {
	s := New()
	for _, e := range seed {
		s.items = append(s.items, s.stamp(e))
	}
	return s
}

// FailNext makes the next write return err. Only used by tests of callers.
func (s *Store) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

func (s *Store) takeFailure(op string) error {
	if s.failNext == nil {
		return nil
	}
	err := s.failNext
	s.failNext = nil
	return core.NewStoreError(op, err)
}

func (s *Store) stamp(e core.Expense) core.Expense {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := s.now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = e.CreatedAt
	}
	return e
}

// Insert implements storage.ExpenseRepository
func (s *Store) Insert(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := ctx.Err(); err != nil {
		return core.Expense{}, err
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("insert"); err != nil {
		return core.Expense{}, err
	}
	e = s.stamp(e)
	s.items = append(s.items, e)
	return e, nil
}

// InsertMany implements storage.ExpenseRepository. Invalid records are
// skipped, so the result holds only the records actually stored.
func (s *Store) InsertMany(ctx context.Context, es []core.Expense) ([]core.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("insert many"); err != nil {
		return nil, err
	}
	stored := make([]core.Expense, 0, len(es))
	for _, e := range es {
		if e.Validate() != nil {
			continue
		}
		e = s.stamp(e)
		s.items = append(s.items, e)
		stored = append(stored, e)
	}
	return stored, nil
}

// Find implements storage.ExpenseRepository
func (s *Store) Find(ctx context.Context, q query.Query) ([]core.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	matched := make([]core.Expense, 0)
	for _, e := range s.items {
		if q.Filter.Match(e) {
			matched = append(matched, e)
		}
	}
	s.mu.Unlock()
	return q.Apply(matched), nil
}

// Get implements storage.ExpenseRepository
func (s *Store) Get(ctx context.Context, ownerID, id string) (core.Expense, error) {
	if err := ctx.Err(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(ownerID, id); i >= 0 {
		return s.items[i], nil
	}
	return core.Expense{}, storage.NotFound(id)
}

// Update implements storage.ExpenseRepository
func (s *Store) Update(ctx context.Context, ownerID, id string, c core.ExpenseChanges, at time.Time) (core.Expense, error) {
	if err := ctx.Err(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("update"); err != nil {
		return core.Expense{}, err
	}
	i := s.indexOf(ownerID, id)
	if i < 0 {
		return core.Expense{}, storage.NotFound(id)
	}
	s.items[i] = c.Apply(s.items[i], at)
	return s.items[i], nil
}

// Delete implements storage.ExpenseRepository
func (s *Store) Delete(ctx context.Context, ownerID, id string) (int64, error) {
	deleted, err := s.DeleteMany(ctx, ownerID, []string{id})
	return int64(len(deleted)), err
}

// DeleteMany implements storage.ExpenseRepository
func (s *Store) DeleteMany(ctx context.Context, ownerID string, ids []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("delete"); err != nil {
		return nil, err
	}
	deleted := make([]string, 0)
	s.items = slices.DeleteFunc(s.items, func(e core.Expense) bool {
		_, hit := want[e.ID]
		if hit && e.OwnerID == ownerID {
			deleted = append(deleted, e.ID)
			return true
		}
		return false
	})
	return deleted, nil
}

// MonthlyTotals implements storage.ExpenseAggregator
func (s *Store) MonthlyTotals(ctx context.Context, ownerID string) ([]core.MonthlyTotal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	type ym struct{ y, m int }
	sums := map[ym][]float64{}
	s.mu.Lock()
	for _, e := range s.items {
		if e.OwnerID != ownerID {
			continue
		}
		t := e.CreatedAt.UTC()
		k := ym{t.Year(), int(t.Month())}
		sums[k] = append(sums[k], e.Amount)
	}
	s.mu.Unlock()

	out := make([]core.MonthlyTotal, 0, len(sums))
	for k, amounts := range sums {
		out = append(out, core.MonthlyTotal{Year: k.y, Month: k.m, TotalExpenses: core.SumAmounts(amounts...)})
	}
	slices.SortFunc(out, func(a, b core.MonthlyTotal) int {
		if a.Year != b.Year {
			return a.Year - b.Year
		}
		return a.Month - b.Month
	})
	return out, nil
}

// CategoryTotals implements storage.ExpenseAggregator
func (s *Store) CategoryTotals(ctx context.Context, ownerID string) ([]core.CategoryTotal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sums := map[string][]float64{}
	s.mu.Lock()
	for _, e := range s.items {
		if e.OwnerID == ownerID {
			sums[e.Category] = append(sums[e.Category], e.Amount)
		}
	}
	s.mu.Unlock()

	out := make([]core.CategoryTotal, 0, len(sums))
	for c, amounts := range sums {
		out = append(out, core.CategoryTotal{Category: c, TotalExpenses: core.SumAmounts(amounts...)})
	}
	storage.SortCategoryTotals(out)
	return out, nil
}

// CreateUser implements storage.UserRepository
func (s *Store) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	if err := ctx.Err(); err != nil {
		return core.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := core.NormalizeEmail(u.Email)
	if _, exists := s.users[key]; exists {
		return core.User{}, core.ErrConflict
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	u.Email = key
	s.users[key] = u
	return u, nil
}

// GetUserByEmail implements storage.UserRepository
func (s *Store) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	if err := ctx.Err(); err != nil {
		return core.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[core.NormalizeEmail(email)]
	if !ok {
		return core.User{}, &core.NotFoundError{Resource: "user"}
	}
	return u, nil
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return core.NewStoreError("ping", errClosed)
	}
	return ctx.Err()
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Len returns the number of stored expenses across all owners.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) indexOf(ownerID, id string) int {
	for i, e := range s.items {
		if e.ID == id && e.OwnerID == ownerID {
			return i
		}
	}
	return -1
}
