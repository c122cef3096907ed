package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/query"
	"expensetracker/internal/storage"
	"expensetracker/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "expenses.db"))
	require.NoError(t, err)
	return repo
}

func TestSQLiteStoreSuite(t *testing.T) {
	suite.Run(t, &storagetest.StoreSuite{
		NewStore: func(t *testing.T) storage.Store { return newTestRepository(t) },
	})
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "expenses.db")
	repo, err := NewRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = NewRepository(path)
	require.NoError(t, err)
	defer repo.Close()
	assert.NoError(t, repo.Ping(context.Background()))
}

func TestDeleteManyAcrossChunks(t *testing.T) {
	repo := newTestRepository(t)
	defer repo.Close()
	ctx := context.Background()

	batch := make([]core.Expense, deleteChunk+3)
	for i := range batch {
		batch[i] = core.Expense{OwnerID: "alice", Amount: 1, Category: "Bulk", PaymentMethod: core.Cash}
	}
	stored, err := repo.InsertMany(ctx, batch)
	require.NoError(t, err)
	require.Len(t, stored, len(batch))

	all, err := repo.Find(ctx, query.ListParams{}.Build("alice"))
	require.NoError(t, err)
	ids := make([]string, len(all))
	for i, e := range all {
		ids[i] = e.ID
	}

	deleted, err := repo.DeleteMany(ctx, "alice", ids)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, deleted)
}

func TestInsertManyRejectsInvalidRecordAtomically(t *testing.T) {
	repo := newTestRepository(t)
	defer repo.Close()
	ctx := context.Background()

	stored, err := repo.InsertMany(ctx, []core.Expense{
		{OwnerID: "alice", Amount: 1, Category: "Food", PaymentMethod: core.Cash},
		{OwnerID: "alice", Amount: -1, Category: "Food", PaymentMethod: core.Cash},
	})
	assert.Error(t, err)
	assert.Empty(t, stored)

	all, err := repo.Find(ctx, query.ListParams{}.Build("alice"))
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCompileWhere(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := query.ForOwner("alice").
		Eq(query.FieldCategory, "Food").
		Range(query.FieldCreatedAt, &from, nil).
		Build()

	where, args, err := compileWhere(f)
	require.NoError(t, err)
	assert.Equal(t, "owner_id = ? AND category = ? AND created_at >= ?", where)
	assert.Equal(t, []any{"alice", "Food", "2024-01-01T00:00:00.000000000Z"}, args)

	_, _, err = compileWhere(query.Filter{})
	assert.Error(t, err)
}

func TestCompileOrder(t *testing.T) {
	order, err := compileOrder(query.Sort{{Field: query.FieldAmount, Desc: true}, {Field: query.FieldCategory}})
	require.NoError(t, err)
	assert.Equal(t, "amount DESC, category ASC, id ASC", order)

	_, err = compileOrder(query.Sort{{Field: "password"}})
	assert.Error(t, err)
}

func TestTimeLayoutSortsLexically(t *testing.T) {
	a := formatTime(time.Date(2024, 1, 1, 0, 0, 0, 5, time.UTC))
	b := formatTime(time.Date(2024, 1, 1, 0, 0, 0, 40, time.UTC))
	assert.Less(t, a, b)

	parsed, err := parseTime(b)
	require.NoError(t, err)
	assert.Equal(t, 40, parsed.Nanosecond())
}
