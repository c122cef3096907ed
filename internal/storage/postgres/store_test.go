package postgres

import (
	"os"
	"testing"
	"time"

	"expensetracker/internal/query"
	"expensetracker/internal/storage"
	"expensetracker/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// dryRun returns a session that renders SQL without a server.
func dryRun(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=test dbname=test sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true, SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db
}

func TestFilterScopeRendersClauses(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := query.ForOwner("alice").
		Eq(query.FieldCategory, "Food").
		Range(query.FieldCreatedAt, &from, nil).
		Build()

	scope, err := filterScope(f)
	require.NoError(t, err)
	order, err := orderClause(query.DefaultSort())
	require.NoError(t, err)

	var rows []expenseRow
	stmt := dryRun(t).Model(&expenseRow{}).Scopes(scope).Order(order).Find(&rows).Statement

	sql := stmt.SQL.String()
	assert.Contains(t, sql, `FROM "expenses"`)
	assert.Contains(t, sql, "owner_id = $1")
	assert.Contains(t, sql, "category = $2")
	assert.Contains(t, sql, "created_at >= $3")
	assert.Contains(t, sql, "ORDER BY created_at DESC, id")
	assert.Equal(t, []any{"alice", "Food", from}, stmt.Vars)
}

func TestFilterScopeRejectsEmptyFilter(t *testing.T) {
	_, err := filterScope(query.Filter{})
	assert.Error(t, err)
}

func TestDeleteManyReturnsIDs(t *testing.T) {
	var removed []expenseRow
	stmt := dryRun(t).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "id"}}}).
		Where("owner_id = ? AND id IN ?", "alice", []string{"a", "b"}).
		Delete(&removed).Statement

	sql := stmt.SQL.String()
	assert.Contains(t, sql, `DELETE FROM "expenses"`)
	assert.Contains(t, sql, "owner_id = $1 AND id IN ($2,$3)")
	assert.Contains(t, sql, `RETURNING "id"`)
}

func TestOrderClause(t *testing.T) {
	s, err := query.ParseSort("amount,-category")
	require.NoError(t, err)
	got, err := orderClause(s)
	require.NoError(t, err)
	assert.Equal(t, "amount, category DESC, id", got)
}

// TestPostgresStoreSuite runs the conformance suite when POSTGRES_TEST_DSN
// points at a disposable database.
func TestPostgresStoreSuite(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	suite.Run(t, &storagetest.StoreSuite{
		NewStore: func(t *testing.T) storage.Store {
			s, err := Open(dsn, true)
			require.NoError(t, err)
			require.NoError(t, s.db.Exec("TRUNCATE expenses, users").Error)
			return s
		},
	})
}
