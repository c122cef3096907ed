package memory

import (
	"context"
	"errors"
	"testing"

	"expensetracker/internal/core"
	"expensetracker/internal/query"
	"expensetracker/internal/storage"
	"expensetracker/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, &storagetest.StoreSuite{
		NewStore: func(*testing.T) storage.Store { return New() },
	})
}

func TestFailNextSurfacesStoreError(t *testing.T) {
	s := New()
	s.FailNext(errors.New("disk full"))

	_, err := s.Insert(context.Background(), core.Expense{OwnerID: "a", Amount: 1, Category: "Food", PaymentMethod: core.Cash})
	var se *core.StoreError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, "insert", se.Op)

	_, err = s.Insert(context.Background(), core.Expense{OwnerID: "a", Amount: 1, Category: "Food", PaymentMethod: core.Cash})
	assert.NoError(t, err, "failure applies once")
	assert.Equal(t, 1, s.Len())
}

func TestCancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Find(ctx, query.ListParams{}.Build("a"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClosedStoreFailsPing(t *testing.T) {
	s := New()
	require.NoError(t, s.Close())
	assert.Error(t, s.Ping(context.Background()))
}
