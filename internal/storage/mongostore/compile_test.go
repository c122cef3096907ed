package mongostore

import (
	"context"
	"os"
	"testing"
	"time"

	"expensetracker/internal/query"
	"expensetracker/internal/storage"
	"expensetracker/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestCompileFilter(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	f := query.ForOwner("alice").
		Eq(query.FieldCategory, "Food").
		Eq(query.FieldPaymentMethod, "cash").
		Range(query.FieldCreatedAt, &from, &to).
		Build()

	got, err := compileFilter(f)
	require.NoError(t, err)
	assert.Equal(t, bson.D{
		{Key: "userId", Value: "alice"},
		{Key: "category", Value: "Food"},
		{Key: "paymentMethod", Value: "cash"},
		{Key: "createdAt", Value: bson.D{{Key: "$gte", Value: from}, {Key: "$lte", Value: to}}},
	}, got)
}

func TestCompileFilterOpenRange(t *testing.T) {
	to := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	got, err := compileFilter(query.ForOwner("alice").Range(query.FieldCreatedAt, nil, &to).Build())
	require.NoError(t, err)
	assert.Equal(t, bson.E{Key: "createdAt", Value: bson.D{{Key: "$lte", Value: to}}}, got[1])
}

func TestCompileFilterRejects(t *testing.T) {
	_, err := compileFilter(query.Filter{})
	assert.Error(t, err)

	_, err = compileFilter(query.ForOwner("alice").Eq(query.FieldID, "not-hex").Build())
	assert.Error(t, err)
}

func TestCompileSort(t *testing.T) {
	got, err := compileSort(query.DefaultSort())
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}, got)
}

func TestOwnedID(t *testing.T) {
	oid := bson.NewObjectID()
	f, ok := ownedID("alice", oid.Hex())
	require.True(t, ok)
	assert.Equal(t, bson.D{{Key: "_id", Value: oid}, {Key: "userId", Value: "alice"}}, f)

	_, ok = ownedID("alice", "123")
	assert.False(t, ok)
}

func TestPipelinesScopeToOwner(t *testing.T) {
	for _, p := range []bson.A{monthlyPipeline("alice"), categoryPipeline("alice")} {
		require.Len(t, p, 3)
		match := p[0].(bson.D)
		assert.Equal(t, "$match", match[0].Key)
		assert.Equal(t, bson.D{{Key: "userId", Value: "alice"}}, match[0].Value)
	}
}

// TestMongoStoreSuite runs the conformance suite when MONGO_TEST_URI points
// at a disposable server.
func TestMongoStoreSuite(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	suite.Run(t, &storagetest.StoreSuite{
		NewStore: func(t *testing.T) storage.Store {
			db := "expensetracker_test_" + bson.NewObjectID().Hex()
			s, err := Connect(context.Background(), Config{URI: uri, Database: db})
			require.NoError(t, err)
			// the suite closes s in TearDownTest, so drop through a fresh client
			t.Cleanup(func() {
				c, err := Connect(context.Background(), Config{URI: uri, Database: db})
				if err != nil {
					return
				}
				_ = c.client.Database(db).Drop(context.Background())
				_ = c.Close()
			})
			return s
		},
	})
}
