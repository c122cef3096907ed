package mongostore

import (
	"context"
	"errors"
	"slices"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/query"
	"expensetracker/internal/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type expenseDoc struct {
	ID            bson.ObjectID `bson:"_id,omitempty"`
	OwnerID       string        `bson:"userId"`
	Amount        float64       `bson:"amount"`
	Category      string        `bson:"category"`
	PaymentMethod string        `bson:"paymentMethod"`
	CreatedAt     time.Time     `bson:"createdAt"`
	UpdatedAt     time.Time     `bson:"updatedAt"`
}

func (d expenseDoc) toExpense() core.Expense {
	return core.Expense{
		ID:            d.ID.Hex(),
		OwnerID:       d.OwnerID,
		Amount:        d.Amount,
		Category:      d.Category,
		PaymentMethod: core.PaymentMethod(d.PaymentMethod),
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
}

func (s *Store) newDoc(e core.Expense) expenseDoc {
	created := e.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	updated := e.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	return expenseDoc{
		ID:            bson.NewObjectID(),
		OwnerID:       e.OwnerID,
		Amount:        e.Amount,
		Category:      e.Category,
		PaymentMethod: string(e.PaymentMethod),
		CreatedAt:     created.UTC(),
		UpdatedAt:     updated.UTC(),
	}
}

// ownedID matches one document of one owner. ok is false when id cannot be
// an ObjectID, in which case nothing can match.
func ownedID(ownerID, id string) (bson.D, bool) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	return bson.D{{Key: "_id", Value: oid}, {Key: "userId", Value: ownerID}}, true
}

// Insert implements storage.ExpenseRepository
func (s *Store) Insert(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	doc := s.newDoc(e)
	if _, err := s.expenses.InsertOne(ctx, doc); err != nil {
		return core.Expense{}, core.NewStoreError("insert expense", err)
	}
	return doc.toExpense(), nil
}

// InsertMany implements storage.ExpenseRepository. The insert is unordered,
// so one failing document does not stop the others; the result leaves out
// the documents reported in the bulk write exception.
func (s *Store) InsertMany(ctx context.Context, es []core.Expense) ([]core.Expense, error) {
	if len(es) == 0 {
		return nil, nil
	}
	docs := make([]expenseDoc, 0, len(es))
	for _, e := range es {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		docs = append(docs, s.newDoc(e))
	}

	res, err := s.expenses.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return toExpenses(docs), nil
	}

	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) && bwe.WriteConcernError == nil {
		failed := make(map[int]bool, len(bwe.WriteErrors))
		for _, we := range bwe.WriteErrors {
			failed[we.Index] = true
		}
		stored := make([]core.Expense, 0, len(docs)-len(failed))
		for i, d := range docs {
			if !failed[i] {
				stored = append(stored, d.toExpense())
			}
		}
		return stored, core.NewStoreError("insert many", err)
	}

	var stored []core.Expense
	if res != nil {
		inserted := make(map[bson.ObjectID]bool, len(res.InsertedIDs))
		for _, id := range res.InsertedIDs {
			if oid, ok := id.(bson.ObjectID); ok {
				inserted[oid] = true
			}
		}
		for _, d := range docs {
			if inserted[d.ID] {
				stored = append(stored, d.toExpense())
			}
		}
	}
	return stored, core.NewStoreError("insert many", err)
}

func toExpenses(docs []expenseDoc) []core.Expense {
	out := make([]core.Expense, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toExpense())
	}
	return out
}

// Find implements storage.ExpenseRepository
func (s *Store) Find(ctx context.Context, q query.Query) ([]core.Expense, error) {
	filter, err := compileFilter(q.Filter)
	if err != nil {
		return nil, core.NewStoreError("find expenses", err)
	}
	sort, err := compileSort(q.Sort)
	if err != nil {
		return nil, core.NewStoreError("find expenses", err)
	}

	opts := options.Find().SetSort(sort)
	if q.Page.Paginated() {
		opts.SetSkip(int64(q.Page.Offset())).SetLimit(int64(q.Page.Limit))
	}

	cursor, err := s.expenses.Find(ctx, filter, opts)
	if err != nil {
		return nil, core.NewStoreError("find expenses", err)
	}
	defer cursor.Close(ctx)

	out := make([]core.Expense, 0)
	for cursor.Next(ctx) {
		var doc expenseDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, core.NewStoreError("decode expense", err)
		}
		out = append(out, doc.toExpense())
	}
	if err := cursor.Err(); err != nil {
		return nil, core.NewStoreError("find expenses", err)
	}
	return out, nil
}

// Get implements storage.ExpenseRepository
func (s *Store) Get(ctx context.Context, ownerID, id string) (core.Expense, error) {
	filter, ok := ownedID(ownerID, id)
	if !ok {
		return core.Expense{}, storage.NotFound(id)
	}
	var doc expenseDoc
	err := s.expenses.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Expense{}, storage.NotFound(id)
	}
	if err != nil {
		return core.Expense{}, core.NewStoreError("get expense", err)
	}
	return doc.toExpense(), nil
}

// Update implements storage.ExpenseRepository
func (s *Store) Update(ctx context.Context, ownerID, id string, c core.ExpenseChanges, at time.Time) (core.Expense, error) {
	filter, ok := ownedID(ownerID, id)
	if !ok {
		return core.Expense{}, storage.NotFound(id)
	}

	set := bson.D{{Key: "updatedAt", Value: at.UTC()}}
	if c.Amount != nil {
		set = append(set, bson.E{Key: "amount", Value: *c.Amount})
	}
	if c.Category != nil {
		set = append(set, bson.E{Key: "category", Value: *c.Category})
	}
	if c.PaymentMethod != nil {
		set = append(set, bson.E{Key: "paymentMethod", Value: string(*c.PaymentMethod)})
	}

	var doc expenseDoc
	err := s.expenses.FindOneAndUpdate(ctx, filter,
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Expense{}, storage.NotFound(id)
	}
	if err != nil {
		return core.Expense{}, core.NewStoreError("update expense", err)
	}
	return doc.toExpense(), nil
}

// Delete implements storage.ExpenseRepository
func (s *Store) Delete(ctx context.Context, ownerID, id string) (int64, error) {
	filter, ok := ownedID(ownerID, id)
	if !ok {
		return 0, nil
	}
	res, err := s.expenses.DeleteOne(ctx, filter)
	if err != nil {
		return 0, core.NewStoreError("delete expense", err)
	}
	return res.DeletedCount, nil
}

// DeleteMany implements storage.ExpenseRepository. Ids that are not valid
// ObjectIDs are skipped since they cannot match. The owner's matching ids are
// looked up first so the result names exactly what was removed.
func (s *Store) DeleteMany(ctx context.Context, ownerID string, ids []string) ([]string, error) {
	oids := make(bson.A, 0, len(ids))
	for _, id := range ids {
		if oid, err := bson.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return nil, nil
	}
	filter := bson.D{
		{Key: "_id", Value: bson.D{{Key: "$in", Value: oids}}},
		{Key: "userId", Value: ownerID},
	}

	owned, err := s.matchingIDs(ctx, filter)
	if err != nil {
		return nil, core.NewStoreError("delete many", err)
	}
	if len(owned) == 0 {
		return nil, nil
	}

	ownedFilter := bson.D{
		{Key: "_id", Value: bson.D{{Key: "$in", Value: owned}}},
		{Key: "userId", Value: ownerID},
	}
	res, err := s.expenses.DeleteMany(ctx, ownedFilter)
	if err != nil {
		return nil, core.NewStoreError("delete many", err)
	}

	// A concurrent delete may have removed some of them first.
	if int(res.DeletedCount) != len(owned) {
		remaining, err := s.matchingIDs(ctx, ownedFilter)
		if err != nil {
			return nil, core.NewStoreError("delete many", err)
		}
		owned = slices.DeleteFunc(owned, func(v any) bool {
			return slices.Contains(remaining, v)
		})
	}

	deleted := make([]string, 0, len(owned))
	for _, v := range owned {
		deleted = append(deleted, v.(bson.ObjectID).Hex())
	}
	return deleted, nil
}

func (s *Store) matchingIDs(ctx context.Context, filter bson.D) (bson.A, error) {
	cursor, err := s.expenses.Find(ctx, filter, options.Find().SetProjection(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID bson.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make(bson.A, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out, nil
}

// MonthlyTotals implements storage.ExpenseAggregator
func (s *Store) MonthlyTotals(ctx context.Context, ownerID string) ([]core.MonthlyTotal, error) {
	cursor, err := s.expenses.Aggregate(ctx, monthlyPipeline(ownerID))
	if err != nil {
		return nil, core.NewStoreError("monthly totals", err)
	}
	var rows []struct {
		ID struct {
			Year  int `bson:"year"`
			Month int `bson:"month"`
		} `bson:"_id"`
		Total float64 `bson:"totalExpenses"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, core.NewStoreError("decode monthly totals", err)
	}

	out := make([]core.MonthlyTotal, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.MonthlyTotal{
			Year:          r.ID.Year,
			Month:         r.ID.Month,
			TotalExpenses: core.RoundTotal(r.Total),
		})
	}
	return out, nil
}

// CategoryTotals implements storage.ExpenseAggregator
func (s *Store) CategoryTotals(ctx context.Context, ownerID string) ([]core.CategoryTotal, error) {
	cursor, err := s.expenses.Aggregate(ctx, categoryPipeline(ownerID))
	if err != nil {
		return nil, core.NewStoreError("category totals", err)
	}
	var rows []struct {
		Category string  `bson:"_id"`
		Total    float64 `bson:"totalExpenses"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, core.NewStoreError("decode category totals", err)
	}

	out := make([]core.CategoryTotal, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.CategoryTotal{Category: r.Category, TotalExpenses: core.RoundTotal(r.Total)})
	}
	return out, nil
}
