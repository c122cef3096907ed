package mongostore

import (
	"fmt"

	"expensetracker/internal/query"

	"go.mongodb.org/mongo-driver/v2/bson"
)

var docFields = map[query.Field]string{
	query.FieldID:            "_id",
	query.FieldOwner:         "userId",
	query.FieldAmount:        "amount",
	query.FieldCategory:      "category",
	query.FieldPaymentMethod: "paymentMethod",
	query.FieldCreatedAt:     "createdAt",
	query.FieldUpdatedAt:     "updatedAt",
}

// compileFilter turns typed clauses into a bson match document.
func compileFilter(f query.Filter) (bson.D, error) {
	clauses := f.Clauses()
	if len(clauses) == 0 {
		return nil, fmt.Errorf("empty filter")
	}
	out := make(bson.D, 0, len(clauses))
	for _, c := range clauses {
		key, ok := docFields[c.Field]
		if !ok {
			return nil, fmt.Errorf("unsupported filter field %q", c.Field)
		}
		switch c.Op {
		case query.OpEq:
			var v any = c.Value
			if c.Field == query.FieldID {
				oid, err := bson.ObjectIDFromHex(c.Value)
				if err != nil {
					return nil, fmt.Errorf("invalid id %q: %w", c.Value, err)
				}
				v = oid
			}
			out = append(out, bson.E{Key: key, Value: v})
		case query.OpRange:
			rng := bson.D{}
			if c.From != nil {
				rng = append(rng, bson.E{Key: "$gte", Value: c.From.UTC()})
			}
			if c.To != nil {
				rng = append(rng, bson.E{Key: "$lte", Value: c.To.UTC()})
			}
			out = append(out, bson.E{Key: key, Value: rng})
		}
	}
	return out, nil
}

// compileSort renders a sort document with _id as the final tie breaker.
func compileSort(s query.Sort) (bson.D, error) {
	out := make(bson.D, 0, len(s)+1)
	for _, k := range s {
		key, ok := docFields[k.Field]
		if !ok {
			return nil, fmt.Errorf("unsupported sort field %q", k.Field)
		}
		dir := 1
		if k.Desc {
			dir = -1
		}
		out = append(out, bson.E{Key: key, Value: dir})
	}
	return append(out, bson.E{Key: "_id", Value: 1}), nil
}

// monthlyPipeline groups an owner's expenses by UTC year and month.
func monthlyPipeline(ownerID string) bson.A {
	return bson.A{
		bson.D{{Key: "$match", Value: bson.D{{Key: "userId", Value: ownerID}}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "year", Value: bson.D{{Key: "$year", Value: "$createdAt"}}},
				{Key: "month", Value: bson.D{{Key: "$month", Value: "$createdAt"}}},
			}},
			{Key: "totalExpenses", Value: bson.D{{Key: "$sum", Value: "$amount"}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id.year", Value: 1}, {Key: "_id.month", Value: 1}}}},
	}
}

// categoryPipeline sums an owner's expenses per category, largest first.
func categoryPipeline(ownerID string) bson.A {
	return bson.A{
		bson.D{{Key: "$match", Value: bson.D{{Key: "userId", Value: ownerID}}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$category"},
			{Key: "totalExpenses", Value: bson.D{{Key: "$sum", Value: "$amount"}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "totalExpenses", Value: -1}, {Key: "_id", Value: 1}}}},
	}
}
