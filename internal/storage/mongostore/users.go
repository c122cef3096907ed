package mongostore

import (
	"context"
	"errors"
	"time"

	"expensetracker/internal/core"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type userDoc struct {
	ID           bson.ObjectID `bson:"_id,omitempty"`
	Email        string        `bson:"email"`
	Username     string        `bson:"username"`
	PasswordHash string        `bson:"passwordHash"`
	Role         string        `bson:"role"`
	CreatedAt    time.Time     `bson:"createdAt"`
}

func (d userDoc) toUser() core.User {
	return core.User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		Username:     d.Username,
		PasswordHash: d.PasswordHash,
		Role:         core.Role(d.Role),
		CreatedAt:    d.CreatedAt.UTC(),
	}
}

// CreateUser implements storage.UserRepository
func (s *Store) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	created := u.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	doc := userDoc{
		ID:           bson.NewObjectID(),
		Email:        core.NormalizeEmail(u.Email),
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CreatedAt:    created.UTC(),
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return core.User{}, core.ErrConflict
		}
		return core.User{}, core.NewStoreError("create user", err)
	}
	return doc.toUser(), nil
}

// GetUserByEmail implements storage.UserRepository
func (s *Store) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, bson.D{{Key: "email", Value: core.NormalizeEmail(email)}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.User{}, &core.NotFoundError{Resource: "user"}
	}
	if err != nil {
		return core.User{}, core.NewStoreError("get user", err)
	}
	return doc.toUser(), nil
}
