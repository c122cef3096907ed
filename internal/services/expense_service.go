package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/ingest"
	"expensetracker/internal/query"
	"expensetracker/internal/storage"
)

// EventPublisher sends write notifications. *amqp.Client implements it.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
}

// BulkResult reports a bulk insert: Count rows stored, Rejected rows refused.
type BulkResult struct {
	Count    int             `json:"count"`
	Rejected []core.RowError `json:"rejected"`
}

// ExpenseService validates requests, scopes them to the caller and runs them
// against the store. Events are published after successful writes; a publish
// failure is logged and never fails the request.
type ExpenseService struct {
	store     storage.ExpenseRepository
	publisher EventPublisher
	now       func() time.Time
}

// NewExpenseService wires the service. publisher may be nil to skip events.
func NewExpenseService(store storage.ExpenseRepository, publisher EventPublisher) *ExpenseService {
	return &ExpenseService{
		store:     store,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func requireOwner(ownerID string) error {
	if ownerID == "" {
		return core.ErrUnauthorized
	}
	return nil
}

// Create validates in and stores it for ownerID.
func (s *ExpenseService) Create(ctx context.Context, ownerID string, in core.ExpenseInput) (core.Expense, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.Expense{}, err
	}
	e, err := in.ToExpense(ownerID, s.now())
	if err != nil {
		return core.Expense{}, err
	}

	saved, err := s.store.Insert(ctx, e)
	if err != nil {
		return core.Expense{}, err
	}

	slog.InfoContext(ctx, "Expense created",
		"id", saved.ID,
		"owner_id", ownerID,
		"amount", saved.Amount,
		"category", saved.Category)

	s.publish(ctx, amqp.NewCreatedEvent(ownerID, []core.Expense{saved}))
	return saved, nil
}

// List returns the caller's expenses matching params. An empty result is an
// empty slice.
func (s *ExpenseService) List(ctx context.Context, ownerID string, params query.ListParams) ([]core.Expense, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	out, err := s.store.Find(ctx, params.Build(ownerID))
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []core.Expense{}
	}
	return out, nil
}

func (s *ExpenseService) Get(ctx context.Context, ownerID, id string) (core.Expense, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.Expense{}, err
	}
	return s.store.Get(ctx, ownerID, id)
}

// Update applies the supplied fields of patch to the caller's expense id.
func (s *ExpenseService) Update(ctx context.Context, ownerID, id string, patch core.ExpensePatch) (core.Expense, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.Expense{}, err
	}
	changes, err := patch.Changes()
	if err != nil {
		return core.Expense{}, err
	}

	updated, err := s.store.Update(ctx, ownerID, id, changes, s.now())
	if err != nil {
		return core.Expense{}, err
	}

	slog.InfoContext(ctx, "Expense updated", "id", id, "owner_id", ownerID)
	s.publish(ctx, amqp.NewUpdatedEvent(ownerID, updated))
	return updated, nil
}

// Delete removes the caller's expense id. Deleting a missing id succeeds.
func (s *ExpenseService) Delete(ctx context.Context, ownerID, id string) (int64, error) {
	if err := requireOwner(ownerID); err != nil {
		return 0, err
	}
	n, err := s.store.Delete(ctx, ownerID, id)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.InfoContext(ctx, "Expense deleted", "id", id, "owner_id", ownerID)
		s.publish(ctx, amqp.NewDeletedEvent(ownerID, []string{id}))
	}
	return n, nil
}

// DeleteMany removes the caller's expenses among ids and returns how many
// were removed. No ids is a validation error; nothing removed is not found.
func (s *ExpenseService) DeleteMany(ctx context.Context, ownerID string, ids []string) (int64, error) {
	if err := requireOwner(ownerID); err != nil {
		return 0, err
	}
	ids = storage.DedupeIDs(ids)
	if len(ids) == 0 {
		return 0, &core.ValidationError{Field: "ids", Err: core.ErrNoIDs}
	}

	deleted, err := s.store.DeleteMany(ctx, ownerID, ids)
	n := int64(len(deleted))
	if n > 0 {
		slog.InfoContext(ctx, "Expenses deleted", "owner_id", ownerID, "requested", len(ids), "deleted", n)
		s.publish(ctx, amqp.NewDeletedEvent(ownerID, deleted))
	}
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, &core.NotFoundError{Resource: "expenses"}
	}
	return n, nil
}

// BulkCreate validates every row on its own and inserts the valid ones in a
// single batch. With no valid rows nothing is inserted and the error carries
// the rejections. A store failure returns a *core.BatchError holding the
// number of rows that were persisted anyway.
func (s *ExpenseService) BulkCreate(ctx context.Context, ownerID string, rows []ingest.Row) (BulkResult, error) {
	if err := requireOwner(ownerID); err != nil {
		return BulkResult{}, err
	}
	if len(rows) == 0 {
		return BulkResult{}, &core.ValidationError{Field: "rows", Err: core.ErrEmptyBatch}
	}

	now := s.now()
	valid := make([]core.Expense, 0, len(rows))
	rejected := make([]core.RowError, 0)
	for _, row := range rows {
		if row.Err != nil {
			rejected = append(rejected, row.Reject(row.Err))
			continue
		}
		e, err := row.Input.ToExpense(ownerID, now)
		if err != nil {
			rejected = append(rejected, row.Reject(err))
			continue
		}
		valid = append(valid, e)
	}

	if len(valid) == 0 {
		return BulkResult{Rejected: rejected}, &core.ValidationError{
			Field: "rows",
			Err:   &core.BatchError{Err: core.ErrNoValidRows, Rejected: rejected},
		}
	}

	stored, err := s.store.InsertMany(ctx, valid)
	count := len(stored)
	result := BulkResult{Count: count, Rejected: rejected}
	if err != nil {
		slog.ErrorContext(ctx, "Bulk insert failed",
			"owner_id", ownerID,
			"valid", len(valid),
			"persisted", count,
			"error", err)
		if count > 0 {
			s.publish(ctx, amqp.NewCreatedEvent(ownerID, stored))
		}
		return result, &core.BatchError{Err: err, Count: count, Rejected: rejected}
	}

	slog.InfoContext(ctx, "Bulk insert completed",
		"owner_id", ownerID,
		"inserted", count,
		"rejected", len(rejected))

	s.publish(ctx, amqp.NewCreatedEvent(ownerID, stored))
	return result, nil
}

func (s *ExpenseService) publish(ctx context.Context, ev *amqp.ExpenseEvent) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping event", "type", ev.Type)
		return
	}
	if err := s.publisher.PublishExpenseEvent(ctx, ev); err != nil {
		level := slog.LevelError
		if errors.Is(err, context.Canceled) {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "Failed to publish expense event",
			"type", ev.Type,
			"owner_id", ev.OwnerID,
			"error", err)
	}
}
