package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"expensetracker/internal/core"
)

// EventType names what happened to the expenses in an ExpenseEvent
type EventType string

const (
	EventCreated EventType = "expense.created"
	EventUpdated EventType = "expense.updated"
	EventDeleted EventType = "expense.deleted"
)

// ExpenseEvent is published after a successful write. Created and updated
// events carry the records; deleted events carry only the ids.
type ExpenseEvent struct {
	Type      EventType      `json:"type"`
	OwnerID   string         `json:"ownerId"`
	Expenses  []core.Expense `json:"expenses,omitempty"`
	IDs       []string       `json:"ids,omitempty"`
	Count     int            `json:"count"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewCreatedEvent covers one or many inserted expenses
func NewCreatedEvent(ownerID string, es []core.Expense) *ExpenseEvent {
	return &ExpenseEvent{
		Type:      EventCreated,
		OwnerID:   ownerID,
		Expenses:  es,
		Count:     len(es),
		Timestamp: time.Now().UTC(),
	}
}

func NewUpdatedEvent(ownerID string, e core.Expense) *ExpenseEvent {
	return &ExpenseEvent{
		Type:      EventUpdated,
		OwnerID:   ownerID,
		Expenses:  []core.Expense{e},
		Count:     1,
		Timestamp: time.Now().UTC(),
	}
}

// NewDeletedEvent lists the ids that were actually removed
func NewDeletedEvent(ownerID string, ids []string) *ExpenseEvent {
	return &ExpenseEvent{
		Type:      EventDeleted,
		OwnerID:   ownerID,
		IDs:       ids,
		Count:     len(ids),
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ExpenseEventFromJSON decodes and checks an event body
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var ev ExpenseEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	switch ev.Type {
	case EventCreated, EventUpdated, EventDeleted:
	default:
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}
	if ev.OwnerID == "" {
		return nil, fmt.Errorf("event without owner")
	}
	return &ev, nil
}
