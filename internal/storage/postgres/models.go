package postgres

import (
	"time"

	"expensetracker/internal/core"
)

type expenseRow struct {
	ID            string    `gorm:"primaryKey;size:36"`
	OwnerID       string    `gorm:"size:64;not null;index:idx_expenses_owner_created,priority:1;index:idx_expenses_owner_category,priority:1"`
	Amount        float64   `gorm:"not null;check:amount >= 0"`
	Category      string    `gorm:"size:100;not null;index:idx_expenses_owner_category,priority:2"`
	PaymentMethod string    `gorm:"size:16;not null"`
	CreatedAt     time.Time `gorm:"not null;index:idx_expenses_owner_created,priority:2,sort:desc"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (expenseRow) TableName() string {
	return "expenses"
}

func toRow(e core.Expense) expenseRow {
	return expenseRow{
		ID:            e.ID,
		OwnerID:       e.OwnerID,
		Amount:        e.Amount,
		Category:      e.Category,
		PaymentMethod: string(e.PaymentMethod),
		CreatedAt:     e.CreatedAt.UTC(),
		UpdatedAt:     e.UpdatedAt.UTC(),
	}
}

func (r expenseRow) toExpense() core.Expense {
	return core.Expense{
		ID:            r.ID,
		OwnerID:       r.OwnerID,
		Amount:        r.Amount,
		Category:      r.Category,
		PaymentMethod: core.PaymentMethod(r.PaymentMethod),
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

type userRow struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Email        string    `gorm:"size:255;not null;uniqueIndex"`
	Username     string    `gorm:"size:100"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"size:16;not null;default:user"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (userRow) TableName() string {
	return "users"
}

func (r userRow) toUser() core.User {
	return core.User{
		ID:           r.ID,
		Email:        r.Email,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		Role:         core.Role(r.Role),
		CreatedAt:    r.CreatedAt.UTC(),
	}
}
