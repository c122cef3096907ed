package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

const (
	Cash   PaymentMethod = "cash"
	Credit PaymentMethod = "credit"
)

// DefaultPaymentMethod is applied when a new expense omits the payment method.
const DefaultPaymentMethod = Cash

type (
	PaymentMethod string

	// Expense is a single spending record owned by exactly one user.
	Expense struct {
		ID            string        `json:"id"`
		OwnerID       string        `json:"ownerId"`
		Amount        float64       `json:"amount"`
		Category      string        `json:"category"`
		PaymentMethod PaymentMethod `json:"paymentMethod"`
		CreatedAt     time.Time     `json:"createdAt"`
		UpdatedAt     time.Time     `json:"updatedAt"`
	}
)

var (
	ErrInvalidAmount        = errors.New("amount must be a non-negative number")
	ErrEmptyCategory        = errors.New("category cannot be empty")
	ErrInvalidPaymentMethod = errors.New("payment method must be one of cash, credit")
	ErrMissingOwner         = errors.New("expense has no owner")
	ErrNullField            = errors.New("field cannot be null")
)

// ParsePaymentMethod normalizes s and checks it against the known methods.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	pm := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	if !pm.IsValid() {
		return "", ErrInvalidPaymentMethod
	}
	return pm, nil
}

func (pm PaymentMethod) IsValid() bool {
	switch pm {
	case Cash, Credit:
		return true
	default:
		return false
	}
}

func (pm PaymentMethod) String() string {
	return string(pm)
}

// ValidateAmount rejects negative, NaN and infinite amounts.
func ValidateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// NormalizeCategory trims the category and rejects blank values.
func NormalizeCategory(category string) (string, error) {
	c := strings.TrimSpace(category)
	if c == "" {
		return "", ErrEmptyCategory
	}
	return c, nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.OwnerID) == "" {
		return &ValidationError{Field: "ownerId", Err: ErrMissingOwner}
	}
	if err := ValidateAmount(e.Amount); err != nil {
		return &ValidationError{Field: "amount", Err: err}
	}
	if _, err := NormalizeCategory(e.Category); err != nil {
		return &ValidationError{Field: "category", Err: err}
	}
	if !e.PaymentMethod.IsValid() {
		return &ValidationError{Field: "paymentMethod", Err: ErrInvalidPaymentMethod}
	}
	return nil
}
