package core

import (
	"errors"
	"time"
)

var ErrEmptyPatch = errors.New("no updatable fields supplied")

// ExpenseInput is the candidate payload for a new expense.
type ExpenseInput struct {
	Amount        Optional[float64] `json:"amount"`
	Category      Optional[string]  `json:"category"`
	PaymentMethod Optional[string]  `json:"paymentMethod"`
}

// ToExpense validates the input and returns an expense owned by ownerID,
// stamped with now. An omitted payment method falls back to cash.
func (in ExpenseInput) ToExpense(ownerID string, now time.Time) (Expense, error) {
	if in.Amount.Null {
		return Expense{}, &ValidationError{Field: "amount", Err: ErrNullField}
	}
	amount, ok := in.Amount.Get()
	if !ok {
		return Expense{}, &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	if err := ValidateAmount(amount); err != nil {
		return Expense{}, &ValidationError{Field: "amount", Err: err}
	}

	raw, _ := in.Category.Get()
	category, err := NormalizeCategory(raw)
	if err != nil {
		return Expense{}, &ValidationError{Field: "category", Err: err}
	}

	method := DefaultPaymentMethod
	if in.PaymentMethod.Null {
		return Expense{}, &ValidationError{Field: "paymentMethod", Err: ErrNullField}
	}
	if s, ok := in.PaymentMethod.Get(); ok {
		if method, err = ParsePaymentMethod(s); err != nil {
			return Expense{}, &ValidationError{Field: "paymentMethod", Err: err}
		}
	}

	now = now.UTC()
	e := Expense{
		OwnerID:       ownerID,
		Amount:        amount,
		Category:      category,
		PaymentMethod: method,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.Validate(); err != nil {
		return Expense{}, err
	}
	return e, nil
}

// ExpensePatch is a partial update. Absent fields are left unchanged;
// fields supplied as null are rejected.
type ExpensePatch struct {
	Amount        Optional[float64] `json:"amount"`
	Category      Optional[string]  `json:"category"`
	PaymentMethod Optional[string]  `json:"paymentMethod"`
}

// ExpenseChanges is a validated patch ready for a store. Nil means unchanged.
type ExpenseChanges struct {
	Amount        *float64
	Category      *string
	PaymentMethod *PaymentMethod
}

func (c ExpenseChanges) IsEmpty() bool {
	return c.Amount == nil && c.Category == nil && c.PaymentMethod == nil
}

// Apply returns e with the changes applied and UpdatedAt set to at.
func (c ExpenseChanges) Apply(e Expense, at time.Time) Expense {
	if c.Amount != nil {
		e.Amount = *c.Amount
	}
	if c.Category != nil {
		e.Category = *c.Category
	}
	if c.PaymentMethod != nil {
		e.PaymentMethod = *c.PaymentMethod
	}
	e.UpdatedAt = at.UTC()
	return e
}

// Changes validates every supplied field with the same rules as creation.
func (p ExpensePatch) Changes() (ExpenseChanges, error) {
	var c ExpenseChanges

	if p.Amount.Set {
		v, ok := p.Amount.Get()
		if !ok {
			return ExpenseChanges{}, &ValidationError{Field: "amount", Err: ErrNullField}
		}
		if err := ValidateAmount(v); err != nil {
			return ExpenseChanges{}, &ValidationError{Field: "amount", Err: err}
		}
		c.Amount = &v
	}

	if p.Category.Set {
		v, ok := p.Category.Get()
		if !ok {
			return ExpenseChanges{}, &ValidationError{Field: "category", Err: ErrNullField}
		}
		category, err := NormalizeCategory(v)
		if err != nil {
			return ExpenseChanges{}, &ValidationError{Field: "category", Err: err}
		}
		c.Category = &category
	}

	if p.PaymentMethod.Set {
		v, ok := p.PaymentMethod.Get()
		if !ok {
			return ExpenseChanges{}, &ValidationError{Field: "paymentMethod", Err: ErrNullField}
		}
		pm, err := ParsePaymentMethod(v)
		if err != nil {
			return ExpenseChanges{}, &ValidationError{Field: "paymentMethod", Err: err}
		}
		c.PaymentMethod = &pm
	}

	if c.IsEmpty() {
		return ExpenseChanges{}, &ValidationError{Err: ErrEmptyPatch}
	}
	return c, nil
}
