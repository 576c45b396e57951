// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents a single financial transaction submitted for tracking.
type Transaction struct {
	Date            time.Time       `json:"date"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description"`
	Category        string          `json:"category"`
	ID              *int64          `json:"id"`
	IsNafflEligible bool            `json:"is_naffl_eligible"`
}

// ValidationError describes a transaction field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid transaction: %s %s", e.Field, e.Reason)
}

// NewTransaction creates a transaction with defaults applied: the date is set
// to the current time and the transaction is assumed NAFFL-eligible until the
// classifier says otherwise.
func NewTransaction(description string, amount decimal.Decimal, category string) Transaction {
	return Transaction{
		Description:     description,
		Amount:          amount,
		Category:        category,
		Date:            time.Now(),
		IsNafflEligible: true,
	}
}

// ApplyDefaults fills fields a caller may legitimately omit. Eligibility is
// not defaulted here; it is always recomputed by the classifier.
func (t *Transaction) ApplyDefaults() {
	if t.Date.IsZero() {
		t.Date = time.Now()
	}
}

// Validate checks the transaction invariants. It must be called before any
// eligibility logic runs; an invalid transaction is never classified.
func (t *Transaction) Validate() error {
	if t.Description == "" {
		return &ValidationError{Field: "description", Reason: "must not be empty"}
	}
	if !t.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	return nil
}
