// Package model defines the core data structures for the labeling engine.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction indicates whether money left or entered the ledger.
type Direction string

const (
	// DirectionExpense marks money leaving the ledger.
	DirectionExpense Direction = "expense"
	// DirectionIncome marks money entering the ledger.
	DirectionIncome Direction = "income"
)

// TransactionRecord is one ledger row as seen by the engine.
type TransactionRecord struct {
	Date         time.Time
	Amount       decimal.Decimal
	ID           string
	Note         string
	Category     string
	Purpose      string
	Subcat       string
	Counterparty string
	Direction    Direction
}

// IsExpense reports whether the record is an outgoing payment.
func (r TransactionRecord) IsExpense() bool {
	return r.Direction == DirectionExpense
}

// Labeled reports whether note, category, purpose and subcategory are all present.
func (r TransactionRecord) Labeled() bool {
	return r.Note != "" && r.Category != "" && r.Purpose != "" && r.Subcat != ""
}

// Timestamp returns the record date as epoch milliseconds.
func (r TransactionRecord) Timestamp() int64 {
	return r.Date.UnixMilli()
}
