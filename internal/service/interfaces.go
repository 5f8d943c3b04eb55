// Package service defines the interfaces shared by the engine's components.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/the-labels-must-flow/internal/model"
)

// TableBackend is the contract for a remote or local tabular store.
// Field values returned by ListRows may use any of the store's raw shapes;
// callers normalize them before use.
type TableBackend interface {
	// CreateTable creates a table with the given columns and returns its identifier.
	CreateTable(ctx context.Context, name string, fields []model.FieldDef) (string, error)
	// ListFields returns the column definitions of a table.
	ListFields(ctx context.Context, table string) ([]model.FieldDef, error)
	// ListRows returns one page of rows starting at pageToken ("" for the first page).
	ListRows(ctx context.Context, table, pageToken string, pageSize int) (model.Page, error)
	// BatchCreate creates rows and returns their identifiers in input order.
	BatchCreate(ctx context.Context, table string, rows []model.Fields) ([]string, error)
	// BatchUpdate overwrites the given fields of existing rows. It fails as a whole.
	BatchUpdate(ctx context.Context, table string, rows []model.Row) error
	// CreateRow creates a single row.
	CreateRow(ctx context.Context, table string, fields model.Fields) (string, error)
	// UpdateRow overwrites the given fields of a single row.
	UpdateRow(ctx context.Context, table string, row model.Row) error
}

// CorrectionStore persists counterparty to category overrides.
type CorrectionStore interface {
	// Lookup returns the stored category for a normalized counterparty.
	Lookup(ctx context.Context, counterparty string) (string, bool, error)
	// Save records or replaces a correction.
	Save(ctx context.Context, counterparty, category string) error
	// All returns every stored correction.
	All(ctx context.Context) (map[string]string, error)
}

// CategoryQuery is the input to a baseline categorization.
type CategoryQuery struct {
	SourceType   string
	SeedCategory string
	Counterparty string
	IsIncome     bool
}

// Categorizer assigns a high-level category to a transaction.
type Categorizer interface {
	Categorize(ctx context.Context, q CategoryQuery) (string, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryOptions matches the store client's default backoff (1s, 2s, 4s).
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxAttempts:  4,
		InitialDelay: time.Second,
		MaxDelay:     8 * time.Second,
		Multiplier:   2.0,
	}
}
