package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CorrectionStore keeps learned counterparty corrections in the database.
type CorrectionStore struct {
	db *sql.DB
}

// Corrections returns a correction store backed by this database.
func (s *SQLiteStorage) Corrections() *CorrectionStore {
	return &CorrectionStore{db: s.db}
}

// Lookup implements service.CorrectionStore.
func (c *CorrectionStore) Lookup(ctx context.Context, counterparty string) (string, bool, error) {
	var category string
	err := c.db.QueryRowContext(ctx,
		`SELECT category FROM corrections WHERE counterparty = ?`, counterparty).Scan(&category)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get correction: %w", err)
	}
	return category, true, nil
}

// Save implements service.CorrectionStore. The latest save wins.
func (c *CorrectionStore) Save(ctx context.Context, counterparty, category string) error {
	if err := validateString(counterparty, "counterparty"); err != nil {
		return err
	}
	if err := validateString(category, "category"); err != nil {
		return err
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO corrections (counterparty, category) VALUES (?, ?)
		ON CONFLICT(counterparty) DO UPDATE SET
			category = excluded.category,
			updated_at = CURRENT_TIMESTAMP
	`, counterparty, category)
	if err != nil {
		return fmt.Errorf("failed to save correction: %w", err)
	}
	return nil
}

// All implements service.CorrectionStore.
func (c *CorrectionStore) All(ctx context.Context) (map[string]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT counterparty, category FROM corrections`)
	if err != nil {
		return nil, fmt.Errorf("failed to list corrections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]string)
	for rows.Next() {
		var cp, cat string
		if err := rows.Scan(&cp, &cat); err != nil {
			return nil, fmt.Errorf("failed to scan correction: %w", err)
		}
		out[cp] = cat
	}
	return out, rows.Err()
}
