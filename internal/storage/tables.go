package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strconv"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/Veraticus/the-labels-must-flow/internal/common"
	"github.com/Veraticus/the-labels-must-flow/internal/model"
)

// CreateTable implements service.TableBackend. Table identifiers are their
// names; creating an existing table adds any missing columns and returns it.
func (s *SQLiteStorage) CreateTable(ctx context.Context, name string, fields []model.FieldDef) (string, error) {
	if err := validateString(name, "name"); err != nil {
		return "", err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tables (id, name) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`, name, name); err != nil {
			return classify(fmt.Errorf("failed to create table %s: %w", name, err))
		}

		var next int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position) + 1, 0) FROM table_fields WHERE table_id = ?`, name).Scan(&next); err != nil {
			return classify(fmt.Errorf("failed to read fields of %s: %w", name, err))
		}

		for _, f := range fields {
			fieldType := f.Type
			if fieldType == "" {
				fieldType = "text"
			}
			res, err := tx.ExecContext(ctx, `
				INSERT INTO table_fields (table_id, name, type, position) VALUES (?, ?, ?, ?)
				ON CONFLICT(table_id, name) DO NOTHING
			`, name, f.Name, fieldType, next)
			if err != nil {
				return classify(fmt.Errorf("failed to add field %s: %w", f.Name, err))
			}
			if n, _ := res.RowsAffected(); n > 0 {
				next++
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

// ListFields implements service.TableBackend.
func (s *SQLiteStorage) ListFields(ctx context.Context, table string) ([]model.FieldDef, error) {
	if err := s.requireTable(ctx, s.db, table); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, type FROM table_fields WHERE table_id = ? ORDER BY position`, table)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to list fields: %w", err))
	}
	defer func() { _ = rows.Close() }()

	var fields []model.FieldDef
	for rows.Next() {
		var f model.FieldDef
		if err := rows.Scan(&f.Name, &f.Type); err != nil {
			return nil, fmt.Errorf("failed to scan field: %w", err)
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

// ListRows implements service.TableBackend. Page tokens are row sequence
// numbers, so rows created while paging are picked up at the end.
func (s *SQLiteStorage) ListRows(ctx context.Context, table, pageToken string, pageSize int) (model.Page, error) {
	if err := s.requireTable(ctx, s.db, table); err != nil {
		return model.Page{}, err
	}

	var after int64
	if pageToken != "" {
		var err error
		after, err = strconv.ParseInt(pageToken, 10, 64)
		if err != nil || after < 0 {
			return model.Page{}, &common.RetryableError{Err: fmt.Errorf("invalid page token %q", pageToken), Retryable: false}
		}
	}
	if pageSize <= 0 {
		pageSize = 500
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, fields FROM table_rows
		WHERE table_id = ? AND seq > ?
		ORDER BY seq
		LIMIT ?
	`, table, after, pageSize+1)
	if err != nil {
		return model.Page{}, classify(fmt.Errorf("failed to list rows: %w", err))
	}
	defer func() { _ = rows.Close() }()

	var page model.Page
	var last int64
	for rows.Next() {
		var seq int64
		var id, raw string
		if err := rows.Scan(&seq, &id, &raw); err != nil {
			return model.Page{}, fmt.Errorf("failed to scan row: %w", err)
		}
		if len(page.Rows) == pageSize {
			page.HasMore = true
			break
		}
		fields, err := decodeFields(raw)
		if err != nil {
			return model.Page{}, fmt.Errorf("row %s: %w", id, err)
		}
		page.Rows = append(page.Rows, model.Row{ID: id, Fields: fields})
		last = seq
	}
	if err := rows.Err(); err != nil {
		return model.Page{}, classify(err)
	}
	if page.HasMore {
		page.NextToken = strconv.FormatInt(last, 10)
	}
	return page, nil
}

// BatchCreate implements service.TableBackend. The batch is one transaction.
func (s *SQLiteStorage) BatchCreate(ctx context.Context, table string, rows []model.Fields) ([]string, error) {
	ids := make([]string, 0, len(rows))
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireTable(ctx, tx, table); err != nil {
			return err
		}
		for _, fields := range rows {
			id, err := insertRow(ctx, tx, table, fields)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// BatchUpdate implements service.TableBackend. The batch is one transaction.
func (s *SQLiteStorage) BatchUpdate(ctx context.Context, table string, rows []model.Row) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, row := range rows {
			if err := mergeRow(ctx, tx, table, row); err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateRow implements service.TableBackend.
func (s *SQLiteStorage) CreateRow(ctx context.Context, table string, fields model.Fields) (string, error) {
	ids, err := s.BatchCreate(ctx, table, []model.Fields{fields})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// UpdateRow implements service.TableBackend.
func (s *SQLiteStorage) UpdateRow(ctx context.Context, table string, row model.Row) error {
	return s.BatchUpdate(ctx, table, []model.Row{row})
}

func (s *SQLiteStorage) requireTable(ctx context.Context, q queryable, table string) error {
	var id string
	err := q.QueryRowContext(ctx, `SELECT id FROM tables WHERE id = ?`, table).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return &common.RetryableError{Err: fmt.Errorf("table %s: %w", table, common.ErrNotFound), Retryable: false}
	}
	if err != nil {
		return classify(fmt.Errorf("failed to look up table %s: %w", table, err))
	}
	return nil
}

func insertRow(ctx context.Context, tx *sql.Tx, table string, fields model.Fields) (string, error) {
	raw, err := encodeFields(fields)
	if err != nil {
		return "", err
	}
	id := "rec_" + uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO table_rows (id, table_id, fields) VALUES (?, ?, ?)`, id, table, raw); err != nil {
		return "", classify(fmt.Errorf("failed to insert row: %w", err))
	}
	return id, nil
}

func mergeRow(ctx context.Context, tx *sql.Tx, table string, row model.Row) error {
	var raw string
	err := tx.QueryRowContext(ctx,
		`SELECT fields FROM table_rows WHERE id = ? AND table_id = ?`, row.ID, table).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return &common.RetryableError{Err: fmt.Errorf("row %s: %w", row.ID, common.ErrNotFound), Retryable: false}
	}
	if err != nil {
		return classify(fmt.Errorf("failed to read row %s: %w", row.ID, err))
	}

	existing, err := decodeFields(raw)
	if err != nil {
		return fmt.Errorf("row %s: %w", row.ID, err)
	}
	maps.Copy(existing, row.Fields)

	merged, err := encodeFields(existing)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE table_rows SET fields = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, merged, row.ID); err != nil {
		return classify(fmt.Errorf("failed to update row %s: %w", row.ID, err))
	}
	return nil
}

func encodeFields(fields model.Fields) (string, error) {
	if fields == nil {
		fields = model.Fields{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode fields: %w", err)
	}
	return string(data), nil
}

func decodeFields(raw string) (model.Fields, error) {
	fields := model.Fields{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("%w: stored fields: %w", common.ErrMalformedInput, err)
	}
	return fields, nil
}

// classify marks lock contention as retryable and everything else as final.
func classify(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
		return &common.RetryableError{Err: err, Retryable: true}
	}
	return &common.RetryableError{Err: err, Retryable: false}
}
