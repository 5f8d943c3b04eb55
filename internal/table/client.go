package table

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Veraticus/the-labels-must-flow/internal/common"
	"github.com/Veraticus/the-labels-must-flow/internal/model"
	"github.com/Veraticus/the-labels-must-flow/internal/service"
)

// Options tunes paging, batching and retries.
type Options struct {
	Retry     service.RetryOptions
	RowRetry  service.RetryOptions
	PageSize  int
	MaxPages  int
	BatchSize int
}

// DefaultOptions returns conservative limits for remote stores.
func DefaultOptions() Options {
	rowRetry := service.DefaultRetryOptions()
	rowRetry.MaxAttempts = 2
	return Options{
		Retry:     service.DefaultRetryOptions(),
		RowRetry:  rowRetry,
		PageSize:  500,
		MaxPages:  200,
		BatchSize: 100,
	}
}

// Client wraps a TableBackend with pagination, normalization, batching and retries.
type Client struct {
	backend service.TableBackend
	opts    Options
}

// NewClient creates a client. Zero option values fall back to the defaults.
func NewClient(backend service.TableBackend, opts Options) *Client {
	def := DefaultOptions()
	if opts.PageSize <= 0 {
		opts.PageSize = def.PageSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = def.MaxPages
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = def.BatchSize
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = def.Retry
	}
	if opts.RowRetry.MaxAttempts <= 0 {
		opts.RowRetry = def.RowRetry
	}
	return &Client{backend: backend, opts: opts}
}

// CreateTable creates a table through the backend.
func (c *Client) CreateTable(ctx context.Context, name string, fields []model.FieldDef) (string, error) {
	var id string
	err := common.WithRetry(ctx, func() error {
		var err error
		id, err = c.backend.CreateTable(ctx, name, fields)
		return err
	}, c.opts.Retry)
	if err != nil {
		return "", fmt.Errorf("%w: create table %s: %w", common.ErrExternalStore, name, err)
	}
	return id, nil
}

// RequireFields checks that every named column exists in the table.
func (c *Client) RequireFields(ctx context.Context, table string, names []string) error {
	var defs []model.FieldDef
	err := common.WithRetry(ctx, func() error {
		var err error
		defs, err = c.backend.ListFields(ctx, table)
		return err
	}, c.opts.Retry)
	if err != nil {
		return fmt.Errorf("%w: list fields of %s: %w", common.ErrExternalStore, table, err)
	}

	have := make(map[string]bool, len(defs))
	for _, d := range defs {
		have[d.Name] = true
	}
	var missing []string
	for _, n := range names {
		if n != "" && !have[n] {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: table %s lacks %s", common.ErrMissingField, table, strings.Join(missing, ", "))
	}
	return nil
}

// ReadAll lists every row of a table, following page tokens until the store
// reports no more rows. Reading stops with ErrPageLimit after MaxPages pages.
func (c *Client) ReadAll(ctx context.Context, table string) ([]model.Row, error) {
	var rows []model.Row
	token := ""
	seen := map[string]bool{}

	for page := 0; page < c.opts.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return rows, err
		}

		var p model.Page
		err := common.WithRetry(ctx, func() error {
			var err error
			p, err = c.backend.ListRows(ctx, table, token, c.opts.PageSize)
			return err
		}, c.opts.Retry)
		if err != nil {
			return rows, fmt.Errorf("%w: list rows of %s page %d: %w", common.ErrExternalStore, table, page, err)
		}

		for _, r := range p.Rows {
			r.Fields = NormalizeFields(r.Fields)
			rows = append(rows, r)
		}

		if !p.HasMore || p.NextToken == "" {
			return rows, nil
		}
		if seen[p.NextToken] {
			return rows, fmt.Errorf("%w: %s returned page token %q twice", common.ErrExternalStore, table, p.NextToken)
		}
		seen[p.NextToken] = true
		token = p.NextToken
	}

	return rows, fmt.Errorf("%w: %s after %d pages", common.ErrPageLimit, table, c.opts.MaxPages)
}

// Create writes rows in batches. A failed batch is retried row by row so that
// one bad row does not sink its neighbours. CreatedIDs follows input order and
// holds "" for rows that failed.
func (c *Client) Create(ctx context.Context, table string, rows []model.Fields) model.BatchResult {
	result := model.BatchResult{CreatedIDs: make([]string, len(rows))}

	for start := 0; start < len(rows); start += c.opts.BatchSize {
		end := min(start+c.opts.BatchSize, len(rows))
		chunk := rows[start:end]

		if err := ctx.Err(); err != nil {
			c.failRange(&result, start, len(rows), nil, err)
			return result
		}

		var ids []string
		err := common.WithRetry(ctx, func() error {
			var err error
			ids, err = c.backend.BatchCreate(ctx, table, chunk)
			return err
		}, c.opts.Retry)
		if err == nil && len(ids) == len(chunk) {
			copy(result.CreatedIDs[start:end], ids)
			result.Succeeded += len(chunk)
			continue
		}

		slog.Warn("Batch create failed, falling back to single rows",
			"table", table, "offset", start, "size", len(chunk), "error", err)

		for i, fields := range chunk {
			var id string
			rowErr := common.WithRetry(ctx, func() error {
				var err error
				id, err = c.backend.CreateRow(ctx, table, fields)
				return err
			}, c.opts.RowRetry)
			if rowErr != nil {
				result.Failed = append(result.Failed, model.RowFailure{
					Index: start + i,
					Err:   fmt.Errorf("%w: %w", common.ErrExternalStore, rowErr),
				})
				continue
			}
			result.CreatedIDs[start+i] = id
			result.Succeeded++
		}
	}

	return result
}

// Update overwrites fields of existing rows with the same batching and
// fallback behaviour as Create.
func (c *Client) Update(ctx context.Context, table string, rows []model.Row) model.BatchResult {
	var result model.BatchResult

	for start := 0; start < len(rows); start += c.opts.BatchSize {
		end := min(start+c.opts.BatchSize, len(rows))
		chunk := rows[start:end]

		if err := ctx.Err(); err != nil {
			c.failRange(&result, start, len(rows), rows, err)
			return result
		}

		err := common.WithRetry(ctx, func() error {
			return c.backend.BatchUpdate(ctx, table, chunk)
		}, c.opts.Retry)
		if err == nil {
			result.Succeeded += len(chunk)
			continue
		}

		slog.Warn("Batch update failed, falling back to single rows",
			"table", table, "offset", start, "size", len(chunk), "error", err)

		for i, row := range chunk {
			rowErr := c.updateRow(ctx, table, row)
			if rowErr != nil {
				result.Failed = append(result.Failed, model.RowFailure{Index: start + i, ID: row.ID, Err: rowErr})
				continue
			}
			result.Succeeded++
		}
	}

	return result
}

// UpdateOne overwrites fields of a single row.
func (c *Client) UpdateOne(ctx context.Context, table string, row model.Row) error {
	return c.updateRow(ctx, table, row)
}

func (c *Client) updateRow(ctx context.Context, table string, row model.Row) error {
	err := common.WithRetry(ctx, func() error {
		return c.backend.UpdateRow(ctx, table, row)
	}, c.opts.RowRetry)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: update %s/%s: %w", common.ErrExternalStore, table, row.ID, err)
	}
	return nil
}

func (c *Client) failRange(result *model.BatchResult, from, to int, rows []model.Row, err error) {
	for i := from; i < to; i++ {
		f := model.RowFailure{Index: i, Err: err}
		if rows != nil {
			f.ID = rows[i].ID
		}
		result.Failed = append(result.Failed, f)
	}
}
