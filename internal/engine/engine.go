// Package engine runs the batch labeling jobs against the ledger table.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/the-labels-must-flow/internal/common"
	"github.com/Veraticus/the-labels-must-flow/internal/model"
	"github.com/Veraticus/the-labels-must-flow/internal/table"
)

const applyChunk = 100

// Config names the ledger table and its columns.
type Config struct {
	SourceTable string
	Schema      table.SourceSchema
}

// Engine reads the ledger and writes job results back to it.
type Engine struct {
	tables *table.Client
	config Config
}

// New creates an engine over a table client.
func New(tables *table.Client, config Config) *Engine {
	return &Engine{tables: tables, config: config}
}

// Schema returns the ledger column names.
func (e *Engine) Schema() table.SourceSchema {
	return e.config.Schema
}

// LoadResult holds the decoded ledger and how many rows were unusable.
type LoadResult struct {
	Records []model.TransactionRecord
	Summary model.Summary
}

// LoadRecords reads every ledger row and decodes it. Malformed rows are
// logged with their id, field and raw value, then skipped.
func (e *Engine) LoadRecords(ctx context.Context) (LoadResult, error) {
	if err := e.tables.RequireFields(ctx, e.config.SourceTable, e.config.Schema.Required()); err != nil {
		return LoadResult{}, err
	}

	rows, err := e.tables.ReadAll(ctx, e.config.SourceTable)
	if err != nil {
		return LoadResult{}, fmt.Errorf("failed to read ledger: %w", err)
	}

	result := LoadResult{Records: make([]model.TransactionRecord, 0, len(rows))}
	for _, row := range rows {
		result.Summary.Total++
		rec, err := table.DecodeTransaction(row, e.config.Schema)
		if err != nil {
			var mie *common.MalformedInputError
			if errors.As(err, &mie) {
				slog.Warn("Skipping malformed record",
					"record_id", mie.RecordID, "field", mie.Field, "raw", mie.Raw, "reason", mie.Reason)
			}
			result.Summary.Skipped++
			continue
		}
		result.Summary.Succeeded++
		result.Records = append(result.Records, rec)
	}

	slog.Info("Loaded ledger", "table", e.config.SourceTable, "summary", result.Summary.String())
	return result, nil
}

// Apply writes a plan's updates to the ledger. progress, when set, is called
// with the number of rows handled after each batch write completes.
func (e *Engine) Apply(ctx context.Context, plan model.WritePlan, progress func(int)) model.Summary {
	summary := model.Summary{Total: len(plan.Updates)}
	if plan.Empty() {
		return summary
	}

	for start := 0; start < len(plan.Updates); start += applyChunk {
		chunk := plan.Updates[start:min(start+applyChunk, len(plan.Updates))]
		res := e.tables.Update(ctx, e.config.SourceTable, chunk)
		summary.Succeeded += res.Succeeded
		summary.Failed += len(res.Failed)
		for _, f := range res.Failed {
			common.LogError(f.Err, "Failed to update record", common.Fields{"record_id": f.ID})
		}
		if progress != nil {
			progress(len(chunk))
		}
	}
	return summary
}
