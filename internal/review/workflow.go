package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/the-labels-must-flow/internal/common"
	"github.com/Veraticus/the-labels-must-flow/internal/model"
	"github.com/Veraticus/the-labels-must-flow/internal/pattern"
	"github.com/Veraticus/the-labels-must-flow/internal/table"
)

// ErrInvalidTransition is returned when a decision would move an item
// backwards or out of a terminal status.
var ErrInvalidTransition = errors.New("invalid review status transition")

// Config names the tables the workflow works on.
type Config struct {
	SourceTable  string
	ReviewTable  string
	SourceSchema table.SourceSchema
	ReviewSchema table.ReviewSchema
}

// Workflow moves review items through pending, confirmed and synced.
type Workflow struct {
	tables  *table.Client
	matcher pattern.Matcher
	config  Config
}

// NewWorkflow creates a workflow.
func NewWorkflow(tables *table.Client, matcher pattern.Matcher, config Config) *Workflow {
	return &Workflow{tables: tables, matcher: matcher, config: config}
}

// EnsureReviewTable returns the configured review table or creates one.
func (w *Workflow) EnsureReviewTable(ctx context.Context, name string) (string, error) {
	if w.config.ReviewTable != "" {
		return w.config.ReviewTable, nil
	}
	id, err := w.tables.CreateTable(ctx, name, w.config.ReviewSchema.Fields())
	if err != nil {
		return "", err
	}
	w.config.ReviewTable = id
	slog.Info("Created review table", "name", name, "table", id)
	return id, nil
}

// Items reads and decodes every review item. Malformed rows are skipped.
func (w *Workflow) Items(ctx context.Context) ([]model.ReviewItem, int, error) {
	rows, err := w.tables.ReadAll(ctx, w.config.ReviewTable)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read review table: %w", err)
	}

	items := make([]model.ReviewItem, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		item, err := table.DecodeReviewItem(row, w.config.ReviewSchema)
		if err != nil {
			var mie *common.MalformedInputError
			if errors.As(err, &mie) {
				slog.Warn("Skipping malformed review item",
					"record_id", mie.RecordID, "field", mie.Field, "raw", mie.Raw, "reason", mie.Reason)
			}
			skipped++
			continue
		}
		items = append(items, item)
	}
	return items, skipped, nil
}

// Pending returns items still waiting for a decision.
func (w *Workflow) Pending(ctx context.Context) ([]model.ReviewItem, error) {
	items, _, err := w.Items(ctx)
	if err != nil {
		return nil, err
	}
	var pending []model.ReviewItem
	for _, it := range items {
		if it.Status == model.ReviewPending {
			pending = append(pending, it)
		}
	}
	return pending, nil
}

// PushOptions controls Push.
type PushOptions struct {
	DryRun bool
	// IncludeStaged re-stages records that already have an open review item.
	IncludeStaged bool
}

// PushResult reports a push.
type PushResult struct {
	Items   []model.ReviewItem
	Stats   StageStats
	Summary model.Summary
}

// Push stages records that need review and writes them to the review table.
// Records with an open (pending or confirmed) item are not staged twice.
func (w *Workflow) Push(ctx context.Context, records []model.TransactionRecord, opts PushOptions) (PushResult, error) {
	staged, stats := Stage(records, w.matcher)
	result := PushResult{Stats: stats}

	open := map[string]bool{}
	if !opts.IncludeStaged && w.config.ReviewTable != "" {
		existing, _, err := w.Items(ctx)
		if err != nil {
			return result, err
		}
		for _, it := range existing {
			if it.Status == model.ReviewPending || it.Status == model.ReviewConfirmed {
				open[it.RecordID] = true
			}
		}
	}

	for _, it := range staged {
		result.Summary.Total++
		if open[it.RecordID] {
			result.Summary.Skipped++
			continue
		}
		result.Items = append(result.Items, it)
	}

	slog.Info("Staged review items",
		"match", stats.Match, "mismatch", stats.Mismatch, "no_rule", stats.NoRule,
		"new", len(result.Items), "already_open", result.Summary.Skipped)

	if opts.DryRun || len(result.Items) == 0 {
		return result, nil
	}
	if w.config.ReviewTable == "" {
		return result, fmt.Errorf("%w: review table", common.ErrMissingConfig)
	}

	rows := make([]model.Fields, len(result.Items))
	for i, it := range result.Items {
		rows[i] = table.EncodeReviewItem(it, w.config.ReviewSchema)
	}
	res := w.tables.Create(ctx, w.config.ReviewTable, rows)
	for i, id := range res.CreatedIDs {
		result.Items[i].ID = id
	}
	for _, f := range res.Failed {
		common.LogError(f.Err, "Failed to stage review item", common.Fields{"record_id": result.Items[f.Index].RecordID})
	}
	result.Summary.Succeeded = res.Succeeded
	result.Summary.Failed = len(res.Failed)
	return result, nil
}

// SyncOptions controls Sync.
type SyncOptions struct {
	DryRun bool
}

// SyncResult reports a sync.
type SyncResult struct {
	Plan    model.WritePlan
	Synced  []model.ReviewItem
	Summary model.Summary
}

// Sync writes the final values of confirmed items to the ledger and marks
// them synced. An item is marked synced only after its ledger write succeeded;
// failed items stay confirmed and are retried by the next sync. Items that
// are already synced are never written again.
func (w *Workflow) Sync(ctx context.Context, opts SyncOptions) (SyncResult, error) {
	var result SyncResult

	items, _, err := w.Items(ctx)
	if err != nil {
		return result, err
	}

	var confirmed []model.ReviewItem
	for _, it := range items {
		if it.Status != model.ReviewConfirmed {
			continue
		}
		result.Summary.Total++
		fields := table.LabelFields(w.config.SourceSchema, it.FinalPurpose, it.FinalSubcat)
		if len(fields) == 0 {
			slog.Warn("Confirmed review item has no final values", "review_id", it.ID, "record_id", it.RecordID)
			result.Summary.Skipped++
			continue
		}
		confirmed = append(confirmed, it)
		result.Plan.Updates = append(result.Plan.Updates, model.Row{ID: it.RecordID, Fields: fields})
		result.Plan.Changes = append(result.Plan.Changes, changesFor(w.config.SourceSchema, it)...)
	}
	result.Plan.Summary = result.Summary

	if opts.DryRun || len(confirmed) == 0 {
		return result, nil
	}

	written := w.tables.Update(ctx, w.config.SourceTable, result.Plan.Updates)
	for _, f := range written.Failed {
		common.LogError(f.Err, "Failed to write review decision to ledger",
			common.Fields{"record_id": f.ID, "review_id": confirmed[f.Index].ID})
	}

	var marks []model.Row
	var marked []model.ReviewItem
	for i, it := range confirmed {
		if written.FailedIndex(i) {
			result.Summary.Failed++
			continue
		}
		marks = append(marks, model.Row{ID: it.ID, Fields: model.Fields{
			w.config.ReviewSchema.Status: w.config.ReviewSchema.StatusLabel(model.ReviewSynced),
		}})
		marked = append(marked, it)
	}

	status := w.tables.Update(ctx, w.config.ReviewTable, marks)
	for _, f := range status.Failed {
		it := marked[f.Index]
		common.LogError(f.Err, "Ledger updated but review item not marked synced",
			common.Fields{"review_id": it.ID, "record_id": it.RecordID})
	}
	for i, it := range marked {
		if status.FailedIndex(i) {
			result.Summary.Failed++
			continue
		}
		it.Status = model.ReviewSynced
		result.Synced = append(result.Synced, it)
		result.Summary.Succeeded++
	}

	return result, nil
}

// Decision is a human verdict on one review item.
type Decision struct {
	Status       model.ReviewStatus
	FinalPurpose string
	FinalSubcat  string
}

// Decide records a decision. Final values and status are written in a single
// row update so the item is never half-decided.
func (w *Workflow) Decide(ctx context.Context, item model.ReviewItem, d Decision) (model.ReviewItem, error) {
	if d.Status != item.Status && !item.Status.CanTransition(d.Status) {
		return item, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, item.Status, d.Status)
	}
	if d.Status == model.ReviewSynced {
		return item, fmt.Errorf("%w: only sync marks items synced", ErrInvalidTransition)
	}

	schema := w.config.ReviewSchema
	row := model.Row{ID: item.ID, Fields: model.Fields{
		schema.FinalPurpose: d.FinalPurpose,
		schema.FinalSubcat:  d.FinalSubcat,
		schema.Status:       schema.StatusLabel(d.Status),
	}}
	if err := w.tables.UpdateOne(ctx, w.config.ReviewTable, row); err != nil {
		return item, err
	}

	item.FinalPurpose = d.FinalPurpose
	item.FinalSubcat = d.FinalSubcat
	item.Status = d.Status
	return item, nil
}

func changesFor(schema table.SourceSchema, it model.ReviewItem) []model.Change {
	var changes []model.Change
	if it.FinalPurpose != "" {
		changes = append(changes, model.Change{RecordID: it.RecordID, Note: it.Note, Category: it.Category,
			Field: schema.Purpose, Old: it.CurrentPurpose, New: it.FinalPurpose})
	}
	if it.FinalSubcat != "" {
		changes = append(changes, model.Change{RecordID: it.RecordID, Note: it.Note, Category: it.Category,
			Field: schema.Subcat, Old: it.CurrentSubcat, New: it.FinalSubcat})
	}
	return changes
}
