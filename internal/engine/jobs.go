package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/the-labels-must-flow/internal/counterparty"
	"github.com/Veraticus/the-labels-must-flow/internal/model"
	"github.com/Veraticus/the-labels-must-flow/internal/pattern"
	"github.com/Veraticus/the-labels-must-flow/internal/table"
)

// MineRules loads the ledger and mines keyword rules from it.
func (e *Engine) MineRules(ctx context.Context, opts pattern.MineOptions) ([]model.Rule, model.Summary, error) {
	loaded, err := e.LoadRecords(ctx)
	if err != nil {
		return nil, loaded.Summary, err
	}
	return pattern.Mine(loaded.Records, opts), loaded.Summary, nil
}

// PlanBackfill proposes counterparty values for records whose counterparty is
// empty, recovered from the note.
func (e *Engine) PlanBackfill(records []model.TransactionRecord) model.WritePlan {
	schema := e.config.Schema
	var plan model.WritePlan

	for _, rec := range records {
		plan.Summary.Total++
		if rec.Counterparty != "" {
			plan.Summary.Skipped++
			continue
		}
		name, ok := counterparty.Extract(rec.Note, rec.Category)
		if !ok {
			plan.Summary.Skipped++
			continue
		}
		plan.Summary.Succeeded++
		plan.Changes = append(plan.Changes, model.Change{
			RecordID: rec.ID,
			Note:     rec.Note,
			Category: rec.Category,
			Field:    schema.Counterparty,
			New:      name,
		})
		plan.Updates = append(plan.Updates, model.Row{ID: rec.ID, Fields: model.Fields{schema.Counterparty: name}})
	}
	return plan
}

// FillOptions controls PlanFill.
type FillOptions struct {
	// Overwrite replaces existing values instead of only filling empty ones.
	Overwrite bool
	// MaxFill caps how many records are considered. Zero means no cap.
	MaxFill int
}

// PlanFill proposes purpose and subcategory values for expense records using
// the predictor.
func (e *Engine) PlanFill(records []model.TransactionRecord, predictor Strategy, opts FillOptions) model.WritePlan {
	schema := e.config.Schema
	var plan model.WritePlan
	considered := 0

	for _, rec := range records {
		if opts.MaxFill > 0 && considered >= opts.MaxFill {
			break
		}
		if !rec.IsExpense() || strings.TrimSpace(rec.Note) == "" || strings.TrimSpace(rec.Category) == "" {
			continue
		}
		if !opts.Overwrite && rec.Purpose != "" && rec.Subcat != "" {
			continue
		}
		considered++
		plan.Summary.Total++

		pred := predictor.Predict(rec.Note, rec.Category)
		if !pred.Found() {
			plan.Summary.Skipped++
			continue
		}

		fields := model.Fields{}
		if pred.Purpose != "" && pred.Purpose != rec.Purpose && (opts.Overwrite || rec.Purpose == "") {
			fields[schema.Purpose] = pred.Purpose
			plan.Changes = append(plan.Changes, change(rec, schema.Purpose, rec.Purpose, pred.Purpose))
		}
		if pred.Subcat != "" && pred.Subcat != rec.Subcat && (opts.Overwrite || rec.Subcat == "") {
			fields[schema.Subcat] = pred.Subcat
			plan.Changes = append(plan.Changes, change(rec, schema.Subcat, rec.Subcat, pred.Subcat))
		}
		if len(fields) == 0 {
			plan.Summary.Skipped++
			continue
		}

		plan.Summary.Succeeded++
		plan.Updates = append(plan.Updates, model.Row{ID: rec.ID, Fields: fields})
	}
	return plan
}

// LabelPlan turns per-record purpose/subcategory updates into a write plan.
// Empty values are never written.
func LabelPlan(schema table.SourceSchema, updates []LabelUpdate) model.WritePlan {
	var plan model.WritePlan
	for _, u := range updates {
		plan.Summary.Total++
		fields := table.LabelFields(schema, u.Purpose, u.Subcat)
		if len(fields) == 0 {
			plan.Summary.Skipped++
			continue
		}
		plan.Summary.Succeeded++
		if u.Purpose != "" {
			plan.Changes = append(plan.Changes, model.Change{RecordID: u.RecordID, Note: u.Note, Category: u.Category, Field: schema.Purpose, Old: u.OldPurpose, New: u.Purpose})
		}
		if u.Subcat != "" {
			plan.Changes = append(plan.Changes, model.Change{RecordID: u.RecordID, Note: u.Note, Category: u.Category, Field: schema.Subcat, Old: u.OldSubcat, New: u.Subcat})
		}
		plan.Updates = append(plan.Updates, model.Row{ID: u.RecordID, Fields: fields})
	}
	return plan
}

// LabelUpdate is a purpose/subcategory write for one record.
type LabelUpdate struct {
	RecordID   string
	Note       string
	Category   string
	OldPurpose string
	OldSubcat  string
	Purpose    string
	Subcat     string
}

func change(rec model.TransactionRecord, field, old, next string) model.Change {
	return model.Change{RecordID: rec.ID, Note: rec.Note, Category: rec.Category, Field: field, Old: old, New: next}
}

// Describe summarizes a plan for logs.
func Describe(plan model.WritePlan) string {
	return fmt.Sprintf("%d updates, %d field changes (%s)", len(plan.Updates), len(plan.Changes), plan.Summary)
}
