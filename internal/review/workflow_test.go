package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-labels-must-flow/internal/model"
	"github.com/Veraticus/the-labels-must-flow/internal/pattern"
	"github.com/Veraticus/the-labels-must-flow/internal/service"
	"github.com/Veraticus/the-labels-must-flow/internal/table"
)

const ledger = "ledger"

func record(id, note, category, purpose, subcat string) model.TransactionRecord {
	return model.TransactionRecord{
		ID:        id,
		Date:      time.UnixMilli(1700000000000),
		Amount:    decimal.RequireFromString("12.5"),
		Note:      note,
		Category:  category,
		Purpose:   purpose,
		Subcat:    subcat,
		Direction: model.DirectionExpense,
	}
}

func lunchMatcher() *pattern.MatcherImpl {
	return pattern.NewMatcher([]pattern.Rule{
		{Keyword: "午餐", Category: "餐饮", Purpose: "日常", Subcat: "外食", Enabled: true},
	})
}

type fixture struct {
	backend  *table.MemoryBackend
	workflow *Workflow
	ids      []string
}

func newFixture(t *testing.T, records []model.TransactionRecord) *fixture {
	t.Helper()
	ctx := context.Background()
	src := table.DefaultSourceSchema()

	backend := table.NewMemoryBackend()
	defs := make([]model.FieldDef, 0, 8)
	for _, name := range src.Required() {
		defs = append(defs, model.FieldDef{Name: name})
	}
	backend.AddTable(ledger, defs)

	rows := make([]model.Fields, len(records))
	for i, r := range records {
		rows[i] = model.Fields{
			src.Note: r.Note, src.Category: r.Category,
			src.Purpose: r.Purpose, src.Subcat: r.Subcat,
		}
	}
	ids, err := backend.BatchCreate(ctx, ledger, rows)
	require.NoError(t, err)
	for i := range records {
		records[i].ID = ids[i]
	}

	fast := service.RetryOptions{MaxAttempts: 1, InitialDelay: time.Millisecond}
	client := table.NewClient(backend, table.Options{Retry: fast, RowRetry: fast, PageSize: 3})
	wf := NewWorkflow(client, lunchMatcher(), Config{
		SourceTable:  ledger,
		SourceSchema: src,
		ReviewSchema: table.DefaultReviewSchema(),
	})
	_, err = wf.EnsureReviewTable(ctx, "review")
	require.NoError(t, err)

	return &fixture{backend: backend, workflow: wf, ids: ids}
}

func TestStage(t *testing.T) {
	income := record("r5", "午餐退款", "餐饮", "", "")
	income.Direction = model.DirectionIncome

	records := []model.TransactionRecord{
		record("r1", "午餐", "餐饮", "日常", "外食"),
		record("r2", "午餐", "餐饮", "社交", "聚餐"),
		record("r3", "打车", "交通", "通勤", "打车"),
		record("r4", "", "餐饮", "", ""),
		income,
		record("r6", "午餐", "餐饮", "", ""),
	}

	items, stats := Stage(records, lunchMatcher())

	assert.Equal(t, StageStats{Match: 1, Mismatch: 2, NoRule: 1}, stats)
	require.Len(t, items, 3)

	assert.Equal(t, "r2", items[0].RecordID)
	assert.Equal(t, "日常", items[0].FinalPurpose)
	assert.Equal(t, "外食", items[0].FinalSubcat)
	assert.Equal(t, "社交", items[0].CurrentPurpose)

	assert.Equal(t, "r3", items[1].RecordID)
	assert.Equal(t, "通勤", items[1].FinalPurpose, "no prediction keeps the current label")
	assert.Empty(t, items[1].PredictedPurpose)

	assert.Equal(t, "r6", items[2].RecordID)
	for _, it := range items {
		assert.Equal(t, model.ReviewPending, it.Status)
		assert.Equal(t, "12.5", it.Amount)
	}
}

func TestPush(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []model.TransactionRecord{
		record("", "午餐", "餐饮", "社交", "聚餐"),
		record("", "午餐", "餐饮", "日常", "外食"),
	})
	records := []model.TransactionRecord{
		record(f.ids[0], "午餐", "餐饮", "社交", "聚餐"),
		record(f.ids[1], "午餐", "餐饮", "日常", "外食"),
	}

	dry, err := f.workflow.Push(ctx, records, PushOptions{DryRun: true})
	require.NoError(t, err)
	assert.Len(t, dry.Items, 1)
	pending, err := f.workflow.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending, "dry run writes nothing")

	res, err := f.workflow.Push(ctx, records, PushOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.Succeeded)
	require.Len(t, res.Items, 1)
	assert.NotEmpty(t, res.Items[0].ID)

	pending, err = f.workflow.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, f.ids[0], pending[0].RecordID)
	assert.Equal(t, "日常", pending[0].FinalPurpose)

	again, err := f.workflow.Push(ctx, records, PushOptions{})
	require.NoError(t, err)
	assert.Empty(t, again.Items)
	assert.Equal(t, 1, again.Summary.Skipped, "open items are not staged twice")
}

func TestDecide(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []model.TransactionRecord{record("", "午餐", "餐饮", "社交", "聚餐")})
	records := []model.TransactionRecord{record(f.ids[0], "午餐", "餐饮", "社交", "聚餐")}
	_, err := f.workflow.Push(ctx, records, PushOptions{})
	require.NoError(t, err)

	pending, err := f.workflow.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	tests := []struct {
		name    string
		from    model.ReviewStatus
		to      model.ReviewStatus
		wantErr bool
	}{
		{name: "pending to confirmed", from: model.ReviewPending, to: model.ReviewConfirmed},
		{name: "pending edit keeps status", from: model.ReviewPending, to: model.ReviewPending},
		{name: "confirmed to ignored", from: model.ReviewConfirmed, to: model.ReviewIgnored},
		{name: "synced is set by sync only", from: model.ReviewConfirmed, to: model.ReviewSynced, wantErr: true},
		{name: "ignored is terminal", from: model.ReviewIgnored, to: model.ReviewConfirmed, wantErr: true},
		{name: "no going back", from: model.ReviewConfirmed, to: model.ReviewPending, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := pending[0]
			item.Status = tt.from
			got, err := f.workflow.Decide(ctx, item, Decision{Status: tt.to, FinalPurpose: "社交", FinalSubcat: "聚餐"})
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidTransition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, got.Status)

			stored, ok := f.backend.Get(f.workflow.config.ReviewTable, item.ID)
			require.True(t, ok)
			schema := table.DefaultReviewSchema()
			assert.Equal(t, schema.StatusLabel(tt.to), stored[schema.Status])
			assert.Equal(t, "社交", stored[schema.FinalPurpose])
		})
	}
}

func TestSync(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []model.TransactionRecord{
		record("", "午餐", "餐饮", "社交", "聚餐"),
		record("", "午餐便当", "餐饮", "", ""),
	})
	records := []model.TransactionRecord{
		record(f.ids[0], "午餐", "餐饮", "社交", "聚餐"),
		record(f.ids[1], "午餐便当", "餐饮", "", ""),
	}
	_, err := f.workflow.Push(ctx, records, PushOptions{})
	require.NoError(t, err)

	pending, err := f.workflow.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	_, err = f.workflow.Decide(ctx, pending[0], Decision{Status: model.ReviewConfirmed, FinalPurpose: "社交", FinalSubcat: "请客"})
	require.NoError(t, err)

	dry, err := f.workflow.Sync(ctx, SyncOptions{DryRun: true})
	require.NoError(t, err)
	assert.Len(t, dry.Plan.Updates, 1)
	assert.Empty(t, dry.Synced)

	src := table.DefaultSourceSchema()
	stored, _ := f.backend.Get(ledger, f.ids[0])
	assert.Equal(t, "聚餐", stored[src.Subcat], "dry run leaves the ledger alone")

	res, err := f.workflow.Sync(ctx, SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, model.Summary{Total: 1, Succeeded: 1}, res.Summary)
	require.Len(t, res.Synced, 1)

	stored, _ = f.backend.Get(ledger, f.ids[0])
	assert.Equal(t, "社交", stored[src.Purpose])
	assert.Equal(t, "请客", stored[src.Subcat])

	stored, _ = f.backend.Get(ledger, f.ids[1])
	assert.Empty(t, stored[src.Purpose], "pending items are not synced")

	again, err := f.workflow.Sync(ctx, SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, model.Summary{}, again.Summary, "a second sync has nothing to do")
}

func TestSync_FailedWriteStaysConfirmed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []model.TransactionRecord{record("", "午餐", "餐饮", "社交", "聚餐")})
	records := []model.TransactionRecord{record(f.ids[0], "午餐", "餐饮", "社交", "聚餐")}
	_, err := f.workflow.Push(ctx, records, PushOptions{})
	require.NoError(t, err)

	pending, err := f.workflow.Pending(ctx)
	require.NoError(t, err)
	_, err = f.workflow.Decide(ctx, pending[0], Decision{Status: model.ReviewConfirmed, FinalPurpose: "日常", FinalSubcat: "外食"})
	require.NoError(t, err)

	boom := errors.New("ledger unavailable")
	f.backend.BatchErr = boom
	f.backend.RowErr = func(tbl string, _ model.Fields) error {
		if tbl == ledger {
			return boom
		}
		return nil
	}

	res, err := f.workflow.Sync(ctx, SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.Failed)
	assert.Empty(t, res.Synced)

	items, _, err := f.workflow.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, model.ReviewConfirmed, items[0].Status)

	f.backend.BatchErr = nil
	f.backend.RowErr = nil

	res, err = f.workflow.Sync(ctx, SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.Succeeded)

	items, _, err = f.workflow.Items(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ReviewSynced, items[0].Status)
}
