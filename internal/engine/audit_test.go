package engine

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-labels-must-flow/internal/model"
	"github.com/Veraticus/the-labels-must-flow/internal/pattern"
	"github.com/Veraticus/the-labels-must-flow/internal/table"
)

func TestCompareLabels(t *testing.T) {
	tests := []struct {
		name                     string
		curP, curS, predP, predS string
		want                     model.MatchStatus
	}{
		{name: "no rule", curP: "日常", curS: "外食", want: model.StatusNoRule},
		{name: "match", curP: "日常", curS: "外食", predP: "日常", predS: "外食", want: model.StatusMatch},
		{name: "purpose differs", curP: "社交", curS: "外食", predP: "日常", predS: "外食", want: model.StatusMismatch},
		{name: "partial prediction", curP: "日常", curS: "外食", predP: "日常", want: model.StatusMismatch},
		{name: "empty current", predP: "日常", predS: "外食", want: model.StatusMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, model.CompareLabels(tt.curP, tt.curS, tt.predP, tt.predS))
		})
	}
}

func auditRecords() []model.TransactionRecord {
	date := time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)
	mk := func(id, note, category, purpose, subcat string) model.TransactionRecord {
		return model.TransactionRecord{
			ID: id, Note: note, Category: category, Purpose: purpose, Subcat: subcat,
			Direction: model.DirectionExpense, Amount: decimal.RequireFromString("12.5"), Date: date,
		}
	}
	income := mk("r5", "工资", "收入", "", "")
	income.Direction = model.DirectionIncome
	return []model.TransactionRecord{
		mk("r1", "午餐", "餐饮", "日常", "外食"),
		mk("r2", "午餐", "餐饮", "社交", "聚餐"),
		mk("r3", "电影", "娱乐", "休闲", "电影"),
		mk("r4", "", "餐饮", "", ""),
		income,
	}
}

func auditMatcher() pattern.Matcher {
	return pattern.NewMatcher([]model.Rule{
		{Keyword: "午餐", Category: "餐饮", Purpose: "日常", Subcat: "外食", Enabled: true},
	})
}

func TestBuildAudit(t *testing.T) {
	rows, counts := BuildAudit(auditRecords(), auditMatcher(), AuditOptions{})

	assert.Equal(t, map[model.MatchStatus]int{
		model.StatusMatch:    1,
		model.StatusMismatch: 1,
		model.StatusNoRule:   1,
	}, counts)
	require.Len(t, rows, 1)
	assert.Equal(t, "r2", rows[0].RecordID)
	assert.Equal(t, "2024-05-01", rows[0].Date)
	assert.Equal(t, "12.5", rows[0].Amount)
	assert.Equal(t, "日常", rows[0].PredictedPurpose)

	all, _ := BuildAudit(auditRecords(), auditMatcher(), AuditOptions{All: true})
	assert.Len(t, all, 3)

	capped, _ := BuildAudit(auditRecords(), auditMatcher(), AuditOptions{All: true, MaxRecords: 2})
	assert.Len(t, capped, 2)
}

func TestBuildAudit_SkipsBlankNoteAndCategory(t *testing.T) {
	blank := []model.TransactionRecord{
		{ID: "w1", Note: "  ", Category: "餐饮", Direction: model.DirectionExpense},
		{ID: "w2", Note: "午餐", Category: " \t", Direction: model.DirectionExpense},
	}

	rows, counts := BuildAudit(blank, auditMatcher(), AuditOptions{All: true})
	assert.Empty(t, rows)
	assert.Empty(t, counts)
}

func TestAudit_WriteReadAndUpdates(t *testing.T) {
	rows, _ := BuildAudit(auditRecords(), auditMatcher(), AuditOptions{All: true})

	var buf bytes.Buffer
	require.NoError(t, WriteAudit(&buf, rows))
	assert.True(t, strings.HasPrefix(buf.String(), "\ufeffrecord_id,date,amount"))

	// a human marks rows for update; a row without predictions stays a no-op
	edited := strings.Replace(buf.String(), "MISMATCH,", "MISMATCH,update", 1)
	edited = strings.Replace(edited, "NO_RULE,", "NO_RULE,UPDATE", 1)

	got, err := ReadAudit(strings.NewReader(edited))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "update", got[1].Action)

	updates := AuditUpdates(got)
	require.Len(t, updates, 2)
	assert.Equal(t, "r2", updates[0].RecordID)
	assert.Equal(t, "日常", updates[0].Purpose)
	assert.Equal(t, "社交", updates[0].OldPurpose)

	plan := LabelPlan(table.DefaultSourceSchema(), updates)
	require.Len(t, plan.Updates, 1)
	assert.Equal(t, model.Summary{Total: 2, Succeeded: 1, Skipped: 1}, plan.Summary)
}

func TestAudit_ApplyWritesLedger(t *testing.T) {
	e, backend, ids := newTestEngine(t, []model.Fields{ledgerRow("午餐", "餐饮", "社交", "聚餐")})
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "validation.csv")
	loaded, err := e.LoadRecords(ctx)
	require.NoError(t, err)
	rows, _ := BuildAudit(loaded.Records, auditMatcher(), AuditOptions{})
	require.Len(t, rows, 1)
	rows[0].Action = "UPDATE"
	require.NoError(t, SaveAuditFile(path, rows))

	read, err := LoadAuditFile(path)
	require.NoError(t, err)
	summary := e.Apply(ctx, LabelPlan(e.Schema(), AuditUpdates(read)), nil)
	assert.Equal(t, 1, summary.Succeeded)

	f, _ := backend.Get(ledgerTable, ids[0])
	assert.Equal(t, "日常", f["支出目的"])
	assert.Equal(t, "外食", f["细类"])
}
