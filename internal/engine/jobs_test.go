package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-labels-must-flow/internal/common"
	"github.com/Veraticus/the-labels-must-flow/internal/model"
	"github.com/Veraticus/the-labels-must-flow/internal/pattern"
	"github.com/Veraticus/the-labels-must-flow/internal/table"
)

func TestEngine_LoadRecordsSkipsMalformed(t *testing.T) {
	bad := ledgerRow("午餐", "餐饮", "", "")
	bad[table.DefaultSourceSchema().Amount] = "n/a"

	e, _, ids := newTestEngine(t, []model.Fields{
		ledgerRow("午餐", "餐饮", "日常", "外食"),
		bad,
		ledgerRow("地铁", "交通", "通勤", "地铁"),
	})

	loaded, err := e.LoadRecords(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Summary{Total: 3, Succeeded: 2, Skipped: 1}, loaded.Summary)
	require.Len(t, loaded.Records, 2)
	assert.Equal(t, ids[0], loaded.Records[0].ID)
	assert.Equal(t, ids[2], loaded.Records[1].ID)
}

func TestEngine_LoadRecordsMissingColumn(t *testing.T) {
	e, backend, _ := newTestEngine(t, nil)
	backend.AddTable(ledgerTable, []model.FieldDef{{Name: "备注"}})

	_, err := e.LoadRecords(context.Background())
	assert.ErrorIs(t, err, common.ErrMissingField)
}

func TestEngine_MineRules(t *testing.T) {
	rows := []model.Fields{}
	for i := 0; i < 3; i++ {
		rows = append(rows, ledgerRow("午餐-楼下面馆", "餐饮", "日常", "外食"))
	}
	for i := 0; i < 2; i++ {
		rows = append(rows, ledgerRow("午餐-楼下面馆", "餐饮", "社交", "聚餐"))
	}
	e, _, _ := newTestEngine(t, rows)

	rules, summary, err := e.MineRules(context.Background(), pattern.DefaultMineOptions())
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Succeeded)
	require.Len(t, rules, 3)
	assert.Equal(t, "午餐-", rules[0].Keyword)
	assert.Equal(t, 3, rules[0].Count)
	assert.Equal(t, 5, rules[0].Total)
}

func TestEngine_BackfillPlanAndApply(t *testing.T) {
	withCounterparty := ledgerRow("餐饮-全家", "餐饮", "", "")
	withCounterparty[table.DefaultSourceSchema().Counterparty] = "已有"

	e, backend, ids := newTestEngine(t, []model.Fields{
		ledgerRow("交通-地铁", "交通", "", ""),
		ledgerRow("星巴克", "消费", "", ""),
		ledgerRow("消费", "消费", "", ""),
		withCounterparty,
	})
	ctx := context.Background()

	loaded, err := e.LoadRecords(ctx)
	require.NoError(t, err)

	plan := e.PlanBackfill(loaded.Records)
	assert.Equal(t, model.Summary{Total: 4, Succeeded: 2, Skipped: 2}, plan.Summary)
	require.Len(t, plan.Changes, 2)
	assert.Equal(t, "地铁", plan.Changes[0].New)
	assert.Equal(t, "星巴克", plan.Changes[1].New)

	// nothing is written until the plan is applied
	f, _ := backend.Get(ledgerTable, ids[0])
	assert.Nil(t, f["交易对方"])

	calls := 0
	summary := e.Apply(ctx, plan, func(n int) { calls += n })
	assert.Equal(t, model.Summary{Total: 2, Succeeded: 2}, summary)
	assert.Equal(t, 2, calls)

	f, _ = backend.Get(ledgerTable, ids[0])
	assert.Equal(t, "地铁", f["交易对方"])
	f, _ = backend.Get(ledgerTable, ids[3])
	assert.Equal(t, "已有", f["交易对方"])
}

func TestEngine_PlanFill(t *testing.T) {
	income := ledgerRow("工资", "收入", "", "")
	income[table.DefaultSourceSchema().Direction] = "收入"

	e, _, _ := newTestEngine(t, []model.Fields{
		ledgerRow("午餐", "餐饮", "", ""),
		ledgerRow("午餐", "餐饮", "日常", ""),
		ledgerRow("午餐", "餐饮", "加班", "工作餐"),
		ledgerRow("电影", "娱乐", "", ""),
		income,
	})
	loaded, err := e.LoadRecords(context.Background())
	require.NoError(t, err)

	rules := pattern.NewMatcher([]model.Rule{
		{Keyword: "午餐", Category: "餐饮", Purpose: "日常", Subcat: "外食", Enabled: true},
	})

	t.Run("fill empty only", func(t *testing.T) {
		plan := e.PlanFill(loaded.Records, NewPredictor(rules, nil), FillOptions{})
		assert.Equal(t, model.Summary{Total: 3, Succeeded: 2, Skipped: 1}, plan.Summary)
		require.Len(t, plan.Updates, 2)
		assert.Equal(t, model.Fields{"支出目的": "日常", "细类": "外食"}, plan.Updates[0].Fields)
		assert.Equal(t, model.Fields{"细类": "外食"}, plan.Updates[1].Fields)
	})

	t.Run("overwrite", func(t *testing.T) {
		plan := e.PlanFill(loaded.Records, NewPredictor(rules, nil), FillOptions{Overwrite: true})
		require.Len(t, plan.Updates, 3)
		assert.Equal(t, model.Fields{"支出目的": "日常", "细类": "外食"}, plan.Updates[2].Fields)
	})

	t.Run("max fill", func(t *testing.T) {
		plan := e.PlanFill(loaded.Records, NewPredictor(rules, nil), FillOptions{MaxFill: 1})
		assert.Equal(t, 1, plan.Summary.Total)
		assert.Len(t, plan.Updates, 1)
	})

	t.Run("classifier fallback", func(t *testing.T) {
		classifier := fixedStrategy{Purpose: "娱乐", Subcat: "电影", Source: model.SourceClassifier}
		plan := e.PlanFill(loaded.Records, NewPredictor(rules, classifier), FillOptions{})
		require.Len(t, plan.Updates, 3)
		assert.Equal(t, model.Fields{"支出目的": "娱乐", "细类": "电影"}, plan.Updates[2].Fields)
	})
}

func TestLabelPlan_SkipsEmpty(t *testing.T) {
	plan := LabelPlan(table.DefaultSourceSchema(), []LabelUpdate{
		{RecordID: "a", Purpose: "日常", Subcat: "外食"},
		{RecordID: "b"},
		{RecordID: "c", Subcat: "饮料"},
	})

	assert.Equal(t, model.Summary{Total: 3, Succeeded: 2, Skipped: 1}, plan.Summary)
	require.Len(t, plan.Updates, 2)
	assert.Equal(t, "c", plan.Updates[1].ID)
	assert.Equal(t, model.Fields{"细类": "饮料"}, plan.Updates[1].Fields)
	assert.Len(t, plan.Changes, 3)
}
