package table

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-labels-must-flow/internal/common"
	"github.com/Veraticus/the-labels-must-flow/internal/model"
)

func sourceRow(id string, overrides model.Fields) model.Row {
	s := DefaultSourceSchema()
	f := model.Fields{
		s.Note:      "午餐-楼下",
		s.Category:  "餐饮",
		s.Purpose:   "工作餐",
		s.Subcat:    "午餐",
		s.Direction: "支出",
		s.Amount:    float64(25),
		s.Date:      float64(1700000000000),
	}
	for k, v := range overrides {
		f[k] = v
	}
	return model.Row{ID: id, Fields: f}
}

func TestDecodeTransaction(t *testing.T) {
	schema := DefaultSourceSchema()

	rec, err := DecodeTransaction(sourceRow("r1", nil), schema)
	require.NoError(t, err)
	assert.Equal(t, "r1", rec.ID)
	assert.Equal(t, "午餐-楼下", rec.Note)
	assert.Equal(t, model.DirectionExpense, rec.Direction)
	assert.Equal(t, "25", rec.Amount.String())
	assert.Equal(t, int64(1700000000000), rec.Timestamp())
	assert.True(t, rec.Labeled())
}

func TestDecodeTransaction_Variants(t *testing.T) {
	schema := DefaultSourceSchema()

	tests := []struct {
		overrides  model.Fields
		name       string
		wantAmount string
		wantDate   time.Time
		wantDir    model.Direction
	}{
		{
			name:       "string amount and date",
			overrides:  model.Fields{schema.Amount: "¥1,234.50", schema.Date: "2024-03-01"},
			wantAmount: "1234.5",
			wantDate:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			wantDir:    model.DirectionExpense,
		},
		{
			name:       "negative amount is made positive",
			overrides:  model.Fields{schema.Amount: float64(-8), schema.Direction: "收入", schema.Date: "2024-03-01"},
			wantAmount: "8",
			wantDate:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			wantDir:    model.DirectionIncome,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := DecodeTransaction(sourceRow("r", tt.overrides), schema)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAmount, rec.Amount.String())
			assert.True(t, tt.wantDate.Equal(rec.Date))
			assert.Equal(t, tt.wantDir, rec.Direction)
		})
	}
}

func TestDecodeTransaction_Malformed(t *testing.T) {
	schema := DefaultSourceSchema()

	tests := []struct {
		overrides model.Fields
		name      string
		field     string
	}{
		{name: "missing amount", overrides: model.Fields{schema.Amount: nil}, field: schema.Amount},
		{name: "garbage amount", overrides: model.Fields{schema.Amount: "abc"}, field: schema.Amount},
		{name: "zero amount", overrides: model.Fields{schema.Amount: "0"}, field: schema.Amount},
		{name: "missing date", overrides: model.Fields{schema.Date: nil}, field: schema.Date},
		{name: "bad date", overrides: model.Fields{schema.Date: "yesterday"}, field: schema.Date},
		{name: "unknown direction", overrides: model.Fields{schema.Direction: "转账"}, field: schema.Direction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeTransaction(sourceRow("bad", tt.overrides), schema)
			require.ErrorIs(t, err, common.ErrMalformedInput)

			var mie *common.MalformedInputError
			require.ErrorAs(t, err, &mie)
			assert.Equal(t, "bad", mie.RecordID)
			assert.Equal(t, tt.field, mie.Field)
		})
	}
}

func TestLabelFields_SkipsEmpty(t *testing.T) {
	schema := DefaultSourceSchema()

	assert.Equal(t, model.Fields{schema.Purpose: "工作餐", schema.Subcat: "午餐"}, LabelFields(schema, "工作餐", "午餐"))
	assert.Equal(t, model.Fields{schema.Subcat: "午餐"}, LabelFields(schema, "", "午餐"))
	assert.Empty(t, LabelFields(schema, "", ""))
}

func TestReviewItemRoundTrip(t *testing.T) {
	schema := DefaultReviewSchema()
	item := model.ReviewItem{
		RecordID:         "rec1",
		Note:             "打车",
		Category:         "交通",
		CurrentPurpose:   "通勤",
		PredictedPurpose: "出差",
		FinalPurpose:     "出差",
		Status:           model.ReviewPending,
		Amount:           "30",
		Timestamp:        1700000000000,
	}

	fields := EncodeReviewItem(item, schema)
	assert.Equal(t, "待审核", fields[schema.Status])

	got, err := DecodeReviewItem(model.Row{ID: "rv1", Fields: fields}, schema)
	require.NoError(t, err)
	item.ID = "rv1"
	assert.Equal(t, item, got)
}

func TestDecodeReviewItem_Status(t *testing.T) {
	schema := DefaultReviewSchema()

	tests := []struct {
		raw    any
		name   string
		want   model.ReviewStatus
		wantOK bool
	}{
		{name: "localized label", raw: "已确认", want: model.ReviewConfirmed, wantOK: true},
		{name: "select object", raw: map[string]any{"text": "忽略"}, want: model.ReviewIgnored, wantOK: true},
		{name: "english name", raw: "Synced", want: model.ReviewSynced, wantOK: true},
		{name: "unknown", raw: "maybe", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := model.Row{ID: "rv", Fields: model.Fields{schema.RecordID: "rec", schema.Status: tt.raw}}
			item, err := DecodeReviewItem(row, schema)
			if !tt.wantOK {
				assert.ErrorIs(t, err, common.ErrMalformedInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, item.Status)
		})
	}
}

func TestSourceSchema_FieldsCoverRequired(t *testing.T) {
	schema := DefaultSourceSchema()
	names := map[string]bool{}
	for _, f := range schema.Fields() {
		names[f.Name] = true
	}
	for _, name := range schema.Required() {
		assert.True(t, names[name], name)
	}
	assert.True(t, names[schema.Counterparty])

	schema.Counterparty = ""
	assert.Len(t, schema.Fields(), len(schema.Required()))
}
