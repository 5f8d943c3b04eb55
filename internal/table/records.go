package table

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/the-labels-must-flow/internal/common"
	"github.com/Veraticus/the-labels-must-flow/internal/model"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
}

// DecodeTransaction converts a ledger row into a record.
// Missing or unparsable amount, date or direction yield a MalformedInputError.
func DecodeTransaction(row model.Row, schema SourceSchema) (model.TransactionRecord, error) {
	rec := model.TransactionRecord{
		ID:           row.ID,
		Note:         String(row.Fields, schema.Note),
		Category:     String(row.Fields, schema.Category),
		Purpose:      String(row.Fields, schema.Purpose),
		Subcat:       String(row.Fields, schema.Subcat),
		Counterparty: String(row.Fields, schema.Counterparty),
	}

	switch dir := String(row.Fields, schema.Direction); dir {
	case schema.ExpenseValue, string(model.DirectionExpense):
		rec.Direction = model.DirectionExpense
	case schema.IncomeValue, string(model.DirectionIncome):
		rec.Direction = model.DirectionIncome
	default:
		return rec, common.NewMalformedInput(row.ID, schema.Direction, row.Fields[schema.Direction], "unknown direction")
	}

	amount, err := decodeAmount(row.Fields[schema.Amount])
	if err != nil {
		return rec, common.NewMalformedInput(row.ID, schema.Amount, row.Fields[schema.Amount], err.Error())
	}
	rec.Amount = amount

	date, err := decodeDate(row.Fields[schema.Date])
	if err != nil {
		return rec, common.NewMalformedInput(row.ID, schema.Date, row.Fields[schema.Date], err.Error())
	}
	rec.Date = date

	return rec, nil
}

func decodeAmount(raw any) (decimal.Decimal, error) {
	var amount decimal.Decimal
	switch v := Normalize(raw).(type) {
	case float64:
		amount = decimal.NewFromFloat(v)
	case string:
		cleaned := strings.NewReplacer(",", "", "¥", "", "￥", "", "$", "").Replace(v)
		if cleaned == "" {
			return decimal.Zero, fmt.Errorf("empty amount")
		}
		d, err := decimal.NewFromString(cleaned)
		if err != nil {
			return decimal.Zero, fmt.Errorf("not a number")
		}
		amount = d
	default:
		return decimal.Zero, fmt.Errorf("missing amount")
	}
	amount = amount.Abs()
	if amount.IsZero() {
		return decimal.Zero, fmt.Errorf("amount must be positive")
	}
	return amount, nil
}

func decodeDate(raw any) (time.Time, error) {
	switch v := Normalize(raw).(type) {
	case float64:
		return time.UnixMilli(int64(v)).UTC(), nil
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized date format")
	default:
		return time.Time{}, fmt.Errorf("missing date")
	}
}

// LabelFields returns the field map that writes purpose and subcategory back to a
// ledger row. Empty values are left out so they never clear existing data.
func LabelFields(schema SourceSchema, purpose, subcat string) model.Fields {
	fields := model.Fields{}
	if purpose != "" {
		fields[schema.Purpose] = purpose
	}
	if subcat != "" {
		fields[schema.Subcat] = subcat
	}
	return fields
}

// EncodeReviewItem converts a review item into review table fields.
func EncodeReviewItem(item model.ReviewItem, schema ReviewSchema) model.Fields {
	return model.Fields{
		schema.RecordID:         item.RecordID,
		schema.Date:             float64(item.Timestamp),
		schema.Amount:           item.Amount,
		schema.Category:         item.Category,
		schema.Note:             item.Note,
		schema.CurrentPurpose:   item.CurrentPurpose,
		schema.CurrentSubcat:    item.CurrentSubcat,
		schema.PredictedPurpose: item.PredictedPurpose,
		schema.PredictedSubcat:  item.PredictedSubcat,
		schema.FinalPurpose:     item.FinalPurpose,
		schema.FinalSubcat:      item.FinalSubcat,
		schema.Status:           schema.StatusLabel(item.Status),
	}
}

// DecodeReviewItem converts a review table row into an item.
func DecodeReviewItem(row model.Row, schema ReviewSchema) (model.ReviewItem, error) {
	item := model.ReviewItem{
		ID:               row.ID,
		RecordID:         String(row.Fields, schema.RecordID),
		Amount:           String(row.Fields, schema.Amount),
		Category:         String(row.Fields, schema.Category),
		Note:             String(row.Fields, schema.Note),
		CurrentPurpose:   String(row.Fields, schema.CurrentPurpose),
		CurrentSubcat:    String(row.Fields, schema.CurrentSubcat),
		PredictedPurpose: String(row.Fields, schema.PredictedPurpose),
		PredictedSubcat:  String(row.Fields, schema.PredictedSubcat),
		FinalPurpose:     String(row.Fields, schema.FinalPurpose),
		FinalSubcat:      String(row.Fields, schema.FinalSubcat),
	}
	if ts, ok := Number(row.Fields, schema.Date); ok {
		item.Timestamp = int64(ts)
	}

	if item.RecordID == "" {
		return item, common.NewMalformedInput(row.ID, schema.RecordID, row.Fields[schema.RecordID], "missing source record id")
	}

	status, ok := schema.ParseStatus(String(row.Fields, schema.Status))
	if !ok {
		return item, common.NewMalformedInput(row.ID, schema.Status, row.Fields[schema.Status], "unknown review status")
	}
	item.Status = status

	return item, nil
}
