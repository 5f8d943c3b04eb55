package table

import (
	"strings"

	"github.com/Veraticus/the-labels-must-flow/internal/model"
)

// SourceSchema names the ledger table's columns.
type SourceSchema struct {
	Note         string `mapstructure:"note"`
	Category     string `mapstructure:"category"`
	Purpose      string `mapstructure:"purpose"`
	Subcat       string `mapstructure:"subcat"`
	Direction    string `mapstructure:"direction"`
	Amount       string `mapstructure:"amount"`
	Date         string `mapstructure:"date"`
	Counterparty string `mapstructure:"counterparty"`
	ExpenseValue string `mapstructure:"expense_value"`
	IncomeValue  string `mapstructure:"income_value"`
}

// DefaultSourceSchema returns the ledger's native column names.
func DefaultSourceSchema() SourceSchema {
	return SourceSchema{
		Note:         "备注",
		Category:     "分类",
		Purpose:      "支出目的",
		Subcat:       "细类",
		Direction:    "收支",
		Amount:       "金额",
		Date:         "日期",
		Counterparty: "交易对方",
		ExpenseValue: "支出",
		IncomeValue:  "收入",
	}
}

// Required lists the columns a ledger table must define.
func (s SourceSchema) Required() []string {
	return []string{s.Note, s.Category, s.Purpose, s.Subcat, s.Direction, s.Amount, s.Date}
}

// Fields returns the column definitions used when creating a ledger table.
func (s SourceSchema) Fields() []model.FieldDef {
	fields := []model.FieldDef{
		{Name: s.Date, Type: "date"},
		{Name: s.Amount, Type: "number"},
		{Name: s.Direction, Type: "single_select"},
		{Name: s.Category, Type: "text"},
		{Name: s.Note, Type: "text"},
		{Name: s.Purpose, Type: "text"},
		{Name: s.Subcat, Type: "text"},
	}
	if s.Counterparty != "" {
		fields = append(fields, model.FieldDef{Name: s.Counterparty, Type: "text"})
	}
	return fields
}

// ReviewSchema names the review table's columns and status labels.
type ReviewSchema struct {
	StatusLabels     map[model.ReviewStatus]string `mapstructure:"status_labels"`
	RecordID         string                        `mapstructure:"record_id"`
	Date             string                        `mapstructure:"date"`
	Amount           string                        `mapstructure:"amount"`
	Category         string                        `mapstructure:"category"`
	Note             string                        `mapstructure:"note"`
	CurrentPurpose   string                        `mapstructure:"current_purpose"`
	CurrentSubcat    string                        `mapstructure:"current_subcat"`
	PredictedPurpose string                        `mapstructure:"predicted_purpose"`
	PredictedSubcat  string                        `mapstructure:"predicted_subcat"`
	FinalPurpose     string                        `mapstructure:"final_purpose"`
	FinalSubcat      string                        `mapstructure:"final_subcat"`
	Status           string                        `mapstructure:"status"`
}

// DefaultReviewSchema returns the review table layout created by the push job.
func DefaultReviewSchema() ReviewSchema {
	return ReviewSchema{
		RecordID:         "记录ID",
		Date:             "日期",
		Amount:           "金额",
		Category:         "分类",
		Note:             "备注",
		CurrentPurpose:   "当前支出目的",
		CurrentSubcat:    "当前细类",
		PredictedPurpose: "建议支出目的",
		PredictedSubcat:  "建议细类",
		FinalPurpose:     "最终支出目的",
		FinalSubcat:      "最终细类",
		Status:           "状态",
		StatusLabels: map[model.ReviewStatus]string{
			model.ReviewPending:   "待审核",
			model.ReviewConfirmed: "已确认",
			model.ReviewSynced:    "已同步",
			model.ReviewIgnored:   "忽略",
		},
	}
}

// Fields returns the column definitions used when creating a review table.
func (s ReviewSchema) Fields() []model.FieldDef {
	return []model.FieldDef{
		{Name: s.RecordID, Type: "text"},
		{Name: s.Date, Type: "date"},
		{Name: s.Amount, Type: "number"},
		{Name: s.Category, Type: "text"},
		{Name: s.Note, Type: "text"},
		{Name: s.CurrentPurpose, Type: "text"},
		{Name: s.CurrentSubcat, Type: "text"},
		{Name: s.PredictedPurpose, Type: "text"},
		{Name: s.PredictedSubcat, Type: "text"},
		{Name: s.FinalPurpose, Type: "text"},
		{Name: s.FinalSubcat, Type: "text"},
		{Name: s.Status, Type: "single_select"},
	}
}

// StatusLabel returns the stored label for a status.
func (s ReviewSchema) StatusLabel(status model.ReviewStatus) string {
	if label, ok := s.StatusLabels[status]; ok && label != "" {
		return label
	}
	return string(status)
}

// ParseStatus maps a stored label back to a status. Both the configured labels
// and the canonical English names are accepted.
func (s ReviewSchema) ParseStatus(label string) (model.ReviewStatus, bool) {
	label = strings.TrimSpace(label)
	for status, l := range s.StatusLabels {
		if l == label {
			return status, true
		}
	}
	status := model.ReviewStatus(strings.ToLower(label))
	if status.Valid() {
		return status, true
	}
	return "", false
}
