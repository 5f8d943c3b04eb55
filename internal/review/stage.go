// Package review stages rule disagreements for human review and syncs the
// confirmed decisions back to the ledger.
package review

import (
	"strings"

	"github.com/Veraticus/the-labels-must-flow/internal/model"
	"github.com/Veraticus/the-labels-must-flow/internal/pattern"
)

// StageStats counts how staged records compared with the rules.
type StageStats struct {
	Match    int
	Mismatch int
	NoRule   int
}

// Stage builds pending review items for expense records whose labels have no
// rule or disagree with the rule. Final values start as the prediction where
// one exists and the current label otherwise.
func Stage(records []model.TransactionRecord, matcher pattern.Matcher) ([]model.ReviewItem, StageStats) {
	var stats StageStats
	var items []model.ReviewItem

	for _, rec := range records {
		note := strings.TrimSpace(rec.Note)
		category := strings.TrimSpace(rec.Category)
		if !rec.IsExpense() || note == "" || category == "" {
			continue
		}

		rule, _ := matcher.Match(note, category)
		switch model.CompareLabels(rec.Purpose, rec.Subcat, rule.Purpose, rule.Subcat) {
		case model.StatusMatch:
			stats.Match++
			continue
		case model.StatusNoRule:
			stats.NoRule++
		default:
			stats.Mismatch++
		}

		items = append(items, model.ReviewItem{
			RecordID:         rec.ID,
			Note:             note,
			Category:         category,
			Amount:           rec.Amount.String(),
			Timestamp:        rec.Timestamp(),
			CurrentPurpose:   rec.Purpose,
			CurrentSubcat:    rec.Subcat,
			PredictedPurpose: rule.Purpose,
			PredictedSubcat:  rule.Subcat,
			FinalPurpose:     firstNonEmpty(rule.Purpose, rec.Purpose),
			FinalSubcat:      firstNonEmpty(rule.Subcat, rec.Subcat),
			Status:           model.ReviewPending,
		})
	}
	return items, stats
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
