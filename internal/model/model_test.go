package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReviewStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from ReviewStatus
		to   ReviewStatus
		want bool
	}{
		{ReviewPending, ReviewConfirmed, true},
		{ReviewPending, ReviewIgnored, true},
		{ReviewPending, ReviewSynced, false},
		{ReviewConfirmed, ReviewSynced, true},
		{ReviewConfirmed, ReviewIgnored, true},
		{ReviewConfirmed, ReviewPending, false},
		{ReviewSynced, ReviewConfirmed, false},
		{ReviewSynced, ReviewIgnored, false},
		{ReviewIgnored, ReviewPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestReviewStatus_Valid(t *testing.T) {
	for _, s := range []ReviewStatus{ReviewPending, ReviewConfirmed, ReviewSynced, ReviewIgnored} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, ReviewStatus("待审核").Valid())
	assert.False(t, ReviewStatus("").Valid())
}

func TestRule_ConfidencePercent(t *testing.T) {
	assert.Equal(t, "60.00%", Rule{Confidence: 0.6}.ConfidencePercent())
	assert.Equal(t, "100.00%", Rule{Confidence: 1}.ConfidencePercent())
	assert.Equal(t, "66.67%", Rule{Confidence: 2.0 / 3}.ConfidencePercent())
}

func TestSummary(t *testing.T) {
	s := Summary{Total: 3, Succeeded: 2, Skipped: 1}
	s.Add(Summary{Total: 2, Succeeded: 1, Failed: 1})

	assert.Equal(t, Summary{Total: 5, Succeeded: 3, Failed: 1, Skipped: 1}, s)
	assert.Equal(t, "total=5 succeeded=3 failed=1 skipped=1", s.String())
}

func TestBatchResult_FailedIndex(t *testing.T) {
	res := BatchResult{Failed: []RowFailure{{Index: 1, Err: errors.New("boom")}, {Index: 3}}}

	assert.False(t, res.FailedIndex(0))
	assert.True(t, res.FailedIndex(1))
	assert.True(t, res.FailedIndex(3))
	assert.False(t, BatchResult{}.FailedIndex(0))
}

func TestPrediction_Found(t *testing.T) {
	assert.False(t, NoPrediction().Found())
	assert.Equal(t, SourceNone, NoPrediction().Source)
	assert.True(t, Prediction{Purpose: "日常"}.Found())
	assert.True(t, Prediction{Subcat: "外食"}.Found())
}

func TestTransactionRecord(t *testing.T) {
	rec := TransactionRecord{
		Date:      time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Direction: DirectionExpense,
		Note:      "午餐",
		Category:  "餐饮",
		Purpose:   "日常",
	}

	assert.True(t, rec.IsExpense())
	assert.False(t, rec.Labeled())
	assert.Equal(t, int64(1704153600000), rec.Timestamp())

	rec.Subcat = "外食"
	assert.True(t, rec.Labeled())
	rec.Direction = DirectionIncome
	assert.False(t, rec.IsExpense())
}
