package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/the-labels-must-flow/internal/model"
)

func TestMatcher_Match(t *testing.T) {
	rules := []Rule{
		{Keyword: "午餐", Category: "餐饮", Purpose: "日常", Subcat: "外食", Enabled: true},
		{Keyword: "午", Category: "餐饮", Purpose: "加班", Subcat: "工作餐", Enabled: true},
		{Keyword: "打车", Category: "交通", Purpose: "通勤", Subcat: "打车", Enabled: false},
		{Keyword: "打", Category: "交通", Purpose: "出行", Subcat: "其他", Enabled: true},
	}
	m := NewMatcher(rules)

	tests := []struct {
		name        string
		note        string
		category    string
		wantKeyword string
		wantOK      bool
	}{
		{name: "first match wins", note: "公司午餐", category: "餐饮", wantKeyword: "午餐", wantOK: true},
		{name: "later rule when first misses", note: "午饭", category: "餐饮", wantKeyword: "午", wantOK: true},
		{name: "category must match exactly", note: "午餐", category: "餐饮 ", wantKeyword: "午餐", wantOK: true},
		{name: "different category", note: "午餐", category: "交通", wantOK: false},
		{name: "disabled rule skipped", note: "打车回家", category: "交通", wantKeyword: "打", wantOK: true},
		{name: "no keyword", note: "电影", category: "娱乐", wantOK: false},
		{name: "empty note", note: "", category: "餐饮", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, ok := m.Match(tt.note, tt.category)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantKeyword, rule.Keyword)
			}
		})
	}
}

func TestMatcher_OrderIsHonored(t *testing.T) {
	a := Rule{Keyword: "咖啡", Category: "餐饮", Purpose: "日常", Subcat: "饮料", Enabled: true}
	b := Rule{Keyword: "咖啡", Category: "餐饮", Purpose: "社交", Subcat: "请客", Enabled: true}

	rule, ok := NewMatcher([]Rule{a, b}).Match("咖啡", "餐饮")
	assert.True(t, ok)
	assert.Equal(t, "日常", rule.Purpose)

	rule, ok = NewMatcher([]Rule{b, a}).Match("咖啡", "餐饮")
	assert.True(t, ok)
	assert.Equal(t, "社交", rule.Purpose)
}

func TestMatcher_PredictNoMatch(t *testing.T) {
	pred := NewMatcher(nil).Predict("午餐", "餐饮")
	assert.False(t, pred.Found())
	assert.Equal(t, model.SourceNone, pred.Source)
	assert.Nil(t, pred.Rule)
}
