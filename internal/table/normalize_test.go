package table

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/the-labels-must-flow/internal/model"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input any
		want  any
		name  string
	}{
		{name: "nil", input: nil, want: nil},
		{name: "plain string", input: "午餐", want: "午餐"},
		{name: "int", input: 42, want: float64(42)},
		{name: "json number", input: json.Number("12.5"), want: 12.5},
		{name: "bool", input: true, want: true},
		{name: "empty list", input: []any{}, want: nil},
		{name: "single element list", input: []any{"餐饮"}, want: "餐饮"},
		{name: "text object", input: map[string]any{"text": "打车", "type": "text"}, want: "打车"},
		{name: "list of text objects", input: []any{map[string]any{"text": "午餐-"}, map[string]any{"text": "楼下"}}, want: "午餐-楼下"},
		{name: "nested list", input: []any{[]any{"x"}}, want: "x"},
		{name: "select option", input: map[string]any{"name": "已确认"}, want: "已确认"},
		{name: "unknown object", input: map[string]any{"foo": 1}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalize_AllShapesAgree(t *testing.T) {
	shapes := []any{
		"工作餐",
		[]any{"工作餐"},
		map[string]any{"text": "工作餐"},
		[]any{map[string]any{"text": "工作餐"}},
	}
	for _, s := range shapes {
		assert.Equal(t, "工作餐", Normalize(s))
	}
}

func TestFieldAccessors(t *testing.T) {
	f := model.Fields{
		"note":   []any{map[string]any{"text": "  午餐  "}},
		"amount": "12.50",
		"count":  float64(3),
		"bad":    "abc",
	}

	assert.Equal(t, "午餐", String(f, "note"))
	assert.Equal(t, "3", String(f, "count"))
	assert.Equal(t, "", String(f, "missing"))

	n, ok := Number(f, "amount")
	assert.True(t, ok)
	assert.InDelta(t, 12.5, n, 1e-9)

	_, ok = Number(f, "bad")
	assert.False(t, ok)
}
