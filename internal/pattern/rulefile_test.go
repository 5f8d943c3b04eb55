package pattern

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-labels-must-flow/internal/common"
)

func TestWriteRules_Format(t *testing.T) {
	var buf bytes.Buffer
	err := WriteRules(&buf, []Rule{
		{Keyword: "午餐", Category: "餐饮", Purpose: "日常", Subcat: "外食", Confidence: 0.6, Count: 3, Total: 5, Enabled: true},
		{Keyword: "打车", Category: "交通", Purpose: "通勤", Subcat: "打车", Confidence: 1, Count: 2, Total: 2, Enabled: false, Notes: "too broad"},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\ufeff"))
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(out, "\ufeff")), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "keyword,category,purpose,subcat,confidence,count,total,enabled,notes", lines[0])
	assert.Equal(t, "午餐,餐饮,日常,外食,60.00%,3,5,TRUE,", lines[1])
	assert.Equal(t, "打车,交通,通勤,打车,100.00%,2,2,FALSE,too broad", lines[2])
}

func TestReadRules_RoundTripKeepsOrder(t *testing.T) {
	rules := []Rule{
		{Keyword: "b", Category: "c1", Purpose: "p", Subcat: "s", Confidence: 0.75, Count: 3, Total: 4, Enabled: true},
		{Keyword: "a", Category: "c2", Purpose: "p", Subcat: "s", Confidence: 0.5, Count: 2, Total: 4, Enabled: false},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRules(&buf, rules))

	got, err := ReadRules(&buf)
	require.NoError(t, err)
	assert.Equal(t, rules, got)
}

func TestReadRules_EnabledColumn(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []bool
	}{
		{
			name:  "case-insensitive true, anything else disabled",
			input: "keyword,category,purpose,subcat,enabled\nk1,c,p,s,true\nk2,c,p,s,False\nk3,c,p,s,yes\nk4,c,p,s,\n",
			want:  []bool{true, false, false, false},
		},
		{
			name:  "missing column means enabled",
			input: "keyword,category,purpose,subcat\nk1,c,p,s\nk2,c,p,s\n",
			want:  []bool{true, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules, err := ReadRules(strings.NewReader(tt.input))
			require.NoError(t, err)
			got := make([]bool, len(rules))
			for i, r := range rules {
				got[i] = r.Enabled
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadRules_HandEdited(t *testing.T) {
	input := "\ufeff Keyword , CATEGORY,purpose,subcat,confidence\n" +
		"午餐,餐饮,日常,外食,0.9\n" +
		",餐饮,日常,外食,1\n" +
		"咖啡,餐饮,日常,饮料,oops\n"

	rules, err := ReadRules(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.InDelta(t, 0.9, rules[0].Confidence, 1e-9)
	assert.Equal(t, "咖啡", rules[1].Keyword)
	assert.Zero(t, rules[1].Confidence)
}

func TestReadRules_MissingColumn(t *testing.T) {
	_, err := ReadRules(strings.NewReader("keyword,category,purpose\nk,c,p\n"))
	assert.ErrorIs(t, err, common.ErrMalformedInput)
}

func TestReadRules_Empty(t *testing.T) {
	rules, err := ReadRules(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestRulesFile_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "rules.csv")
	rules := []Rule{{Keyword: "k", Category: "c", Purpose: "p", Subcat: "s", Confidence: 1, Count: 2, Total: 2, Enabled: true}}

	require.NoError(t, SaveRulesFile(path, rules))
	got, err := LoadRulesFile(path)
	require.NoError(t, err)
	assert.Equal(t, rules, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
