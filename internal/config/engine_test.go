package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-labels-must-flow/internal/categorize"
	"github.com/Veraticus/the-labels-must-flow/internal/common"
	"github.com/Veraticus/the-labels-must-flow/internal/model"
)

func loadYAML(t *testing.T, doc string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(doc)))
	return v
}

func TestLoadEngineConfig_Defaults(t *testing.T) {
	cfg, err := LoadEngineConfig(viper.New())
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "ledger", cfg.Tables.Source)
	assert.Equal(t, "备注", cfg.SourceSchema.Note)
	assert.Equal(t, "待审核", cfg.ReviewSchema.StatusLabel(model.ReviewPending))
	assert.Equal(t, 2, cfg.Rules.MinCount)
	assert.InDelta(t, 0.3, cfg.Classifier.Threshold, 1e-9)
	assert.NotContains(t, cfg.Database, "~")
	assert.Equal(t, []string{"其他", "待报销"}, cfg.Corrections.Skip)
}

func TestLoadEngineConfig_Overrides(t *testing.T) {
	cfg, err := LoadEngineConfig(loadYAML(t, `
backend: sheets
tables:
  source: Ledger2024
  review: Review
source_schema:
  note: Memo
rules:
  min_count: 5
classifier:
  threshold: 0.5
  top_k: 5
categorizer:
  fallback: Misc
  keywords:
    - keyword: Costco
      category: Shopping
store:
  page_size: 100
  retry_delay: 2s
`))
	require.NoError(t, err)

	assert.Equal(t, BackendSheets, cfg.Backend)
	assert.Equal(t, "Ledger2024", cfg.Tables.Source)
	assert.Equal(t, "Memo", cfg.SourceSchema.Note)
	assert.Equal(t, "分类", cfg.SourceSchema.Category, "unset columns keep their defaults")
	assert.Equal(t, 5, cfg.Rules.MinCount)
	assert.Equal(t, 500, cfg.Rules.MaxRules)

	opts := cfg.CategorizerOptions()
	assert.Equal(t, "Misc", opts.Fallback)
	assert.Equal(t, []categorize.KeywordRule{{Keyword: "Costco", Category: "Shopping"}}, opts.Keywords)

	tableOpts := cfg.TableOptions()
	assert.Equal(t, 100, tableOpts.PageSize)
	assert.Equal(t, 2*time.Second, tableOpts.Retry.InitialDelay)
	assert.Equal(t, 2, tableOpts.RowRetry.MaxAttempts)

	assert.Equal(t, 5, cfg.MineOptions().MinCount)
}

func TestEngineValidate(t *testing.T) {
	tests := []struct {
		mutate  func(*Engine)
		wantErr error
		name    string
	}{
		{name: "defaults", mutate: func(*Engine) {}},
		{name: "unknown backend", mutate: func(e *Engine) { e.Backend = "excel" }, wantErr: common.ErrInvalidConfig},
		{name: "sqlite without database", mutate: func(e *Engine) { e.Database = "" }, wantErr: common.ErrMissingConfig},
		{name: "no source table", mutate: func(e *Engine) { e.Tables.Source = "" }, wantErr: common.ErrMissingConfig},
		{name: "blank column", mutate: func(e *Engine) { e.SourceSchema.Amount = "" }, wantErr: common.ErrMissingConfig},
		{name: "threshold above one", mutate: func(e *Engine) { e.Classifier.Threshold = 1.5 }, wantErr: common.ErrInvalidConfig},
		{name: "zero top k", mutate: func(e *Engine) { e.Classifier.TopK = 0 }, wantErr: common.ErrInvalidConfig},
		{name: "unknown corrections store", mutate: func(e *Engine) { e.Corrections.Store = "redis" }, wantErr: common.ErrInvalidConfig},
		{name: "zero page size", mutate: func(e *Engine) { e.Store.PageSize = 0 }, wantErr: common.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultEngine()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadSheetsConfig(t *testing.T) {
	t.Setenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", "")
	t.Setenv("GOOGLE_SHEETS_SPREADSHEET_ID", "")

	cfg, err := LoadSheetsConfig(loadYAML(t, `
sheets:
  spreadsheet_id: abc
  service_account_path: /keys/sa.json
`))
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.SpreadsheetID)
	assert.Equal(t, "/keys/sa.json", cfg.ServiceAccountPath)

	_, err = LoadSheetsConfig(viper.New())
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}
