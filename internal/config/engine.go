package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/the-labels-must-flow/internal/bayes"
	"github.com/Veraticus/the-labels-must-flow/internal/categorize"
	"github.com/Veraticus/the-labels-must-flow/internal/common"
	"github.com/Veraticus/the-labels-must-flow/internal/corrections"
	"github.com/Veraticus/the-labels-must-flow/internal/pattern"
	"github.com/Veraticus/the-labels-must-flow/internal/service"
	"github.com/Veraticus/the-labels-must-flow/internal/table"
)

// Supported table backends.
const (
	BackendSQLite = "sqlite"
	BackendSheets = "sheets"
)

// Supported correction stores.
const (
	CorrectionsFile   = "file"
	CorrectionsSQLite = "sqlite"
)

// Tables names the ledger and review tables.
type Tables struct {
	Source string `mapstructure:"source"`
	Review string `mapstructure:"review"`
}

// Rules configures mining and the rules file.
type Rules struct {
	Path     string `mapstructure:"path"`
	MinCount int    `mapstructure:"min_count"`
	MaxRules int    `mapstructure:"max_rules"`
}

// Classifier configures the bayes fallback.
type Classifier struct {
	Threshold float64 `mapstructure:"threshold"`
	TopK      int     `mapstructure:"top_k"`
}

// Corrections configures the correction store and learner.
type Corrections struct {
	Store string   `mapstructure:"store"`
	Path  string   `mapstructure:"path"`
	Skip  []string `mapstructure:"skip"`
}

// Categorizer configures the baseline categorizer.
type Categorizer struct {
	SourceMappings map[string]map[string]string `mapstructure:"source_mappings"`
	Fallback       string                       `mapstructure:"fallback"`
	IncomeFallback string                       `mapstructure:"income_fallback"`
	Keywords       []categorize.KeywordRule     `mapstructure:"keywords"`
	ModelThreshold float64                      `mapstructure:"model_threshold"`
}

// Store tunes table paging, batching and retries.
type Store struct {
	PageSize     int           `mapstructure:"page_size"`
	MaxPages     int           `mapstructure:"max_pages"`
	BatchSize    int           `mapstructure:"batch_size"`
	RetryCount   int           `mapstructure:"retry_count"`
	RetryDelay   time.Duration `mapstructure:"retry_delay"`
	RowRetries   int           `mapstructure:"row_retries"`
	RetryMaxWait time.Duration `mapstructure:"retry_max_wait"`
}

// Engine is the full runtime configuration.
type Engine struct {
	Categorizer  Categorizer        `mapstructure:"categorizer"`
	SourceSchema table.SourceSchema `mapstructure:"source_schema"`
	ReviewSchema table.ReviewSchema `mapstructure:"review_schema"`
	Tables       Tables             `mapstructure:"tables"`
	Backend      string             `mapstructure:"backend"`
	Database     string             `mapstructure:"database"`
	Corrections  Corrections        `mapstructure:"corrections"`
	Rules        Rules              `mapstructure:"rules"`
	Store        Store              `mapstructure:"store"`
	Classifier   Classifier         `mapstructure:"classifier"`
}

// DefaultEngine returns the configuration used when nothing is set.
func DefaultEngine() Engine {
	mine := pattern.DefaultMineOptions()
	cat := categorize.DefaultOptions()
	store := table.DefaultOptions()
	return Engine{
		Backend:      BackendSQLite,
		Database:     "~/.local/share/labels/labels.db",
		Tables:       Tables{Source: "ledger", Review: "review"},
		SourceSchema: table.DefaultSourceSchema(),
		ReviewSchema: table.DefaultReviewSchema(),
		Rules: Rules{
			Path:     "rules.csv",
			MinCount: mine.MinCount,
			MaxRules: mine.MaxRules,
		},
		Classifier: Classifier{Threshold: bayes.DefaultThreshold, TopK: 3},
		Corrections: Corrections{
			Store: CorrectionsFile,
			Path:  "~/.config/labels/corrections.json",
			Skip:  corrections.DefaultSkipCategories(),
		},
		Categorizer: Categorizer{
			SourceMappings: cat.SourceMappings,
			Fallback:       cat.Fallback,
			IncomeFallback: cat.IncomeFallback,
			Keywords:       cat.Keywords,
			ModelThreshold: cat.ModelThreshold,
		},
		Store: Store{
			PageSize:     store.PageSize,
			MaxPages:     store.MaxPages,
			BatchSize:    store.BatchSize,
			RetryCount:   store.Retry.MaxAttempts,
			RetryDelay:   store.Retry.InitialDelay,
			RetryMaxWait: store.Retry.MaxDelay,
			RowRetries:   store.RowRetry.MaxAttempts,
		},
	}
}

// LoadEngineConfig overlays the values set in v onto the defaults.
func LoadEngineConfig(v *viper.Viper) (*Engine, error) {
	cfg := DefaultEngine()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	cfg.Database = ExpandPath(cfg.Database)
	cfg.Rules.Path = ExpandPath(cfg.Rules.Path)
	cfg.Corrections.Path = ExpandPath(cfg.Corrections.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for missing or out-of-range values.
func (c *Engine) Validate() error {
	switch c.Backend {
	case BackendSQLite:
		if c.Database == "" {
			return fmt.Errorf("%w: database", common.ErrMissingConfig)
		}
	case BackendSheets:
	default:
		return fmt.Errorf("%w: unknown backend %q", common.ErrInvalidConfig, c.Backend)
	}

	if c.Tables.Source == "" {
		return fmt.Errorf("%w: tables.source", common.ErrMissingConfig)
	}
	for name, col := range map[string]string{
		"note":      c.SourceSchema.Note,
		"category":  c.SourceSchema.Category,
		"purpose":   c.SourceSchema.Purpose,
		"subcat":    c.SourceSchema.Subcat,
		"direction": c.SourceSchema.Direction,
		"amount":    c.SourceSchema.Amount,
		"date":      c.SourceSchema.Date,
	} {
		if col == "" {
			return fmt.Errorf("%w: source_schema.%s", common.ErrMissingConfig, name)
		}
	}

	switch c.Corrections.Store {
	case CorrectionsFile:
		if c.Corrections.Path == "" {
			return fmt.Errorf("%w: corrections.path", common.ErrMissingConfig)
		}
	case CorrectionsSQLite:
		if c.Database == "" {
			return fmt.Errorf("%w: database", common.ErrMissingConfig)
		}
	default:
		return fmt.Errorf("%w: unknown corrections store %q", common.ErrInvalidConfig, c.Corrections.Store)
	}

	if c.Classifier.Threshold < 0 || c.Classifier.Threshold > 1 {
		return fmt.Errorf("%w: classifier.threshold must be within [0, 1]", common.ErrInvalidConfig)
	}
	if c.Classifier.TopK < 1 {
		return fmt.Errorf("%w: classifier.top_k must be positive", common.ErrInvalidConfig)
	}
	if c.Rules.MinCount < 1 || c.Rules.MaxRules < 1 {
		return fmt.Errorf("%w: rules.min_count and rules.max_rules must be positive", common.ErrInvalidConfig)
	}
	if c.Store.PageSize < 1 || c.Store.BatchSize < 1 || c.Store.MaxPages < 1 {
		return fmt.Errorf("%w: store sizes must be positive", common.ErrInvalidConfig)
	}
	return nil
}

// TableOptions converts the store settings for table.NewClient.
func (c *Engine) TableOptions() table.Options {
	retry := service.RetryOptions{
		MaxAttempts:  c.Store.RetryCount,
		InitialDelay: c.Store.RetryDelay,
		MaxDelay:     c.Store.RetryMaxWait,
		Multiplier:   2.0,
	}
	rowRetry := retry
	rowRetry.MaxAttempts = c.Store.RowRetries
	return table.Options{
		Retry:     retry,
		RowRetry:  rowRetry,
		PageSize:  c.Store.PageSize,
		MaxPages:  c.Store.MaxPages,
		BatchSize: c.Store.BatchSize,
	}
}

// CategorizerOptions converts the categorizer settings. The model is
// attached by the caller.
func (c *Engine) CategorizerOptions() categorize.Options {
	return categorize.Options{
		SourceMappings: c.Categorizer.SourceMappings,
		Fallback:       c.Categorizer.Fallback,
		IncomeFallback: c.Categorizer.IncomeFallback,
		Keywords:       c.Categorizer.Keywords,
		ModelThreshold: c.Categorizer.ModelThreshold,
	}
}

// MineOptions converts the rule mining settings.
func (c *Engine) MineOptions() pattern.MineOptions {
	return pattern.MineOptions{MinCount: c.Rules.MinCount, MaxRules: c.Rules.MaxRules}
}
