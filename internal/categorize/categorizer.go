// Package categorize assigns a coarse category to a transaction from its
// counterparty, the exporter's own category and learned corrections.
package categorize

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/the-labels-must-flow/internal/bayes"
	"github.com/Veraticus/the-labels-must-flow/internal/counterparty"
	"github.com/Veraticus/the-labels-must-flow/internal/model"
	"github.com/Veraticus/the-labels-must-flow/internal/service"
)

// Stage names the step that produced a category.
type Stage string

// Categorization stages in evaluation order.
const (
	StageCorrection Stage = "correction"
	StageKeyword    Stage = "keyword"
	StageSource     Stage = "source"
	StageModel      Stage = "model"
	StageFallback   Stage = "fallback"
)

// KeywordRule maps a counterparty substring to a category.
type KeywordRule struct {
	Keyword  string `mapstructure:"keyword"`
	Category string `mapstructure:"category"`
}

// Options configures a Categorizer.
type Options struct {
	SourceMappings map[string]map[string]string
	Model          *bayes.Model
	Fallback       string
	IncomeFallback string
	Keywords       []KeywordRule
	ModelThreshold float64
}

// DefaultKeywordRules returns the built-in merchant keywords.
func DefaultKeywordRules() []KeywordRule {
	return []KeywordRule{
		{Keyword: "星巴克", Category: "餐饮"},
		{Keyword: "瑞幸", Category: "餐饮"},
		{Keyword: "麦当劳", Category: "餐饮"},
		{Keyword: "肯德基", Category: "餐饮"},
		{Keyword: "海底捞", Category: "餐饮"},
		{Keyword: "美团外卖", Category: "餐饮"},
		{Keyword: "饿了么", Category: "餐饮"},
		{Keyword: "滴滴", Category: "交通"},
		{Keyword: "地铁", Category: "交通"},
		{Keyword: "高德打车", Category: "交通"},
		{Keyword: "中国石化", Category: "交通"},
		{Keyword: "12306", Category: "交通"},
		{Keyword: "盒马", Category: "购物"},
		{Keyword: "京东", Category: "购物"},
		{Keyword: "淘宝", Category: "购物"},
		{Keyword: "拼多多", Category: "购物"},
		{Keyword: "电费", Category: "居住"},
		{Keyword: "燃气", Category: "居住"},
		{Keyword: "中国移动", Category: "通讯"},
		{Keyword: "中国联通", Category: "通讯"},
	}
}

// DefaultSourceMappings translates exporter categories into ledger categories.
func DefaultSourceMappings() map[string]map[string]string {
	return map[string]map[string]string{
		"alipay": {
			"餐饮美食": "餐饮",
			"交通出行": "交通",
			"日用百货": "购物",
			"服饰装扮": "购物",
			"数码电器": "购物",
			"住房物业": "居住",
			"充值缴费": "通讯",
			"文化休闲": "娱乐",
			"医疗健康": "医疗",
		},
		"wechat": {
			"商户消费": "购物",
			"交通出行": "交通",
			"餐饮":   "餐饮",
		},
	}
}

// DefaultOptions returns the built-in rules with the standard fallbacks.
func DefaultOptions() Options {
	return Options{
		Keywords:       DefaultKeywordRules(),
		SourceMappings: DefaultSourceMappings(),
		ModelThreshold: bayes.DefaultThreshold,
		Fallback:       "其他",
		IncomeFallback: "其他收入",
	}
}

// Decision is a category with the stage that produced it.
type Decision struct {
	Category string
	Stage    Stage
}

// Categorizer is the baseline categorizer. It implements service.Categorizer.
type Categorizer struct {
	store service.CorrectionStore
	opts  Options
}

// New creates a categorizer. A nil store disables corrections.
func New(store service.CorrectionStore, opts Options) *Categorizer {
	def := DefaultOptions()
	if opts.Fallback == "" {
		opts.Fallback = def.Fallback
	}
	if opts.IncomeFallback == "" {
		opts.IncomeFallback = def.IncomeFallback
	}
	if opts.ModelThreshold <= 0 {
		opts.ModelThreshold = def.ModelThreshold
	}
	return &Categorizer{store: store, opts: opts}
}

// Categorize implements service.Categorizer.
func (c *Categorizer) Categorize(ctx context.Context, q service.CategoryQuery) (string, error) {
	d, err := c.Explain(ctx, q)
	return d.Category, err
}

// Explain categorizes q and reports which stage decided. Stages run in order:
// stored correction, counterparty keyword, exporter category mapping,
// counterparty model, fallback.
func (c *Categorizer) Explain(ctx context.Context, q service.CategoryQuery) (Decision, error) {
	cp := strings.TrimSpace(q.Counterparty)
	key := counterparty.Clean(cp)

	if c.store != nil && key != "" {
		category, ok, err := c.store.Lookup(ctx, key)
		if err != nil {
			return Decision{}, fmt.Errorf("correction lookup for %q failed: %w", key, err)
		}
		if ok && category != "" {
			return Decision{Category: category, Stage: StageCorrection}, nil
		}
	}

	if !q.IsIncome && cp != "" {
		lower := strings.ToLower(cp)
		for _, rule := range c.opts.Keywords {
			if rule.Keyword != "" && strings.Contains(lower, strings.ToLower(rule.Keyword)) {
				return Decision{Category: rule.Category, Stage: StageKeyword}, nil
			}
		}
	}

	if seed := strings.TrimSpace(q.SeedCategory); seed != "" {
		source := strings.ToLower(strings.TrimSpace(q.SourceType))
		if mapping, ok := c.opts.SourceMappings[source]; ok {
			if mapped, ok := mapping[seed]; ok {
				return Decision{Category: mapped, Stage: StageSource}, nil
			}
		} else if source == "" || source == "unknown" || source == "manual" {
			return Decision{Category: seed, Stage: StageSource}, nil
		}
	}

	if !q.IsIncome && key != "" {
		if best, ok := c.opts.Model.Best(key, "", c.opts.ModelThreshold); ok {
			return Decision{Category: best.Label, Stage: StageModel}, nil
		}
	}

	if q.IsIncome {
		return Decision{Category: c.opts.IncomeFallback, Stage: StageFallback}, nil
	}
	return Decision{Category: c.opts.Fallback, Stage: StageFallback}, nil
}

// TrainCounterpartyModel trains a counterparty to category model from ledger
// expenses. Records without a counterparty use the one recovered from the note.
func TrainCounterpartyModel(records []model.TransactionRecord, skip []string) *bayes.Model {
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}

	docs := make([]bayes.Document, 0, len(records))
	for _, r := range records {
		if !r.IsExpense() || skipped[r.Category] {
			continue
		}
		cp := r.Counterparty
		if cp == "" {
			cp, _ = counterparty.Extract(r.Note, r.Category)
		}
		docs = append(docs, bayes.Document{Text: counterparty.Clean(cp), Label: r.Category})
	}
	return bayes.Train(docs)
}
