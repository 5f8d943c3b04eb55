package pattern

import (
	"strings"

	"github.com/Veraticus/the-labels-must-flow/internal/model"
)

// MatcherImpl evaluates rules in stored order, first match wins.
type MatcherImpl struct {
	rules []Rule
}

// NewMatcher creates a matcher over rules. Order is preserved exactly.
func NewMatcher(rules []Rule) *MatcherImpl {
	return &MatcherImpl{rules: rules}
}

// Rules returns the rule set in evaluation order.
func (m *MatcherImpl) Rules() []Rule {
	return m.rules
}

// Match implements Matcher.
func (m *MatcherImpl) Match(note, category string) (Rule, bool) {
	note = strings.TrimSpace(note)
	category = strings.TrimSpace(category)
	if note == "" {
		return Rule{}, false
	}

	for _, rule := range m.rules {
		if !rule.Enabled || rule.Keyword == "" {
			continue
		}
		if rule.Category == category && strings.Contains(note, rule.Keyword) {
			return rule, true
		}
	}
	return Rule{}, false
}

// Predict wraps Match in a Prediction.
func (m *MatcherImpl) Predict(note, category string) model.Prediction {
	rule, ok := m.Match(note, category)
	if !ok {
		return model.NoPrediction()
	}
	return model.Prediction{
		Purpose:           rule.Purpose,
		Subcat:            rule.Subcat,
		PurposeConfidence: rule.Confidence,
		SubcatConfidence:  rule.Confidence,
		Source:            model.SourceRule,
		Rule:              &rule,
	}
}
