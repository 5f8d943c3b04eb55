// Package pattern mines keyword rules from labeled transactions and matches notes against them.
package pattern

import (
	"github.com/Veraticus/the-labels-must-flow/internal/model"
)

// Rule is an alias to the model.Rule type for convenience.
type Rule = model.Rule

// Matcher predicts purpose and subcategory for a note within a category.
type Matcher interface {
	// Match returns the first enabled rule whose keyword occurs in note and whose
	// category equals category.
	Match(note, category string) (Rule, bool)
}

// MineOptions bounds rule mining.
type MineOptions struct {
	MinCount int
	MaxRules int
}

// DefaultMineOptions returns the miner defaults.
func DefaultMineOptions() MineOptions {
	return MineOptions{MinCount: 2, MaxRules: 500}
}
