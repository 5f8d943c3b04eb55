package model

import "fmt"

// Rule maps a note keyword within a category to a purpose and subcategory.
type Rule struct {
	Keyword    string
	Category   string
	Purpose    string
	Subcat     string
	Notes      string
	Confidence float64
	Count      int
	Total      int
	Enabled    bool
}

// ConfidencePercent renders the confidence with two decimals and a percent sign.
func (r Rule) ConfidencePercent() string {
	return fmt.Sprintf("%.2f%%", r.Confidence*100)
}
