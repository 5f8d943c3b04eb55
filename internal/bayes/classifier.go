package bayes

import (
	"github.com/Veraticus/the-labels-must-flow/internal/model"
)

// DefaultThreshold is the minimum probability for accepting a prediction.
const DefaultThreshold = 0.3

// Field selects which label a model predicts.
type Field string

const (
	// FieldPurpose is the spending purpose.
	FieldPurpose Field = "purpose"
	// FieldSubcat is the sub-category.
	FieldSubcat Field = "subcat"
)

// Classifier predicts purpose and subcategory with two independent models.
type Classifier struct {
	purpose   *Model
	subcat    *Model
	threshold float64
}

// TrainClassifier trains both models from expense records.
func TrainClassifier(records []model.TransactionRecord, threshold float64) *Classifier {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	var purposeDocs, subcatDocs []Document
	for _, r := range records {
		if !r.IsExpense() {
			continue
		}
		purposeDocs = append(purposeDocs, Document{Text: r.Note, Category: r.Category, Label: r.Purpose})
		subcatDocs = append(subcatDocs, Document{Text: r.Note, Category: r.Category, Label: r.Subcat})
	}

	return &Classifier{
		purpose:   Train(purposeDocs),
		subcat:    Train(subcatDocs),
		threshold: threshold,
	}
}

// Model returns the model for field.
func (c *Classifier) Model(field Field) *Model {
	if field == FieldSubcat {
		return c.subcat
	}
	return c.purpose
}

// Threshold returns the acceptance threshold.
func (c *Classifier) Threshold() float64 {
	return c.threshold
}

// Predict returns the accepted purpose and subcategory for a note. Each field
// is decided on its own and either may be empty.
func (c *Classifier) Predict(note, category string) model.Prediction {
	pred := model.NoPrediction()

	if best, ok := c.purpose.Best(note, category, c.threshold); ok {
		pred.Purpose = best.Label
		pred.PurposeConfidence = best.Probability
	}
	if best, ok := c.subcat.Best(note, category, c.threshold); ok {
		pred.Subcat = best.Label
		pred.SubcatConfidence = best.Probability
	}

	if pred.Found() {
		pred.Source = model.SourceClassifier
	}
	return pred
}

// TopK returns up to k ranked candidates for field, for diagnostics.
func (c *Classifier) TopK(field Field, note, category string, k int) []Scored {
	return c.Model(field).Predict(note, category, k)
}
