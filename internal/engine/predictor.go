package engine

import (
	"github.com/Veraticus/the-labels-must-flow/internal/model"
)

// Strategy produces a purpose/subcategory prediction for a note.
type Strategy interface {
	Predict(note, category string) model.Prediction
}

// Predictor chains two strategies: mined rules first, then the classifier for
// whichever field the rules left empty.
type Predictor struct {
	rules      Strategy
	classifier Strategy
}

// NewPredictor creates a predictor. Either strategy may be nil.
func NewPredictor(rules, classifier Strategy) *Predictor {
	return &Predictor{rules: rules, classifier: classifier}
}

// Predict implements Strategy.
func (p *Predictor) Predict(note, category string) model.Prediction {
	pred := model.NoPrediction()
	if p.rules != nil {
		pred = p.rules.Predict(note, category)
		if pred.Purpose != "" && pred.Subcat != "" {
			return pred
		}
	}
	if p.classifier == nil {
		return pred
	}

	fallback := p.classifier.Predict(note, category)
	fromRule := pred.Found()

	if pred.Purpose == "" && fallback.Purpose != "" {
		pred.Purpose = fallback.Purpose
		pred.PurposeConfidence = fallback.PurposeConfidence
	}
	if pred.Subcat == "" && fallback.Subcat != "" {
		pred.Subcat = fallback.Subcat
		pred.SubcatConfidence = fallback.SubcatConfidence
	}

	switch {
	case fromRule && fallback.Found():
		pred.Source = model.SourceMixed
	case fromRule:
		pred.Source = model.SourceRule
	case pred.Found():
		pred.Source = model.SourceClassifier
	default:
		pred.Source = model.SourceNone
	}
	return pred
}
