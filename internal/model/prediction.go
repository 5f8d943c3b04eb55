package model

// PredictionSource names the component that produced a prediction.
type PredictionSource string

const (
	// SourceNone means nothing matched.
	SourceNone PredictionSource = "none"
	// SourceRule means a mined keyword rule matched.
	SourceRule PredictionSource = "rule"
	// SourceClassifier means the naive Bayes classifier was confident enough.
	SourceClassifier PredictionSource = "classifier"
	// SourceMixed means a rule supplied one field and the classifier the other.
	SourceMixed PredictionSource = "mixed"
)

// Prediction is a purpose/subcategory guess for a note. Empty fields were not predicted.
type Prediction struct {
	Rule              *Rule
	Purpose           string
	Subcat            string
	Source            PredictionSource
	PurposeConfidence float64
	SubcatConfidence  float64
}

// Found reports whether at least one field was predicted.
func (p Prediction) Found() bool {
	return p.Purpose != "" || p.Subcat != ""
}

// NoPrediction is the empty result.
func NoPrediction() Prediction {
	return Prediction{Source: SourceNone}
}
