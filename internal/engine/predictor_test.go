package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/the-labels-must-flow/internal/model"
)

func TestPredictor_Chain(t *testing.T) {
	ruleBoth := fixedStrategy{Purpose: "日常", Subcat: "外食", Source: model.SourceRule, PurposeConfidence: 0.6, SubcatConfidence: 0.6}
	rulePurposeOnly := fixedStrategy{Purpose: "日常", Source: model.SourceRule}
	none := fixedStrategy{Source: model.SourceNone}
	classifier := fixedStrategy{Purpose: "社交", Subcat: "聚餐", Source: model.SourceClassifier, PurposeConfidence: 0.8, SubcatConfidence: 0.4}

	tests := []struct {
		rules      Strategy
		classifier Strategy
		want       model.Prediction
		name       string
	}{
		{
			name:       "rule wins when complete",
			rules:      ruleBoth,
			classifier: classifier,
			want:       model.Prediction(ruleBoth),
		},
		{
			name:       "classifier fills the missing field",
			rules:      rulePurposeOnly,
			classifier: classifier,
			want:       model.Prediction{Purpose: "日常", Subcat: "聚餐", SubcatConfidence: 0.4, Source: model.SourceMixed},
		},
		{
			name:       "classifier when no rule",
			rules:      none,
			classifier: classifier,
			want:       model.Prediction(classifier),
		},
		{
			name:       "nothing anywhere",
			rules:      none,
			classifier: none,
			want:       model.NoPrediction(),
		},
		{
			name:  "rules only",
			rules: rulePurposeOnly,
			want:  model.Prediction(rulePurposeOnly),
		},
		{
			name:       "classifier only",
			classifier: classifier,
			want:       model.Prediction(classifier),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewPredictor(tt.rules, tt.classifier).Predict("n", "c"))
		})
	}
}
