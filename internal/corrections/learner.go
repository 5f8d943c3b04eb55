package corrections

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/the-labels-must-flow/internal/common"
	"github.com/Veraticus/the-labels-must-flow/internal/counterparty"
	"github.com/Veraticus/the-labels-must-flow/internal/model"
	"github.com/Veraticus/the-labels-must-flow/internal/service"
)

// DefaultSkipCategories are catch-all categories that never become corrections.
func DefaultSkipCategories() []string {
	return []string{"其他", "待报销"}
}

// Observation is a confirmed counterparty/category pair.
type Observation struct {
	Counterparty string
	Category     string
}

// Outcome describes what Learn did with an observation.
type Outcome int

const (
	// OutcomeSkipped means the observation was unusable.
	OutcomeSkipped Outcome = iota
	// OutcomeAgreed means the baseline already produced the category.
	OutcomeAgreed
	// OutcomeLearned means a correction was written.
	OutcomeLearned
)

// Learner turns confirmed categories that the baseline gets wrong into corrections.
type Learner struct {
	store    service.CorrectionStore
	baseline service.Categorizer
	skip     map[string]bool
}

// NewLearner creates a learner. A nil skip list uses DefaultSkipCategories.
func NewLearner(store service.CorrectionStore, baseline service.Categorizer, skip []string) *Learner {
	if skip == nil {
		skip = DefaultSkipCategories()
	}
	set := make(map[string]bool, len(skip))
	for _, c := range skip {
		set[strings.TrimSpace(c)] = true
	}
	return &Learner{store: store, baseline: baseline, skip: set}
}

// Learn records a correction when the baseline disagrees with the observed category.
func (l *Learner) Learn(ctx context.Context, obs Observation) (Outcome, error) {
	key, category, proposed, err := l.evaluate(ctx, obs)
	if err != nil || !proposed {
		return l.outcome(proposed, key, category), err
	}
	if err := l.store.Save(ctx, key, category); err != nil {
		return OutcomeSkipped, fmt.Errorf("failed to save correction for %q: %w", key, err)
	}
	return OutcomeLearned, nil
}

// evaluate reports whether obs should become a correction and under which key.
func (l *Learner) evaluate(ctx context.Context, obs Observation) (string, string, bool, error) {
	key := counterparty.Clean(obs.Counterparty)
	category := strings.TrimSpace(obs.Category)
	if key == "" || category == "" || l.skip[category] {
		return "", "", false, nil
	}

	guess, err := l.baseline.Categorize(ctx, service.CategoryQuery{
		SourceType:   "unknown",
		Counterparty: strings.TrimSpace(obs.Counterparty),
	})
	if err != nil {
		return key, category, false, fmt.Errorf("baseline categorization of %q failed: %w", key, err)
	}
	return key, category, guess != category, nil
}

func (l *Learner) outcome(proposed bool, key, category string) Outcome {
	switch {
	case proposed:
		return OutcomeLearned
	case key != "" && category != "":
		return OutcomeAgreed
	default:
		return OutcomeSkipped
	}
}

// LearnResult reports a learning pass over many records.
type LearnResult struct {
	Learned []model.CorrectionEntry
	Summary model.Summary
	Agreed  int
}

// LearnAll learns from every record that carries a counterparty, either in
// its counterparty field or recoverable from its note. With dryRun nothing is
// written and Learned lists the corrections that would be saved.
func (l *Learner) LearnAll(ctx context.Context, records []model.TransactionRecord, dryRun bool) (LearnResult, error) {
	var result LearnResult
	proposed := map[string]int{}

	learner := l
	if dryRun {
		overlay, err := l.overlay(ctx)
		if err != nil {
			return result, err
		}
		learner = overlay
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Summary.Total++

		obs := Observation{Counterparty: rec.Counterparty, Category: rec.Category}
		if strings.TrimSpace(obs.Counterparty) == "" {
			obs.Counterparty, _ = counterparty.Extract(rec.Note, rec.Category)
		}

		outcome, err := learner.Learn(ctx, obs)
		key, category := counterparty.Clean(obs.Counterparty), strings.TrimSpace(obs.Category)
		if err != nil {
			result.Summary.Failed++
			common.LogError(err, "Failed to learn correction", common.Fields{"record_id": rec.ID, "counterparty": obs.Counterparty})
			continue
		}

		switch outcome {
		case OutcomeLearned:
			result.Summary.Succeeded++
			entry := model.CorrectionEntry{Counterparty: key, Category: category}
			if i, seen := proposed[key]; seen {
				result.Learned[i] = entry
			} else {
				proposed[key] = len(result.Learned)
				result.Learned = append(result.Learned, entry)
			}
		case OutcomeAgreed:
			result.Agreed++
			result.Summary.Skipped++
		default:
			result.Summary.Skipped++
		}
	}

	return result, nil
}

// overlay returns a learner that saves into an in-memory copy of the store.
// Its baseline sees those saves before falling back to l.baseline, so a dry
// run makes the same decisions a real run would.
func (l *Learner) overlay(ctx context.Context) (*Learner, error) {
	existing, err := l.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read corrections: %w", err)
	}
	mem := NewMemoryStore(existing)
	baseline := overlayBaseline{store: mem, next: l.baseline}
	return &Learner{store: mem, baseline: baseline, skip: l.skip}, nil
}

type overlayBaseline struct {
	store *MemoryStore
	next  service.Categorizer
}

func (b overlayBaseline) Categorize(ctx context.Context, q service.CategoryQuery) (string, error) {
	if category, ok, _ := b.store.Lookup(ctx, counterparty.Clean(q.Counterparty)); ok {
		return category, nil
	}
	return b.next.Categorize(ctx, q)
}
