package bayes

import (
	"math"
	"sort"
	"strings"
)

const (
	categoryWeight = 0.7
	globalWeight   = 0.3
)

// Document is one labeled training example.
type Document struct {
	Text     string
	Category string
	Label    string
}

// Scored is a class with its softmax probability.
type Scored struct {
	Label       string
	Score       float64
	Probability float64
}

// Model is a trained single-field classifier. It is read-only after Train and
// safe for concurrent use.
type Model struct {
	wordCounts    map[string]map[string]int
	classTotals   map[string]int
	docCounts     map[string]int
	categoryClass map[string]map[string]int
	categoryTotal map[string]int
	vocabulary    map[string]struct{}
	classes       []string
	totalDocs     int
}

// Train builds a model from documents. Documents without a label or without
// text are ignored.
func Train(docs []Document) *Model {
	m := &Model{
		wordCounts:    make(map[string]map[string]int),
		classTotals:   make(map[string]int),
		docCounts:     make(map[string]int),
		categoryClass: make(map[string]map[string]int),
		categoryTotal: make(map[string]int),
		vocabulary:    make(map[string]struct{}),
	}

	for _, d := range docs {
		label := strings.TrimSpace(d.Label)
		text := strings.TrimSpace(d.Text)
		if label == "" || text == "" {
			continue
		}

		m.totalDocs++
		m.docCounts[label]++
		words, ok := m.wordCounts[label]
		if !ok {
			words = make(map[string]int)
			m.wordCounts[label] = words
		}
		for _, tok := range Tokenize(text) {
			words[tok]++
			m.classTotals[label]++
			m.vocabulary[tok] = struct{}{}
		}

		if category := strings.TrimSpace(d.Category); category != "" {
			if m.categoryClass[category] == nil {
				m.categoryClass[category] = make(map[string]int)
			}
			m.categoryClass[category][label]++
			m.categoryTotal[category]++
		}
	}

	m.classes = make([]string, 0, len(m.docCounts))
	for c := range m.docCounts {
		m.classes = append(m.classes, c)
	}
	sort.Strings(m.classes)

	return m
}

// Classes returns the trained labels in sorted order.
func (m *Model) Classes() []string {
	return m.classes
}

// Docs returns the number of training documents used.
func (m *Model) Docs() int {
	return m.totalDocs
}

// VocabularySize returns the number of distinct tokens seen in training.
func (m *Model) VocabularySize() int {
	return len(m.vocabulary)
}

// Predict ranks classes for text and returns at most k of them. Probabilities
// are a softmax over every trained class, so truncating to k does not inflate
// them. Text whose tokens were never seen in training yields nothing.
func (m *Model) Predict(text, category string, k int) []Scored {
	if m == nil || m.totalDocs == 0 {
		return nil
	}

	tokens := Tokenize(text)
	if !m.knowsAny(tokens) {
		return nil
	}

	category = strings.TrimSpace(category)
	vocab := float64(len(m.vocabulary))
	scored := make([]Scored, 0, len(m.classes))

	for _, c := range m.classes {
		score := m.prior(c, category)
		words := m.wordCounts[c]
		denom := float64(m.classTotals[c]) + vocab
		for _, tok := range tokens {
			score += math.Log(float64(words[tok]+1) / denom)
		}
		scored = append(scored, Scored{Label: c, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	maxScore := scored[0].Score
	sum := 0.0
	for i := range scored {
		scored[i].Probability = math.Exp(scored[i].Score - maxScore)
		sum += scored[i].Probability
	}
	for i := range scored {
		scored[i].Probability /= sum
	}

	if k > 0 && k < len(scored) {
		scored = scored[:k]
	}
	return scored
}

// Best returns the top class when its probability reaches threshold. The
// probability is the softmax posterior over every trained class, not only the
// top k, so a single-class answer is not automatically certain.
func (m *Model) Best(text, category string, threshold float64) (Scored, bool) {
	top := m.Predict(text, category, 1)
	if len(top) == 0 || top[0].Probability < threshold {
		return Scored{}, false
	}
	return top[0], true
}

func (m *Model) prior(class, category string) float64 {
	global := float64(m.docCounts[class]) / float64(m.totalDocs)
	if category == "" {
		return math.Log(global)
	}
	total := m.categoryTotal[category]
	if total == 0 {
		return math.Log(global)
	}
	conditional := float64(m.categoryClass[category][class]) / float64(total)
	if conditional == 0 {
		return math.Log(global)
	}
	return math.Log(categoryWeight*conditional + globalWeight*global)
}

func (m *Model) knowsAny(tokens []string) bool {
	for _, tok := range tokens {
		if _, ok := m.vocabulary[tok]; ok {
			return true
		}
	}
	return false
}
