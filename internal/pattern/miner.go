package pattern

import (
	"sort"
	"strings"

	"github.com/Veraticus/the-labels-must-flow/internal/model"
)

const wholeNoteMaxRunes = 6

var prefixLengths = []int{3, 4, 5}

// Keywords derives rule keyword candidates from a note: the whole note when it
// has at most six characters, otherwise its 3, 4 and 5 character prefixes.
func Keywords(note string) []string {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil
	}

	runes := []rune(note)
	if len(runes) <= wholeNoteMaxRunes {
		return []string{note}
	}

	keywords := make([]string, 0, len(prefixLengths))
	seen := make(map[string]bool, len(prefixLengths))
	for _, n := range prefixLengths {
		kw := string(runes[:n])
		if !seen[kw] {
			seen[kw] = true
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

type ruleKey struct {
	keyword  string
	category string
}

type outcome struct {
	purpose string
	subcat  string
}

type outcomeStats struct {
	counts map[outcome]int
	order  []outcome
	total  int
}

func (s *outcomeStats) add(o outcome) {
	if _, ok := s.counts[o]; !ok {
		s.order = append(s.order, o)
	}
	s.counts[o]++
	s.total++
}

// majority returns the most frequent outcome, preferring the first seen on ties.
func (s *outcomeStats) majority() (outcome, int) {
	var best outcome
	bestCount := 0
	for _, o := range s.order {
		if c := s.counts[o]; c > bestCount {
			best, bestCount = o, c
		}
	}
	return best, bestCount
}

// Mine builds ranked keyword rules from expense records that carry a note,
// category, purpose and subcategory. Rules are sorted by confidence then count,
// both descending; equal rules keep the order their key was first seen.
func Mine(records []model.TransactionRecord, opts MineOptions) []Rule {
	if opts.MinCount <= 0 {
		opts.MinCount = DefaultMineOptions().MinCount
	}
	if opts.MaxRules <= 0 {
		opts.MaxRules = DefaultMineOptions().MaxRules
	}

	stats := make(map[ruleKey]*outcomeStats)
	var keys []ruleKey

	for _, rec := range records {
		if !rec.IsExpense() {
			continue
		}
		note := strings.TrimSpace(rec.Note)
		category := strings.TrimSpace(rec.Category)
		o := outcome{purpose: strings.TrimSpace(rec.Purpose), subcat: strings.TrimSpace(rec.Subcat)}
		if note == "" || category == "" || o.purpose == "" || o.subcat == "" {
			continue
		}

		for _, kw := range Keywords(note) {
			key := ruleKey{keyword: kw, category: category}
			s, ok := stats[key]
			if !ok {
				s = &outcomeStats{counts: make(map[outcome]int)}
				stats[key] = s
				keys = append(keys, key)
			}
			s.add(o)
		}
	}

	rules := make([]Rule, 0, len(keys))
	for _, key := range keys {
		s := stats[key]
		best, count := s.majority()
		if count < opts.MinCount {
			continue
		}
		rules = append(rules, Rule{
			Keyword:    key.keyword,
			Category:   key.category,
			Purpose:    best.purpose,
			Subcat:     best.subcat,
			Confidence: float64(count) / float64(s.total),
			Count:      count,
			Total:      s.total,
			Enabled:    true,
		})
	}

	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Confidence != rules[j].Confidence {
			return rules[i].Confidence > rules[j].Confidence
		}
		return rules[i].Count > rules[j].Count
	})

	if len(rules) > opts.MaxRules {
		rules = rules[:opts.MaxRules]
	}
	return rules
}
