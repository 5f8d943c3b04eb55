// Package counterparty recovers and normalizes counterparty names from transaction notes.
package counterparty

import (
	"regexp"
	"strings"
)

// Extract guesses the counterparty of a transaction from its note.
// A note of the form "prefix-merchant" yields the merchant. Otherwise a note
// that differs from the category is taken as the counterparty itself.
func Extract(note, category string) (string, bool) {
	note = strings.TrimSpace(note)
	category = strings.TrimSpace(category)
	if note == "" {
		return "", false
	}

	if _, after, found := strings.Cut(note, "-"); found {
		if merchant := strings.TrimSpace(after); merchant != "" {
			return merchant, true
		}
	}

	if note != category {
		return note, true
	}
	return "", false
}

var parenthetical = regexp.MustCompile(`\([^()]*\)|（[^（）]*）`)

// Clean normalizes a counterparty for use as a correction key: parenthesized
// annotations (ASCII or full-width) and asterisks are removed and the result
// is trimmed.
func Clean(name string) string {
	cleaned := strings.ReplaceAll(name, "*", "")
	for {
		next := parenthetical.ReplaceAllString(cleaned, "")
		if next == cleaned {
			break
		}
		cleaned = next
	}
	return strings.TrimSpace(cleaned)
}
