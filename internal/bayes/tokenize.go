// Package bayes implements the multinomial naive Bayes text classifier used as
// the fallback predictor for purpose and subcategory.
package bayes

import (
	"strings"
	"unicode"
)

// Tokenize splits text into one token per CJK unified ideograph followed by
// every maximal run of ASCII letters and digits, lowercased.
func Tokenize(text string) []string {
	var cjk, words []string
	var run strings.Builder

	flush := func() {
		if run.Len() > 0 {
			words = append(words, run.String())
			run.Reset()
		}
	}

	for _, r := range text {
		switch {
		case r >= 0x4e00 && r <= 0x9fff:
			flush()
			cjk = append(cjk, string(r))
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			run.WriteRune(unicode.ToLower(r))
		default:
			flush()
		}
	}
	flush()

	return append(cjk, words...)
}
