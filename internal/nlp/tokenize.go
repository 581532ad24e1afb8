package nlp

import (
	"regexp"
	"strings"
)

// Terms of two or more word characters, the same shape the original
// vectorizer accepted. Single-letter tokens carry no signal.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Tokenize lowercases text and splits it into vocabulary terms with stop
// words removed.
func Tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)

	terms := make([]string, 0, len(raw))
	for _, t := range raw {
		if IsStopWord(t) {
			continue
		}
		terms = append(terms, t)
	}
	return terms
}
