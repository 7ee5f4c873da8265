package model

import (
	"strings"
	"unicode"
)

// tokenize lower-cases text and splits it into words. Han characters are
// emitted one per token since CJK text has no word separators.
func tokenize(text string) []string {
	var tokens []string
	var word strings.Builder

	flush := func() {
		if word.Len() == 0 {
			return
		}
		token := word.String()
		word.Reset()

		// Skip very short words and common stop words
		if len([]rune(token)) < 2 || isStopWord(token) {
			return
		}
		tokens = append(tokens, token)
	}

	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()

	return tokens
}

var stopWords = map[string]bool{
	"the": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "is": true,
	"are": true, "was": true, "were": true, "be": true, "been": true,
	"have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "could": true, "should": true,
}

func isStopWord(word string) bool {
	return stopWords[word]
}
