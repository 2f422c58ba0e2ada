package classify

import (
	"strings"
	"unicode"
)

// Tokenize splits text into normalized bag-of-words tokens: lowercase runs of
// letters, digits and interior hyphens. Single characters and pure-numeric
// tokens carry little signal and are dropped; mixed tokens like "t1059" or
// "utf-8" are kept.
func Tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		word := cleanToken(current.String())
		current.Reset()
		if word == "" || len(word) <= 1 {
			return
		}
		if isNumericOnly(word) {
			return
		}
		tokens = append(tokens, word)
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-' {
			current.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()

	return tokens
}

// cleanToken strips leading/trailing hyphens left by dashes in prose.
func cleanToken(token string) string {
	return strings.Trim(token, "-")
}

func isNumericOnly(word string) bool {
	for _, r := range word {
		if !unicode.IsNumber(r) {
			return false
		}
	}
	return true
}
