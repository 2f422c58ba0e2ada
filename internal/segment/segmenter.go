// Package segment splits extracted document text into ordered sentences.
package segment

import (
	"strings"
	"unicode"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Segmenter = (*Segmenter)(nil)

// defaultAbbreviations are trailing tokens after which a period does not end
// a sentence. Matched case-insensitively without the period.
var defaultAbbreviations = []string{
	"e.g", "i.e", "etc", "vs", "cf", "et", "al", "approx", "ca",
	"mr", "mrs", "ms", "dr", "prof", "gen", "rep", "sen", "st",
	"inc", "ltd", "co", "corp", "dept", "div",
	"fig", "no", "vol", "sec", "ver", "rev",
	"u.s", "u.k", "u.n",
}

// Segmenter is a punctuation-aware sentence splitter. Newline runs are hard
// boundaries; within a line, terminal punctuation ends a sentence unless it
// belongs to an abbreviation, a number, or an inline identifier such as
// "T1059.003".
type Segmenter struct {
	abbreviations map[string]struct{}
}

// New creates a segmenter with the default abbreviation list.
func New() *Segmenter {
	abbr := make(map[string]struct{}, len(defaultAbbreviations))
	for _, a := range defaultAbbreviations {
		abbr[a] = struct{}{}
	}
	return &Segmenter{abbreviations: abbr}
}

// Segment splits text into sentences with dense orders 0..N-1.
// No characters are lost beyond the whitespace trimmed at boundaries: an
// empty document yields no segments and a run-on paragraph yields one.
func (s *Segmenter) Segment(text string) []domain.Segment {
	runes := []rune(text)
	var segs []domain.Segment
	var cur []rune

	flush := func() {
		t := strings.TrimSpace(string(cur))
		cur = cur[:0]
		if t != "" {
			segs = append(segs, domain.Segment{Text: t, Order: len(segs)})
		}
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' || r == '\r' {
			flush()
			continue
		}
		cur = append(cur, r)
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// Absorb closing quotes and brackets into the current sentence.
		for i+1 < len(runes) && isCloser(runes[i+1]) {
			i++
			cur = append(cur, runes[i])
		}
		if s.isBoundary(runes, i, cur) {
			flush()
		}
	}
	flush()

	return segs
}

// isBoundary decides whether the terminal punctuation at index i ends a
// sentence. cur holds the sentence accumulated so far, including the
// punctuation and any absorbed closers.
func (s *Segmenter) isBoundary(runes []rune, i int, cur []rune) bool {
	// Must be followed by whitespace or end of text. This keeps decimals,
	// dotted identifiers ("T1059.003") and URLs intact.
	if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
		return false
	}

	// Only periods participate in abbreviation handling.
	if last := lastPunct(cur); last == '.' {
		word := trailingWord(cur)
		if word != "" {
			if _, ok := s.abbreviations[strings.ToLower(word)]; ok {
				return false
			}
			// Single capital letter reads as an initial ("John Q. Public").
			if len(word) == 1 && unicode.IsUpper([]rune(word)[0]) {
				return false
			}
		}
	}

	// Peek at the next non-space rune; a lowercase continuation means the
	// punctuation likely did not end the sentence.
	for j := i + 1; j < len(runes); j++ {
		r := runes[j]
		if r == '\n' || r == '\r' {
			return true // newline flushes anyway
		}
		if unicode.IsSpace(r) {
			continue
		}
		return !unicode.IsLower(r)
	}
	return true
}

// trailingWord returns the word immediately before the final period of cur,
// keeping interior periods so "e.g." resolves to "e.g".
func trailingWord(cur []rune) string {
	end := len(cur)
	// Skip absorbed closers and the terminal punctuation itself.
	for end > 0 && (isCloser(cur[end-1]) || cur[end-1] == '.' || cur[end-1] == '!' || cur[end-1] == '?') {
		end--
	}
	start := end
	for start > 0 {
		r := cur[start-1]
		if unicode.IsLetter(r) || r == '.' {
			start--
			continue
		}
		break
	}
	return strings.TrimSuffix(string(cur[start:end]), ".")
}

func lastPunct(cur []rune) rune {
	for i := len(cur) - 1; i >= 0; i-- {
		switch cur[i] {
		case '.', '!', '?':
			return cur[i]
		}
		if !isCloser(cur[i]) {
			break
		}
	}
	return 0
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’':
		return true
	}
	return false
}
