package taxonomy

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// labelStopWords are dropped before counting label tokens.
var labelStopWords = map[string]bool{
	"and": true, "the": true, "of": true, "in": true, "for": true,
	"to": true, "with": true, "on": true, "by": true, "a": true,
	"an": true, "related": true, "are": true, "is": true,
}

// Labeler derives a category name from the text of its members.
type Labeler struct {
	stopWords map[string]bool
}

// NewLabeler returns a labeler using the default stop words.
func NewLabeler() *Labeler {
	return &Labeler{stopWords: labelStopWords}
}

// Tokens splits text on whitespace and underscores, lowercases, and removes
// stop words.
func (l *Labeler) Tokens(text string) []string {
	words := strings.Fields(strings.ReplaceAll(text, "_", " "))
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(w)
		if !l.stopWords[w] {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// Label returns "<Token>-related" for the most frequent token across texts,
// with ties going to the token seen first. When no token survives filtering
// the fallback is returned unchanged.
func (l *Labeler) Label(texts []string, fallback string) string {
	counts := make(map[string]int)
	var order []string
	for _, text := range texts {
		for _, tok := range l.Tokens(text) {
			if counts[tok] == 0 {
				order = append(order, tok)
			}
			counts[tok]++
		}
	}

	best, bestCount := "", 0
	for _, tok := range order {
		if counts[tok] > bestCount {
			best, bestCount = tok, counts[tok]
		}
	}
	if best == "" {
		return fallback
	}
	return capitalize(best) + "-related"
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

func macroFallback(m int) string {
	return fmt.Sprintf("Macrocategory %d", m)
}

func microFallback(m, j int) string {
	return fmt.Sprintf("Microcategory %d_%d", m, j)
}
