package search

import "strings"

// Stop words ignored when checking for verbatim matches.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "we": true, "our": true, "need": true, "my": true,
}

// tokenizeAndFilter splits text into lowercase words without surrounding
// punctuation or stop words.
func tokenizeAndFilter(text string) []string {
	words := strings.Fields(strings.ReplaceAll(text, "_", " "))
	filtered := make([]string, 0, len(words))
	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))
		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}
	return filtered
}

// containsAllQueryWords reports whether every filtered query word occurs in
// one of the documents.
func containsAllQueryWords(query string, documents ...string) bool {
	queryWords := tokenizeAndFilter(query)
	if len(queryWords) == 0 {
		return false
	}
	docWords := make(map[string]bool)
	for _, d := range documents {
		for _, w := range tokenizeAndFilter(d) {
			docWords[w] = true
		}
	}
	for _, w := range queryWords {
		if !docWords[w] {
			return false
		}
	}
	return true
}
