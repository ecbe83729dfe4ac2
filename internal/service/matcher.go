package service

import (
	"strings"
	"unicode/utf8"

	"grocery/catalog/internal/client"
	"grocery/catalog/internal/config"
	"grocery/catalog/internal/domain"
)

// query is a normalized search query
type query struct {
	text             string   // lowercased, trimmed
	words            []string // words long enough to count for matching
	wordMatchRatio   float64
	singleWordMinLen int
}

func newQuery(raw string, cfg config.SearchConfig) query {
	text := strings.ToLower(strings.TrimSpace(raw))

	words := make([]string, 0)
	for _, w := range strings.Fields(text) {
		if utf8.RuneCountInString(w) >= cfg.MinWordLength {
			words = append(words, w)
		}
	}

	return query{
		text:             text,
		words:            words,
		wordMatchRatio:   cfg.WordMatchRatio,
		singleWordMinLen: cfg.SingleWordMinLen,
	}
}

// matches applies, in order: the whole query as a substring; for multi-word
// queries, a minimum share of the words as substrings; otherwise a long
// enough word as the prefix or part of some word of the product text
func (q query) matches(raw domain.RawProduct) bool {
	text := client.SearchableText(raw)

	if strings.Contains(text, q.text) {
		return true
	}

	if len(q.words) > 1 {
		required := int(float64(len(q.words)) * q.wordMatchRatio)
		if required < 1 {
			required = 1
		}
		matched := 0
		for _, w := range q.words {
			if strings.Contains(text, w) {
				matched++
			}
		}
		return matched >= required
	}

	textWords := strings.Fields(text)
	for _, w := range q.words {
		if utf8.RuneCountInString(w) < q.singleWordMinLen {
			continue
		}
		for _, tw := range textWords {
			if strings.HasPrefix(tw, w) || strings.Contains(tw, w) {
				return true
			}
		}
	}
	return false
}
