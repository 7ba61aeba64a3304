package service

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Quote length bounds, in runes after trimming
const (
	MinQuoteLength = 12
	MaxQuoteLength = 1000
)

var (
	quotedPattern     = regexp.MustCompile(`"([^"]+)"|“([^“”]+)”`)
	blockquotePattern = regexp.MustCompile(`(?m)^[ \t]*>[ \t]?(.*)$`)
	whitespace        = regexp.MustCompile(`\s+`)
)

type quoteCandidate struct {
	offset int
	text   string
}

// DetectQuotes finds passages worth saving as highlights: text between
// straight or curly double quotes, and runs of markdown "> " lines. Results
// keep their order of appearance and each passage appears once.
func DetectQuotes(text string) []string {
	var candidates []quoteCandidate

	for _, m := range quotedPattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[2], m[3]
		if start < 0 {
			start, end = m[4], m[5]
		}
		candidates = append(candidates, quoteCandidate{offset: m[0], text: text[start:end]})
	}

	// Consecutive blockquote lines form one passage
	var (
		block      []string
		blockStart = -1
		lastEnd    = -1
	)
	flush := func() {
		if len(block) > 0 {
			candidates = append(candidates, quoteCandidate{offset: blockStart, text: strings.Join(block, " ")})
		}
		block, blockStart = nil, -1
	}
	for _, m := range blockquotePattern.FindAllStringSubmatchIndex(text, -1) {
		if lastEnd >= 0 && m[0] != lastEnd+1 {
			flush()
		}
		if blockStart < 0 {
			blockStart = m[0]
		}
		block = append(block, text[m[2]:m[3]])
		lastEnd = m[1]
	}
	flush()

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].offset < candidates[j].offset
	})

	seen := make(map[string]bool)
	quotes := []string{}
	for _, c := range candidates {
		q := whitespace.ReplaceAllString(strings.TrimSpace(c.text), " ")
		n := utf8.RuneCountInString(q)
		if n < MinQuoteLength || n > MaxQuoteLength || seen[q] {
			continue
		}
		seen[q] = true
		quotes = append(quotes, q)
	}
	return quotes
}
