package decompose

import (
	"strconv"
	"strings"
)

// stopWords are filtered out of keyword extraction.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "being": true, "have": true, "has": true,
	"had": true, "do": true, "does": true, "did": true, "will": true,
	"would": true, "could": true, "should": true, "may": true, "might": true,
	"must": true, "shall": true, "can": true, "this": true, "that": true,
	"these": true, "those": true, "it": true, "its": true, "of": true,
	"in": true, "on": true, "at": true, "to": true, "for": true,
	"with": true, "by": true, "from": true, "as": true, "into": true,
	"through": true, "during": true, "before": true, "after": true,
	"above": true, "below": true, "between": true, "under": true,
	"when": true, "then": true, "also": true, "all": true, "each": true,
	"new": true, "task": true, "tasks": true,
}

// technicalTerms mark a description as implementation-heavy.
var technicalTerms = map[string]bool{
	"api": true, "database": true, "schema": true, "migration": true,
	"endpoint": true, "service": true, "queue": true, "cache": true,
	"auth": true, "authentication": true, "authorization": true,
	"deploy": true, "deployment": true, "pipeline": true, "index": true,
	"transaction": true, "concurrency": true, "protocol": true,
	"integration": true, "backend": true, "frontend": true, "cli": true,
	"storage": true, "encryption": true, "websocket": true, "grpc": true,
	"rest": true, "graphql": true, "kubernetes": true, "docker": true,
}

// extractKeywords tokenizes content and returns the significant
// lowercase words in first-seen order, skipping short words, stop
// words, and duplicates.
func extractKeywords(content string) []string {
	words := strings.FieldsFunc(content, func(c rune) bool {
		return !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9'))
	})

	var keywords []string
	seen := make(map[string]bool)
	for _, word := range words {
		lower := strings.ToLower(word)
		if len(lower) < 3 || stopWords[lower] || seen[lower] {
			continue
		}
		seen[lower] = true
		keywords = append(keywords, lower)
	}
	return keywords
}

// countWords counts whitespace-separated words.
func countWords(content string) int {
	return len(strings.Fields(content))
}

// technicalTermCount counts distinct technical terms in the content.
func technicalTermCount(content string) int {
	count := 0
	for _, kw := range extractKeywords(content) {
		if technicalTerms[kw] {
			count++
		}
	}
	return count
}

// extractSteps pulls enumerated items out of a description: bulleted
// lines and numbered lines, in order. Returns nil when the
// description has no usable enumeration.
func extractSteps(description string) []string {
	var steps []string
	for _, line := range strings.Split(description, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if item, ok := enumeratedItem(line); ok && item != "" {
			steps = append(steps, item)
		}
	}
	return steps
}

// enumeratedItem strips a bullet or number prefix from a line and
// reports whether the line was enumerated at all.
func enumeratedItem(line string) (string, bool) {
	if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") {
		return strings.TrimSpace(line[2:]), true
	}

	// Numbered forms: "1. foo", "2) foo".
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(line) {
		return "", false
	}
	if _, err := strconv.Atoi(line[:i]); err != nil {
		return "", false
	}
	if line[i] == '.' || line[i] == ')' {
		return strings.TrimSpace(line[i+1:]), true
	}
	return "", false
}
