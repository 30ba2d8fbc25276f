package rag

import "strings"

// greetings is the fixed set of casual phrases that short-circuit
// retrieval: searching a document corpus for "hi" wastes a query and
// produces meaningless context.
var greetings = map[string]struct{}{
	"hi":             {},
	"hi there":       {},
	"hello":          {},
	"hello there":    {},
	"hey":            {},
	"hey there":      {},
	"yo":             {},
	"greetings":      {},
	"good morning":   {},
	"good afternoon": {},
	"good evening":   {},
	"how are you":    {},
	"what's up":      {},
	"whats up":       {},
}

// NormalizeQuestion lowercases the question and strips surrounding
// whitespace and trailing punctuation. Used for matching only; the
// verbatim question is what reaches the language model.
func NormalizeQuestion(q string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	return strings.TrimRight(q, ".!?,;: ")
}

// IsGreeting reports whether a normalized question is a casual greeting.
func IsGreeting(normalized string) bool {
	_, ok := greetings[normalized]
	return ok
}
