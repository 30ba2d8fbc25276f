package rag

import (
	"strings"

	"hiraku/types"
)

const (
	// historyWindow bounds how far back relevance scanning looks.
	historyWindow = 6
	// maxRelevantTurns bounds how many past turns enter the prompt.
	maxRelevantTurns = 3
)

// FilterHistory selects up to three of the most recent six messages
// that share at least one token with the normalized question, scanning
// newest-first, and returns them in chronological order. This trades
// completeness for topical relevance and a bounded prompt.
func FilterHistory(history []types.ChatMessage, normalizedQuestion string) []types.ChatMessage {
	if len(history) == 0 {
		return nil
	}

	questionTokens := tokenSet(normalizedQuestion)
	if len(questionTokens) == 0 {
		return nil
	}

	recent := history
	if len(recent) > historyWindow {
		recent = recent[len(recent)-historyWindow:]
	}

	var selected []types.ChatMessage
	for i := len(recent) - 1; i >= 0 && len(selected) < maxRelevantTurns; i-- {
		if sharesToken(questionTokens, recent[i].Content) {
			selected = append(selected, recent[i])
		}
	}

	// Selection order is newest-first; restore chronological order.
	for i, j := 0, len(selected)-1; i < j; i, j = i+1, j-1 {
		selected[i], selected[j] = selected[j], selected[i]
	}
	return selected
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func sharesToken(tokens map[string]struct{}, text string) bool {
	for _, f := range strings.Fields(strings.ToLower(text)) {
		if _, ok := tokens[f]; ok {
			return true
		}
	}
	return false
}
