package rag

import (
	"fmt"

	"hiraku/model"
	"hiraku/types"
)

const accurateInstruction = `You are an assistant answering questions about the user's documents.
Answer using only the provided document context. If the exact information is not present in the context, reply "I don't have enough information to answer that." Do not guess and do not use outside knowledge.`

const interactiveInstruction = `You are an assistant answering questions about the user's documents.
Prefer the provided document context. You may supplement with your own knowledge when the context is incomplete, but every such addition must be tagged inline as [AI Knowledge: ...] so the user can tell it apart from document content.`

const flexibleInstruction = `You are an assistant answering questions about the user's documents.
Prefer the provided document context. You may supplement with your own knowledge, tagging every such addition inline as [AI Knowledge: ...].
Your own knowledge has a training cutoff and may be outdated; say so when it matters. For obscure or niche topics, warn the user that your supplementary details may be unreliable rather than presenting them as fact.`

func systemInstruction(mode types.PrecisionMode) string {
	switch mode {
	case types.ModeInteractive:
		return interactiveInstruction
	case types.ModeFlexible:
		return flexibleInstruction
	default:
		return accurateInstruction
	}
}

// BuildMessages assembles the ordered message sequence for the language
// model: system instruction, document context (if any), filtered history
// turns, then the verbatim question. Callers must not reorder it.
func BuildMessages(mode types.PrecisionMode, contextText string, history []types.ChatMessage, question string) []model.Message {
	messages := []model.Message{
		{Role: types.RoleSystem, Content: systemInstruction(mode)},
	}
	if contextText != "" {
		messages = append(messages, model.Message{
			Role:    types.RoleSystem,
			Content: fmt.Sprintf("Context from the user's documents:\n%s", contextText),
		})
	}
	for _, turn := range history {
		messages = append(messages, model.Message{Role: turn.Role, Content: turn.Content})
	}
	return append(messages, model.Message{Role: types.RoleUser, Content: question})
}
