package rag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hiraku/types"
)

func turn(role, content string, minute int) types.ChatMessage {
	return types.ChatMessage{
		Role:      role,
		Content:   content,
		Timestamp: time.Date(2026, 1, 1, 10, minute, 0, 0, time.UTC),
	}
}

func contents(msgs []types.ChatMessage) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

func TestFilterHistoryKeepsRelevantDropsUnrelated(t *testing.T) {
	history := []types.ChatMessage{
		turn(types.RoleUser, "hi", 0),
		turn(types.RoleAssistant, "Hello! Ask me anything.", 1),
		turn(types.RoleUser, "tell me about cats", 2),
		turn(types.RoleAssistant, "Cats are described in chapter two: cats sleep a lot.", 3),
	}

	got := FilterHistory(history, NormalizeQuestion("More about cats please"))
	require.Len(t, got, 2)
	assert.Equal(t, []string{
		"tell me about cats",
		"Cats are described in chapter two: cats sleep a lot.",
	}, contents(got))
}

func TestFilterHistoryChronologicalOrderAndCap(t *testing.T) {
	history := []types.ChatMessage{
		turn(types.RoleUser, "cats one", 0),
		turn(types.RoleAssistant, "cats two", 1),
		turn(types.RoleUser, "cats three", 2),
		turn(types.RoleAssistant, "cats four", 3),
	}

	got := FilterHistory(history, "cats")
	// Newest three win, returned oldest-first.
	assert.Equal(t, []string{"cats two", "cats three", "cats four"}, contents(got))
}

func TestFilterHistoryWindowBoundsScan(t *testing.T) {
	history := []types.ChatMessage{
		turn(types.RoleUser, "cats way back", 0), // outside the window
		turn(types.RoleUser, "weather", 1),
		turn(types.RoleAssistant, "sunny", 2),
		turn(types.RoleUser, "stocks", 3),
		turn(types.RoleAssistant, "up", 4),
		turn(types.RoleUser, "dinner", 5),
		turn(types.RoleAssistant, "pasta", 6),
	}

	got := FilterHistory(history, "cats")
	assert.Empty(t, got)
}

func TestFilterHistoryEmptyInputs(t *testing.T) {
	assert.Nil(t, FilterHistory(nil, "cats"))
	assert.Empty(t, FilterHistory([]types.ChatMessage{turn(types.RoleUser, "cats", 0)}, "   "))
}
