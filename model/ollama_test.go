package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		assert.Equal(t, "test-model", req.Model)
		require.NotEmpty(t, req.Messages)

		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: Message{Role: "assistant", Content: "  cats sleep a lot \n"},
			Done:    true,
		})
	}))
	defer srv.Close()

	c := NewOllamaChat(srv.URL, "test-model")
	got, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "what do cats do?"}})
	require.NoError(t, err)
	assert.Equal(t, "cats sleep a lot", got)
}

func TestOllamaChatStream(t *testing.T) {
	fragments := []string{"Cats ", "sleep ", "a lot."}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		enc := json.NewEncoder(w)
		for i, f := range fragments {
			enc.Encode(ollamaChatResponse{
				Message: Message{Role: "assistant", Content: f},
				Done:    i == len(fragments)-1,
			})
		}
	}))
	defer srv.Close()

	c := NewOllamaChat(srv.URL, "test-model")
	var deltas []string
	got, err := c.ChatStream(context.Background(), []Message{{Role: "user", Content: "q"}}, func(d string) {
		deltas = append(deltas, d)
	})
	require.NoError(t, err)
	assert.Equal(t, fragments, deltas, "fragments arrive in order, unbuffered")
	assert.Equal(t, "Cats sleep a lot.", got)
}

func TestOllamaChatServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewOllamaChat(srv.URL, "test-model")
	_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "q"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestOllamaEmbedderNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaEmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "embed-model", req.Model)

		json.NewEncoder(w).Encode(ollamaEmbeddingResponse{Embedding: []float64{3, 4}})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "embed-model")
	vec, err := e.Embed(context.Background(), "some text")
	require.NoError(t, err)
	require.Len(t, vec, 2)
	assert.InDelta(t, 0.6, vec[0], 1e-6)
	assert.InDelta(t, 0.8, vec[1], 1e-6)
}

func TestOllamaEmbedderEmptyEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbeddingResponse{})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "embed-model")
	_, err := e.Embed(context.Background(), "some text")
	assert.Error(t, err)
}
